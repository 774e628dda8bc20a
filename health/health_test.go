package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/timecoin/timecoin/ids"
	"github.com/timecoin/timecoin/masternode"
)

type fakeActiveSet struct{ records []*masternode.Record }

func (f fakeActiveSet) ActiveSet(time.Time) []*masternode.Record { return f.records }

type fakeTip struct{ height uint64 }

func (f *fakeTip) TipHeight() uint64 { return f.height }

func TestActiveSetCheckFailsWhenEmpty(t *testing.T) {
	c := NewChecker(fakeActiveSet{}, &fakeTip{}, func() time.Time { return time.Unix(0, 0) }, time.Minute)
	_, err := (activeSetCheck{c: c}).Execute()
	assert.Error(t, err)
}

func TestActiveSetCheckPassesWhenNonEmpty(t *testing.T) {
	recs := []*masternode.Record{{Address: ids.ShortEmpty}}
	c := NewChecker(fakeActiveSet{records: recs}, &fakeTip{}, func() time.Time { return time.Unix(0, 0) }, time.Minute)
	_, err := (activeSetCheck{c: c}).Execute()
	assert.NoError(t, err)
}

func TestChainLivenessFailsAfterStall(t *testing.T) {
	tip := &fakeTip{height: 10}
	now := time.Unix(1000, 0)
	c := NewChecker(fakeActiveSet{}, tip, func() time.Time { return now }, time.Minute)

	// First execution observes height 10 and records it as "just advanced".
	_, err := (chainLivenessCheck{c: c}).Execute()
	assert.NoError(t, err)

	// Height doesn't move and the clock jumps past the stall window.
	now = now.Add(2 * time.Minute)
	_, err = (chainLivenessCheck{c: c}).Execute()
	assert.Error(t, err)
}

func TestChainLivenessPassesWhenTipAdvances(t *testing.T) {
	tip := &fakeTip{height: 10}
	now := time.Unix(1000, 0)
	c := NewChecker(fakeActiveSet{}, tip, func() time.Time { return now }, time.Minute)

	_, err := (chainLivenessCheck{c: c}).Execute()
	assert.NoError(t, err)

	now = now.Add(2 * time.Minute)
	tip.height = 11
	_, err = (chainLivenessCheck{c: c}).Execute()
	assert.NoError(t, err)
}
