package tsdc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/timecoin/timecoin/ids"
	"github.com/timecoin/timecoin/masternode"
)

func recs(addrs ...byte) []*masternode.Record {
	out := make([]*masternode.Record, len(addrs))
	for i, a := range addrs {
		var addr ids.ShortID
		addr[0] = a
		out[i] = &masternode.Record{Address: addr, Tier: masternode.Bronze}
	}
	return out
}

func TestElectLeaderDeterministic(t *testing.T) {
	active := recs(1, 2, 3, 4, 5)
	parent := ids.NewID([]byte("parent"))

	l1 := ElectLeader(active, parent, 10, false)
	l2 := ElectLeader(active, parent, 10, false)
	assert.Equal(t, l1.Address, l2.Address, "same inputs must elect the same leader")
}

func TestElectLeaderWeightingChangesDistributionNotDeterminism(t *testing.T) {
	active := append(recs(1, 2), &masternode.Record{Address: func() ids.ShortID { var a ids.ShortID; a[0] = 3; return a }(), Tier: masternode.Gold})
	parent := ids.NewID([]byte("parent2"))

	l1 := ElectLeader(active, parent, 7, true)
	l2 := ElectLeader(active, parent, 7, true)
	assert.Equal(t, l1.Address, l2.Address)
}

func TestSlotStart(t *testing.T) {
	genesis := time.Unix(1_700_000_000, 0).UTC()
	got := SlotStart(genesis, 5, 600)
	assert.Equal(t, genesis.Add(3000*time.Second), got)
}

func TestExpectedHeightAndIsBehind(t *testing.T) {
	genesis := time.Unix(1_700_000_000, 0).UTC()
	now := genesis.Add(3700 * time.Second) // slot 6 underway
	assert.Equal(t, uint64(6), ExpectedHeight(genesis, now, 600))
	assert.True(t, IsBehind(2, genesis, now, 600, 3))
	assert.False(t, IsBehind(5, genesis, now, 600, 3))
}

func TestCatchUpLeaderHighestWeightedUptime(t *testing.T) {
	var lo, hi ids.ShortID
	lo[0], hi[0] = 1, 2
	active := []*masternode.Record{
		{Address: lo, Tier: masternode.Bronze},
		{Address: hi, Tier: masternode.Gold},
	}
	uptime := map[ids.ShortID]time.Duration{lo: time.Hour, hi: time.Minute}
	leader := CatchUpLeader(active, func(a ids.ShortID) time.Duration { return uptime[a] })
	assert.Equal(t, hi, leader.Address, "gold tier's weight (100) dominates bronze's longer raw uptime")
}
