package avalanche

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/timecoin/timecoin/chain"
	"github.com/timecoin/timecoin/ids"
)

func TestTxCacheRoundTrips(t *testing.T) {
	c, err := NewTxCache(time.Minute)
	assert.NoError(t, err)

	var addr ids.ShortID
	op := chain.OutPoint{TxID: ids.NewID([]byte("cache-seed")), Vout: 0}
	tx := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: op}}, Outputs: []chain.TxOut{{Address: addr, Amount: 5}}, Fee: 1}

	assert.NoError(t, c.Put(tx))

	got, ok := c.Get(tx.ID())
	assert.True(t, ok)
	assert.Equal(t, tx.ID(), got.ID())
}

func TestTxCacheMissOnUnknownTxid(t *testing.T) {
	c, err := NewTxCache(time.Minute)
	assert.NoError(t, err)

	_, ok := c.Get(ids.NewID([]byte("never-inserted")))
	assert.False(t, ok)
}
