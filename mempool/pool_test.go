package mempool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/timecoin/timecoin/chain"
	"github.com/timecoin/timecoin/ids"
	"github.com/timecoin/timecoin/utxo"
)

func newTestPool(t *testing.T, maxCount, maxBytes int) (*Pool, *utxo.Manager) {
	t.Helper()
	utxos := utxo.NewManager()
	return NewPool(utxos, nil, maxCount, maxBytes, time.Hour, 10*time.Minute), utxos
}

func seedOutput(utxos *utxo.Manager, amount uint64, owner ids.ShortID, salt string) chain.OutPoint {
	op := chain.OutPoint{TxID: ids.NewID([]byte(salt)), Vout: 0}
	utxos.Seed([]*chain.UTXO{{OutPoint: op, Amount: amount, Owner: owner, State: chain.StateUnspent}})
	return op
}

func TestInsertConflictingTxFailsAtLockInputs(t *testing.T) {
	pool, utxos := newTestPool(t, 100, 1<<20)
	var owner ids.ShortID
	op := seedOutput(utxos, 100, owner, "a")

	txA := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: op}}, Outputs: []chain.TxOut{{Address: owner, Amount: 90}}, Fee: 10, Timestamp: 1}
	txB := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: op}}, Outputs: []chain.TxOut{{Address: owner, Amount: 80}}, Fee: 20, Timestamp: 2}

	_, err := pool.Insert(txA, time.Now(), false)
	assert.NoError(t, err)

	_, err = pool.Insert(txB, time.Now(), false)
	assert.ErrorIs(t, err, utxo.ErrAlreadyLocked)
}

func TestEvictionByLowestFeeRate(t *testing.T) {
	pool, utxos := newTestPool(t, 2, 1<<20)
	var owner ids.ShortID

	low := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: seedOutput(utxos, 100, owner, "low")}}, Outputs: []chain.TxOut{{Address: owner, Amount: 99}}, Fee: 1}
	mid := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: seedOutput(utxos, 100, owner, "mid")}}, Outputs: []chain.TxOut{{Address: owner, Amount: 95}}, Fee: 5}
	high := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: seedOutput(utxos, 100, owner, "high")}}, Outputs: []chain.TxOut{{Address: owner, Amount: 50}}, Fee: 50}

	_, err := pool.Insert(low, time.Now(), false)
	assert.NoError(t, err)
	_, err = pool.Insert(mid, time.Now(), false)
	assert.NoError(t, err)

	assert.Equal(t, 2, pool.Len())
	_, err = pool.Insert(high, time.Now(), false)
	assert.NoError(t, err)

	assert.Equal(t, 2, pool.Len())
	_, ok := pool.Get(low.ID())
	assert.False(t, ok, "lowest fee-rate entry must be evicted to make room")
	_, ok = pool.Get(high.ID())
	assert.True(t, ok)
}

func TestSelectFinalizedForBlockOrdering(t *testing.T) {
	pool, utxos := newTestPool(t, 100, 1<<20)
	var owner ids.ShortID

	t0 := time.Now()
	txA := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: seedOutput(utxos, 100, owner, "A")}}, Outputs: []chain.TxOut{{Address: owner, Amount: 90}}, Fee: 10}
	txB := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: seedOutput(utxos, 100, owner, "B")}}, Outputs: []chain.TxOut{{Address: owner, Amount: 95}}, Fee: 5}

	_, err := pool.Insert(txA, t0, false)
	assert.NoError(t, err)
	_, err = pool.Insert(txB, t0.Add(time.Millisecond), false)
	assert.NoError(t, err)

	assert.NoError(t, pool.MarkFinalized(txA.ID()))
	assert.NoError(t, pool.MarkFinalized(txB.ID()))

	selected := pool.SelectFinalizedForBlock(1 << 20)
	assert.Len(t, selected, 2)
	assert.Equal(t, txA.ID(), selected[0].TxID, "earlier receive time sorts first")
}

func TestCleanupDropsExpiredRejectedAndOldFinalized(t *testing.T) {
	pool, utxos := newTestPool(t, 100, 1<<20)
	var owner ids.ShortID
	tx := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: seedOutput(utxos, 100, owner, "x")}}, Outputs: []chain.TxOut{{Address: owner, Amount: 90}}, Fee: 10}

	now := time.Now()
	_, err := pool.Insert(tx, now, false)
	assert.NoError(t, err)
	assert.NoError(t, pool.MarkRejected(tx.ID(), assertErr, now))

	pool.Cleanup(now.Add(2 * time.Hour))
	_, ok := pool.Get(tx.ID())
	assert.False(t, ok, "rejected entries are dropped once past their TTL")
}

var assertErr = ErrUnknownTx
