package utxo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/timecoin/timecoin/chain"
	"github.com/timecoin/timecoin/ids"
)

func genesisUTXO(m *Manager, amount uint64, owner ids.ShortID) chain.OutPoint {
	op := chain.OutPoint{TxID: ids.NewID([]byte(owner.String())), Vout: 0}
	m.Seed([]*chain.UTXO{{OutPoint: op, Amount: amount, Owner: owner, State: chain.StateUnspent}})
	return op
}

func TestLockInputsNoDoubleSpend(t *testing.T) {
	m := NewManager()
	var owner ids.ShortID
	op := genesisUTXO(m, 100, owner)

	txA := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: op}}, Outputs: []chain.TxOut{{Address: owner, Amount: 90}}, Fee: 10}
	txB := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: op}}, Outputs: []chain.TxOut{{Address: owner, Amount: 80}}, Fee: 20}

	assert.NoError(t, m.LockInputs(txA, nil, false))
	assert.ErrorIs(t, m.LockInputs(txB, nil, false), ErrAlreadyLocked)

	m.FinalizeSpend(txA)
	u, ok := m.Get(op)
	assert.True(t, ok)
	assert.Equal(t, chain.StateSpentFinalized, u.State)

	// Retrying B after finalization fails because the output is spent, not
	// merely locked.
	assert.ErrorIs(t, m.LockInputs(txB, nil, false), ErrAlreadySpent)
}

func TestLockInputsAllOrNothing(t *testing.T) {
	m := NewManager()
	var owner ids.ShortID
	op1 := genesisUTXO(m, 100, owner)
	op2 := chain.OutPoint{TxID: ids.NewID([]byte("missing")), Vout: 0}

	tx := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: op1}, {OutPoint: op2}}}
	err := m.LockInputs(tx, nil, false)
	assert.ErrorIs(t, err, ErrNotFound)

	u, ok := m.Get(op1)
	assert.True(t, ok)
	assert.Equal(t, chain.StateUnspent, u.State, "partial failure must not lock any input")
}

func TestRejectLockIsIdempotent(t *testing.T) {
	m := NewManager()
	var owner ids.ShortID
	op := genesisUTXO(m, 100, owner)
	tx := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: op}}}

	assert.NoError(t, m.LockInputs(tx, nil, false))
	m.RejectLock(tx)
	u, _ := m.Get(op)
	assert.Equal(t, chain.StateUnspent, u.State)

	// Calling again is a no-op, not an error.
	m.RejectLock(tx)
	u, _ = m.Get(op)
	assert.Equal(t, chain.StateUnspent, u.State)
}

func TestConfirmBlockThenRollbackBlockRestoresState(t *testing.T) {
	m := NewManager()
	var owner ids.ShortID
	op := genesisUTXO(m, 100, owner)
	tx := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: op}}, Outputs: []chain.TxOut{{Address: owner, Amount: 90}}, Fee: 10}
	b := &chain.Block{Transactions: []*chain.Transaction{tx}}

	m.ConfirmBlock(b)
	spent, ok := m.Get(op)
	assert.True(t, ok)
	assert.Equal(t, chain.StateConfirmed, spent.State)

	created := chain.OutPoint{TxID: tx.ID(), Vout: 0}
	out, ok := m.Get(created)
	assert.True(t, ok)
	assert.Equal(t, chain.StateUnspent, out.State)

	assert.NoError(t, m.RollbackBlock(b))

	restored, ok := m.Get(op)
	assert.True(t, ok)
	assert.Equal(t, chain.StateUnspent, restored.State, "append commutativity: confirm then rollback restores prior state")

	_, ok = m.Get(created)
	assert.False(t, ok, "rollback removes the created output")
}

func TestRollbackBlockFailsIfDescendantSpentOutput(t *testing.T) {
	m := NewManager()
	var owner ids.ShortID
	op := genesisUTXO(m, 100, owner)
	tx := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: op}}, Outputs: []chain.TxOut{{Address: owner, Amount: 90}}, Fee: 10}
	b := &chain.Block{Transactions: []*chain.Transaction{tx}}
	m.ConfirmBlock(b)

	created := chain.OutPoint{TxID: tx.ID(), Vout: 0}
	spendCreated := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: created}}, Outputs: []chain.TxOut{{Address: owner, Amount: 80}}, Fee: 10}
	descendant := &chain.Block{Transactions: []*chain.Transaction{spendCreated}}
	m.ConfirmBlock(descendant)

	assert.ErrorIs(t, m.RollbackBlock(b), ErrDescendantSpent)
}

func TestCollateralOutpointRejectsRegularSpend(t *testing.T) {
	m := NewManager()
	var owner ids.ShortID
	op := genesisUTXO(m, 100, owner)
	checker := fakeCollateral{op: op}
	tx := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: op}}}

	assert.ErrorIs(t, m.LockInputs(tx, checker, false), ErrCollateral)
	assert.NoError(t, m.LockInputs(tx, checker, true), "explicit unlock transactions bypass the collateral guard")
}

type fakeCollateral struct{ op chain.OutPoint }

func (f fakeCollateral) IsLockedCollateral(op chain.OutPoint) bool { return op == f.op }
