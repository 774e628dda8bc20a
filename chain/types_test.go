package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/timecoin/timecoin/ids"
)

func TestSortTransactionsOrdersDependentAfterProducer(t *testing.T) {
	var owner ids.ShortID
	seedOp := OutPoint{TxID: ids.NewID([]byte("seed")), Vout: 0}

	producer := &Transaction{
		Inputs:  []TxIn{{OutPoint: seedOp}},
		Outputs: []TxOut{{Address: owner, Amount: 90}},
		Fee:     10,
	}
	dependent := &Transaction{
		Inputs:  []TxIn{{OutPoint: OutPoint{TxID: producer.ID(), Vout: 0}}},
		Outputs: []TxOut{{Address: owner, Amount: 80}},
		Fee:     10,
	}

	// Handed to SortTransactions in the "wrong" order.
	txs := []*Transaction{dependent, producer}
	SortTransactions(txs)

	assert.Equal(t, producer.ID(), txs[0].ID(), "producer must precede its dependent")
	assert.Equal(t, dependent.ID(), txs[1].ID())
}

func TestSortTransactionsTieBreaksLexicographicallyAmongIndependent(t *testing.T) {
	var owner ids.ShortID
	a := &Transaction{Inputs: []TxIn{{OutPoint: OutPoint{TxID: ids.NewID([]byte("a")), Vout: 0}}}, Outputs: []TxOut{{Address: owner, Amount: 1}}}
	b := &Transaction{Inputs: []TxIn{{OutPoint: OutPoint{TxID: ids.NewID([]byte("b")), Vout: 0}}}, Outputs: []TxOut{{Address: owner, Amount: 2}}}

	forward := []*Transaction{a, b}
	SortTransactions(forward)

	reversed := []*Transaction{b, a}
	SortTransactions(reversed)

	assert.Equal(t, forward[0].ID(), reversed[0].ID(), "order must be derivable from the tx set alone, independent of input order")
	assert.Equal(t, forward[1].ID(), reversed[1].ID())
}

func TestSortTransactionsIsStableAcrossRepeatedCalls(t *testing.T) {
	var owner ids.ShortID
	seedOp := OutPoint{TxID: ids.NewID([]byte("seed2")), Vout: 0}
	producer := &Transaction{Inputs: []TxIn{{OutPoint: seedOp}}, Outputs: []TxOut{{Address: owner, Amount: 50}, {Address: owner, Amount: 50}}}
	depA := &Transaction{Inputs: []TxIn{{OutPoint: OutPoint{TxID: producer.ID(), Vout: 0}}}, Outputs: []TxOut{{Address: owner, Amount: 40}}}
	depB := &Transaction{Inputs: []TxIn{{OutPoint: OutPoint{TxID: producer.ID(), Vout: 1}}}, Outputs: []TxOut{{Address: owner, Amount: 40}}}

	first := []*Transaction{depB, depA, producer}
	SortTransactions(first)
	firstRoot := MerkleRoot(first)

	second := []*Transaction{producer, depB, depA}
	SortTransactions(second)
	secondRoot := MerkleRoot(second)

	assert.Equal(t, firstRoot, secondRoot, "merkle root must match regardless of the caller's original tx order")
}
