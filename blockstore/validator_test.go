package blockstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/timecoin/timecoin/chain"
	"github.com/timecoin/timecoin/config"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/timecoin/timecoin/database/memdb"
	"github.com/timecoin/timecoin/ids"
	"github.com/timecoin/timecoin/masternode"
	"github.com/timecoin/timecoin/metrics"
	"github.com/timecoin/timecoin/tsdc"
	"github.com/timecoin/timecoin/utils/crypto"
	"github.com/timecoin/timecoin/utils/workerpool"
	"github.com/timecoin/timecoin/utxo"
)

func TestValidateBlockRejectsWrongHeight(t *testing.T) {
	store := NewStore(memdb.New(), 10)
	utxos := utxo.NewManager()
	genesis := makeBlock(0, ids.Empty)
	assert.NoError(t, store.CommitBlock(genesis, utxos))

	params := config.DefaultTSDCParams(time.Now())
	v := NewValidator(store, func(uint64) []*masternode.Record { return nil }, params, utxos, 1<<20, nil, nil)

	bad := makeBlock(5, genesis.Header.Hash())
	err := v.ValidateBlock(bad, nil)
	assert.Equal(t, ErrHeightMismatch, err)
}

func TestValidateBlockAcceptsCorrectLeaderAndSignature(t *testing.T) {
	key, err := crypto.NewPrivateKey()
	assert.NoError(t, err)
	var addr ids.ShortID
	addr[0] = 9

	store := NewStore(memdb.New(), 10)
	utxos := utxo.NewManager()
	genesis := makeBlock(0, ids.Empty)
	assert.NoError(t, store.CommitBlock(genesis, utxos))

	genesisTime := time.Now().Add(-time.Hour)
	params := config.DefaultTSDCParams(genesisTime)
	params.WeightedLeaderElection = false

	// A single-member active set is elected at every height regardless of
	// the parent hash, since leaderIndex mods by pool size 1.
	active := []*masternode.Record{{Address: addr, SigningKey: key.PublicKey(), Tier: masternode.Bronze}}
	const height = uint64(1)

	slotStart := tsdc.SlotStart(genesisTime, height, params.BlockIntervalSeconds)
	header := chain.BlockHeader{
		Height:          height,
		PrevHash:        genesis.Header.Hash(),
		MerkleRoot:      chain.MerkleRoot(nil),
		Timestamp:       slotStart.Unix(),
		ProducerAddress: addr,
	}
	header.ProducerSignature = key.Sign(header.UnsignedBytes())
	block := &chain.Block{Header: header}

	v := NewValidator(store, func(uint64) []*masternode.Record { return active }, params, utxos, 1<<20, nil, nil)
	assert.NoError(t, v.ValidateBlock(block, nil))
}

func TestValidateBlockAcceptsSameBlockDependentSpend(t *testing.T) {
	key, err := crypto.NewPrivateKey()
	assert.NoError(t, err)
	var addr ids.ShortID
	addr[0] = 9

	keyA, err := crypto.NewPrivateKey()
	assert.NoError(t, err)
	keyB, err := crypto.NewPrivateKey()
	assert.NoError(t, err)
	ownerA := chain.OwnerFromSignerKey(keyA.PublicKey())
	ownerB := chain.OwnerFromSignerKey(keyB.PublicKey())

	store := NewStore(memdb.New(), 10)
	utxos := utxo.NewManager()
	genesis := makeBlock(0, ids.Empty)
	assert.NoError(t, store.CommitBlock(genesis, utxos))

	seedOp := chain.OutPoint{TxID: ids.NewID([]byte("dep-seed")), Vout: 0}
	utxos.Seed([]*chain.UTXO{{OutPoint: seedOp, Amount: 100, Owner: ownerA, State: chain.StateUnspent}})

	// txB spends an output txA creates; txA is ordered after it in the raw
	// block body to exercise that the validator's own re-sort (not the
	// caller's order) is what makes the replay path see producer before
	// dependent.
	txA := &chain.Transaction{
		Inputs:  []chain.TxIn{{OutPoint: seedOp, SignerKey: keyA.PublicKey()}},
		Outputs: []chain.TxOut{{Address: ownerB, Amount: 90}},
		Fee:     10,
	}
	txA.Inputs[0].Signature = keyA.Sign(txA.UnsignedBytes())

	txB := &chain.Transaction{
		Inputs:  []chain.TxIn{{OutPoint: chain.OutPoint{TxID: txA.ID(), Vout: 0}, SignerKey: keyB.PublicKey()}},
		Outputs: []chain.TxOut{{Address: ownerA, Amount: 80}},
		Fee:     10,
	}
	txB.Inputs[0].Signature = keyB.Sign(txB.UnsignedBytes())

	canonical := []*chain.Transaction{txB, txA}
	chain.SortTransactions(canonical)
	assert.Equal(t, txA.ID(), canonical[0].ID(), "producer must sort before its dependent")

	genesisTime := time.Now().Add(-time.Hour)
	params := config.DefaultTSDCParams(genesisTime)
	params.WeightedLeaderElection = false
	active := []*masternode.Record{{Address: addr, SigningKey: key.PublicKey(), Tier: masternode.Bronze}}
	const height = uint64(1)

	slotStart := tsdc.SlotStart(genesisTime, height, params.BlockIntervalSeconds)
	header := chain.BlockHeader{
		Height:          height,
		PrevHash:        genesis.Header.Hash(),
		MerkleRoot:      chain.MerkleRoot(canonical),
		Timestamp:       slotStart.Unix(),
		ProducerAddress: addr,
	}
	header.ProducerSignature = key.Sign(header.UnsignedBytes())
	block := &chain.Block{Header: header, Transactions: []*chain.Transaction{txB, txA}}

	v := NewValidator(store, func(uint64) []*masternode.Record { return active }, params, utxos, 1<<20, nil, nil)
	assert.NoError(t, v.ValidateBlock(block, nil))
}

func TestValidateBlockRunsOnWorkerPoolAndRecordsMetrics(t *testing.T) {
	key, err := crypto.NewPrivateKey()
	assert.NoError(t, err)
	var addr ids.ShortID
	addr[0] = 9

	store := NewStore(memdb.New(), 10)
	utxos := utxo.NewManager()
	genesis := makeBlock(0, ids.Empty)
	assert.NoError(t, store.CommitBlock(genesis, utxos))

	genesisTime := time.Now().Add(-time.Hour)
	params := config.DefaultTSDCParams(genesisTime)
	params.WeightedLeaderElection = false

	active := []*masternode.Record{{Address: addr, SigningKey: key.PublicKey(), Tier: masternode.Bronze}}
	const height = uint64(1)

	slotStart := tsdc.SlotStart(genesisTime, height, params.BlockIntervalSeconds)
	header := chain.BlockHeader{
		Height:          height,
		PrevHash:        genesis.Header.Hash(),
		MerkleRoot:      chain.MerkleRoot(nil),
		Timestamp:       slotStart.Unix(),
		ProducerAddress: addr,
	}
	header.ProducerSignature = key.Sign(header.UnsignedBytes())
	block := &chain.Block{Header: header}

	pool := workerpool.New(2)
	defer pool.Shutdown()
	reg := metrics.NewRegistry()

	v := NewValidator(store, func(uint64) []*masternode.Record { return active }, params, utxos, 1<<20, pool, reg)
	assert.NoError(t, v.ValidateBlock(block, nil))
	assert.Equal(t, uint64(1), testutil.CollectAndCount(reg.BlockValidationSeconds))
}
