package masternode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/timecoin/timecoin/chain"
	"github.com/timecoin/timecoin/ids"
	"github.com/timecoin/timecoin/utils/crypto"
	"github.com/timecoin/timecoin/utxo"
)

func TestRegisterWithCollateralAndActiveSet(t *testing.T) {
	now := time.Now()
	utxos := utxo.NewManager()
	var addr ids.ShortID
	addr[0] = 1
	op := chain.OutPoint{TxID: ids.NewID([]byte("collateral")), Vout: 0}
	utxos.Seed([]*chain.UTXO{{OutPoint: op, Amount: TierCollateralAmount[Gold], Owner: addr, State: chain.StateUnspent}})

	reg := NewRegistry(utxos, 30*time.Minute)
	key := crypto.PublicKey{}
	rec, err := reg.Register(addr, Gold, key, &op, now, 100)
	assert.NoError(t, err)
	assert.Equal(t, Gold, rec.Tier)

	assert.NoError(t, reg.Heartbeat(addr, now, true))
	active := reg.ActiveSet(now)
	assert.Len(t, active, 1)
	assert.Equal(t, addr, active[0].Address)
}

func TestRegisterBadCollateralVariants(t *testing.T) {
	now := time.Now()
	utxos := utxo.NewManager()
	var addr, other ids.ShortID
	addr[0], other[0] = 1, 2
	op := chain.OutPoint{TxID: ids.NewID([]byte("collateral")), Vout: 0}
	utxos.Seed([]*chain.UTXO{{OutPoint: op, Amount: TierCollateralAmount[Silver], Owner: other, State: chain.StateUnspent}})

	reg := NewRegistry(utxos, 30*time.Minute)

	_, err := reg.Register(addr, Silver, crypto.PublicKey{}, &op, now, 100)
	assert.ErrorIs(t, err, ErrBadCollateral, "owner mismatch")

	opGold := chain.OutPoint{TxID: ids.NewID([]byte("collateral2")), Vout: 0}
	utxos.Seed([]*chain.UTXO{{OutPoint: opGold, Amount: TierCollateralAmount[Silver], Owner: addr, State: chain.StateUnspent}})
	_, err = reg.Register(addr, Gold, crypto.PublicKey{}, &opGold, now, 100)
	assert.ErrorIs(t, err, ErrAmountMismatch)
}

func TestRegisterRejectsCollateralBelowConfirmationDepth(t *testing.T) {
	now := time.Now()
	utxos := utxo.NewManager()
	var addr ids.ShortID
	addr[0] = 4
	op := chain.OutPoint{TxID: ids.NewID([]byte("shallow-collateral")), Vout: 0}
	utxos.Seed([]*chain.UTXO{{OutPoint: op, Amount: TierCollateralAmount[Bronze], Owner: addr, State: chain.StateUnspent, Height: 100}})

	reg := NewRegistry(utxos, 30*time.Minute)

	_, err := reg.Register(addr, Bronze, crypto.PublicKey{}, &op, now, 100+MinCollateralConfirmations-1)
	assert.ErrorIs(t, err, ErrInsufficientConfirmations)

	rec, err := reg.Register(addr, Bronze, crypto.PublicKey{}, &op, now, 100+MinCollateralConfirmations)
	assert.NoError(t, err)
	assert.Equal(t, Bronze, rec.Tier)
}

func TestCleanupInvalidCollateralsDeregisters(t *testing.T) {
	now := time.Now()
	utxos := utxo.NewManager()
	var addr ids.ShortID
	addr[0] = 9
	op := chain.OutPoint{TxID: ids.NewID([]byte("c")), Vout: 0}
	utxos.Seed([]*chain.UTXO{{OutPoint: op, Amount: TierCollateralAmount[Bronze], Owner: addr, State: chain.StateUnspent}})
	reg := NewRegistry(utxos, 30*time.Minute)
	_, err := reg.Register(addr, Bronze, crypto.PublicKey{}, &op, now, 100)
	assert.NoError(t, err)
	assert.NoError(t, reg.Heartbeat(addr, now, true))
	assert.Len(t, reg.ActiveSet(now), 1)

	// Simulate the collateral outpoint being spent by a regular transaction
	// elsewhere (should never happen while it's a collateral lock, but
	// cleanup must still self-heal if it does).
	tx := &chain.Transaction{Inputs: []chain.TxIn{{OutPoint: op}}, Outputs: []chain.TxOut{{Address: addr, Amount: 1}}}
	b := &chain.Block{Transactions: []*chain.Transaction{tx}}
	utxos.ConfirmBlock(b)

	removed := reg.CleanupInvalidCollaterals(100)
	assert.Equal(t, []ids.ShortID{addr}, removed)
	assert.Empty(t, reg.ActiveSet(now))
}

func TestHeartbeatExpiry(t *testing.T) {
	now := time.Now()
	utxos := utxo.NewManager()
	var addr ids.ShortID
	addr[0] = 3
	reg := NewRegistry(utxos, 30*time.Minute)
	_, err := reg.Register(addr, Free, crypto.PublicKey{}, nil, now, 0)
	assert.NoError(t, err)
	assert.NoError(t, reg.Heartbeat(addr, now, true))
	assert.Len(t, reg.ActiveSet(now), 1)
	assert.Empty(t, reg.ActiveSet(now.Add(31*time.Minute)), "heartbeat past the validity window drops from the active set")
}
