// Package utxo implements the UTXO state manager of spec.md §4.1: a
// sharded concurrent map of OutPoint -> UTXO, single-writer-per-key.
// Reads are not lock-free: each read takes its shard's mutex, the same
// one writers hold. Grounded on the teacher's snowstorm/tx.go Tx interface
// (InputIDs() ids.Set identifies what a transaction consumes) and on
// vms/avm/tx.go's UTXO-consumption model, reworked from the AVM's
// asset/fx abstraction down to this spec's plain amount-and-owner UTXO.
package utxo

import (
	"errors"
	"hash/fnv"
	"sync"

	"github.com/timecoin/timecoin/chain"
)

const numShards = 16

// Errors returned by LockInputs, matching the distinct variants spec.md
// §4.1 requires.
var (
	ErrAlreadyLocked = errors.New("utxo: output already locked")
	ErrAlreadySpent  = errors.New("utxo: output already spent")
	ErrNotFound      = errors.New("utxo: output not found")
	ErrCollateral    = errors.New("utxo: output is locked collateral")
)

// CollateralChecker answers whether an outpoint is currently held as
// masternode collateral, so LockInputs can refuse ordinary spends against
// it (spec.md §4.1). It is satisfied by masternode.Registry; kept as a
// narrow interface here to avoid an import cycle between utxo and
// masternode (the registry itself validates collateral against utxo.Manager).
type CollateralChecker interface {
	IsLockedCollateral(op chain.OutPoint) bool
}

type shard struct {
	mu   sync.Mutex
	utxo map[chain.OutPoint]*chain.UTXO
}

// Manager is the UTXO state manager.
type Manager struct {
	shards [numShards]*shard
}

// NewManager returns an empty UTXO state manager.
func NewManager() *Manager {
	m := &Manager{}
	for i := range m.shards {
		m.shards[i] = &shard{utxo: make(map[chain.OutPoint]*chain.UTXO)}
	}
	return m
}

func (m *Manager) shardFor(op chain.OutPoint) *shard {
	h := fnv.New32a()
	_, _ = h.Write(op.Bytes())
	return m.shards[h.Sum32()%numShards]
}

// Get returns the current UTXO for op, if any, holding op's shard mutex
// for the lookup.
func (m *Manager) Get(op chain.OutPoint) (*chain.UTXO, bool) {
	s := m.shardFor(op)
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.utxo[op]
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

// create inserts a copy of u as given (state included), overwriting any
// existing entry; Seed uses it for genesis seeding. It is not idempotent
// by itself; callers that need the confirm_block no-op semantics should
// use ConfirmBlock, which inserts its outputs directly.
func (m *Manager) create(u *chain.UTXO) {
	s := m.shardFor(u.OutPoint)
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.utxo[u.OutPoint] = &cp
}

// LockInputs scans every input of tx; if all referenced outputs are
// Unspent (and not locked collateral, unless isCollateralUnlock is set and
// matches the registry), it atomically transitions them all to Locked. On
// any failure nothing is mutated — spec.md §4.1's all-or-nothing guarantee
// and §8's "All-or-nothing locking" property.
func (m *Manager) LockInputs(tx *chain.Transaction, collateral CollateralChecker, isCollateralUnlock bool) error {
	ops := tx.InputOutPoints()

	// Sort shard acquisition order by shard index to avoid deadlocks when
	// two transactions share inputs across different shards.
	order := uniqueShardOrder(m, ops)
	locked := make([]*sync.Mutex, 0, len(order))
	defer func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].Unlock()
		}
	}()
	for _, idx := range order {
		m.shards[idx].mu.Lock()
		locked = append(locked, &m.shards[idx].mu)
	}

	// Validate first; mutate only if every input passes.
	for _, op := range ops {
		s := m.shardFor(op)
		u, ok := s.utxo[op]
		if !ok {
			return ErrNotFound
		}
		if collateral != nil && collateral.IsLockedCollateral(op) && !isCollateralUnlock {
			return ErrCollateral
		}
		switch u.State {
		case chain.StateUnspent:
			// ok
		case chain.StateLocked:
			return ErrAlreadyLocked
		default:
			return ErrAlreadySpent
		}
	}

	for _, op := range ops {
		s := m.shardFor(op)
		s.utxo[op].State = chain.StateLocked
	}
	return nil
}

func uniqueShardOrder(m *Manager, ops []chain.OutPoint) []int {
	seen := make(map[int]bool)
	order := make([]int, 0, len(ops))
	for _, op := range ops {
		h := fnv.New32a()
		_, _ = h.Write(op.Bytes())
		idx := int(h.Sum32() % numShards)
		if !seen[idx] {
			seen[idx] = true
			order = append(order, idx)
		}
	}
	// simple insertion sort; numShards is small
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && order[j-1] > order[j]; j-- {
			order[j-1], order[j] = order[j], order[j-1]
		}
	}
	return order
}

// FinalizeSpend transitions tx's inputs Locked -> SpentPending ->
// SpentFinalized and creates its outputs as Unspent. Idempotent: if an
// input is already SpentFinalized (or beyond) and the outputs already
// exist, repeated calls are a no-op, which is required when a block
// containing the spend is replayed during reorganization (spec.md §4.1).
func (m *Manager) FinalizeSpend(tx *chain.Transaction) {
	for _, op := range tx.InputOutPoints() {
		s := m.shardFor(op)
		s.mu.Lock()
		if u, ok := s.utxo[op]; ok && (u.State == chain.StateLocked || u.State == chain.StateSpentPending) {
			u.State = chain.StateSpentFinalized
		}
		s.mu.Unlock()
	}
	txid := tx.ID()
	for i, out := range tx.Outputs {
		op := chain.OutPoint{TxID: txid, Vout: uint32(i)}
		s := m.shardFor(op)
		s.mu.Lock()
		if _, exists := s.utxo[op]; !exists {
			s.utxo[op] = &chain.UTXO{OutPoint: op, Amount: out.Amount, Owner: out.Address, State: chain.StateUnspent}
		}
		s.mu.Unlock()
	}
}

// RejectLock returns tx's Locked inputs to Unspent. Idempotent: inputs not
// currently Locked are left untouched.
func (m *Manager) RejectLock(tx *chain.Transaction) {
	for _, op := range tx.InputOutPoints() {
		s := m.shardFor(op)
		s.mu.Lock()
		if u, ok := s.utxo[op]; ok && u.State == chain.StateLocked {
			u.State = chain.StateUnspent
		}
		s.mu.Unlock()
	}
}

// ConfirmBlock marks every output a block's transactions spend as
// Confirmed and creates every new output as Unspent. Re-adding an
// already-present Unspent output is a no-op, required for fork replay
// (spec.md §4.1).
func (m *Manager) ConfirmBlock(b *chain.Block) {
	for _, tx := range b.Transactions {
		for _, op := range tx.InputOutPoints() {
			s := m.shardFor(op)
			s.mu.Lock()
			if u, ok := s.utxo[op]; ok {
				u.State = chain.StateConfirmed
			}
			s.mu.Unlock()
		}
		txid := tx.ID()
		for i, out := range tx.Outputs {
			op := chain.OutPoint{TxID: txid, Vout: uint32(i)}
			s := m.shardFor(op)
			s.mu.Lock()
			if _, exists := s.utxo[op]; !exists {
				s.utxo[op] = &chain.UTXO{OutPoint: op, Amount: out.Amount, Owner: out.Address, State: chain.StateUnspent, Height: b.Header.Height}
			}
			s.mu.Unlock()
		}
	}
}

// ErrDescendantSpent is returned by RollbackBlock when a created output
// has already been spent by a descendant block; the caller must rewind
// descendants first (spec.md §4.1).
var ErrDescendantSpent = errors.New("utxo: created output already spent by a descendant block")

// RollbackBlock reverses ConfirmBlock: created outputs are removed (only
// if still Unspent), and spent outputs are restored to Unspent.
func (m *Manager) RollbackBlock(b *chain.Block) error {
	// First pass: verify every created output is still Unspent (or
	// already removed by a prior partial rollback attempt).
	for _, tx := range b.Transactions {
		txid := tx.ID()
		for i := range tx.Outputs {
			op := chain.OutPoint{TxID: txid, Vout: uint32(i)}
			s := m.shardFor(op)
			s.mu.Lock()
			u, ok := s.utxo[op]
			if ok && u.State != chain.StateUnspent {
				s.mu.Unlock()
				return ErrDescendantSpent
			}
			s.mu.Unlock()
		}
	}

	for i := len(b.Transactions) - 1; i >= 0; i-- {
		tx := b.Transactions[i]
		txid := tx.ID()
		for j := range tx.Outputs {
			op := chain.OutPoint{TxID: txid, Vout: uint32(j)}
			s := m.shardFor(op)
			s.mu.Lock()
			delete(s.utxo, op)
			s.mu.Unlock()
		}
		for _, op := range tx.InputOutPoints() {
			s := m.shardFor(op)
			s.mu.Lock()
			if u, ok := s.utxo[op]; ok {
				u.State = chain.StateUnspent
			}
			s.mu.Unlock()
		}
	}
	return nil
}

// Seed inserts a batch of genesis UTXOs directly as Unspent, bypassing the
// block lifecycle. Used only at chain bootstrap.
func (m *Manager) Seed(utxos []*chain.UTXO) {
	for _, u := range utxos {
		m.create(u)
	}
}
