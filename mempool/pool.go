// Package mempool implements the transaction pool of spec.md §4.2: a
// bounded, fee-rate-evicting holding area for pending, voting, finalized
// and recently-rejected transactions. Grounded on the teacher's
// vms/avm/tx.go transaction lifecycle (status transitions via setStatus)
// and on the conflict-bookkeeping idiom of
// snow/consensus/snowstorm/conflicts/conflicts.go, reworked from a
// DAG conflict-set into this spec's flat fee-ordered pool.
package mempool

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/timecoin/timecoin/chain"
	"github.com/timecoin/timecoin/ids"
	"github.com/timecoin/timecoin/utxo"
)

// State is the lifecycle state of a PoolEntry (spec.md §3).
type State int

const (
	Pending State = iota
	Voting
	Finalized
	Rejected
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Voting:
		return "Voting"
	case Finalized:
		return "Finalized"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Entry is spec.md §3's PoolEntry.
type Entry struct {
	TxID       ids.ID
	Tx         *chain.Transaction
	ReceivedAt time.Time
	FeeRate    float64
	State      State
	RejectedAt time.Time
	RejectReason error
}

var (
	ErrFull             = errors.New("mempool: pool is full")
	ErrAlreadyPresent   = errors.New("mempool: transaction already in pool")
	ErrUnknownTx        = errors.New("mempool: unknown transaction")
)

// Pool is the bounded transaction pool.
type Pool struct {
	mu         sync.Mutex
	entries    map[ids.ID]*Entry
	totalBytes int

	maxCount int
	maxBytes int
	rejectedTTL time.Duration
	finalizedHorizon time.Duration

	utxos      *utxo.Manager
	collateral utxo.CollateralChecker
}

// NewPool returns an empty pool bounded by maxCount/maxBytes.
func NewPool(utxos *utxo.Manager, collateral utxo.CollateralChecker, maxCount, maxBytes int, rejectedTTL, finalizedHorizon time.Duration) *Pool {
	return &Pool{
		entries:          make(map[ids.ID]*Entry),
		maxCount:         maxCount,
		maxBytes:         maxBytes,
		rejectedTTL:      rejectedTTL,
		finalizedHorizon: finalizedHorizon,
		utxos:            utxos,
		collateral:       collateral,
	}
}

// Insert validates tx syntactically (inputs present, Σin >= Σout+fee is
// checked by the caller who resolves input amounts — the pool itself only
// owns lock_inputs and bookkeeping), locks its inputs, and records it as
// Pending.
func (p *Pool) Insert(tx *chain.Transaction, now time.Time, isCollateralUnlock bool) (*Entry, error) {
	txid := tx.ID()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.entries[txid]; exists {
		return nil, ErrAlreadyPresent
	}

	if err := p.utxos.LockInputs(tx, p.collateral, isCollateralUnlock); err != nil {
		return nil, err
	}

	size := tx.Size()
	if err := p.makeRoom(size); err != nil {
		p.utxos.RejectLock(tx)
		return nil, err
	}

	e := &Entry{
		TxID:       txid,
		Tx:         tx,
		ReceivedAt: now,
		FeeRate:    tx.FeeRate(),
		State:      Pending,
	}
	p.entries[txid] = e
	p.totalBytes += size
	return e, nil
}

// makeRoom evicts lowest-fee-rate evictable entries (Pending, Voting or
// Rejected — never Finalized, which is about to be committed) until tx of
// addBytes would fit within maxCount/maxBytes. Must be called with p.mu
// held.
func (p *Pool) makeRoom(addBytes int) error {
	if len(p.entries)+1 <= p.maxCount && p.totalBytes+addBytes <= p.maxBytes {
		return nil
	}

	var evictable []*Entry
	for _, e := range p.entries {
		if e.State != Finalized {
			evictable = append(evictable, e)
		}
	}
	sort.Slice(evictable, func(i, j int) bool { return evictable[i].FeeRate < evictable[j].FeeRate })

	for _, e := range evictable {
		if len(p.entries)+1 <= p.maxCount && p.totalBytes+addBytes <= p.maxBytes {
			break
		}
		p.removeLocked(e.TxID)
	}

	if len(p.entries)+1 > p.maxCount || p.totalBytes+addBytes > p.maxBytes {
		return ErrFull
	}
	return nil
}

func (p *Pool) removeLocked(txid ids.ID) {
	e, ok := p.entries[txid]
	if !ok {
		return
	}
	if e.State == Pending || e.State == Voting {
		p.utxos.RejectLock(e.Tx)
	}
	p.totalBytes -= e.Tx.Size()
	delete(p.entries, txid)
}

// MarkVoting transitions a Pending entry to Voting when Avalanche sampling
// begins for it.
func (p *Pool) MarkVoting(txid ids.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[txid]
	if !ok {
		return ErrUnknownTx
	}
	if e.State == Pending {
		e.State = Voting
	}
	return nil
}

// MarkFinalized transitions an entry to Finalized on Avalanche confidence
// threshold (the caller is responsible for having already called
// utxo.Manager.FinalizeSpend).
func (p *Pool) MarkFinalized(txid ids.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[txid]
	if !ok {
		return ErrUnknownTx
	}
	e.State = Finalized
	return nil
}

// MarkRejected transitions an entry to Rejected, releasing its input lock
// (via utxo.Manager.RejectLock, invoked by the caller) and retaining it
// for rejectedTTL for idempotent reject propagation (spec.md §4.2).
func (p *Pool) MarkRejected(txid ids.ID, reason error, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[txid]
	if !ok {
		return ErrUnknownTx
	}
	e.State = Rejected
	e.RejectedAt = now
	e.RejectReason = reason
	return nil
}

// Get returns the entry for txid, if present (including Rejected entries
// still within their TTL, for idempotent reject propagation).
func (p *Pool) Get(txid ids.ID) (*Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[txid]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}

// SelectFinalizedForBlock returns Finalized entries ordered by (receive
// time, then fee_rate descending) such that their total serialized size
// does not exceed limitBytes (spec.md §4.2).
func (p *Pool) SelectFinalizedForBlock(limitBytes int) []*Entry {
	p.mu.Lock()
	var finalized []*Entry
	for _, e := range p.entries {
		if e.State == Finalized {
			cp := *e
			finalized = append(finalized, &cp)
		}
	}
	p.mu.Unlock()

	sort.Slice(finalized, func(i, j int) bool {
		if !finalized[i].ReceivedAt.Equal(finalized[j].ReceivedAt) {
			return finalized[i].ReceivedAt.Before(finalized[j].ReceivedAt)
		}
		return finalized[i].FeeRate > finalized[j].FeeRate
	})

	finalized = OrderRespectingDependencies(finalized)

	var total int
	out := make([]*Entry, 0, len(finalized))
	for _, e := range finalized {
		sz := e.Tx.Size()
		if total+sz > limitBytes {
			continue
		}
		total += sz
		out = append(out, e)
	}
	return out
}

// Remove drops txid from the pool entirely, e.g. once its containing
// block has been committed (Finalized -> Confirmed is a pool removal,
// per spec.md §4.6).
func (p *Pool) Remove(txid ids.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[txid]; ok {
		p.totalBytes -= e.Tx.Size()
	}
	delete(p.entries, txid)
}

// Cleanup drops Finalized entries older than the block-inclusion horizon
// and Rejected entries past their TTL (spec.md §4.2).
func (p *Pool) Cleanup(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for txid, e := range p.entries {
		switch e.State {
		case Finalized:
			if now.Sub(e.ReceivedAt) > p.finalizedHorizon {
				delete(p.entries, txid)
				p.totalBytes -= e.Tx.Size()
			}
		case Rejected:
			if now.Sub(e.RejectedAt) > p.rejectedTTL {
				delete(p.entries, txid)
				p.totalBytes -= e.Tx.Size()
			}
		}
	}
}

// Len returns the number of entries currently in the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
