// Package forkresolver implements spec.md §4.7's single unified
// resolve_fork entry point: circuit breaker, common-ancestor discovery,
// an accept/reject decision delegated to forkscore.Scorer, and rollback
// plus replay execution. Grounded on the common-ancestor walk and
// cumulative-depth guard of
// other_examples/.../klingnet__internal-chain-reorg.go's
// collectBranch/Reorg pair, folded into one entry point per spec.md §4.7
// (the source's up-to-four legacy fork paths are explicitly out of
// scope).
package forkresolver

import (
	"errors"
	"sync"
	"time"

	"github.com/timecoin/timecoin/blockstore"
	"github.com/timecoin/timecoin/chain"
	"github.com/timecoin/timecoin/forkscore"
	"github.com/timecoin/timecoin/ids"
	"github.com/timecoin/timecoin/metrics"
	"github.com/timecoin/timecoin/utils/logging"
	"github.com/timecoin/timecoin/utxo"
)

// MaxReorgDepth bounds how far back resolve_fork will walk to find a
// common ancestor (spec.md §4.7: "MAX_REORG_DEPTH = 100").
const MaxReorgDepth = 100

// MaxCircuitBreakerAttempts and CircuitBreakerWindow bound retries of a
// single fork epoch (spec.md §4.7).
const (
	MaxCircuitBreakerAttempts = 50
	CircuitBreakerWindow      = 15 * time.Minute
)

var (
	// ErrExceededRetries is returned once a peer/fork-epoch pair has been
	// retried past the circuit breaker's bound.
	ErrExceededRetries = errors.New("forkresolver: exceeded retry budget for this fork")
	// ErrDeepFork is returned when the required reach to find a common
	// ancestor exceeds MaxReorgDepth.
	ErrDeepFork = errors.New("forkresolver: fork exceeds max reorg depth")
	// ErrNoCommonAncestor is returned when the supplied header range never
	// joins the local chain within MaxReorgDepth.
	ErrNoCommonAncestor = errors.New("forkresolver: no common ancestor within range")
	// ErrRejected is returned when the accept-fork decision rejects the
	// candidate branch.
	ErrRejected = errors.New("forkresolver: candidate branch rejected")
	// ErrAppendFailed is returned when replaying a candidate block fails
	// after rollback; the caller's retry budget is consumed.
	ErrAppendFailed = errors.New("forkresolver: candidate block failed to append during replay")
)

// PeerConsensus reports, for a candidate tip, how many of the polled
// active peers agree on it (spec.md §4.7: "require ≥50% of polled active
// peers to agree on the peer's tip").
type PeerConsensus interface {
	Consensus(candidateTip ids.ID) (agree, polled int)
	// PeersOnOurChain reports how many polled active peers currently
	// extend our own tip, used by the minority-alone deadlock-breaker
	// (spec.md §4.7: "if our chain has zero peers on it ... force-accept").
	PeersOnOurChain() int
}

// Validator re-validates a block at replay time, the same check resolve_fork's
// append path runs during normal block production (blockstore.Validator
// satisfies this).
type Validator interface {
	ValidateBlock(b *chain.Block, alreadyFinalized func(txid [32]byte) bool) error
}

type breakerEntry struct {
	attempts  int
	firstSeen time.Time
}

// Resolver implements resolve_fork. One Resolver instance serializes
// every reorg decision+execution behind its fork-resolution lock, the
// single-writer discipline spec.md §4.7 requires.
type Resolver struct {
	mu sync.Mutex // the fork-resolution lock: held for decide+execute

	store     *blockstore.Store
	utxos     *utxo.Manager
	validator Validator
	scorer    forkscore.Scorer
	log       *logging.Logger
	metrics   *metrics.Registry

	breakerMu sync.Mutex
	breakers  map[ids.ShortID]*breakerEntry
}

// NewResolver wires a Resolver's collaborators. m may be nil, in which
// case resolutions simply aren't reported (every test in this package
// except TestResolveForkRecordsDispositionMetrics does exactly that).
func NewResolver(store *blockstore.Store, utxos *utxo.Manager, validator Validator, scorer forkscore.Scorer, log *logging.Logger, m *metrics.Registry) *Resolver {
	return &Resolver{
		store:     store,
		utxos:     utxos,
		validator: validator,
		scorer:    scorer,
		log:       log,
		metrics:   m,
		breakers:  make(map[ids.ShortID]*breakerEntry),
	}
}

// recordDisposition is a no-op when the Resolver was built without a
// metrics registry.
func (r *Resolver) recordDisposition(disposition string) {
	if r.metrics != nil {
		r.metrics.ForkResolutions.WithLabelValues(disposition).Inc()
	}
}

// checkAndTrip implements the per-peer, per-fork-epoch circuit breaker:
// the attempt counter increments on each invocation; exceeding 50
// attempts or 15 minutes since the first attempt for this peer fails
// closed and clears the tracker (spec.md §4.7).
func (r *Resolver) checkAndTrip(peer ids.ShortID, now time.Time) error {
	r.breakerMu.Lock()
	defer r.breakerMu.Unlock()

	e, ok := r.breakers[peer]
	if !ok {
		e = &breakerEntry{firstSeen: now}
		r.breakers[peer] = e
	}
	e.attempts++

	if e.attempts > MaxCircuitBreakerAttempts || now.Sub(e.firstSeen) > CircuitBreakerWindow {
		delete(r.breakers, peer)
		return ErrExceededRetries
	}
	return nil
}

// clearBreaker resets a peer's retry tracker after a successful
// resolution.
func (r *Resolver) clearBreaker(peer ids.ShortID) {
	r.breakerMu.Lock()
	defer r.breakerMu.Unlock()
	delete(r.breakers, peer)
}

// ResolveFork is spec.md §4.7's single entry point. blocks is the
// candidate branch as received from peer, in ascending height order,
// starting strictly above the claimed common ancestor. peerHeight is the
// peer's advertised tip height; it is not read here, since the branch
// comparison works off blocks and the local store.
// isWhitelisted selects the relaxed whitelisted-peer accept rule of
// spec.md §4.7 over the scored/polled rule.
func (r *Resolver) ResolveFork(peer ids.ShortID, peerHeight uint64, blocks []*chain.Block, isWhitelisted bool, consensus PeerConsensus, now time.Time) error {
	if err := r.checkAndTrip(peer, now); err != nil {
		r.recordDisposition("exceeded-retries")
		return err
	}
	if len(blocks) == 0 {
		r.recordDisposition("no-common-ancestor")
		return ErrNoCommonAncestor
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ancestorHeight, err := r.findCommonAncestor(blocks)
	if err != nil {
		r.recordDisposition(dispositionFor(err))
		return err
	}

	candidateTip := blocks[len(blocks)-1]
	local, err := r.localSnapshot()
	if err != nil {
		r.recordDisposition("no-common-ancestor")
		return err
	}
	candidate := r.candidateSnapshot(candidateTip, consensus, isWhitelisted)

	if !r.decide(local, candidate, isWhitelisted, consensus, r.store.TipHash(), candidateTip.Header.Hash()) {
		r.recordDisposition("rejected")
		return ErrRejected
	}

	if err := r.execute(ancestorHeight, blocks); err != nil {
		r.recordDisposition("append-failed")
		return ErrAppendFailed
	}

	r.clearBreaker(peer)
	r.recordDisposition("accepted")
	r.log.Info("forkresolver: reorganized to peer %s's branch, new tip height %d", peer, candidateTip.Header.Height)
	return nil
}

// dispositionFor maps findCommonAncestor's sentinel errors to the metric
// label recorded for them.
func dispositionFor(err error) string {
	if err == ErrDeepFork {
		return "deep-fork"
	}
	return "no-common-ancestor"
}

// findCommonAncestor walks blocks from its earliest entry, requiring
// each to link to either the previous entry in blocks or an
// already-stored local block at height-1 with a matching hash (spec.md
// §4.7: "scan received headers and local store walking backward
// simultaneously; success is the highest h with matching hash"). Returns
// the ancestor's height, i.e. one below the first block in blocks.
func (r *Resolver) findCommonAncestor(blocks []*chain.Block) (uint64, error) {
	first := blocks[0]
	if first.Header.Height == 0 {
		return 0, ErrNoCommonAncestor
	}
	ancestorHeight := first.Header.Height - 1
	if r.store.TipHeight() >= ancestorHeight && r.store.TipHeight()-ancestorHeight > MaxReorgDepth {
		return 0, ErrDeepFork
	}

	ancestor, err := r.store.GetBlockByHeight(ancestorHeight)
	if err != nil {
		return 0, ErrNoCommonAncestor
	}
	if ancestor.Header.Hash() != first.Header.PrevHash {
		return 0, ErrNoCommonAncestor
	}

	for i := 1; i < len(blocks); i++ {
		if blocks[i].Header.PrevHash != blocks[i-1].Header.Hash() {
			return 0, ErrNoCommonAncestor
		}
	}
	return ancestorHeight, nil
}

func (r *Resolver) localSnapshot() (forkscore.Snapshot, error) {
	tip, err := r.store.GetBlockByHeight(r.store.TipHeight())
	if err != nil {
		return forkscore.Snapshot{}, err
	}
	return forkscore.Snapshot{
		Height:       tip.Header.Height,
		WorkProxy:    tip.Header.Height,
		TipTimestamp: tip.Header.Timestamp,
	}, nil
}

func (r *Resolver) candidateSnapshot(tip *chain.Block, consensus PeerConsensus, whitelisted bool) forkscore.Snapshot {
	snap := forkscore.Snapshot{
		Height:       tip.Header.Height,
		WorkProxy:    tip.Header.Height,
		TipTimestamp: tip.Header.Timestamp,
		Whitelisted:  whitelisted,
	}
	if consensus != nil {
		agree, polled := consensus.Consensus(tip.Header.Hash())
		if polled > 0 {
			snap.PeerConsensusRatio = float64(agree) / float64(polled)
		}
	}
	return snap
}

// decide applies spec.md §4.7's accept rules in order: the minority-alone
// deadlock-breaker (force-accept when nobody is left on our own chain),
// then whitelisted peers needing only one other active peer confirming
// the same ancestor branch (no scoring), then everyone else needing
// >=50% polled-peer agreement AND the pluggable scorer to accept — with
// same-height candidates resolved purely by lexicographic block-hash
// tie-break instead of the scorer, per spec.md §4.7's "Else" rule.
func (r *Resolver) decide(local, candidate forkscore.Snapshot, whitelisted bool, consensus PeerConsensus, localHash, candidateHash ids.ID) bool {
	if consensus != nil && consensus.PeersOnOurChain() == 0 {
		return true
	}

	if whitelisted {
		if consensus == nil {
			return true
		}
		agree, _ := consensus.Consensus(candidateHash)
		return agree >= 1
	}

	if candidate.PeerConsensusRatio < 0.5 {
		return false
	}
	if local.Height == candidate.Height {
		return candidateHash.Less(localHash)
	}
	return r.scorer.AcceptFork(local, candidate)
}

// execute runs rollback_to(ancestor) then appends blocks in order,
// validating each via Validator before committing it (spec.md §4.7).
// Any append failure aborts with the chain left at whatever height was
// last successfully committed; the caller's retry budget is consumed.
func (r *Resolver) execute(ancestorHeight uint64, blocks []*chain.Block) error {
	if err := r.store.RollbackTo(ancestorHeight, r.utxos); err != nil {
		return err
	}
	for _, b := range blocks {
		if err := r.validator.ValidateBlock(b, nil); err != nil {
			return err
		}
		if err := r.store.CommitBlock(b, r.utxos); err != nil {
			return err
		}
	}
	return nil
}
