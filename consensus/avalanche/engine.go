// Package avalanche implements the per-transaction finality engine of
// spec.md §4.4: repeated-sampling rounds over the active masternode set,
// feeding a consensus/snowball.Counter until it finalizes or the round cap
// is exhausted. Grounded on the teacher's snow/engine/avalanche/voter.go
// poll-bookkeeping pattern (v.t.polls.Vote(...) / v.t.Consensus.RecordPoll(...))
// restructured from DAG-vertex voting to a single-transaction round loop,
// since this spec has no vertex/DAG layer above the mempool.
package avalanche

import (
	"context"
	"math/rand"
	"time"

	"github.com/timecoin/timecoin/chain"
	"github.com/timecoin/timecoin/config"
	"github.com/timecoin/timecoin/consensus/snowball"
	"github.com/timecoin/timecoin/ids"
	"github.com/timecoin/timecoin/masternode"
	"github.com/timecoin/timecoin/metrics"
	"github.com/timecoin/timecoin/utils/crypto"
	"github.com/timecoin/timecoin/utils/logging"
)

// Sampler returns the active masternode set at a point in time, satisfied
// by masternode.Registry.
type Sampler interface {
	ActiveSet(now time.Time) []*masternode.Record
}

// PoolAdapter is the slice of mempool.Pool the engine drives.
type PoolAdapter interface {
	MarkVoting(txid ids.ID) error
	MarkFinalized(txid ids.ID) error
	MarkRejected(txid ids.ID, reason error, now time.Time) error
}

// UTXOAdapter is the slice of utxo.Manager the engine drives.
type UTXOAdapter interface {
	FinalizeSpend(tx *chain.Transaction)
	RejectLock(tx *chain.Transaction)
}

// Querier dispatches a single round's query to one masternode and returns
// its vote, or ok=false if the response didn't arrive within the round
// timeout or failed signature verification — both folded into
// "disagreement" per spec.md §4.4.
type Querier interface {
	Query(ctx context.Context, node *masternode.Record, txid ids.ID, tx *chain.Transaction, timeout time.Duration) (vote snowball.Preference, ok bool)
}

// Broadcaster announces the outcome of a finalized or rejected transaction.
type Broadcaster interface {
	BroadcastFinalityProof(proof *FinalityProof)
	BroadcastRejected(txid ids.ID)
}

// ErrRoundCapExhausted is the RejectReason recorded in mempool when a
// transaction fails to reach beta consecutive quorums within RoundCap
// rounds (spec.md §4.4).
var ErrRoundCapExhausted = roundCapErr{}

type roundCapErr struct{}

func (roundCapErr) Error() string { return "avalanche: round cap exhausted without finalization" }

// Engine drives the per-transaction Avalanche round procedure.
type Engine struct {
	params      config.AvalancheParams
	sampler     Sampler
	pool        PoolAdapter
	utxos       UTXOAdapter
	querier     Querier
	broadcaster Broadcaster
	signer      *crypto.PrivateKey
	signerAddr  ids.ShortID
	log         *logging.Logger
	rng         *rand.Rand
	metrics     *metrics.Registry
}

// NewEngine wires the engine's collaborators; signer signs the node's own
// contribution to the FinalityProof it broadcasts on finalization. m may
// be nil, in which case rounds and outcomes are simply not reported
// (every engine test except TestEngineRecordsFinalizationMetrics builds
// its engine without a registry).
func NewEngine(params config.AvalancheParams, sampler Sampler, pool PoolAdapter, utxos UTXOAdapter, querier Querier, broadcaster Broadcaster, signer *crypto.PrivateKey, signerAddr ids.ShortID, log *logging.Logger, m *metrics.Registry) *Engine {
	return &Engine{
		params:      params,
		sampler:     sampler,
		pool:        pool,
		utxos:       utxos,
		querier:     querier,
		broadcaster: broadcaster,
		signer:      signer,
		signerAddr:  signerAddr,
		log:         log,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		metrics:     m,
	}
}

// Run drives txid through the round procedure until it finalizes or the
// round cap is exhausted. localValid is the node's own syntactic/semantic
// validation result, seeding the counter's initial preference (spec.md
// §4.4: "Accept if local validation passed, Reject otherwise"). Run blocks
// until a decision is reached or ctx is canceled; callers invoke it in its
// own goroutine per transaction, mirroring the teacher's one-voter-per-poll
// shape in voter.go.
func (e *Engine) Run(ctx context.Context, tx *chain.Transaction, localValid bool) {
	if e.metrics != nil {
		defer metrics.Timer(e.metrics.AvalancheDecisionSeconds)()
	}

	txid := tx.ID()
	initial := snowball.Reject
	if localValid {
		initial = snowball.Accept
	}
	counter := snowball.NewCounter(initial, snowball.Parameters{K: e.params.K, Alpha: e.params.Alpha, Beta: e.params.Beta})

	if err := e.pool.MarkVoting(txid); err != nil {
		e.log.Debug("avalanche: %s not found in pool at vote start: %v", txid, err)
		return
	}

	var responses []*SignedVote
	for round := 0; round < e.params.RoundCap; round++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(e.params.RoundDelay):
		}

		active := e.sampler.ActiveSet(time.Now())
		pool := active
		if e.params.WeightedSampling {
			pool = masternode.ExpandWeighted(active)
		}
		sample := masternode.SampleDistinct(pool, e.params.K, e.rng)

		roundPref := counter.Preference()
		agree, disagree, votes := e.queryRound(ctx, sample, txid, tx, roundPref)
		if agree >= e.params.Alpha {
			responses = votes
			e.recordRoundMetric("quorum")
		} else {
			responses = nil
			e.recordRoundMetric("no-quorum")
		}

		if counter.RecordRound(agree, disagree) {
			e.finalize(txid, tx, responses)
			return
		}
	}

	e.reject(txid, tx)
}

// queryRound dispatches one round's queries concurrently across sample and
// tallies agree/disagree against roundPref. Missing or invalid responses
// count as disagreement (spec.md §4.4). votes collects every accepting,
// signed response observed this round, used to assemble a FinalityProof if
// this round happens to finalize.
func (e *Engine) queryRound(ctx context.Context, sample []*masternode.Record, txid ids.ID, tx *chain.Transaction, roundPref snowball.Preference) (agree, disagree int, votes []*SignedVote) {
	type result struct {
		node *masternode.Record
		pref snowball.Preference
		ok   bool
	}

	roundCtx, cancel := context.WithTimeout(ctx, e.params.RoundTimeout)
	defer cancel()

	results := make(chan result, len(sample))
	for _, node := range sample {
		node := node
		go func() {
			pref, ok := e.querier.Query(roundCtx, node, txid, tx, e.params.RoundTimeout)
			results <- result{node: node, pref: pref, ok: ok}
		}()
	}

	for range sample {
		r := <-results
		if !r.ok {
			disagree++
			continue
		}
		if r.pref == roundPref {
			agree++
			if r.pref == snowball.Accept {
				votes = append(votes, &SignedVote{Voter: r.node.Address})
			}
		} else {
			disagree++
		}
	}
	return agree, disagree, votes
}

// recordRoundMetric is a no-op when the engine was built without a
// metrics registry.
func (e *Engine) recordRoundMetric(result string) {
	if e.metrics != nil {
		e.metrics.AvalancheRounds.WithLabelValues(result).Inc()
	}
}

func (e *Engine) finalize(txid ids.ID, tx *chain.Transaction, votes []*SignedVote) {
	if e.metrics != nil {
		e.metrics.AvalancheOutcomes.WithLabelValues("finalized").Inc()
	}
	e.utxos.FinalizeSpend(tx)
	if err := e.pool.MarkFinalized(txid); err != nil {
		e.log.Warn("avalanche: marking %s finalized: %v", txid, err)
	}
	proof := &FinalityProof{
		TxID:      txid,
		Votes:     votes,
		Signer:    e.signerAddr,
		Signature: e.signer.Sign(txid[:]),
	}
	e.log.Debug("avalanche: %s finalized after quorum (%s)", txid, chain.FormatAmount(chain.TotalOut(tx)))
	e.broadcaster.BroadcastFinalityProof(proof)
}

func (e *Engine) reject(txid ids.ID, tx *chain.Transaction) {
	if e.metrics != nil {
		e.metrics.AvalancheOutcomes.WithLabelValues("rejected").Inc()
	}
	e.utxos.RejectLock(tx)
	if err := e.pool.MarkRejected(txid, ErrRoundCapExhausted, time.Now()); err != nil {
		e.log.Warn("avalanche: marking %s rejected: %v", txid, err)
	}
	e.log.Debug("avalanche: %s rejected after round cap", txid)
	e.broadcaster.BroadcastRejected(txid)
}
