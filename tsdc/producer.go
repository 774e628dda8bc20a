package tsdc

import (
	"sync"
	"time"

	"github.com/timecoin/timecoin/chain"
	"github.com/timecoin/timecoin/config"
	"github.com/timecoin/timecoin/ids"
	"github.com/timecoin/timecoin/masternode"
	"github.com/timecoin/timecoin/mempool"
	"github.com/timecoin/timecoin/utils/crypto"
	"github.com/timecoin/timecoin/utils/logging"
)

// Sampler is the slice of masternode.Registry the producer needs: the
// active set for leader election, and per-address uptime for the catch-up
// scorer.
type Sampler interface {
	ActiveSet(now time.Time) []*masternode.Record
	Uptime(address ids.ShortID, now time.Time) time.Duration
}

// ChainTip is the slice of blockstore.Store the producer needs: the
// current tip height and hash.
type ChainTip interface {
	TipHeight() uint64
	TipHash() ids.ID
}

// PoolSource selects finalized transactions eligible for the next block.
type PoolSource interface {
	SelectFinalizedForBlock(limitBytes int) []*mempool.Entry
}

// Broadcaster announces a freshly produced block.
type Broadcaster interface {
	BroadcastBlock(b *chain.Block)
}

// Producer drives the slot-scheduled block production of spec.md §4.5.
// Callers invoke Tick on a ticker (e.g. once per second); Tick is cheap
// when no action is due.
type Producer struct {
	params      config.TSDCParams
	address     ids.ShortID
	signer      *crypto.PrivateKey
	sampler     Sampler
	chain       ChainTip
	pool        PoolSource
	broadcaster Broadcaster
	log         *logging.Logger

	mu               sync.Mutex
	lastProposedSlot uint64
	lastBlockSeenAt  time.Time
}

// NewProducer wires the producer's collaborators.
func NewProducer(params config.TSDCParams, address ids.ShortID, signer *crypto.PrivateKey, sampler Sampler, chain ChainTip, pool PoolSource, broadcaster Broadcaster, log *logging.Logger) *Producer {
	return &Producer{
		params:      params,
		address:     address,
		signer:      signer,
		sampler:     sampler,
		chain:       chain,
		pool:        pool,
		broadcaster: broadcaster,
		log:         log,
	}
}

// NotifyBlockSeen records that a block arrived at now, resetting the
// catch-up leader-stall clock (spec.md §4.5: "on leader-stall (>30s
// without a new block) followers simply exit catch-up and wait").
func (p *Producer) NotifyBlockSeen(now time.Time) {
	p.mu.Lock()
	p.lastBlockSeenAt = now
	p.mu.Unlock()
}

// Tick evaluates whether this node should produce a block at now, either
// under the normal slot schedule or, if the node has fallen behind, under
// catch-up mode.
func (p *Producer) Tick(now time.Time) {
	tip := p.chain.TipHeight()
	nextHeight := tip + 1

	if IsBehind(tip, p.params.GenesisTime, now, p.params.BlockIntervalSeconds, p.params.CatchUpSlotLag) {
		p.tryCatchUp(now, nextHeight)
		return
	}

	slotStart := SlotStart(p.params.GenesisTime, nextHeight, p.params.BlockIntervalSeconds)
	if now.Before(slotStart) {
		return
	}
	p.trySlot(now, nextHeight, slotStart)
}

func (p *Producer) trySlot(now time.Time, height uint64, slotStart time.Time) {
	if !p.claimSlot(height) {
		return
	}
	active := p.sampler.ActiveSet(now)
	leader := ElectLeader(active, p.chain.TipHash(), height, p.params.WeightedLeaderElection)
	if leader == nil || leader.Address != p.address {
		return
	}
	p.log.Debug("tsdc: elected leader for height %d", height)
	p.assembleAndBroadcast(height, p.chain.TipHash(), slotStart)
}

func (p *Producer) tryCatchUp(now time.Time, height uint64) {
	p.mu.Lock()
	stalled := !p.lastBlockSeenAt.IsZero() && now.Sub(p.lastBlockSeenAt) > p.params.CatchUpLeaderStall
	p.mu.Unlock()
	if stalled {
		p.log.Debug("tsdc: catch-up leader stalled, waiting")
		return
	}

	active := p.sampler.ActiveSet(now)
	leader := CatchUpLeader(active, func(addr ids.ShortID) time.Duration { return p.sampler.Uptime(addr, now) })
	if leader == nil || leader.Address != p.address {
		return
	}
	if !p.claimSlot(height) {
		return
	}
	p.log.Debug("tsdc: catch-up producing height %d", height)
	p.assembleAndBroadcast(height, p.chain.TipHash(), now)
}

// claimSlot enforces at-most-one-block-per-slot: reentrance for an
// already-proposed (or earlier) height is a no-op (spec.md §4.5).
func (p *Producer) claimSlot(height uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if height <= p.lastProposedSlot {
		return false
	}
	p.lastProposedSlot = height
	return true
}

func (p *Producer) assembleAndBroadcast(height uint64, prevHash ids.ID, timestamp time.Time) {
	entries := p.pool.SelectFinalizedForBlock(p.params.MaxBlockBodyBytes)
	txs := make([]*chain.Transaction, len(entries))
	for i, e := range entries {
		txs[i] = e.Tx
	}
	chain.SortTransactions(txs)

	header := chain.BlockHeader{
		Height:          height,
		PrevHash:        prevHash,
		MerkleRoot:      chain.MerkleRoot(txs),
		Timestamp:       timestamp.Unix(),
		ProducerAddress: p.address,
	}
	header.ProducerSignature = p.signer.Sign(header.UnsignedBytes())

	block := &chain.Block{Header: header, Transactions: txs}
	p.log.Info("tsdc: produced block height=%d txs=%d", height, len(txs))
	p.broadcaster.BroadcastBlock(block)
}
