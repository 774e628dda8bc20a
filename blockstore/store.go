// Package blockstore implements the durable chain store and block
// validator of spec.md §4.6: block/height-indexed persistence over a
// database.Database (each commit written through as one batch), and
// rollback_to for fork replay. Grounded on the teacher's vms/components/archive/archive.go
// (a database.Database wrapped in a fixed key-prefix namespace) for the
// storage layer, and on the common-ancestor/undo idiom of
// other_examples/.../klingnet__internal-chain-reorg.go for rollback,
// simplified here since utxo.Manager.RollbackBlock recomputes state
// directly from a block's own transaction list rather than needing a
// separately persisted undo blob.
package blockstore

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/timecoin/timecoin/chain"
	"github.com/timecoin/timecoin/database"
	"github.com/timecoin/timecoin/ids"
	"github.com/timecoin/timecoin/utxo"
)

var (
	// ErrNotFound is returned when a requested block or height is absent.
	ErrNotFound = errors.New("blockstore: not found")
)

const (
	blockPrefix       = "block/"
	blockByHeightPfx  = "block_by_height/"
	metaPrefix        = "meta/"
	tipKey            = "tip"
)

// Store is the durable, height-indexed block store. The key layout
// (block/<hash>, block_by_height/<height>, meta/tip) matches spec.md §6.
type Store struct {
	mu    sync.RWMutex
	db    database.Database
	flush int
	since int

	tipHeight uint64
	tipHash   ids.ID
}

// NewStore opens a Store over db, namespaced via database.Prefixed so
// multiple stores (blocks, utxos, masternodes) can share one underlying
// database.Database without key collisions. flushEveryN only sets the
// length of an internal commit-count cycle; every CommitBlock still writes
// its own batch through immediately, so no writes are deferred across
// blocks.
func NewStore(db database.Database, flushEveryN int) *Store {
	if flushEveryN < 1 {
		flushEveryN = 1
	}
	s := &Store{db: database.Prefixed("blockstore/", db), flush: flushEveryN}
	s.loadTip()
	return s
}

func (s *Store) loadTip() {
	raw, err := s.db.Get([]byte(metaPrefix + tipKey))
	if err != nil || len(raw) < ids.IDLen+8 {
		return
	}
	hash, err := ids.ToID(raw[:ids.IDLen])
	if err != nil {
		return
	}
	s.tipHash = hash
	s.tipHeight = binary.BigEndian.Uint64(raw[ids.IDLen:])
}

// TipHeight implements tsdc.ChainTip.
func (s *Store) TipHeight() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tipHeight
}

// TipHash implements tsdc.ChainTip.
func (s *Store) TipHash() ids.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tipHash
}

func heightKey(h uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h)
	return append([]byte(blockByHeightPfx), buf[:]...)
}

// GetBlock returns the block with the given hash.
func (s *Store) GetBlock(hash ids.ID) (*chain.Block, error) {
	raw, err := s.db.Get(append([]byte(blockPrefix), hash[:]...))
	if err != nil {
		return nil, ErrNotFound
	}
	return chain.DecodeBlock(raw)
}

// GetBlockByHeight returns the block at height, following the height
// index. Returns ErrNotFound if no block has been committed at that
// height (including heights beyond the current tip).
func (s *Store) GetBlockByHeight(height uint64) (*chain.Block, error) {
	if height > s.TipHeight() {
		return nil, ErrNotFound
	}
	raw, err := s.db.Get(heightKey(height))
	if err != nil {
		return nil, ErrNotFound
	}
	hash, err := ids.ToID(raw)
	if err != nil {
		return nil, err
	}
	return s.GetBlock(hash)
}

// CommitBlock persists b, advances the height index and tip pointer, and
// applies its UTXO effects via utxos.ConfirmBlock. All of b's writes go
// out as one batch that is written before CommitBlock returns; commits
// are not held back across flushEveryN blocks.
func (s *Store) CommitBlock(b *chain.Block, utxos *utxo.Manager) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := b.Header.Hash()
	batch := s.db.NewBatch()
	if err := batch.Put(append([]byte(blockPrefix), hash[:]...), chain.EncodeBlock(b)); err != nil {
		return err
	}
	if err := batch.Put(heightKey(b.Header.Height), hash[:]); err != nil {
		return err
	}

	var tipBuf [ids.IDLen + 8]byte
	copy(tipBuf[:ids.IDLen], hash[:])
	binary.BigEndian.PutUint64(tipBuf[ids.IDLen:], b.Header.Height)
	if err := batch.Put([]byte(metaPrefix+tipKey), tipBuf[:]); err != nil {
		return err
	}

	utxos.ConfirmBlock(b)

	// Both database.Database adapters in this module (memdb,
	// leveldbstore) write a Batch through synchronously — neither exposes
	// a deferred-fsync mode — so flushEveryN only cycles the internal
	// since counter here; it does not gate the call to Write, and the
	// counter is not exported.
	if err := batch.Write(); err != nil {
		return err
	}
	s.since++
	if s.since >= s.flush {
		s.since = 0
	}

	s.tipHash = hash
	s.tipHeight = b.Header.Height
	return nil
}

// RollbackTo reverts committed blocks from the current tip down to (and
// not including) targetHeight, restoring utxos to that point via
// utxo.Manager.RollbackBlock. The height index entries above targetHeight
// are left in place (tip simply moves backward) so a subsequent fork
// replay can overwrite them.
func (s *Store) RollbackTo(targetHeight uint64, utxos *utxo.Manager) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if targetHeight > s.tipHeight {
		return nil
	}
	for h := s.tipHeight; h > targetHeight; h-- {
		raw, err := s.db.Get(heightKey(h))
		if err != nil {
			return ErrNotFound
		}
		hash, err := ids.ToID(raw)
		if err != nil {
			return err
		}
		blkRaw, err := s.db.Get(append([]byte(blockPrefix), hash[:]...))
		if err != nil {
			return ErrNotFound
		}
		blk, err := chain.DecodeBlock(blkRaw)
		if err != nil {
			return err
		}
		if err := utxos.RollbackBlock(blk); err != nil {
			return err
		}
	}

	newTipRaw, err := s.db.Get(heightKey(targetHeight))
	if err != nil {
		return ErrNotFound
	}
	newTipHash, err := ids.ToID(newTipRaw)
	if err != nil {
		return err
	}

	var tipBuf [ids.IDLen + 8]byte
	copy(tipBuf[:ids.IDLen], newTipHash[:])
	binary.BigEndian.PutUint64(tipBuf[ids.IDLen:], targetHeight)
	if err := s.db.Put([]byte(metaPrefix+tipKey), tipBuf[:]); err != nil {
		return err
	}

	s.tipHash = newTipHash
	s.tipHeight = targetHeight
	return nil
}
