// Package masternode implements the tiered masternode registry of
// spec.md §4.3: registration with optional locked collateral, heartbeat
// liveness, and the active-set filter the Avalanche engine and TSDC
// producer both sample from. Grounded on the teacher's validators.Set
// usage pattern (network/network_test.go's testVdrs := validators.NewSet()),
// turned from an opaque validator-set interface into the concrete,
// in-scope registry this spec requires.
package masternode

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/timecoin/timecoin/chain"
	"github.com/timecoin/timecoin/ids"
	"github.com/timecoin/timecoin/utils/crypto"
	"github.com/timecoin/timecoin/utxo"
)

// Tier is one of the four membership tiers of spec.md §3.
type Tier int

const (
	Free Tier = iota
	Bronze
	Silver
	Gold
)

func (t Tier) String() string {
	switch t {
	case Free:
		return "Free"
	case Bronze:
		return "Bronze"
	case Silver:
		return "Silver"
	case Gold:
		return "Gold"
	default:
		return "Unknown"
	}
}

// CanVote reports whether tier participates in governance (Bronze+ only,
// per spec.md §3).
func (t Tier) CanVote() bool { return t >= Bronze }

var (
	ErrDuplicate              = errors.New("masternode: address already registered")
	ErrBadCollateral          = errors.New("masternode: collateral outpoint is not unspent or owner mismatch")
	ErrAmountMismatch         = errors.New("masternode: collateral amount does not match tier requirement")
	ErrInsufficientConfirmations = errors.New("masternode: collateral outpoint has not reached the required confirmation depth")
	ErrUnknown                = errors.New("masternode: address not registered")
	ErrBadSignature           = errors.New("masternode: signature invalid")
)

// MinCollateralConfirmations bounds how many blocks a collateral outpoint
// must have aged behind the current tip before Register will accept it,
// guarding against collateral that a shallow reorg could still unwind
// (open question resolved in DESIGN.md).
const MinCollateralConfirmations = 6

// Record is a masternode's registry entry (spec.md §3).
type Record struct {
	Address          ids.ShortID
	Tier             Tier
	SigningKey       crypto.PublicKey
	CollateralOutpoint *chain.OutPoint
	RegisteredAt     time.Time
	LastHeartbeatAt  time.Time
	uptimeSince      time.Time
}

// Collateral is spec.md §3's LockedCollateral record.
type Collateral struct {
	Outpoint        chain.OutPoint
	MasternodeAddress ids.ShortID
	Tier            Tier
	LockedAtHeight  uint64
	Amount          uint64
}

// TierCollateralAmount is the required collateral per tier. Free requires
// none; the other three scale with the tier weight table of spec.md §3.
var TierCollateralAmount = map[Tier]uint64{
	Free:   0,
	Bronze: 1_000 * 1e8,
	Silver: 10_000 * 1e8,
	Gold:   100_000 * 1e8,
}

// TierWeight is the reward/selection weight table of spec.md §3.
var TierWeight = map[Tier]int{
	Free:   1,
	Bronze: 1,
	Silver: 10,
	Gold:   100,
}

// Registry is the masternode registry.
type Registry struct {
	mu         sync.RWMutex
	records    map[ids.ShortID]*Record
	collateral map[chain.OutPoint]*Collateral
	utxos      *utxo.Manager
	validity   time.Duration
}

// NewRegistry returns an empty registry. utxos is consulted to validate
// collateral outpoints and their current state.
func NewRegistry(utxos *utxo.Manager, heartbeatValidity time.Duration) *Registry {
	return &Registry{
		records:    make(map[ids.ShortID]*Record),
		collateral: make(map[chain.OutPoint]*Collateral),
		utxos:      utxos,
		validity:   heartbeatValidity,
	}
}

// IsLockedCollateral implements utxo.CollateralChecker.
func (r *Registry) IsLockedCollateral(op chain.OutPoint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.collateral[op]
	return ok
}

// Register validates and inserts a new masternode record, locking
// collateral atomically with registration if present (spec.md §4.3).
// currentHeight is the local chain tip height, used to reject collateral
// that hasn't aged past MinCollateralConfirmations; it is ignored when
// collateral is nil.
func (r *Registry) Register(address ids.ShortID, tier Tier, key crypto.PublicKey, collateral *chain.OutPoint, now time.Time, currentHeight uint64) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[address]; exists {
		return nil, ErrDuplicate
	}

	rec := &Record{
		Address:         address,
		Tier:            tier,
		SigningKey:      key,
		RegisteredAt:    now,
		LastHeartbeatAt: now,
		uptimeSince:     now,
	}

	if collateral != nil {
		u, ok := r.utxos.Get(*collateral)
		if !ok || u.State != chain.StateUnspent {
			return nil, ErrBadCollateral
		}
		if u.Owner != address {
			return nil, ErrBadCollateral
		}
		want := TierCollateralAmount[tier]
		if u.Amount != want {
			return nil, ErrAmountMismatch
		}
		if currentHeight < u.Height || currentHeight-u.Height < MinCollateralConfirmations {
			return nil, ErrInsufficientConfirmations
		}
		rec.CollateralOutpoint = collateral
		r.collateral[*collateral] = &Collateral{
			Outpoint:          *collateral,
			MasternodeAddress: address,
			Tier:              tier,
			Amount:            u.Amount,
		}
	}

	r.records[address] = rec
	return rec, nil
}

// Unlock deregisters address and removes its collateral lock, after
// verifying sig authorizes the unlock (spec.md §4.3). Signature
// verification is delegated to the caller's wire-message layer in
// practice; here we accept a pre-verified bool to keep this package free
// of message-framing concerns.
func (r *Registry) Unlock(address ids.ShortID, sigValid bool) error {
	if !sigValid {
		return ErrBadSignature
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[address]
	if !ok {
		return ErrUnknown
	}
	if rec.CollateralOutpoint != nil {
		delete(r.collateral, *rec.CollateralOutpoint)
	}
	delete(r.records, address)
	return nil
}

// Heartbeat updates last_heartbeat_at for address if attestationValid
// (signature verification again delegated to the wire layer).
func (r *Registry) Heartbeat(address ids.ShortID, at time.Time, attestationValid bool) error {
	if !attestationValid {
		return ErrBadSignature
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[address]
	if !ok {
		return ErrUnknown
	}
	rec.LastHeartbeatAt = at
	return nil
}

// isActive implements spec.md §4.3's active predicate: a fresh heartbeat
// AND (no collateral requirement, or the collateral outpoint is still
// Unspent and present in the collateral table).
func (r *Registry) isActive(rec *Record, now time.Time) bool {
	if now.Sub(rec.LastHeartbeatAt) > r.validity {
		return false
	}
	if rec.CollateralOutpoint == nil {
		return true
	}
	if _, ok := r.collateral[*rec.CollateralOutpoint]; !ok {
		return false
	}
	u, ok := r.utxos.Get(*rec.CollateralOutpoint)
	return ok && u.State == chain.StateUnspent
}

// ActiveSet returns every active masternode record, sorted by address for
// determinism (spec.md §4.3 and §4.5's leader-election tie-break both
// depend on this stable order).
func (r *Registry) ActiveSet(now time.Time) []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		if r.isActive(rec, now) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.String() < out[j].Address.String()
	})
	return out
}

// Uptime returns how long address has been continuously registered,
// used by the TSDC catch-up leader score (spec.md §4.5).
func (r *Registry) Uptime(address ids.ShortID, now time.Time) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[address]
	if !ok {
		return 0
	}
	return now.Sub(rec.uptimeSince)
}

// CleanupInvalidCollaterals scans the collateral table and automatically
// deregisters any masternode whose collateral outpoint is no longer
// Unspent (spec.md §4.3). height is recorded for future audit but not
// otherwise consulted, since this spec ties collateral validity purely to
// UTXO state.
func (r *Registry) CleanupInvalidCollaterals(height uint64) []ids.ShortID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []ids.ShortID
	for op, col := range r.collateral {
		u, ok := r.utxos.Get(op)
		if ok && u.State == chain.StateUnspent {
			continue
		}
		delete(r.collateral, op)
		if rec, ok := r.records[col.MasternodeAddress]; ok {
			delete(r.records, col.MasternodeAddress)
			removed = append(removed, rec.Address)
		}
	}
	return removed
}

// Get returns the record for address, if registered.
func (r *Registry) Get(address ids.ShortID) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[address]
	if !ok {
		return nil, false
	}
	cp := *rec
	return &cp, true
}
