package tsdc

import (
	"errors"
	"time"

	"github.com/timecoin/timecoin/chain"
	"github.com/timecoin/timecoin/config"
	"github.com/timecoin/timecoin/masternode"
	"github.com/timecoin/timecoin/utils/crypto"
)

// Errors returned by ValidateHeader, covering the TSDC-specific checks of
// spec.md §4.5's validator ordering (producer-is-leader, signature,
// timestamp window). The remaining checks in that ordering — structural,
// parent linkage, height continuity, merkle root, transaction replay, body
// size — are blockstore's responsibility, since they require chain-store
// and UTXO state this package doesn't hold.
var (
	ErrWrongLeader     = errors.New("tsdc: producer is not the expected slot leader")
	ErrBadSignature    = errors.New("tsdc: producer signature invalid")
	ErrTimestampWindow = errors.New("tsdc: timestamp outside the allowed slot window")
)

// ValidateTimestamp reports whether ts (a block header's unix timestamp)
// falls within [slot_start - tolerance, slot_start + interval + tolerance],
// spec.md §4.5's clock-skew accommodation.
func ValidateTimestamp(ts int64, slotStart time.Time, intervalSeconds, toleranceSeconds int64) bool {
	lower := slotStart.Add(-time.Duration(toleranceSeconds) * time.Second).Unix()
	upper := slotStart.Add(time.Duration(intervalSeconds+toleranceSeconds) * time.Second).Unix()
	return ts >= lower && ts <= upper
}

// ValidateHeader checks the TSDC-owned subset of spec.md §4.5's validator
// ordering: the header's producer matches the deterministic slot leader
// for (height, parentHash, activeSet), the producer signature verifies,
// and the timestamp lies in the allowed window.
func ValidateHeader(h *chain.BlockHeader, activeSet []*masternode.Record, params config.TSDCParams) error {
	leader := ElectLeader(activeSet, h.PrevHash, h.Height, params.WeightedLeaderElection)
	if leader == nil || leader.Address != h.ProducerAddress {
		return ErrWrongLeader
	}
	if !crypto.Verify(leader.SigningKey, h.UnsignedBytes(), h.ProducerSignature) {
		return ErrBadSignature
	}
	slotStart := SlotStart(params.GenesisTime, h.Height, params.BlockIntervalSeconds)
	if !ValidateTimestamp(h.Timestamp, slotStart, params.BlockIntervalSeconds, params.TimestampToleranceSeconds) {
		return ErrTimestampWindow
	}
	return nil
}
