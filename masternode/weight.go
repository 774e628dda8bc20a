package masternode

import (
	"math/rand"

	"github.com/timecoin/timecoin/ids"
)

// ExpandWeighted repeats each record tier_weight times, building the
// weighted draw pool spec.md §4.4 (Avalanche sampling) and §4.5 (TSDC
// leader election) both call for: "weights applied as integer repetitions
// in the draw pool."
func ExpandWeighted(records []*Record) []*Record {
	pool := make([]*Record, 0, len(records))
	for _, r := range records {
		w := TierWeight[r.Tier]
		if w < 1 {
			w = 1
		}
		for i := 0; i < w; i++ {
			pool = append(pool, r)
		}
	}
	return pool
}

// SampleDistinct draws up to k distinct records from pool (pre-expanded via
// ExpandWeighted when weighting is desired), uniformly at random without
// replacement on address identity. If pool has fewer than k distinct
// addresses, all of them are returned.
func SampleDistinct(pool []*Record, k int, rng *rand.Rand) []*Record {
	distinct := make(map[ids.ShortID]*Record)
	for _, r := range pool {
		distinct[r.Address] = r
	}
	if len(distinct) <= k {
		out := make([]*Record, 0, len(distinct))
		for _, r := range distinct {
			out = append(out, r)
		}
		return out
	}

	chosen := make(map[ids.ShortID]bool, k)
	out := make([]*Record, 0, k)
	// Bounded attempts: the weighted pool may contain far more entries
	// than distinct addresses, but since len(distinct) > k is guaranteed
	// above, random draws converge quickly in expectation.
	for attempts := 0; len(out) < k && attempts < len(pool)*4+64; attempts++ {
		r := pool[rng.Intn(len(pool))]
		if chosen[r.Address] {
			continue
		}
		chosen[r.Address] = true
		out = append(out, r)
	}
	return out
}
