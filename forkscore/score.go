// Package forkscore implements spec.md §4.7's pluggable accept_fork
// decision point: "an interface with a single method accept_fork(local,
// candidate) -> {Accept, Reject} suffices; the default implementation is
// a multi-factor weighted score (height, work-proxy, time,
// peer-consensus, whitelist-bonus). Any alternative must be a pure
// function of its inputs to preserve determinism." Grounded structurally
// on the teacher's plugin surface (hashicorp/go-plugin + hashicorp/go-hclog
// both already in the teacher's go.mod) rather than any particular
// teacher file, since avalanchego's own VM plugin boundary is the closest
// analogue to "swap an algorithm for an out-of-process implementation."
package forkscore

// Snapshot is one side of a fork comparison: the local tip or a
// candidate branch's tip, plus the factors spec.md §4.7's default scorer
// weighs.
type Snapshot struct {
	Height             uint64
	WorkProxy          uint64 // spec.md §3: "total_work-proxy = height"
	TipTimestamp       int64
	PeerConsensusRatio float64 // fraction of polled active peers agreeing with this tip
	Whitelisted        bool
}

// Scorer is the single pluggable decision point of spec.md §4.7.
// Implementations must be pure functions of their inputs so that
// resolver decisions stay reproducible.
type Scorer interface {
	AcceptFork(local, candidate Snapshot) bool
}

// Weights configures DefaultScorer's multi-factor weighting.
type Weights struct {
	Height          float64
	Work            float64
	Recency         float64
	PeerConsensus   float64
	WhitelistBonus  float64
	AcceptThreshold float64
}

// DefaultWeights matches spec.md §4.7's named factors with a threshold
// tuned so that a candidate strictly ahead in height and work, confirmed
// by peer consensus, clears the bar while a merely-recent equal-height
// candidate does not.
var DefaultWeights = Weights{
	Height:          1.0,
	Work:            1.0,
	Recency:         0.1,
	PeerConsensus:   2.0,
	WhitelistBonus:  1.0,
	AcceptThreshold: 1.5,
}

// DefaultScorer is the in-process default accept_fork implementation.
type DefaultScorer struct {
	Weights Weights
}

// NewDefaultScorer returns a DefaultScorer using w.
func NewDefaultScorer(w Weights) *DefaultScorer {
	return &DefaultScorer{Weights: w}
}

// AcceptFork computes a weighted score of candidate's advantage over
// local and accepts iff the score clears AcceptThreshold. Every term is a
// pure function of the two snapshots, per spec.md §4.7's determinism
// requirement.
func (s *DefaultScorer) AcceptFork(local, candidate Snapshot) bool {
	w := s.Weights
	var score float64

	if candidate.Height > local.Height {
		score += w.Height * float64(candidate.Height-local.Height)
	} else if candidate.Height < local.Height {
		score -= w.Height * float64(local.Height-candidate.Height)
	}

	if candidate.WorkProxy > local.WorkProxy {
		score += w.Work * float64(candidate.WorkProxy-local.WorkProxy)
	} else if candidate.WorkProxy < local.WorkProxy {
		score -= w.Work * float64(local.WorkProxy-candidate.WorkProxy)
	}

	if candidate.TipTimestamp > local.TipTimestamp {
		score += w.Recency
	}

	score += w.PeerConsensus * candidate.PeerConsensusRatio
	if candidate.Whitelisted {
		score += w.WhitelistBonus
	}

	return score >= w.AcceptThreshold
}
