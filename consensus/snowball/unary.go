// Package snowball implements the generic binary confidence counter that
// drives a single Avalanche decision: a preference, a confidence counter
// that climbs on quorum agreement and resets (or flips the preference) on
// disagreement, finalizing once confidence reaches beta. Grounded directly
// on snow/consensus/snowball/consensus_benchmark_test.go's Parameters
// shape (K, Alpha, BetaVirtuous, BetaRogue); this spec has no
// virtuous/rogue split so the two betas collapse into the single Beta of
// spec.md §4.4.
package snowball

// Preference is one of the two choices a Counter tracks.
type Preference int

const (
	Reject Preference = iota
	Accept
)

func (p Preference) String() string {
	if p == Accept {
		return "Accept"
	}
	return "Reject"
}

// Opposite returns the other preference.
func (p Preference) Opposite() Preference {
	if p == Accept {
		return Reject
	}
	return Accept
}

// Parameters are spec.md §4.4's defaults: K=20, Alpha=16 (ceil(0.8*20)),
// Beta=15.
type Parameters struct {
	K     int
	Alpha int
	Beta  int
}

// DefaultParameters returns the spec's defaults.
func DefaultParameters() Parameters {
	return Parameters{K: 20, Alpha: 16, Beta: 15}
}

// Counter is a single transaction's Avalanche state: preference,
// confidence, and whether it has finalized.
type Counter struct {
	params     Parameters
	preference Preference
	confidence int
	finalized  bool
}

// NewCounter starts a Counter at the given initial preference (Accept if
// local validation passed, Reject otherwise — spec.md §4.4).
func NewCounter(initial Preference, params Parameters) *Counter {
	return &Counter{params: params, preference: initial}
}

// Preference returns the counter's current preference.
func (c *Counter) Preference() Preference { return c.preference }

// Confidence returns the current confidence count.
func (c *Counter) Confidence() int { return c.confidence }

// Finalized reports whether this counter has reached beta consecutive
// successes.
func (c *Counter) Finalized() bool { return c.finalized }

// RecordRound applies one round's tally to the counter and returns
// whether it just finalized. agree is the number of received responses
// that matched the counter's preference before this call; disagree is the
// number that did not (missing responses must already be folded into
// disagree by the caller, per spec.md §4.4: "missing responses count as
// disagreement").
func (c *Counter) RecordRound(agree, disagree int) (justFinalized bool) {
	if c.finalized {
		return false
	}

	if agree >= c.params.Alpha {
		c.confidence++
		if c.confidence >= c.params.Beta {
			c.finalized = true
			return true
		}
		return false
	}

	if disagree > agree && c.confidence == 0 {
		c.preference = c.preference.Opposite()
	}
	c.confidence = 0
	return false
}
