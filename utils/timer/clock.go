// Package timer provides a monotonic clock source for round timers and
// liveness ticks (Avalanche round delay, ping interval, reconnect
// backoff), using github.com/aristanetworks/goarista/monotime instead of
// time.Now() so scheduling math isn't perturbed by wall-clock adjustments.
// This is a teacher go.mod dependency with no other home in this spec.
package timer

import (
	"time"

	"github.com/aristanetworks/goarista/monotime"
)

// Clock reads monotonic time.
type Clock struct{}

// Now returns the current monotonic timestamp.
func (Clock) Now() time.Duration { return monotime.Now() }

// Since returns the monotonic duration elapsed since t.
func (Clock) Since(t time.Duration) time.Duration { return monotime.Now() - t }
