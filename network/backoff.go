package network

import (
	"time"

	"github.com/timecoin/timecoin/config"
)

// reconnectBackoff doubles delay from InitialReconnect up to
// MaxReconnectBackoff, giving up after MaxReconnectFailures consecutive
// failures (spec.md §4.8's reconnect table).
type reconnectBackoff struct {
	params   config.PeerLivenessParams
	attempts int
	delay    time.Duration
}

func newReconnectBackoff(params config.PeerLivenessParams) *reconnectBackoff {
	return &reconnectBackoff{params: params, delay: params.InitialReconnect}
}

// reset is called after a successful connection.
func (b *reconnectBackoff) reset() {
	b.attempts = 0
	b.delay = b.params.InitialReconnect
}

// next returns the delay before the next dial attempt and whether the
// caller should give up instead.
func (b *reconnectBackoff) next() (delay time.Duration, giveUp bool) {
	b.attempts++
	if b.attempts > b.params.MaxReconnectFailures {
		return 0, true
	}
	d := b.delay
	b.delay *= 2
	if b.delay > b.params.MaxReconnectBackoff {
		b.delay = b.params.MaxReconnectBackoff
	}
	return d, false
}
