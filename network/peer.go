package network

import (
	"net"
	"sync"
	"time"

	"github.com/timecoin/timecoin/config"
	"github.com/timecoin/timecoin/ids"
)

// peer tracks one live connection's liveness state (spec.md §4.8: "Each
// connection maintains a missed_pongs counter, a last-seen timestamp,
// and a whitelist flag").
type peer struct {
	mu sync.Mutex

	id   ids.ShortID
	addr string
	kind Kind
	conn net.Conn

	missedPongs         int
	consecutiveTimeouts int
	lastSeen            time.Time

	liveness config.PeerLivenessParams
}

func newPeer(id ids.ShortID, addr string, kind Kind, conn net.Conn, liveness config.PeerLivenessParams, now time.Time) *peer {
	return &peer{id: id, addr: addr, kind: kind, conn: conn, liveness: liveness, lastSeen: now}
}

// touch records a successful pong, resetting both strike counts: a pong
// breaks any run of consecutive timeouts, not just the plain miss count
// (spec.md §4.8's whitelisted-peer grace period is consecutive windows,
// so an answered ping must reset it or a peer that merely answers
// intermittently accumulates timeouts across bursts instead of per-burst).
func (p *peer) touch(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.missedPongs = 0
	p.consecutiveTimeouts = 0
	p.lastSeen = now
}

// onPongTimeout runs once per ping interval when no pong arrived in time.
// Whitelisted peers reset to 0 instead of incrementing (spec.md §4.8:
// "only a genuinely unreachable whitelisted peer is disconnected");
// their grace is counted separately via consecutiveTimeouts.
type livenessResult int

const (
	livenessOK livenessResult = iota
	livenessDisconnect
)

func (p *peer) onPongTimeout() livenessResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.kind == Whitelisted {
		p.missedPongs = 0
		p.consecutiveTimeouts++
		if p.consecutiveTimeouts >= p.liveness.MaxMissedPongs {
			return livenessDisconnect
		}
		return livenessOK
	}

	p.missedPongs++
	if p.missedPongs >= p.liveness.MaxMissedPongs {
		return livenessDisconnect
	}
	return livenessOK
}
