package network

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/timecoin/timecoin/ids"
)

// rateLimiter enforces spec.md §4.8's per-peer token bucket (default 100
// msg/s) and tracks repeated offenders for blacklisting. Whitelisted
// peers are exempt from blacklisting (still rate-limited, never
// blacklisted).
type rateLimiter struct {
	mu        sync.Mutex
	perSecond int
	limiters  map[ids.ShortID]*rate.Limiter
	strikes   map[ids.ShortID]int
	blacklist map[ids.ShortID]bool
}

func newRateLimiter(perSecond int) *rateLimiter {
	return &rateLimiter{
		perSecond: perSecond,
		limiters:  make(map[ids.ShortID]*rate.Limiter),
		strikes:   make(map[ids.ShortID]int),
		blacklist: make(map[ids.ShortID]bool),
	}
}

const blacklistStrikeThreshold = 5

// Allow reports whether peer may send one more message right now. A
// violation from a Regular peer counts a strike; crossing the threshold
// blacklists it. Whitelisted peers are rate-limited but never
// blacklisted.
func (r *rateLimiter) Allow(id ids.ShortID, kind Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.blacklist[id] {
		return false
	}

	lim, ok := r.limiters[id]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(r.perSecond), r.perSecond)
		r.limiters[id] = lim
	}

	if lim.Allow() {
		return true
	}

	if kind != Whitelisted {
		r.strikes[id]++
		if r.strikes[id] >= blacklistStrikeThreshold {
			r.blacklist[id] = true
		}
	}
	return false
}

func (r *rateLimiter) IsBlacklisted(id ids.ShortID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blacklist[id]
}
