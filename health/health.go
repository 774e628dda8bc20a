// Package health exposes internal liveness/readiness checks over
// AppsFlyer/go-sundheit, already present in the teacher's go.mod per
// spec.md §9's "health reporting" ambient concern (it names no single
// grounding file — the teacher's retrieved sources carry the dependency
// declaration without a visible call site, so this package is the first
// one to exercise it). Checks are purely protocol-level, matching the
// spec's own note that active-set membership is "heartbeat-recency plus
// collateral-validity" and nothing host-resource-related (elastic/gosigar
// was considered and dropped for exactly this reason — see DESIGN.md).
package health

import (
	"errors"
	"time"

	gosundheit "github.com/AppsFlyer/go-sundheit"

	"github.com/timecoin/timecoin/masternode"
)

// ActiveSetSource is the slice of masternode.Registry this package checks.
type ActiveSetSource interface {
	ActiveSet(now time.Time) []*masternode.Record
}

// ChainTip is the slice of blockstore.Store this package checks: the
// current tip height. When it last advanced is tracked by Checker.
type ChainTip interface {
	TipHeight() uint64
}

// Clock returns the current time; tests substitute a fixed clock.
type Clock func() time.Time

// Checker builds the two protocol-level checks this module reports:
// whether the active set is non-empty, and whether the chain tip has
// advanced recently enough to rule out a stalled producer/sync path.
type Checker struct {
	registry       ActiveSetSource
	tip            ChainTip
	now            Clock
	lastTipHeight  uint64
	lastAdvancedAt time.Time
	stallAfter     time.Duration
}

// NewChecker wires a Checker. stallAfter is how long the tip may sit
// unchanged before the chain-liveness check reports unhealthy — callers
// typically pass a small multiple of the TSDC block interval.
func NewChecker(registry ActiveSetSource, tip ChainTip, now Clock, stallAfter time.Duration) *Checker {
	if now == nil {
		now = time.Now
	}
	return &Checker{registry: registry, tip: tip, now: now, lastAdvancedAt: now(), stallAfter: stallAfter}
}

// activeSetCheck implements gosundheit.Check: unhealthy iff the active
// set is empty, meaning this node has nobody left to sample for
// Avalanche or TSDC leader election.
type activeSetCheck struct{ c *Checker }

func (activeSetCheck) Name() string { return "masternode-active-set" }

func (a activeSetCheck) Execute() (interface{}, error) {
	n := len(a.c.registry.ActiveSet(a.c.now()))
	if n == 0 {
		return nil, errors.New("health: active masternode set is empty")
	}
	return n, nil
}

// chainLivenessCheck implements gosundheit.Check: unhealthy iff the tip
// height hasn't advanced within stallAfter, signaling either a stalled
// TSDC producer or a sync coordinator that isn't catching up.
type chainLivenessCheck struct{ c *Checker }

func (chainLivenessCheck) Name() string { return "chain-tip-liveness" }

func (l chainLivenessCheck) Execute() (interface{}, error) {
	c := l.c
	h := c.tip.TipHeight()
	now := c.now()
	if h != c.lastTipHeight {
		c.lastTipHeight = h
		c.lastAdvancedAt = now
	}
	if now.Sub(c.lastAdvancedAt) > c.stallAfter {
		return h, errors.New("health: chain tip has not advanced within the stall window")
	}
	return h, nil
}

// Register installs both checks on h, running every period starting
// after an initialDelay (the shape go-sundheit's Config expects).
func (c *Checker) Register(h gosundheit.Health, period, initialDelay time.Duration) error {
	if err := h.RegisterCheck(&gosundheit.Config{
		Check:           activeSetCheck{c: c},
		InitialDelay:    initialDelay,
		ExecutionPeriod: period,
	}); err != nil {
		return err
	}
	return h.RegisterCheck(&gosundheit.Config{
		Check:           chainLivenessCheck{c: c},
		InitialDelay:    initialDelay,
		ExecutionPeriod: period,
	})
}

// New builds a gosundheit.Health with this module's checks registered,
// ready for an external RPC surface to poll via IsHealthy()/Results()
// (that surface itself is out of scope, spec.md §1).
func New(registry ActiveSetSource, tip ChainTip, now Clock, stallAfter, period, initialDelay time.Duration) (gosundheit.Health, error) {
	h := gosundheit.New()
	c := NewChecker(registry, tip, now, stallAfter)
	if err := c.Register(h, period, initialDelay); err != nil {
		return nil, err
	}
	return h, nil
}
