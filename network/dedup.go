package network

import (
	"hash"
	"hash/fnv"
	"sync"
	"time"

	"github.com/steakknife/bloomfilter"
)

// dedupFilter is spec.md §4.8's "probabilistic duplicate-suppression
// filter (time-windowed, rotating, 0.1%-false-positive budget)". Two
// bloom filters are kept, current and previous; a payload is considered
// seen if either reports it, and new payloads are only ever added to
// current. Rotating every window discards the oldest half of history
// instead of growing the filter (and its false-positive rate) without
// bound.
type dedupFilter struct {
	mu       sync.Mutex
	current  *bloomfilter.Filter
	previous *bloomfilter.Filter
	maxItems uint64
	fpRate   float64
	window   time.Duration
	rotated  time.Time
}

func newDedupFilter(maxItems uint64, fpRate float64, window time.Duration, now time.Time) (*dedupFilter, error) {
	cur, err := bloomfilter.NewOptimal(maxItems, fpRate)
	if err != nil {
		return nil, err
	}
	prev, err := bloomfilter.NewOptimal(maxItems, fpRate)
	if err != nil {
		return nil, err
	}
	return &dedupFilter{current: cur, previous: prev, maxItems: maxItems, fpRate: fpRate, window: window, rotated: now}, nil
}

func sum64(payload []byte) hash.Hash64 {
	h := fnv.New64a()
	_, _ = h.Write(payload)
	return h
}

// SeenOrAdd reports whether payload was already seen (in either filter)
// and, if not, records it in the current filter.
func (d *dedupFilter) SeenOrAdd(payload []byte, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if now.Sub(d.rotated) >= d.window {
		d.previous = d.current
		cur, err := bloomfilter.NewOptimal(d.maxItems, d.fpRate)
		if err == nil {
			d.current = cur
		}
		d.rotated = now
	}

	h := sum64(payload)
	if d.current.Contains(h) || d.previous.Contains(h) {
		return true
	}
	d.current.Add(h)
	return false
}
