// Package status holds the debounced reachability verdict shared between the
// monitor (single writer) and any number of concurrent readers.
package status

import (
	"sync/atomic"
	"time"
)

// Cell is a concurrency-safe boolean with the time of its last flip. Reads
// never block the writer and never observe a torn value; a reader may see a
// verdict up to one poll interval stale, which callers must accept.
type Cell struct {
	up             atomic.Bool
	transitionNano atomic.Int64
}

// NewCell starts optimistic: the monitor only declares an outage once its
// failure threshold is crossed.
func NewCell() *Cell {
	c := &Cell{}
	c.up.Store(true)
	return c
}

// Set publishes a verdict. Only the monitor calls this, at most once per
// poll cycle. It reports whether the verdict flipped.
func (c *Cell) Set(up bool, now time.Time) (flipped bool) {
	prev := c.up.Swap(up)
	if prev == up {
		return false
	}
	c.transitionNano.Store(now.UnixNano())
	return true
}

// Up returns the most recently published verdict.
func (c *Cell) Up() bool {
	return c.up.Load()
}

// LastTransition returns when the verdict last flipped, or the zero time if
// it never has.
func (c *Cell) LastTransition() time.Time {
	n := c.transitionNano.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
