package outbox

import (
	"sync/atomic"
	"time"
)

// Clock hands out strictly increasing Unix-nanosecond stamps, even when the
// wall clock stalls or steps backwards. Across restarts it relies on Observe
// being fed the newest persisted stamp.
type Clock struct {
	last atomic.Int64
	now  func() time.Time
}

// NewClock returns a Clock reading from now. A nil now uses time.Now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Next returns a stamp greater than every stamp returned before.
func (c *Clock) Next() int64 {
	for {
		last := c.last.Load()
		n := c.now().UnixNano()
		if n <= last {
			n = last + 1
		}
		if c.last.CompareAndSwap(last, n) {
			return n
		}
	}
}

// Observe raises the floor so every later stamp is greater than n.
func (c *Clock) Observe(n int64) {
	for {
		last := c.last.Load()
		if n <= last || c.last.CompareAndSwap(last, n) {
			return
		}
	}
}

var defaultClock = NewClock(nil)
