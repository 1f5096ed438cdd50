package clock

import (
	"sync"
	"time"
)

// FakeClock returns a fixed time that only moves through Advance or the configured step.
type FakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

var _ Clock = (*FakeClock)(nil)

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

// WithStep makes every Now call advance the clock by d after reading it.
func (c *FakeClock) WithStep(d time.Duration) *FakeClock {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = d
	return c
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
