package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClockStep(t *testing.T) {
	start := time.Date(2018, 11, 5, 17, 46, 40, 0, time.UTC)
	c := NewFakeClock(start).WithStep(2 * time.Second)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(2*time.Second), c.Now())

	c.Advance(time.Minute)
	assert.Equal(t, start.Add(4*time.Second+time.Minute), c.Now())
}
