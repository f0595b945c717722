package mocks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClockFiresTimersInDeadlineOrder(t *testing.T) {
	c := NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	var fired []string

	c.AfterFunc(2*time.Second, func() { fired = append(fired, "second") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "first") })
	c.AfterFunc(10*time.Second, func() { fired = append(fired, "late") })

	c.Advance(5 * time.Second)

	assert.Equal(t, []string{"first", "second"}, fired)
	assert.Equal(t, 1, c.PendingTimers())
}

func TestMockClockStopPreventsFiring(t *testing.T) {
	c := NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	fired := false

	timer := c.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(time.Minute)
	assert.False(t, fired)
}

func TestMockClockRearmedTimerFiresWithinSameAdvance(t *testing.T) {
	c := NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	count := 0

	var tick func()
	tick = func() {
		count++
		c.AfterFunc(time.Second, tick)
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(3 * time.Second)

	assert.Equal(t, 3, count)
	assert.Equal(t, 1, c.PendingTimers())
}

func TestMockClockNowDuringCallbackIsDeadline(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)
	var seen time.Time

	c.AfterFunc(time.Second, func() { seen = c.Now() })
	c.Advance(time.Minute)

	assert.Equal(t, start.Add(time.Second), seen)
	assert.Equal(t, start.Add(time.Minute), c.Now())
}
