package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fired(ch <-chan time.Time) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestFakeClockAfter(t *testing.T) {
	c := NewFakeClock(t0)

	ch, _ := c.After(time.Second)
	assert.False(t, fired(ch))
	c.Advance(999 * time.Millisecond)
	assert.False(t, fired(ch))
	c.Advance(time.Millisecond)
	assert.True(t, fired(ch))
	assert.Equal(t, t0.Add(time.Second), c.Now())
}

func TestFakeClockAfterZeroFiresImmediately(t *testing.T) {
	c := NewFakeClock(t0)
	ch, _ := c.After(0)
	assert.True(t, fired(ch))
	assert.Equal(t, time.Duration(0), <-c.Waits())
}

func TestFakeClockStop(t *testing.T) {
	c := NewFakeClock(t0)
	ch, stop := c.After(time.Second)
	assert.True(t, stop())
	assert.False(t, stop(), "second stop reports already stopped")
	c.Advance(time.Hour)
	assert.False(t, fired(ch))
}

func TestFakeClockSleepAdvances(t *testing.T) {
	c := NewFakeClock(t0)
	ch, _ := c.After(300 * time.Millisecond)
	c.Sleep(200 * time.Millisecond)
	c.Sleep(200 * time.Millisecond)

	assert.True(t, fired(ch))
	assert.Equal(t, t0.Add(400*time.Millisecond), c.Now())
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond}, c.Sleeps())
}

func TestRealClockAfter(t *testing.T) {
	ch, stop := RealClock{}.After(time.Millisecond)
	defer stop()
	select {
	case <-ch:
	case <-time.After(waitTimeout):
		t.Fatal("real timer did not fire")
	}
}
