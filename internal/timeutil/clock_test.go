package timeutil

import (
	"testing"
	"time"
)

// RealClock tracks the system clock.
func TestRealClockNow(t *testing.T) {
	c := RealClock{}
	before := time.Now()
	got := c.Now()
	after := time.Now()
	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, want between %v and %v", got, before, after)
	}
	if c.Since(before) < 0 {
		t.Error("Since returned a negative duration for a past time")
	}
}

// MockClock only moves when told to.
func TestMockClock(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	if got := c.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	c.Advance(90 * time.Second)
	if got := c.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Errorf("after Advance, Now() = %v", got)
	}
	if got := c.Since(start); got != 90*time.Second {
		t.Errorf("Since(start) = %v, want 90s", got)
	}

	reset := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Set(reset)
	if got := c.Now(); !got.Equal(reset) {
		t.Errorf("after Set, Now() = %v, want %v", got, reset)
	}
}

// Both implementations satisfy Clock.
func TestClockInterface(t *testing.T) {
	var _ Clock = RealClock{}
	var _ Clock = NewMockClock(time.Time{})
}
