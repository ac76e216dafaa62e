package clock

import (
	"testing"
	"time"
)

func TestManual_Now(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManual(start, time.Second)

	if got := c.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}
	if got := c.Now(); !got.Equal(start.Add(time.Second)) {
		t.Errorf("Now() = %v, want %v", got, start.Add(time.Second))
	}

	c.Advance(time.Minute)
	want := start.Add(2*time.Second + time.Minute)
	if got := c.Now(); !got.Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFunc_Now(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	c := Func(func() time.Time { return fixed })

	if got := c.Now(); !got.Equal(fixed) {
		t.Errorf("Now() = %v, want %v", got, fixed)
	}
}
