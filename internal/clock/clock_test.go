package clock

import (
	"testing"
	"time"
)

func TestFake_AdvanceAndSet(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Fake(start)

	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}

	c.Advance(90 * time.Second)
	if got, want := c.Now(), start.Add(90*time.Second); !got.Equal(want) {
		t.Fatalf("after Advance: got %v want %v", got, want)
	}

	later := start.Add(48 * time.Hour)
	c.Set(later)
	if got := c.Now(); !got.Equal(later) {
		t.Fatalf("after Set: got %v want %v", got, later)
	}
}

func TestReal_Moves(t *testing.T) {
	c := Real()
	before := time.Now()
	got := c.Now()
	if got.Before(before) {
		t.Fatalf("real clock went backwards: %v < %v", got, before)
	}
}
