package store

import (
	"testing"
	"time"
)

func TestContentHashStable(t *testing.T) {
	a := ContentHash("The cat sat.")
	b := ContentHash("The cat sat.")
	if a != b {
		t.Fatalf("Expected stable hash, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(a))
	}
	if ContentHash("The cat sat!") == a {
		t.Error("Different text should hash differently")
	}
}

func TestIDSourceMonotonic(t *testing.T) {
	src := NewIDSource()
	now := time.Now()
	prev := src.New(now)
	for i := 0; i < 100; i++ {
		next := src.New(now)
		if next <= prev {
			t.Fatalf("Expected increasing ids, got %s after %s", next, prev)
		}
		prev = next
	}
}

func TestRunDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := Run{StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond)}
	if r.Duration() != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s, got %v", r.Duration())
	}
}
