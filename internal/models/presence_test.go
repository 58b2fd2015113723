package models

import (
	"testing"
	"time"
)

func TestSampleIsStale(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		sample   *Sample
		expected bool
	}{
		{"nil sample", nil, false},
		{"fresh", &Sample{CapturedAt: now.Add(-time.Minute)}, false},
		{"exactly at threshold", &Sample{CapturedAt: now.Add(-StaleAfter)}, false},
		{"just past threshold", &Sample{CapturedAt: now.Add(-StaleAfter - time.Second)}, true},
		{"hours old", &Sample{CapturedAt: now.Add(-5 * time.Hour)}, true},
		{"future capture", &Sample{CapturedAt: now.Add(time.Minute)}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.sample.IsStale(now); got != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}

// IsStale must not mutate anything: the same sample read later with a later
// clock flips on its own.
func TestStalenessIsPure(t *testing.T) {
	captured := time.Now()
	s := &Sample{CapturedAt: captured}

	if s.IsStale(captured.Add(10 * time.Minute)) {
		t.Error("10-minute-old sample should not be stale")
	}
	if !s.IsStale(captured.Add(StaleAfter + time.Minute)) {
		t.Error("31-minute-old sample should be stale")
	}
	if !s.CapturedAt.Equal(captured) {
		t.Error("IsStale mutated CapturedAt")
	}
}
