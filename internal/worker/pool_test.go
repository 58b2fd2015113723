package worker

import (
	"testing"
	"time"
)

func TestComputeDuration(t *testing.T) {
	base := time.Now()

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		expected int
	}{
		{"normal stretch", base, base.Add(45 * time.Minute), 2700},
		{"zero length", base, base, 0},
		{"end before start clamps to zero", base, base.Add(-time.Minute), 0},
		{"caps at twelve hours", base, base.Add(20 * time.Hour), maxDurationSeconds},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := computeDuration(tc.start, tc.end); got != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, got)
			}
		})
	}
}
