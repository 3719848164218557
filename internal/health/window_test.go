package health_test

import (
	"testing"
	"time"

	"vigil/internal/health"
)

func TestNewWindow(t *testing.T) {
	w := health.NewWindow(7, now)
	if w.Label != "2025-01-06" {
		t.Fatalf("unexpected label %q", w.Label)
	}
	if !w.Start.Equal(now.Add(-7 * 24 * time.Hour)) {
		t.Fatalf("unexpected start %s", w.Start)
	}
	r := w.Range()
	if !r.Since.Equal(w.Start) || r.Until != nil {
		t.Fatalf("window range must be open-ended: %+v", r)
	}
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		value  float64
		places int
		want   float64
	}{
		{0.05, 1, 0.1},
		{0.04, 1, 0.0},
		{2.675, 2, 2.68},
		{66.66666, 1, 66.7},
		{33.33333, 1, 33.3},
		{12.25, 1, 12.3},
		{100, 2, 100},
		{0, 1, 0},
	}
	for _, tc := range tests {
		if got := health.RoundHalfUp(tc.value, tc.places); got != tc.want {
			t.Fatalf("RoundHalfUp(%v, %d) = %v, want %v", tc.value, tc.places, got, tc.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := health.FormatPercent(0); got != "0.0" {
		t.Fatalf("got %q", got)
	}
	if got := health.FormatPercent(97.25); got != "97.3" {
		t.Fatalf("got %q", got)
	}
	if got := health.FormatPercent(100); got != "100.0" {
		t.Fatalf("got %q", got)
	}
}
