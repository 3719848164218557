package health

import (
	"math"
	"strconv"
	"time"

	"vigil/internal/store"
)

const day = 24 * time.Hour

// Window is a trailing range ending at the invocation time.
type Window struct {
	Days  int
	Start time.Time
	End   time.Time
	// Label is the start date, e.g. "2025-01-06".
	Label string
}

// NewWindow returns the window of days full days ending at now.
func NewWindow(days int, now time.Time) Window {
	start := now.Add(-time.Duration(days) * day)
	return Window{
		Days:  days,
		Start: start,
		End:   now,
		Label: start.Format("2006-01-02"),
	}
}

// Range selects every event at or after the window start. There is no upper
// bound so events written while the run is in flight are included.
func (w Window) Range() store.Range {
	return store.Range{Since: w.Start}
}

// RoundHalfUp rounds non-negative values to places decimals, with .5 going up.
func RoundHalfUp(value float64, places int) float64 {
	p := math.Pow10(places)
	// Collapse binary representation noise (2.675 stored as 2.67499...) first.
	scaled := math.Round(value*p*1e6) / 1e6
	return math.Floor(scaled+0.5) / p
}

// FormatPercent renders a percentage with one decimal.
func FormatPercent(value float64) string {
	return strconv.FormatFloat(RoundHalfUp(value, 1), 'f', 1, 64)
}

func percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
