package health

import (
	"math"
	"sort"
	"time"

	"vigil/internal/store"
)

// TopError is one recent failure listed in a report.
type TopError struct {
	Step         string    `json:"step"`
	ErrorMessage string    `json:"errorMessage"`
	Timestamp    time.Time `json:"timestamp"`
}

// WindowSummary is the aggregate of one window.
type WindowSummary struct {
	WindowStart string `json:"windowStart"`
	WindowDays  int    `json:"windowDays"`
	Total       int    `json:"total"`
	Success     int    `json:"success"`
	Error       int    `json:"error"`
	// SuccessRate and ErrorRate are display values with one decimal.
	SuccessRate string `json:"successRate"`
	ErrorRate   string `json:"errorRate"`
	// The unrounded rates drive the SLO comparison.
	SuccessRatePercent float64    `json:"successRatePercent"`
	ErrorRatePercent   float64    `json:"errorRatePercent"`
	AvgDurationMs      int64      `json:"avgDurationMs"`
	TopErrors          []TopError `json:"topErrors"`
	GeneratedAt        time.Time  `json:"generatedAt"`
}

// Summarize computes counts, rates, mean duration and the most recent
// failures over events. Events with a status outside the known set count
// toward Total only.
func Summarize(events []store.WorkflowEvent, window Window, topN int, generatedAt time.Time) WindowSummary {
	summary := WindowSummary{
		WindowStart: window.Label,
		WindowDays:  window.Days,
		Total:       len(events),
		TopErrors:   []TopError{},
		GeneratedAt: generatedAt.UTC(),
	}

	var durationSum int64
	for _, ev := range events {
		switch ev.Status {
		case store.StatusSuccess:
			summary.Success++
		case store.StatusError:
			summary.Error++
		}
		durationSum += ev.DurationMs
	}

	summary.SuccessRatePercent = percent(summary.Success, summary.Total)
	summary.ErrorRatePercent = percent(summary.Error, summary.Total)
	summary.SuccessRate = FormatPercent(summary.SuccessRatePercent)
	summary.ErrorRate = FormatPercent(summary.ErrorRatePercent)
	if summary.Total > 0 {
		summary.AvgDurationMs = int64(math.Round(float64(durationSum) / float64(summary.Total)))
	}
	summary.TopErrors = topErrors(events, topN)
	return summary
}

// topErrors returns up to limit failures with a message, newest first. Equal
// timestamps keep store order.
func topErrors(events []store.WorkflowEvent, limit int) []TopError {
	out := []TopError{}
	if limit <= 0 {
		return out
	}
	failures := make([]store.WorkflowEvent, 0)
	for _, ev := range events {
		if ev.Status == store.StatusError && ev.ErrorMessage != "" {
			failures = append(failures, ev)
		}
	}
	sort.SliceStable(failures, func(i, j int) bool {
		return failures[i].Timestamp.After(failures[j].Timestamp)
	})
	if len(failures) > limit {
		failures = failures[:limit]
	}
	for _, ev := range failures {
		out = append(out, TopError{Step: ev.Step, ErrorMessage: ev.ErrorMessage, Timestamp: ev.Timestamp.UTC()})
	}
	return out
}
