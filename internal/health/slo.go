package health

import (
	"fmt"
	"math"
	"time"

	"vigil/internal/services"
)

// SLOCheckResult is a WindowSummary with an error-budget verdict.
type SLOCheckResult struct {
	WindowSummary
	SLOTargetErrorRatePercent   float64   `json:"sloTargetErrorRatePercent"`
	SLOMet                      bool      `json:"sloMet"`
	ErrorBudgetRemainingPercent float64   `json:"errorBudgetRemainingPercent"`
	ErrorBudgetUsedPercent      float64   `json:"errorBudgetUsedPercent"`
	CheckedAt                   time.Time `json:"checkedAt"`
}

// ValidateTarget rejects non-positive or out-of-range error-rate targets.
func ValidateTarget(target float64) error {
	if math.IsNaN(target) || target <= 0 || target > 100 {
		return services.Wrap(services.ErrValidation, "slo", "target",
			fmt.Sprintf("target error rate must be greater than 0 and at most 100, got %v", target), nil)
	}
	return nil
}

// EvaluateSLO derives the verdict and budgets from summary. The comparison
// uses the unrounded error rate; budgets are rounded to two decimals.
// An empty window meets the target.
func EvaluateSLO(summary WindowSummary, target float64, checkedAt time.Time) (SLOCheckResult, error) {
	if err := ValidateTarget(target); err != nil {
		return SLOCheckResult{}, err
	}
	rate := summary.ErrorRatePercent

	used := rate / target * 100
	used = math.Max(0, math.Min(100, used))
	remaining := math.Max(0, target-rate)

	return SLOCheckResult{
		WindowSummary:               summary,
		SLOTargetErrorRatePercent:   target,
		SLOMet:                      rate <= target,
		ErrorBudgetRemainingPercent: RoundHalfUp(remaining, 2),
		ErrorBudgetUsedPercent:      RoundHalfUp(used, 2),
		CheckedAt:                   checkedAt.UTC(),
	}, nil
}
