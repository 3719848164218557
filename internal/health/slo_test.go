package health_test

import (
	"errors"
	"testing"

	"vigil/internal/health"
	"vigil/internal/services"
	"vigil/internal/store"
)

func summaryOf(success, failures int) health.WindowSummary {
	events := make([]store.WorkflowEvent, 0, success+failures)
	for i := 0; i < success; i++ {
		events = append(events, store.WorkflowEvent{Step: "s", Status: store.StatusSuccess, Timestamp: now})
	}
	for i := 0; i < failures; i++ {
		events = append(events, store.WorkflowEvent{Step: "f", Status: store.StatusError, ErrorMessage: "x", Timestamp: now})
	}
	return health.Summarize(events, health.NewWindow(7, now), 5, now)
}

func TestEvaluateSLOMissedTarget(t *testing.T) {
	r, err := health.EvaluateSLO(summaryOf(95, 5), 1.0, now)
	if err != nil {
		t.Fatalf("EvaluateSLO: %v", err)
	}
	if r.ErrorRate != "5.0" || r.SLOMet {
		t.Fatalf("expected 5.0%% and missed SLO, got %q met=%v", r.ErrorRate, r.SLOMet)
	}
	if r.ErrorBudgetUsedPercent != 100 || r.ErrorBudgetRemainingPercent != 0 {
		t.Fatalf("unexpected budgets used=%v remaining=%v", r.ErrorBudgetUsedPercent, r.ErrorBudgetRemainingPercent)
	}
}

func TestEvaluateSLOWithinTarget(t *testing.T) {
	r, err := health.EvaluateSLO(summaryOf(199, 1), 1.0, now)
	if err != nil {
		t.Fatalf("EvaluateSLO: %v", err)
	}
	if r.ErrorRate != "0.5" || !r.SLOMet {
		t.Fatalf("expected 0.5%% and met SLO, got %q met=%v", r.ErrorRate, r.SLOMet)
	}
	if r.ErrorBudgetUsedPercent != 50 || r.ErrorBudgetRemainingPercent != 0.5 {
		t.Fatalf("unexpected budgets used=%v remaining=%v", r.ErrorBudgetUsedPercent, r.ErrorBudgetRemainingPercent)
	}
}

func TestEvaluateSLOEmptyWindowIsMet(t *testing.T) {
	r, err := health.EvaluateSLO(summaryOf(0, 0), 1.0, now)
	if err != nil {
		t.Fatalf("EvaluateSLO: %v", err)
	}
	if r.Total != 0 || r.SuccessRate != "0.0" || r.ErrorRate != "0.0" || !r.SLOMet {
		t.Fatalf("unexpected empty result %+v", r)
	}
	if r.ErrorBudgetUsedPercent != 0 || r.ErrorBudgetRemainingPercent != 1 {
		t.Fatalf("unexpected budgets %+v", r)
	}
}

func TestEvaluateSLOUsesUnroundedRate(t *testing.T) {
	// 1 error in 98 runs is 1.0204%, displayed as 1.0 but above a 1% target.
	r, err := health.EvaluateSLO(summaryOf(97, 1), 1.0, now)
	if err != nil {
		t.Fatalf("EvaluateSLO: %v", err)
	}
	if r.ErrorRate != "1.0" {
		t.Fatalf("expected display 1.0, got %q", r.ErrorRate)
	}
	if r.SLOMet {
		t.Fatal("expected the unrounded rate to miss the target")
	}
}

func TestEvaluateSLORejectsBadTarget(t *testing.T) {
	for _, target := range []float64{0, -1, 101} {
		if _, err := health.EvaluateSLO(summaryOf(1, 0), target, now); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("target %v: expected validation error, got %v", target, err)
		}
	}
}
