package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"vigil/internal/services"
	"vigil/internal/store"
)

// Report namespaces and keys. Summaries and SLO checks never share a key.
const (
	NamespaceSummary  = "summary"
	NamespaceSLO      = "slo"
	KeyLatest         = "latest"
	DefaultSummaryKey = "weekly"
)

func putReport(ctx context.Context, reports store.ReportStore, namespace, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return services.Wrap(services.ErrValidation, "health", "encode report", namespace+"/"+key, err)
	}
	return reports.PutReport(ctx, namespace, key, body)
}

// LoadSummary reads and validates the summary stored at key.
func LoadSummary(ctx context.Context, reports store.ReportStore, key string) (WindowSummary, error) {
	if key == "" {
		key = DefaultSummaryKey
	}
	report, err := reports.GetReport(ctx, NamespaceSummary, key)
	if err != nil {
		return WindowSummary{}, err
	}
	var summary WindowSummary
	if err := json.Unmarshal(report.Body, &summary); err != nil {
		return WindowSummary{}, services.Wrap(services.ErrTransient, "health", "decode summary", key, err)
	}
	if err := summary.validate(); err != nil {
		return WindowSummary{}, services.Wrap(services.ErrTransient, "health", "decode summary", key, err)
	}
	if summary.TopErrors == nil {
		summary.TopErrors = []TopError{}
	}
	return summary, nil
}

// LoadSLOCheck reads and validates the latest SLO check.
func LoadSLOCheck(ctx context.Context, reports store.ReportStore) (SLOCheckResult, error) {
	report, err := reports.GetReport(ctx, NamespaceSLO, KeyLatest)
	if err != nil {
		return SLOCheckResult{}, err
	}
	var result SLOCheckResult
	if err := json.Unmarshal(report.Body, &result); err != nil {
		return SLOCheckResult{}, services.Wrap(services.ErrTransient, "health", "decode slo check", KeyLatest, err)
	}
	if err := result.validate(); err != nil {
		return SLOCheckResult{}, services.Wrap(services.ErrTransient, "health", "decode slo check", KeyLatest, err)
	}
	if result.TopErrors == nil {
		result.TopErrors = []TopError{}
	}
	return result, nil
}

func (s WindowSummary) validate() error {
	if s.Total < 0 || s.Success < 0 || s.Error < 0 {
		return errors.New("negative counts")
	}
	if s.Success+s.Error > s.Total {
		return fmt.Errorf("success %d + error %d exceeds total %d", s.Success, s.Error, s.Total)
	}
	if s.ErrorRatePercent < 0 || s.ErrorRatePercent > 100 {
		return fmt.Errorf("error rate %v out of range", s.ErrorRatePercent)
	}
	return nil
}

func (r SLOCheckResult) validate() error {
	if err := r.WindowSummary.validate(); err != nil {
		return err
	}
	if r.SLOTargetErrorRatePercent <= 0 {
		return fmt.Errorf("target %v must be positive", r.SLOTargetErrorRatePercent)
	}
	if r.ErrorBudgetRemainingPercent < 0 || r.ErrorBudgetUsedPercent < 0 || r.ErrorBudgetUsedPercent > 100 {
		return errors.New("error budget out of range")
	}
	return nil
}

// alertedError marks a failure that already produced an error alert.
type alertedError struct{ err error }

func (e *alertedError) Error() string { return e.err.Error() }

func (e *alertedError) Unwrap() error { return e.err }

// Alerted reports whether an error alert was already dispatched for err.
func Alerted(err error) bool {
	var a *alertedError
	return errors.As(err, &a)
}
