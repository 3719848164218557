package main

import (
	"fmt"
	"time"

	"vigil/internal/health"
)

func (p *printer) summary(s health.WindowSummary) {
	p.section(fmt.Sprintf("Workflow summary (%d days from %s)", s.WindowDays, s.WindowStart), true)
	p.value("Runs", fmt.Sprintf("%d (success %d, error %d)", s.Total, s.Success, s.Error))
	p.status("Success rate", rateKind(s), s.SuccessRate+"%")
	p.value("Error rate", s.ErrorRate+"%")
	p.value("Avg duration", fmt.Sprintf("%dms", s.AvgDurationMs))
	p.value("Generated", formatWhen(s.GeneratedAt))
	p.topErrors(s.TopErrors)
}

// rateKind grades a summary the same way the digest does.
func rateKind(s health.WindowSummary) statusKind {
	switch {
	case s.Total == 0:
		return statusInfo
	case s.SuccessRatePercent >= 95:
		return statusOK
	case s.SuccessRatePercent >= 80:
		return statusWarn
	default:
		return statusError
	}
}

func (p *printer) sloCheck(r health.SLOCheckResult) {
	verdict, kind := "SLO met", statusOK
	if !r.SLOMet {
		verdict, kind = "SLO not met", statusError
	}
	p.section(fmt.Sprintf("Release check (%d days from %s)", r.WindowDays, r.WindowStart), true)
	p.status("Verdict", kind, verdict)
	p.value("Runs", fmt.Sprintf("%d (success %d, error %d)", r.Total, r.Success, r.Error))
	p.value("Error rate", fmt.Sprintf("%.2f%% (target %.2f%%)", health.RoundHalfUp(r.ErrorRatePercent, 2), r.SLOTargetErrorRatePercent))
	p.value("Budget used", fmt.Sprintf("%.2f%%", r.ErrorBudgetUsedPercent))
	p.value("Budget left", fmt.Sprintf("%.2f%%", r.ErrorBudgetRemainingPercent))
	p.value("Checked", formatWhen(r.CheckedAt))
	p.topErrors(r.TopErrors)
}

func (p *printer) topErrors(top []health.TopError) {
	if len(top) == 0 {
		return
	}
	fmt.Fprintln(p.w)
	p.table(topErrorsTable(top))
}

func topErrorsTable(top []health.TopError) string {
	if len(top) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(top))
	for _, e := range top {
		rows = append(rows, []string{formatWhen(e.Timestamp), e.Step, e.ErrorMessage})
	}
	return renderTable([]column{
		{header: "When"},
		{header: "Step"},
		{header: "Error", maxWidth: 60},
	}, rows)
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
