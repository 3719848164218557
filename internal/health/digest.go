package health

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"vigil/internal/alerts"
)

const (
	colorGood = "#36a64f"
	colorFair = "#ffa500"
	colorPoor = "#ff0000"
)

var printer = message.NewPrinter(language.English)

// grade maps a success rate to a traffic-light emoji and colour.
func grade(successRate float64) (string, string) {
	rounded := RoundHalfUp(successRate, 1)
	switch {
	case rounded >= 95:
		return "🟢", colorGood
	case rounded >= 80:
		return "🟡", colorFair
	default:
		return "🔴", colorPoor
	}
}

// FormatSummaryDigest renders the periodic workflow digest.
func FormatSummaryDigest(s WindowSummary) alerts.Message {
	emoji, color := grade(s.SuccessRatePercent)
	if s.Total == 0 {
		emoji, color = "⚪", colorGood
	}

	title := "Weekly workflow summary"
	if s.WindowDays != 7 {
		title = printer.Sprintf("Workflow summary (%d days)", s.WindowDays)
	}

	var b strings.Builder
	b.WriteString(printer.Sprintf("%s %s ~ %s\n", emoji, s.WindowStart, s.GeneratedAt.Format("2006-01-02")))
	b.WriteString(printer.Sprintf("Runs: %d | Success: %d | Errors: %d\n", s.Total, s.Success, s.Error))
	b.WriteString(printer.Sprintf("Success rate: %s%%\n", s.SuccessRate))
	b.WriteString(printer.Sprintf("Avg duration: %dms", s.AvgDurationMs))
	writeTopErrors(&b, s.TopErrors, "No errors this window")

	return alerts.Message{
		Severity: alerts.SeverityInfo,
		Title:    title,
		Text:     b.String(),
		Color:    color,
		Fields: []alerts.Field{
			{Title: "Total runs", Value: printer.Sprintf("%d", s.Total)},
			{Title: "Success rate", Value: s.SuccessRate + "%"},
			{Title: "Avg duration", Value: printer.Sprintf("%dms", s.AvgDurationMs)},
			{Title: "Errors", Value: printer.Sprintf("%d", s.Error)},
		},
	}
}

// FormatSLOAlert renders an SLO verdict. Missed targets are warnings.
func FormatSLOAlert(r SLOCheckResult) alerts.Message {
	severity := alerts.SeverityInfo
	title := "SLO met"
	if !r.SLOMet {
		severity = alerts.SeverityWarning
		title = "SLO not met"
	}

	var b strings.Builder
	b.WriteString(printer.Sprintf("Last %d days: %d runs, %d errors\n", r.WindowDays, r.Total, r.Error))
	b.WriteString(printer.Sprintf("Error rate: %.2f%% (target <= %.2f%%)\n", RoundHalfUp(r.ErrorRatePercent, 2), r.SLOTargetErrorRatePercent))
	b.WriteString(printer.Sprintf("Error budget used: %.2f%%", r.ErrorBudgetUsedPercent))
	if !r.SLOMet {
		b.WriteString("\n\nThe error rate is above target; hold releases until it recovers.")
	}
	writeTopErrors(&b, r.TopErrors, "")

	return alerts.Message{
		Severity: severity,
		Title:    title,
		Text:     b.String(),
		Fields: []alerts.Field{
			{Title: "Error rate", Value: printer.Sprintf("%.2f%%", RoundHalfUp(r.ErrorRatePercent, 2))},
			{Title: "Target", Value: printer.Sprintf("%.2f%%", r.SLOTargetErrorRatePercent)},
			{Title: "Budget used", Value: printer.Sprintf("%.2f%%", r.ErrorBudgetUsedPercent)},
			{Title: "Budget remaining", Value: printer.Sprintf("%.2f%%", r.ErrorBudgetRemainingPercent)},
		},
	}
}

// FormatFailure renders the error alert sent when a job run fails.
func FormatFailure(job string, err error) alerts.Message {
	text := "unknown error"
	if err != nil {
		text = err.Error()
	}
	return alerts.Message{
		Severity: alerts.SeverityError,
		Title:    printer.Sprintf("[%s] run failed", job),
		Text:     text,
	}
}

func writeTopErrors(b *strings.Builder, top []TopError, empty string) {
	if len(top) == 0 {
		if empty != "" {
			b.WriteString("\n\n")
			b.WriteString(empty)
		}
		return
	}
	b.WriteString(printer.Sprintf("\n\nRecent errors (%d):", len(top)))
	for i, e := range top {
		b.WriteString(printer.Sprintf("\n%d. [%s] %s", i+1, e.Step, e.ErrorMessage))
	}
}
