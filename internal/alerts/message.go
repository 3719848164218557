package alerts

import (
	"fmt"
	"strings"
)

// Severity ranks an alert.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ParseSeverity accepts info, warning (or warn) and error.
func ParseSeverity(value string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	default:
		return "", fmt.Errorf("unknown severity %q (expected info, warning or error)", value)
	}
}

// Emoji returns the icon prefixed to rendered alerts.
func (s Severity) Emoji() string {
	switch s {
	case SeverityWarning:
		return "⚠️"
	case SeverityError:
		return "🚨"
	default:
		return "ℹ️"
	}
}

// Color returns the attachment colour used by chat formats.
func (s Severity) Color() string {
	switch s {
	case SeverityWarning:
		return "#ffa500"
	case SeverityError:
		return "#ff0000"
	default:
		return "#36a64f"
	}
}

// Field is a short labelled value shown alongside the alert text.
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// Message is one alert.
type Message struct {
	Severity Severity `json:"severity"`
	Title    string   `json:"title,omitempty"`
	Text     string   `json:"text"`
	Fields   []Field  `json:"fields,omitempty"`
	// Color overrides the severity colour when set.
	Color string `json:"color,omitempty"`
}

func (m Message) normalized() Message {
	if m.Severity == "" {
		m.Severity = SeverityInfo
	}
	if m.Color == "" {
		m.Color = m.Severity.Color()
	}
	m.Title = strings.TrimSpace(m.Title)
	m.Text = strings.TrimSpace(m.Text)
	return m
}

// headline is the first line shown by plain-text formats.
func (m Message) headline() string {
	if m.Title == "" {
		return m.Severity.Emoji()
	}
	return m.Severity.Emoji() + " " + m.Title
}
