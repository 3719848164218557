package alerts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ntfySender struct {
	endpoint string
	client   *http.Client
}

func (n *ntfySender) Send(ctx context.Context, msg Message) error {
	if n == nil || n.client == nil {
		return errors.New("ntfy sender not configured")
	}
	msg = msg.normalized()

	body := msg.Text
	if len(msg.Fields) > 0 {
		lines := make([]string, 0, len(msg.Fields))
		for _, f := range msg.Fields {
			lines = append(lines, fmt.Sprintf("%s: %s", f.Title, f.Value))
		}
		body = strings.TrimSpace(body + "\n\n" + strings.Join(lines, "\n"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if title := msg.Title; title != "" {
		req.Header.Set("Title", title)
	}
	req.Header.Set("Tags", strings.Join([]string{"vigil", string(msg.Severity)}, ","))
	if priority := ntfyPriority(msg.Severity); priority != "default" {
		req.Header.Set("Priority", priority)
	}
	return do(n.client, req, "ntfy")
}

func ntfyPriority(s Severity) string {
	switch s {
	case SeverityError:
		return "urgent"
	case SeverityWarning:
		return "high"
	default:
		return "default"
	}
}
