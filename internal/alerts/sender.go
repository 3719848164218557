package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vigil/internal/config"
)

const userAgent = "vigil/0.1"

// Sender delivers one message to a destination.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender builds the sender for the configured format. It returns nil when
// no webhook URL is configured.
func NewSender(cfg *config.Config) Sender {
	if cfg == nil {
		return nil
	}
	endpoint := strings.TrimSpace(cfg.Notifications.WebhookURL)
	if endpoint == "" {
		return nil
	}

	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	switch cfg.Notifications.Format {
	case config.FormatNtfy:
		return &ntfySender{endpoint: endpoint, client: client}
	case config.FormatJSON:
		return &jsonSender{endpoint: endpoint, client: client}
	default:
		return &slackSender{endpoint: endpoint, client: client}
	}
}

func postJSON(ctx context.Context, client *http.Client, endpoint, kind string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", kind, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", kind, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	return do(client, req, kind)
}

func do(client *http.Client, req *http.Request, kind string) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s notification: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s returned %d: %s", kind, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
