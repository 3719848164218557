package preflight

import (
	"fmt"
	"net/url"
	"strings"

	"vigil/internal/config"
)

// CheckAlertingFromConfig reports whether an alert destination is configured.
// Alerting is optional, so a missing webhook still passes.
func CheckAlertingFromConfig(cfg *config.Config) Result {
	const name = "Alerting"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	endpoint := strings.TrimSpace(cfg.Notifications.WebhookURL)
	if endpoint == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return Result{Name: name, Detail: "Invalid webhook URL"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s via %s", cfg.Notifications.Format, parsed.Host)}
}
