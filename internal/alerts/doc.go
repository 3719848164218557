// Package alerts delivers best-effort operator alerts to a webhook.
//
// A Sender speaks one wire format (Slack incoming webhook, ntfy topic or a
// plain JSON webhook) and reports transport failures as errors. The Dispatcher
// wraps a Sender and never fails: a missing destination or a failed delivery
// is logged and reported through the returned Delivery value, so callers
// cannot accidentally let an alert failure replace their own result.
package alerts
