package alerts_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vigil/internal/alerts"
	"vigil/internal/config"
)

func configFor(url, format string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.WebhookURL = url
	cfg.Notifications.Format = format
	return &cfg
}

func TestNewSenderReturnsNilWithoutDestination(t *testing.T) {
	if sender := alerts.NewSender(configFor("", config.FormatSlack)); sender != nil {
		t.Fatalf("expected nil sender, got %T", sender)
	}
}

func TestSlackSenderPostsAttachment(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := alerts.NewSender(configFor(srv.URL, config.FormatSlack))
	err := sender.Send(context.Background(), alerts.Message{
		Severity: alerts.SeverityWarning,
		Title:    "SLO not met",
		Text:     "error rate 5.00% (target 1%)",
		Fields:   []alerts.Field{{Title: "Total runs", Value: "100"}},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	text, _ := got["text"].(string)
	if !strings.HasPrefix(text, "⚠️ *SLO not met*") || !strings.Contains(text, "error rate 5.00%") {
		t.Fatalf("unexpected text %q", text)
	}
	attachments, _ := got["attachments"].([]any)
	if len(attachments) != 1 {
		t.Fatalf("expected one attachment, got %v", got["attachments"])
	}
	att := attachments[0].(map[string]any)
	if att["color"] != "#ffa500" {
		t.Fatalf("expected warning colour, got %v", att["color"])
	}
	fields := att["fields"].([]any)
	if len(fields) != 1 || fields[0].(map[string]any)["value"] != "100" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestNtfySenderUsesHeaders(t *testing.T) {
	var (
		title, tags, priority string
		body                  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.Header.Get("Title")
		tags = r.Header.Get("Tags")
		priority = r.Header.Get("Priority")
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := alerts.NewSender(configFor(srv.URL, config.FormatNtfy))
	err := sender.Send(context.Background(), alerts.Message{
		Severity: alerts.SeverityError,
		Title:    "releaseCheck failed",
		Text:     "event store unavailable",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if title != "releaseCheck failed" || tags != "vigil,error" || priority != "urgent" {
		t.Fatalf("unexpected headers title=%q tags=%q priority=%q", title, tags, priority)
	}
	if body != "event store unavailable" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestJSONSenderPostsMessage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := alerts.NewSender(configFor(srv.URL, config.FormatJSON))
	if err := sender.Send(context.Background(), alerts.Message{Text: "hello"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["severity"] != "info" || got["text"] != "hello" || got["source"] != "vigil" {
		t.Fatalf("unexpected payload %v", got)
	}
	if got["color"] != "#36a64f" {
		t.Fatalf("expected default colour, got %v", got["color"])
	}
}

func TestSenderReportsNon2xxWithBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_token", http.StatusForbidden)
	}))
	defer srv.Close()

	sender := alerts.NewSender(configFor(srv.URL, config.FormatSlack))
	err := sender.Send(context.Background(), alerts.Message{Text: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "invalid_token") {
		t.Fatalf("unexpected error %v", err)
	}
}

type stubSender struct {
	err   error
	panic bool
	got   []alerts.Message
}

func (s *stubSender) Send(_ context.Context, msg alerts.Message) error {
	if s.panic {
		panic("boom")
	}
	s.got = append(s.got, msg)
	return s.err
}

func TestDispatcherSkipsWithoutDestination(t *testing.T) {
	var buf bytes.Buffer
	d := alerts.NewDispatcher(nil, slog.New(slog.NewTextHandler(&buf, nil)))

	delivery := d.Notify(context.Background(), alerts.SeverityWarning, "slo missed")
	if delivery.Status != alerts.DeliverySkipped {
		t.Fatalf("expected skipped, got %+v", delivery)
	}
	if !strings.Contains(buf.String(), "alert destination not configured") {
		t.Fatalf("expected warning log, got %q", buf.String())
	}
	if d.Enabled() {
		t.Fatal("expected dispatcher to be disabled")
	}
}

func TestDispatcherSwallowsTransportFailure(t *testing.T) {
	var buf bytes.Buffer
	sender := &stubSender{err: errors.New("connection refused")}
	d := alerts.NewDispatcher(sender, slog.New(slog.NewTextHandler(&buf, nil)))

	delivery := d.Dispatch(context.Background(), alerts.Message{Severity: alerts.SeverityError, Text: "x"})
	if delivery.Status != alerts.DeliveryFailed || !strings.Contains(delivery.Detail, "connection refused") {
		t.Fatalf("unexpected delivery %+v", delivery)
	}
	if !strings.Contains(buf.String(), "alert delivery failed") {
		t.Fatalf("expected failure log, got %q", buf.String())
	}
}

func TestDispatcherRecoversSenderPanic(t *testing.T) {
	d := alerts.NewDispatcher(&stubSender{panic: true}, nil)
	delivery := d.Notify(context.Background(), alerts.SeverityInfo, "x")
	if delivery.Status != alerts.DeliveryFailed {
		t.Fatalf("expected failed delivery, got %+v", delivery)
	}
}

func TestDispatcherSendsAfterCallerCancellation(t *testing.T) {
	sender := &stubSender{}
	d := alerts.NewDispatcher(sender, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	delivery := d.Notify(ctx, alerts.SeverityError, "run timed out")
	if delivery.Status != alerts.DeliverySent {
		t.Fatalf("expected sent, got %+v", delivery)
	}
	if len(sender.got) != 1 || sender.got[0].Color != "#ff0000" {
		t.Fatalf("unexpected messages %+v", sender.got)
	}
}

func TestDispatcherAgainstUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	d := alerts.NewDispatcher(alerts.NewSender(configFor(url, config.FormatSlack)), nil)
	if delivery := d.Notify(context.Background(), alerts.SeverityWarning, "x"); delivery.Status != alerts.DeliveryFailed {
		t.Fatalf("expected failed delivery, got %+v", delivery)
	}
}

func TestParseSeverity(t *testing.T) {
	tests := map[string]alerts.Severity{
		"":        alerts.SeverityInfo,
		"INFO":    alerts.SeverityInfo,
		"warn":    alerts.SeverityWarning,
		"warning": alerts.SeverityWarning,
		" error ": alerts.SeverityError,
	}
	for input, want := range tests {
		got, err := alerts.ParseSeverity(input)
		if err != nil || got != want {
			t.Fatalf("ParseSeverity(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := alerts.ParseSeverity("critical"); err == nil {
		t.Fatal("expected error for unknown severity")
	}
}
