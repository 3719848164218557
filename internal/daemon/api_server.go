package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vigil/internal/alerts"
	"vigil/internal/api"
	"vigil/internal/config"
	"vigil/internal/health"
	"vigil/internal/jobs"
	"vigil/internal/logging"
	"vigil/internal/services"
	"vigil/internal/store"
)

// TriggerHTTP labels runs started through the API.
const TriggerHTTP = "http"

const maxBodyBytes = 1 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	cfg    *config.Config

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
		cfg:    cfg,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Run endpoints block for up to the invocation timeout.
		WriteTimeout: cfg.InvocationTimeout() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/summary/run", s.handleTrigger(jobs.JobSummary))
	mux.HandleFunc("/api/slo/run", s.handleTrigger(jobs.JobReleaseCheck))
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/slo", s.handleSLO)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/notifications/test", s.handleTestNotify)
	mux.HandleFunc("/api/status", s.handleStatus)
	return s.withRequestID(authMiddleware(s.cfg.Paths.APIToken, mux))
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := services.WithRequestID(r.Context(), id)
		logging.WithContext(ctx, s.logger).Debug("api request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

// handleTrigger runs job synchronously. The run is detached from the client
// connection and bounded by the invocation timeout instead.
func (s *apiServer) handleTrigger(job string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusNoContent)
			return
		case http.MethodPost:
		default:
			s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		ctx := services.WithTrigger(context.WithoutCancel(r.Context()), TriggerHTTP)
		result, err := s.daemon.Runner().Run(ctx, job)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeData(w, http.StatusOK, result)
	}
}

func (s *apiServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		key = s.cfg.Summary.Key
	}
	summary, err := health.LoadSummary(r.Context(), s.daemon.Reports(), key)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeData(w, http.StatusOK, summary)
}

func (s *apiServer) handleSLO(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	result, err := health.LoadSLOCheck(r.Context(), s.daemon.Reports())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeData(w, http.StatusOK, result)
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listEvents(w, r)
	case http.MethodPost:
		s.recordEvent(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *apiServer) listEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	days := s.cfg.SLO.WindowDays
	if value := strings.TrimSpace(query.Get("days")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}
	rng := health.NewWindow(days, time.Now()).Range()

	if value := strings.TrimSpace(query.Get("since")); value != "" {
		since, err := api.ParseTime(value)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid since: "+err.Error())
			return
		}
		rng.Since = since
	}
	if value := strings.TrimSpace(query.Get("until")); value != "" {
		until, err := api.ParseTime(value)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid until: "+err.Error())
			return
		}
		if until.Before(rng.Since) {
			s.writeError(w, http.StatusBadRequest, "until must not be before since")
			return
		}
		rng.Until = &until
	}

	events, err := s.daemon.ListEvents(r.Context(), rng)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	resp := api.EventListResponse{
		Since:  rng.Since.UTC().Format(time.RFC3339),
		Events: api.FromWorkflowEvents(events),
	}
	if rng.Until != nil {
		resp.Until = rng.Until.UTC().Format(time.RFC3339)
	}
	s.writeData(w, http.StatusOK, resp)
}

func (s *apiServer) recordEvent(w http.ResponseWriter, r *http.Request) {
	var req api.RecordEventRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	status, err := store.ParseStatus(req.Status)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	id, err := s.daemon.RecordEvent(r.Context(), store.WorkflowEvent{
		Step:         req.Step,
		Status:       status,
		DurationMs:   req.DurationMs,
		ErrorMessage: req.ErrorMessage,
		Metadata:     req.Metadata,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeData(w, http.StatusCreated, api.RecordEventResponse{ID: id})
}

func (s *apiServer) handleTestNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	delivery := s.daemon.TestNotification(r.Context())
	s.writeData(w, http.StatusOK, api.TestNotifyResponse{
		Sent:   delivery.Status == alerts.DeliverySent,
		Status: string(delivery.Status),
		Detail: delivery.Detail,
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:         status.Running,
		PID:             status.PID,
		LockFilePath:    status.LockFilePath,
		LogPath:         status.LogPath,
		StoreDriver:     s.cfg.Store.Driver,
		ReportsBackend:  s.cfg.Reports.Backend,
		AlertingEnabled: s.daemon.dispatcher.Enabled(),
		Timezone:        s.cfg.Schedule.Timezone,
		Schedule:        api.FromScheduleEntries(status.Schedule),
		LastRuns:        api.FromJobRuns(status.LastRuns),
		Checks:          api.FromChecks(status.Checks),
	}
	if !status.StartedAt.IsZero() {
		payload.StartedAt = status.StartedAt.Format(time.RFC3339)
	}
	s.writeData(w, http.StatusOK, payload)
}

func (s *apiServer) writeData(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
		writeEnvelopeError(w, http.StatusInternalServerError, "encode response")
		return
	}
	writeEnvelope(w, status, api.Envelope{OK: true, Data: body})
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	writeEnvelopeError(w, status, message)
}

// writeFailure maps err to a status code via its marker.
func (s *apiServer) writeFailure(w http.ResponseWriter, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("api request failed", logging.Error(err))
	}
	writeEnvelopeError(w, status, err.Error())
}

func writeEnvelopeError(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, api.Envelope{OK: false, Error: message})
}

func writeEnvelope(w http.ResponseWriter, status int, env api.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
