package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/go-chi/chi/v5"
	"github.com/springjools/ombibot/internal/logging"
	"github.com/springjools/ombibot/pkg/domain"
	"github.com/springjools/ombibot/pkg/runner"
)

//go:embed openapi.yaml
var rawSpec []byte

// Dispatcher handles one event and returns its effects (see runner.Runner.Call).
type Dispatcher interface {
	Call(ctx context.Context, ev domain.Event) ([]domain.Effect, error)
}

// Sessions exposes live sessions for inspection.
type Sessions interface {
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, userID string) (*domain.Session, error)
	Delete(ctx context.Context, userID string) error
}

// Server serves the bridge API.
type Server struct {
	dispatcher Dispatcher
	sessions   Sessions
	metrics    http.Handler
	version    string
	logger     *slog.Logger
	spec       *openapi3.T
}

// Option configures the Server.
type Option func(*Server)

// WithSessions enables the /v1/sessions endpoints.
func WithSessions(sessions Sessions) Option {
	return func(s *Server) {
		s.sessions = sessions
	}
}

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = strings.TrimSpace(v)
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
}

// NewHandler creates the HTTP handler for the bridge.
func NewHandler(dispatcher Dispatcher, opts ...Option) (http.Handler, error) {
	spec, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}
	s := &Server{
		dispatcher: dispatcher,
		version:    "dev",
		logger:     logging.NewNop(),
		spec:       spec,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.With(s.validate("/v1/events")).Post("/v1/events", s.PostEvent)
	if s.sessions != nil {
		r.With(s.validate("/v1/sessions")).Get("/v1/sessions", s.ListSessions)
		r.With(s.validate("/v1/sessions/{userID}")).Get("/v1/sessions/{userID}", s.GetSession)
		r.With(s.validate("/v1/sessions/{userID}")).Delete("/v1/sessions/{userID}", s.DeleteSession)
	}

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validate checks requests against the operation documented for path.
func (s *Server) validate(path string) func(http.Handler) http.Handler {
	item := s.spec.Paths.Find(path)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if item == nil || item.GetOperation(r.Method) == nil {
				next.ServeHTTP(w, r)
				return
			}

			params := make(map[string]string)
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				for i, key := range rctx.URLParams.Keys {
					params[key] = rctx.URLParams.Values[i]
				}
			}
			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: params,
				Route: &routers.Route{
					Spec:      s.spec,
					Path:      path,
					PathItem:  item,
					Method:    r.Method,
					Operation: item.GetOperation(r.Method),
				},
				Options: &openapi3filter.Options{MultiError: false},
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				s.logger.Warn("Request rejected by schema", "path", path, "err", err)
				writeError(w, http.StatusBadRequest, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type effectList struct {
	Effects []domain.Effect `json:"effects"`
}

// PostEvent handles POST /v1/events.
func (s *Server) PostEvent(w http.ResponseWriter, r *http.Request) {
	var ev domain.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if ev.Channel == "" {
		ev.Channel = "http"
	}
	if ev.ChatID == "" {
		ev.ChatID = ev.UserID
	}

	effects, err := s.dispatcher.Call(r.Context(), ev)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, runner.ErrInputTooLarge), errors.Is(err, runner.ErrInvalidUTF8):
			status = http.StatusBadRequest
		case errors.Is(err, runner.ErrClosed), errors.Is(err, context.DeadlineExceeded):
			status = http.StatusServiceUnavailable
		}
		s.logger.Error("Event failed", "user_id", ev.UserID, "err", err)
		writeError(w, status, err)
		return
	}
	if effects == nil {
		effects = []domain.Effect{}
	}
	writeJSON(w, http.StatusOK, effectList{Effects: effects})
}

type sessionSummary struct {
	UserID       string       `json:"user_id"`
	State        domain.State `json:"state"`
	AccountName  string       `json:"account_name"`
	LastActivity time.Time    `json:"last_activity"`
}

// ListSessions handles GET /v1/sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	sort.Strings(ids)

	out := make([]sessionSummary, 0, len(ids))
	for _, id := range ids {
		sess, err := s.sessions.Load(r.Context(), id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			continue // evicted meanwhile
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		out = append(out, sessionSummary{
			UserID:       sess.UserID,
			State:        sess.State,
			AccountName:  sess.AccountName,
			LastActivity: sess.LastActivity,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

// GetSession handles GET /v1/sessions/{userID}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Load(r.Context(), chi.URLParam(r, "userID"))
	if errors.Is(err, domain.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// DeleteSession handles DELETE /v1/sessions/{userID}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "userID")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.spec.Info != nil {
		apiVersion = s.spec.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "ombibot",
		"version":     s.version,
		"api_version": apiVersion,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
