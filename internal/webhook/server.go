package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mattjoyce/vestibule/internal/platform"
	"github.com/mattjoyce/vestibule/internal/provision"
)

// Provisioner defines the interface for handling a join event.
type Provisioner interface {
	Provision(ctx context.Context, actorID, actorEmail, workspaceID string) (*provision.Result, error)
}

// Config holds webhook server configuration.
type Config struct {
	Listen string

	// Path is the URL path the hook is served on.
	Path string

	// Secret is the HMAC secret. Empty accepts all requests
	// unauthenticated.
	Secret string

	// EventType is the event that triggers provisioning; anything else
	// is acknowledged and ignored.
	EventType string

	// MaxBodySize is the maximum allowed request body size in bytes.
	MaxBodySize int64
}

// DefaultMaxBodySize limits inbound bodies (1 MB).
const DefaultMaxBodySize = 1048576

// Server represents the webhook HTTP server.
type Server struct {
	config      Config
	provisioner Provisioner
	guard       *provision.Guard
	logger      *slog.Logger
	server      *http.Server
	startedAt   time.Time
}

// New creates a new webhook server instance.
func New(config Config, provisioner Provisioner, guard *provision.Guard, logger *slog.Logger) *Server {
	if config.Path == "" {
		config.Path = "/hooks/workspace"
	}
	if config.EventType == "" {
		config.EventType = platform.EventMemberJoined
	}
	if config.MaxBodySize == 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}

	return &Server{
		config:      config,
		provisioner: provisioner,
		guard:       guard,
		logger:      logger,
		startedAt:   time.Now(),
	}
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting",
		"listen", s.config.Listen,
		"path", s.config.Path,
		"signed", s.config.Secret != "",
	)

	// Run server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Post(s.config.Path, s.handleEvent)

	return r
}

// loggingMiddleware logs HTTP requests (excludes sensitive payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleHealthz handles GET /healthz.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	})
}

// handleEvent handles incoming webhook POST requests.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Enforce body size limit
	limitedReader := io.LimitReader(r.Body, s.config.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "read_failed", "failed to read request body")
		return
	}
	if int64(len(body)) > s.config.MaxBodySize {
		s.respondError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "payload too large")
		return
	}

	// Verify signature over the exact raw bytes, before any parsing.
	// Re-serialized JSON is not guaranteed byte-identical to the
	// original, so parse order matters here.
	if s.config.Secret != "" {
		signature := r.Header.Get(SignatureHeader)
		if err := verifySignature(body, signature, s.config.Secret); err != nil {
			s.logger.Warn("webhook signature verification failed",
				"path", r.URL.Path,
				"request_id", middleware.GetReqID(ctx),
			)
			s.respondError(w, http.StatusUnauthorized, "invalid_signature", "signature verification failed")
			return
		}
	}

	ev, err := ParseEvent(body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_payload", "malformed JSON body")
		return
	}
	if !ev.Valid() {
		s.respondError(w, http.StatusBadRequest, "invalid_payload", "missing required event fields")
		return
	}

	if ev.Type != s.config.EventType {
		s.logger.Debug("ignoring event type", "event_type", ev.Type)
		s.respondJSON(w, http.StatusOK, IgnoredResponse{Status: StatusIgnored, EventType: ev.Type})
		return
	}

	key := provision.Fingerprint(ev.Type, ev.Workspace.ID, ev.Member.ID)
	result, cached, err := s.guard.Do(key, func() (*provision.Result, error) {
		return s.provisioner.Provision(ctx, ev.Member.ID, ev.Member.Email, ev.Workspace.ID)
	})
	if err != nil {
		category := "internal"
		var ce *platform.CallError
		if errors.As(err, &ce) {
			category = string(ce.Kind)
		}
		s.logger.Error("provisioning failed",
			"actor_id", ev.Member.ID,
			"workspace_id", ev.Workspace.ID,
			"category", category,
			"error", err,
		)
		s.respondError(w, http.StatusInternalServerError, category, err.Error())
		return
	}

	if cached {
		s.logger.Info("duplicate delivery, returning cached result",
			"actor_id", ev.Member.ID,
			"workspace_id", ev.Workspace.ID,
			"project_id", result.ProjectID,
		)
	}

	s.respondJSON(w, http.StatusOK, ProvisionedResponse{Status: StatusProvisioned, Result: *result})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, category, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: category, Message: message})
}
