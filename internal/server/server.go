package server

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/analog-home/analog/internal/api"
	"github.com/analog-home/analog/internal/config"
	"github.com/analog-home/analog/internal/control"
)

// Server is the analog HTTP API server.
type Server struct {
	control *control.Surface
	cfg     config.ServerConfig
	router  chi.Router
	version string
	started time.Time
	logger  *slog.Logger
}

// New creates a new Server over the given control surface.
func New(surface *control.Surface, cfg config.ServerConfig, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		control: surface,
		cfg:     cfg,
		version: version,
		started: time.Now(),
		logger:  logger.With("component", "http"),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", agentTokenHeader},
		MaxAge:         300,
	}))
	r.Use(s.requestTimeout)

	r.Get("/healthz", s.handleHealth)

	// Visitor routes
	r.Get("/state", s.handleState)
	r.Get("/artifacts", s.handleListArtifacts)
	r.Get("/artifacts/count", s.handleCountArtifacts)
	r.Get("/limits", s.handleLimits)
	r.Post("/vote", s.handleVote)
	r.Post("/temperature", s.handleTemperature)
	r.Post("/seed", s.handleSeed)

	// Agent routes
	r.Group(func(r chi.Router) {
		r.Use(s.requireAgent)
		r.Post("/consume-seeds", s.handleConsumeSeeds)
		r.Post("/set-trajectory", s.handleSetTrajectory)
		r.Post("/publish", s.handlePublish)
	})

	r.NotFound(spaHandler())

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, dbOK := http.StatusOK, true
	if err := s.control.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", "err", err)
		status, dbOK = http.StatusServiceUnavailable, false
	}

	state := "ok"
	if !dbOK {
		state = "unavailable"
	}
	writeJSON(w, status, map[string]any{
		"status":  state,
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
	})
}

const agentTokenHeader = "X-Agent-Token"

// requireAgent guards agent-only routes with the shared token when one
// is configured. Without a token the routes are open.
func (s *Server) requireAgent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AgentToken != "" {
			got := r.Header.Get(agentTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.AgentToken)) != 1 {
				writeJSON(w, http.StatusUnauthorized, api.Error{Detail: "agent token required", Code: api.CodeUnauthorized})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requestTimeout bounds each request's store work with a deadline.
// Handlers report the expiry themselves as a 503, so nothing is written
// here.
func (s *Server) requestTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		level := slog.LevelInfo
		if r.URL.Path == "/healthz" {
			level = slog.LevelDebug
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"identity", clientIdentity(r),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// clientIdentity derives the rate-limit key for a request: the first
// X-Forwarded-For entry when present, otherwise the host of the direct
// connection address.
func clientIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
