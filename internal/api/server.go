// Package api exposes the evaluation and admin HTTP surface. Handlers are
// thin: they parse, call the pure evaluators against the current snapshot,
// record metrics, and encode. All state lives in the store and the atomic
// snapshot.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/anatolev-dev/variantgate/internal/audit"
	"github.com/anatolev-dev/variantgate/internal/auth"
	"github.com/anatolev-dev/variantgate/internal/snapshot"
	"github.com/anatolev-dev/variantgate/internal/store"
	"github.com/anatolev-dev/variantgate/internal/telemetry"
)

// Server wires the HTTP handlers to their dependencies.
type Server struct {
	store           store.Store
	env             string
	adminAPIKey     string
	adminAPIKeyHash string
	rateLimitPerIP  int
	auditor         *audit.Recorder
	logger          zerolog.Logger
}

// Options configures a Server.
type Options struct {
	Store           store.Store
	Env             string
	AdminAPIKey     string
	AdminAPIKeyHash string
	RateLimitPerIP  int
	Auditor         *audit.Recorder
	Logger          zerolog.Logger
}

// NewServer creates a Server. Auditor may be nil (audit disabled).
func NewServer(opts Options) *Server {
	return &Server{
		store:           opts.Store,
		env:             opts.Env,
		adminAPIKey:     opts.AdminAPIKey,
		adminAPIKeyHash: opts.AdminAPIKeyHash,
		rateLimitPerIP:  opts.RateLimitPerIP,
		auditor:         opts.Auditor,
		logger:          opts.Logger,
	}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(telemetry.Middleware)
	if s.rateLimitPerIP > 0 {
		r.Use(httprate.LimitByIP(s.rateLimitPerIP, time.Minute))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Read side. The SSE stream gets no request timeout.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))

		r.Get("/v1/configs/snapshot", s.handleSnapshot)
		r.Post("/v1/flags/evaluate", s.handleEvaluateFlags)
		r.Get("/v1/flags/evaluate", s.handleEvaluateFlagsGET)
		r.Post("/v1/experiments/assign", s.handleAssign)
		r.Post("/v1/experiments/preview", s.handlePreview)
	})
	r.Get("/v1/configs/stream", s.handleStream)

	// Admin side (bearer auth).
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Use(s.authAdmin)

		r.Post("/v1/flags", s.handleUpsertFlag)
		r.Delete("/v1/flags/{key}", s.handleDeleteFlag)
		r.Post("/v1/experiments", s.handleUpsertExperiment)
		r.Delete("/v1/experiments/{key}", s.handleDeleteExperiment)
	})

	return r
}

// RebuildSnapshot loads definitions for the server's environment and swaps
// the atomic snapshot.
func (s *Server) RebuildSnapshot(ctx context.Context) error {
	flags, err := s.store.GetAllFlags(ctx, s.env)
	if err != nil {
		return err
	}
	exps, err := s.store.GetAllExperiments(ctx, s.env)
	if err != nil {
		return err
	}

	snap := snapshot.Build(flags, exps)
	snapshot.Update(snap)
	telemetry.SnapshotFlags.Set(float64(len(snap.Flags)))
	telemetry.SnapshotExperiments.Set(float64(len(snap.Experiments)))
	return nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := snapshot.Load()
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == snap.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", snap.ETag)
	writeJSON(w, http.StatusOK, snap)
}

// authAdmin accepts a bearer token matching either the bcrypt hash
// (preferred) or the plaintext admin key via constant-time compare.
func (s *Server) authAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if got == "" {
			writeError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "missing bearer token")
			return
		}

		ok := false
		if s.adminAPIKeyHash != "" {
			ok = auth.VerifyAPIKey(got, s.adminAPIKeyHash)
		} else if s.adminAPIKey != "" {
			ok = auth.ConstantTimeEqual(got, s.adminAPIKey)
		}
		if !ok {
			s.logger.Warn().Str("path", r.URL.Path).Msg("admin auth rejected")
			writeError(w, r, http.StatusForbidden, ErrCodeForbidden, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
