package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/anatolev-dev/variantgate/internal/audit"
	"github.com/anatolev-dev/variantgate/internal/snapshot"
	"github.com/anatolev-dev/variantgate/internal/store"
	"github.com/anatolev-dev/variantgate/internal/validation"
)

type upsertResponse struct {
	OK   bool   `json:"ok"`
	ETag string `json:"etag"`
}

// handleUpsertFlag handles POST /v1/flags.
func (s *Server) handleUpsertFlag(w http.ResponseWriter, r *http.Request) {
	var flag store.Flag
	if err := json.NewDecoder(r.Body).Decode(&flag); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidJSON, "invalid JSON")
		return
	}
	if strings.TrimSpace(flag.Env) == "" {
		flag.Env = s.env
	}

	if result := validation.ValidateFlag(flag); !result.Valid {
		writeErrorFields(w, r, http.StatusBadRequest, ErrCodeValidation, "flag validation failed", result.Errors)
		return
	}

	if err := s.store.UpsertFlag(r.Context(), flag); err != nil {
		s.logger.Error().Err(err).Str("key", flag.Key).Msg("flag upsert failed")
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "flag upsert failed")
		return
	}
	s.record(audit.ActionUpdated, audit.ResourceFlag, flag.Key, flag.Env)
	s.rebuildAndRespond(w, r)
}

// handleDeleteFlag handles DELETE /v1/flags/{key}.
func (s *Server) handleDeleteFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	env := r.URL.Query().Get("env")
	if env == "" {
		env = s.env
	}

	if err := s.store.DeleteFlag(r.Context(), key, env); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("flag delete failed")
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "flag delete failed")
		return
	}
	s.record(audit.ActionDeleted, audit.ResourceFlag, key, env)
	s.rebuildAndRespond(w, r)
}

// handleUpsertExperiment handles POST /v1/experiments.
func (s *Server) handleUpsertExperiment(w http.ResponseWriter, r *http.Request) {
	var exp store.Experiment
	if err := json.NewDecoder(r.Body).Decode(&exp); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidJSON, "invalid JSON")
		return
	}
	if strings.TrimSpace(exp.Env) == "" {
		exp.Env = s.env
	}
	if exp.Status == "" {
		exp.Status = store.StatusDraft
	}

	if result := validation.ValidateExperiment(exp); !result.Valid {
		writeErrorFields(w, r, http.StatusBadRequest, ErrCodeValidation, "experiment validation failed", result.Errors)
		return
	}

	if err := s.store.UpsertExperiment(r.Context(), exp); err != nil {
		s.logger.Error().Err(err).Str("key", exp.Key).Msg("experiment upsert failed")
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "experiment upsert failed")
		return
	}
	s.record(audit.ActionUpdated, audit.ResourceExperiment, exp.Key, exp.Env)
	s.rebuildAndRespond(w, r)
}

// handleDeleteExperiment handles DELETE /v1/experiments/{key}.
func (s *Server) handleDeleteExperiment(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	env := r.URL.Query().Get("env")
	if env == "" {
		env = s.env
	}

	if err := s.store.DeleteExperiment(r.Context(), key, env); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("experiment delete failed")
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "experiment delete failed")
		return
	}
	s.record(audit.ActionDeleted, audit.ResourceExperiment, key, env)
	s.rebuildAndRespond(w, r)
}

func (s *Server) rebuildAndRespond(w http.ResponseWriter, r *http.Request) {
	if err := s.RebuildSnapshot(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("snapshot rebuild failed")
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "snapshot rebuild failed")
		return
	}
	writeJSON(w, http.StatusOK, upsertResponse{OK: true, ETag: snapshot.Load().ETag})
}

func (s *Server) record(action, resource, key, env string) {
	if s.auditor != nil {
		s.auditor.Record(action, resource, key, env, "admin")
	}
}
