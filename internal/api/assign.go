package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/anatolev-dev/variantgate/internal/experiments"
	"github.com/anatolev-dev/variantgate/internal/snapshot"
	"github.com/anatolev-dev/variantgate/internal/store"
	"github.com/anatolev-dev/variantgate/internal/telemetry"
)

type assignRequest struct {
	User *evaluateUser `json:"user"`
	Keys []string      `json:"keys,omitempty"`
}

type assignResponse struct {
	Assignments map[string]*experiments.Assignment `json:"assignments"`
	ETag        string                             `json:"etag"`
	EvaluatedAt string                             `json:"evaluatedAt"`
}

// handleAssign handles POST /v1/experiments/assign. Callers treat returned
// assignments as exposures and report them to the stats collector.
func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	s.assign(w, r, false)
}

// handlePreview handles POST /v1/experiments/preview. Identical
// computation, but the response must not be reported as an exposure; the
// admin "test evaluation" tool uses this to answer "what would user X get"
// without polluting experiment results.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	s.assign(w, r, true)
}

func (s *Server) assign(w http.ResponseWriter, r *http.Request, preview bool) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidJSON, "invalid JSON")
		return
	}
	if req.User == nil || strings.TrimSpace(req.User.ID) == "" {
		writeError(w, r, http.StatusBadRequest, ErrCodeMissingField, "user.id is required")
		return
	}

	snap := snapshot.Load()
	selected := selectExperiments(snap.Experiments, req.Keys)

	now := time.Now().UTC()
	assignments := experiments.AssignMultipleAt(selected, req.User.context(), now)

	if preview {
		telemetry.ExperimentAssignments.WithLabelValues("preview").Add(float64(len(selected)))
	} else {
		telemetry.ExperimentAssignments.WithLabelValues("assigned").Add(float64(len(assignments)))
		telemetry.ExperimentAssignments.WithLabelValues("unassigned").Add(float64(len(selected) - len(assignments)))
	}

	writeJSON(w, http.StatusOK, assignResponse{
		Assignments: assignments,
		ETag:        snap.ETag,
		EvaluatedAt: now.Format(time.RFC3339),
	})
}

// selectExperiments applies the optional key filter, preserving a stable
// order. Unknown keys are silently skipped.
func selectExperiments(all map[string]store.Experiment, keys []string) []store.Experiment {
	if len(keys) == 0 {
		selected := make([]store.Experiment, 0, len(all))
		for _, exp := range all {
			selected = append(selected, exp)
		}
		return selected
	}

	selected := make([]store.Experiment, 0, len(keys))
	for _, key := range keys {
		if exp, exists := all[key]; exists {
			selected = append(selected, exp)
		}
	}
	return selected
}
