package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/anatolev-dev/variantgate/internal/evaluation"
	"github.com/anatolev-dev/variantgate/internal/snapshot"
	"github.com/anatolev-dev/variantgate/internal/targeting"
	"github.com/anatolev-dev/variantgate/internal/telemetry"
)

// evaluateUser is the user context in request bodies. Geography and
// language are taken from here and nowhere else; the server never infers
// them from network headers.
type evaluateUser struct {
	ID         string `json:"id"`
	Country    string `json:"country,omitempty"`
	Language   string `json:"language,omitempty"`
	AppVersion string `json:"appVersion,omitempty"`
}

func (u *evaluateUser) context() targeting.Context {
	return targeting.Context{
		UserID:     u.ID,
		Country:    u.Country,
		Language:   u.Language,
		AppVersion: u.AppVersion,
	}
}

type evaluateRequest struct {
	User *evaluateUser `json:"user"`
	Keys []string      `json:"keys,omitempty"`
}

type evaluateResponse struct {
	Flags       []evaluation.Result `json:"flags"`
	ETag        string              `json:"etag"`
	EvaluatedAt string              `json:"evaluatedAt"`
}

// handleEvaluateFlags handles POST /v1/flags/evaluate.
func (s *Server) handleEvaluateFlags(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidJSON, "invalid JSON")
		return
	}
	if req.User == nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeMissingField, "user is required")
		return
	}
	if strings.TrimSpace(req.User.ID) == "" {
		writeError(w, r, http.StatusBadRequest, ErrCodeMissingField, "user.id is required")
		return
	}

	s.evaluateAndRespond(w, req.User.context(), req.Keys)
}

// handleEvaluateFlagsGET handles GET /v1/flags/evaluate with query
// parameters, for SDKs that poll with simple GETs.
func (s *Server) handleEvaluateFlagsGET(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	userID := strings.TrimSpace(query.Get("userId"))
	if userID == "" {
		writeError(w, r, http.StatusBadRequest, ErrCodeMissingField, "userId query parameter is required")
		return
	}

	var keys []string
	if keysParam := query.Get("keys"); keysParam != "" {
		keys = strings.Split(keysParam, ",")
		for i := range keys {
			keys[i] = strings.TrimSpace(keys[i])
		}
	}

	ctx := targeting.Context{
		UserID:     userID,
		Country:    query.Get("country"),
		Language:   query.Get("language"),
		AppVersion: query.Get("appVersion"),
	}
	s.evaluateAndRespond(w, ctx, keys)
}

func (s *Server) evaluateAndRespond(w http.ResponseWriter, ctx targeting.Context, keys []string) {
	snap := snapshot.Load()
	results := evaluation.EvaluateAll(snap.Flags, ctx, keys)
	for _, result := range results {
		telemetry.FlagEvaluations.WithLabelValues(string(result.ServedValue), string(result.Reason)).Inc()
	}

	writeJSON(w, http.StatusOK, evaluateResponse{
		Flags:       results,
		ETag:        snap.ETag,
		EvaluatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}
