package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/anatolev-dev/variantgate/internal/store"
)

const testAdminKey = "test-admin-key"

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	s := NewServer(Options{
		Store:       store.NewMemoryStore(),
		Env:         "prod",
		AdminAPIKey: testAdminKey,
		Logger:      zerolog.Nop(),
	})
	if err := s.RebuildSnapshot(context.Background()); err != nil {
		t.Fatalf("rebuild snapshot: %v", err)
	}
	return s, s.Router()
}

func seedFlag(t *testing.T, s *Server, flag store.Flag) {
	t.Helper()
	if flag.Env == "" {
		flag.Env = "prod"
	}
	if err := s.store.UpsertFlag(context.Background(), flag); err != nil {
		t.Fatalf("seed flag: %v", err)
	}
	if err := s.RebuildSnapshot(context.Background()); err != nil {
		t.Fatalf("rebuild snapshot: %v", err)
	}
}

func seedExperiment(t *testing.T, s *Server, exp store.Experiment) {
	t.Helper()
	if exp.Env == "" {
		exp.Env = "prod"
	}
	if err := s.store.UpsertExperiment(context.Background(), exp); err != nil {
		t.Fatalf("seed experiment: %v", err)
	}
	if err := s.RebuildSnapshot(context.Background()); err != nil {
		t.Fatalf("rebuild snapshot: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	_, router := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestSnapshot_ETagNotModified(t *testing.T) {
	s, router := newTestServer(t)
	seedFlag(t, s, store.Flag{Key: "f1", Enabled: true})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/configs/snapshot", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag header")
	}

	req := httptest.NewRequest("GET", "/v1/configs/snapshot", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Errorf("expected 304 for matching ETag, got %d", rec.Code)
	}
}

func TestAdmin_RequiresAuth(t *testing.T) {
	_, router := newTestServer(t)
	body := bytes.NewBufferString(`{"key":"f1","enabled":true}`)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/flags", body))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest("POST", "/v1/flags", bytes.NewBufferString(`{"key":"f1"}`))
	req.Header.Set("Authorization", "Bearer wrong-key")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 with wrong token, got %d", rec.Code)
	}
}

func TestAdmin_RejectsSchemelessToken(t *testing.T) {
	_, router := newTestServer(t)

	// A valid key sent without the Bearer scheme must not authenticate.
	for _, header := range []string{testAdminKey, "Bearer" + testAdminKey} {
		req := httptest.NewRequest("POST", "/v1/flags", bytes.NewBufferString(`{"key":"f1"}`))
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestAdmin_UpsertFlagRebuildsSnapshot(t *testing.T) {
	_, router := newTestServer(t)

	body := bytes.NewBufferString(`{"key":"new_header","enabled":true,"valueA":"v2","valueB":"v1"}`)
	req := httptest.NewRequest("POST", "/v1/flags", body)
	req.Header.Set("Authorization", "Bearer "+testAdminKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp upsertResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.OK || resp.ETag == "" {
		t.Errorf("unexpected upsert response: %+v", resp)
	}

	// The new flag must be immediately evaluable.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/flags/evaluate?userId=u1&keys=new_header", nil))
	var eval evaluateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &eval); err != nil {
		t.Fatalf("decode evaluate response: %v", err)
	}
	if len(eval.Flags) != 1 || eval.Flags[0].FlagKey != "new_header" {
		t.Errorf("expected the upserted flag in evaluation, got %+v", eval.Flags)
	}
}

func TestAdmin_UpsertFlagValidation(t *testing.T) {
	_, router := newTestServer(t)

	body := bytes.NewBufferString(`{"key":"bad key!","enabled":true}`)
	req := httptest.NewRequest("POST", "/v1/flags", body)
	req.Header.Set("Authorization", "Bearer "+testAdminKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid key, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != ErrCodeValidation || len(resp.Fields) == 0 {
		t.Errorf("expected field-level validation errors, got %+v", resp)
	}
}

func TestAdmin_UpsertExperimentValidation(t *testing.T) {
	_, router := newTestServer(t)

	// Allocation sums to 80: must be rejected.
	body := bytes.NewBufferString(`{
		"key": "layout_test",
		"status": "running",
		"variations": [{"key":"control","isControl":true},{"key":"treatment"}],
		"trafficAllocation": [
			{"variationKey":"control","percentage":40},
			{"variationKey":"treatment","percentage":40}
		]
	}`)
	req := httptest.NewRequest("POST", "/v1/experiments", body)
	req.Header.Set("Authorization", "Bearer "+testAdminKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad allocation sum, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdmin_DeleteFlag(t *testing.T) {
	s, router := newTestServer(t)
	seedFlag(t, s, store.Flag{Key: "doomed", Enabled: true})

	req := httptest.NewRequest("DELETE", "/v1/flags/doomed", nil)
	req.Header.Set("Authorization", "Bearer "+testAdminKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/flags/evaluate?userId=u1&keys=doomed", nil))
	var eval evaluateResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &eval)
	if len(eval.Flags) != 0 {
		t.Errorf("expected deleted flag to disappear from evaluation, got %+v", eval.Flags)
	}
}
