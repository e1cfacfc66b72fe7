package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorCode is a machine-readable error code.
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeBadRequest   ErrorCode = "BAD_REQUEST"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalidJSON  ErrorCode = "INVALID_JSON"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
)

// ErrorResponse is the structured error body returned by every endpoint.
type ErrorResponse struct {
	Error     string            `json:"error"`                // HTTP status text
	Message   string            `json:"message"`              // Human-readable description
	Code      ErrorCode         `json:"code"`                 // Machine-readable error code
	Fields    map[string]string `json:"fields,omitempty"`     // Field-level errors
	RequestID string            `json:"request_id,omitempty"` // Request ID for debugging
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code ErrorCode, message string) {
	writeErrorFields(w, r, statusCode, code, message, nil)
}

func writeErrorFields(w http.ResponseWriter, r *http.Request, statusCode int, code ErrorCode, message string, fields map[string]string) {
	resp := &ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    code,
		Fields:  fields,
	}
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		resp.RequestID = reqID
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
