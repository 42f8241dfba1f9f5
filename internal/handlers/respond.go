package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/bilal-chajia/freecipies-blog-sub007/internal/logging"
)

// Machine-readable error codes carried in the error envelope.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeRateLimited  = "RATE_LIMITED"
	CodeDatabase     = "DATABASE_ERROR"
	CodeInternal     = "INTERNAL_ERROR"
)

type successEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

type errorEnvelope struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// writeJSON encodes v and writes it. Encoding errors are logged since we
// cannot recover from them mid-response.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeData writes the success envelope with the given status.
func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, successEnvelope{Success: true, Data: data})
}

// writeError writes the error envelope. details may be nil.
func writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, errorEnvelope{Error: message, Code: code, Details: details})
}

// writeValidationError is the common 400 shape.
func writeValidationError(w http.ResponseWriter, message string, details interface{}) {
	writeError(w, http.StatusBadRequest, CodeValidation, message, details)
}
