// Package handlers provides HTTP request handlers for the API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/soares-ari/helpdesk-ai/internal/apperr"
)

// APIError represents a structured API error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common API error codes.
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodePayloadTooBig = "PAYLOAD_TOO_LARGE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// RespondJSON sends a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// RespondError sends a JSON error response.
func RespondError(w http.ResponseWriter, status int, code, message string) {
	RespondJSON(w, status, ErrorResponse{
		Error: &APIError{Code: code, Message: message},
	})
}

// RespondAppError maps a typed application error to an HTTP response.
// Validation and access problems keep their detail; everything else is
// reported as an opaque internal error.
func RespondAppError(w http.ResponseWriter, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindInvalidInput:
		RespondError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case apperr.KindNotFound:
		RespondError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case apperr.KindOwnershipViolation:
		RespondError(w, http.StatusForbidden, ErrCodeForbidden, "access denied")
	default:
		RespondError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
	}
}
