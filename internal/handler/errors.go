package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkordes/tripboard/backend/internal/domain"
)

// errorResponse is the JSON error envelope every endpoint uses.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondJSON writes v as JSON with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing response failed", "error", err)
	}
}

// respondError maps a service error onto the HTTP error taxonomy:
//
//	ErrNotFound          → 404 not_found
//	ErrValidation        → 422 validation_error
//	ErrInvalidFormat     → 422 invalid_format
//	ErrDocumentTooLarge  → 413 document_too_large, with backup guidance
//	ErrStorageUnavailable → 503 storage_unavailable
//
// Everything else is a 500 with a generic message; the cause is logged, not
// leaked.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{errorDetail{"not_found", unwrapMessage(err)}})
	case errors.Is(err, domain.ErrValidation):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{errorDetail{"validation_error", unwrapMessage(err)}})
	case errors.Is(err, domain.ErrInvalidFormat):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{errorDetail{"invalid_format", unwrapMessage(err)}})
	case errors.Is(err, domain.ErrDocumentTooLarge):
		respondJSON(w, http.StatusRequestEntityTooLarge, errorResponse{errorDetail{
			"document_too_large",
			"trip is too large to save; export a backup and remove large images or split the trip",
		}})
	case errors.Is(err, domain.ErrStorageUnavailable):
		respondJSON(w, http.StatusServiceUnavailable, errorResponse{errorDetail{"storage_unavailable", "object storage is not configured"}})
	default:
		slog.Error("request failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{errorDetail{"internal", "internal server error"}})
	}
}

// respondUnavailable reports a feature whose backing dependency is not
// configured in this deployment.
func respondUnavailable(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusServiceUnavailable, errorResponse{errorDetail{"unavailable", message}})
}

// respondBadRequest rejects a request before it reaches the service layer.
func respondBadRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, errorResponse{errorDetail{"bad_request", message}})
}

// unwrapMessage strips the error-wrapping prefixes ("service.TripService.X:
// not found: ...") so clients get the human-readable tail.
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, sentinel := range []string{
		domain.ErrNotFound.Error(),
		domain.ErrValidation.Error(),
		domain.ErrInvalidFormat.Error(),
	} {
		if idx := strings.Index(msg, sentinel+": "); idx >= 0 {
			return msg[idx+len(sentinel)+2:]
		}
	}
	return msg
}
