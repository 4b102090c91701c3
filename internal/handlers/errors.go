package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"clarifyai/internal/apperr"
	"clarifyai/internal/contextutil"
)

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleServiceError maps service errors to appropriate HTTP status codes and responses.
func handleServiceError(ctx context.Context, w http.ResponseWriter, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)

	var validationErr *apperr.ValidationError
	switch {
	case errors.As(err, &validationErr):
		logger.WarnContext(ctx, "validation error", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
	case errors.Is(err, apperr.ErrInvalidInput):
		logger.WarnContext(ctx, "invalid input", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, apperr.ErrExtraction):
		logger.WarnContext(ctx, "extraction failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, "Could not read document")
	case errors.Is(err, apperr.ErrExternalService), errors.Is(err, apperr.ErrEmbedding):
		logger.ErrorContext(ctx, "external service error", "error", err)
		writeError(w, http.StatusBadGateway, "External service error")
	case errors.Is(err, apperr.ErrIndex):
		logger.ErrorContext(ctx, "vector index error", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Vector index unavailable")
	default:
		logger.ErrorContext(ctx, "service error", "error", err)
		writeError(w, http.StatusInternalServerError, defaultMsg)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
