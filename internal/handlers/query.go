package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"clarifyai/internal/contextutil"
	"clarifyai/internal/service"
)

// QueryHandler handles HTTP requests for questions and history.
type QueryHandler struct {
	queries service.QueryService
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(queries service.QueryService) *QueryHandler {
	return &QueryHandler{queries: queries}
}

// QueryRequest represents the HTTP request payload for a question.
//
// swagger:model QueryRequest
type QueryRequest struct {
	Query    string `json:"query"`
	Username string `json:"username"`
	TopK     int    `json:"top_k,omitempty"`
}

// Ask answers a question from the uploaded documents.
//
// swagger:route POST /api/v1/query query askQuestion
func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.queries.Ask(ctx, service.QueryRequest{
		Username: req.Username,
		Query:    req.Query,
		TopK:     req.TopK,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to answer query")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// History returns the questions asked by ?username=.
//
// swagger:route GET /api/v1/history query history
func (h *QueryHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := h.queries.History(r.Context(), r.URL.Query().Get("username"), limit)
	if err != nil {
		handleServiceError(r.Context(), w, err, "Failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
