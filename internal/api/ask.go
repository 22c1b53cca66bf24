package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/noorchat/noor/internal/i18n"
	"github.com/noorchat/noor/internal/pipeline"
)

// maxQueryRunes caps accepted question length. Longer input is rejected
// rather than silently truncated; embedding-level truncation is an
// internal concern, the API contract is explicit.
const maxQueryRunes = 2000

// Answerer runs the question pipeline. Satisfied by *pipeline.Pipeline.
type Answerer interface {
	Answer(ctx context.Context, query, language string, onDelta func(delta string)) (*pipeline.Answer, error)
}

type askHandler struct {
	pipeline Answerer
	logger   *slog.Logger
}

type askRequest struct {
	Query    string `json:"query"`
	Language string `json:"language,omitempty"`
}

// ask handles POST /api/v1/ask: one question, one JSON answer.
func (h *askHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON", h.logger)
		return
	}
	if !h.validQuery(w, req.Query) {
		return
	}

	ans, err := h.pipeline.Answer(r.Context(), req.Query, i18n.Normalize(req.Language), nil)
	if err != nil {
		h.answerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ans, h.logger)
}

// askStream handles GET /api/v1/ask/stream: the same pipeline, delivered
// as Server-Sent Events. Each text delta arrives as a "delta" event and
// the validated answer closes the stream as an "answer" event.
func (h *askHandler) askStream(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if !h.validQuery(w, query) {
		return
	}
	language := i18n.Normalize(r.URL.Query().Get("lang"))

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming is not supported", h.logger)
		return
	}

	ans, err := h.pipeline.Answer(r.Context(), query, language, func(delta string) {
		if err := sse.event("delta", map[string]string{"text": delta}); err != nil {
			h.logger.Debug("writing delta event", "error", err)
		}
	})
	switch {
	case errors.Is(err, context.Canceled):
		return // client went away
	case err != nil:
		h.logger.Error("pipeline failed", "error", err)
		_ = sse.event("error", errorBody{Error: "pipeline_failed", Message: "failed to answer the question"})
		return
	}

	if err := sse.event("answer", ans); err != nil {
		h.logger.Debug("writing answer event", "error", err)
	}
}

// validQuery rejects empty and oversized questions with a 400. Reports
// whether the handler should proceed.
func (h *askHandler) validQuery(w http.ResponseWriter, query string) bool {
	if query == "" {
		writeError(w, http.StatusBadRequest, "empty_query", "query is required", h.logger)
		return false
	}
	if utf8.RuneCountInString(query) > maxQueryRunes {
		writeError(w, http.StatusBadRequest, "query_too_long", "query exceeds maximum length", h.logger)
		return false
	}
	return true
}

func (h *askHandler) answerError(w http.ResponseWriter, err error) {
	if errors.Is(err, pipeline.ErrEmptyQuery) {
		writeError(w, http.StatusBadRequest, "empty_query", "query is required", h.logger)
		return
	}
	if errors.Is(err, context.Canceled) {
		// Client is gone; nothing useful to write.
		return
	}
	h.logger.Error("pipeline failed", "error", err)
	writeError(w, http.StatusInternalServerError, "pipeline_failed", "failed to answer the question", h.logger)
}
