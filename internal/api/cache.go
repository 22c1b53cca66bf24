package api

import (
	"context"
	"log/slog"
	"net/http"
)

// CacheAdmin exposes semantic cache maintenance. Satisfied by
// *semcache.Store.
type CacheAdmin interface {
	Stats(ctx context.Context) (entries, hits int64, err error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type cacheHandler struct {
	cache  CacheAdmin
	logger *slog.Logger
}

// stats handles GET /api/v1/cache/stats.
func (h *cacheHandler) stats(w http.ResponseWriter, r *http.Request) {
	entries, hits, err := h.cache.Stats(r.Context())
	if err != nil {
		h.logger.Error("reading cache stats", "error", err)
		writeError(w, http.StatusInternalServerError, "cache_unavailable", "failed to read cache stats", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"entries": entries, "hits": hits}, h.logger)
}

// purge handles POST /api/v1/cache/purge, deleting expired entries.
func (h *cacheHandler) purge(w http.ResponseWriter, r *http.Request) {
	purged, err := h.cache.PurgeExpired(r.Context())
	if err != nil {
		h.logger.Error("purging cache", "error", err)
		writeError(w, http.StatusInternalServerError, "cache_unavailable", "failed to purge cache", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"purged": purged}, h.logger)
}
