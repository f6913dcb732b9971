package server

import (
	"net/http"

	"Bt1Zen/logger"
)

// CacheSizeHandler reports the memory-resident size of the generated-audio
// cache in bytes.
func (h *APIHandler) CacheSizeHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]int64{"sizeBytes": h.audioCache.GetCacheSize()})
}

// CacheClearHandler empties both cache tiers.
func (h *APIHandler) CacheClearHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.audioCache.ClearCache(r.Context()); err != nil {
		logger.Error("Failed to clear audio cache", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to clear cache")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// CacheCleanupHandler evicts entries older than the configured retention.
func (h *APIHandler) CacheCleanupHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.audioCache.CleanupOldCache(r.Context(), h.cfg.CacheMaxAgeDays); err != nil {
		logger.Error("Failed to clean up audio cache", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to clean up cache")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleaned"})
}
