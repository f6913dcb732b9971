package server

import (
	"bytes"
	"net/http"
	"time"
)

// GeneratedStreamHandler serves the payload behind a minted playable
// reference. References are session-scoped: a reference from before a
// restart, or one revoked by cache eviction, is a 404.
func (h *APIHandler) GeneratedStreamHandler(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.audioCache.Refs().Resolve(r.URL.Path)
	if !ok {
		http.Error(w, "Unknown audio reference", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	// Payloads behind a reference never change; regeneration replaces the
	// reference itself.
	w.Header().Set("Cache-Control", "private, max-age=86400")
	http.ServeContent(w, r, "meditation.wav", time.Time{}, bytes.NewReader(payload))
}
