package server

import (
	"encoding/json"
	"net/http"

	"Bt1Zen/config"
	"Bt1Zen/core/audiocache"
	"Bt1Zen/core/playback"
	"Bt1Zen/core/progress"
	"Bt1Zen/core/voice"
	"Bt1Zen/logger"
)

// APIHandler carries the composed services behind the HTTP surface.
type APIHandler struct {
	session     *playback.Session
	audioCache  *audiocache.AudioCache
	generator   *voice.Generator
	synthesizer voice.Synthesizer
	progress    *progress.Service
	cfg         *config.Config
}

// NewAPIHandler creates the handler set over the composed services.
func NewAPIHandler(
	session *playback.Session,
	audioCache *audiocache.AudioCache,
	generator *voice.Generator,
	synthesizer voice.Synthesizer,
	progressSvc *progress.Service,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		session:     session,
		audioCache:  audioCache,
		generator:   generator,
		synthesizer: synthesizer,
		progress:    progressSvc,
		cfg:         cfg,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response", logger.ErrorField(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
