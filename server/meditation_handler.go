package server

import (
	"errors"
	"net/http"

	"Bt1Zen/core/voice"
	"Bt1Zen/logger"
	"Bt1Zen/model"

	"github.com/gorilla/mux"
)

// GenerateAudioHandler returns a playable reference for a meditation,
// synthesizing it on a cache miss. Concurrent requests for the same
// meditation share one synthesis run.
func (h *APIHandler) GenerateAudioHandler(w http.ResponseWriter, r *http.Request) {
	meditationID := mux.Vars(r)["id"]

	var req struct {
		Text    string             `json:"text"`
		Options model.VoiceOptions `json:"options"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	ref, err := h.generator.GetOrGenerate(r.Context(), meditationID, req.Text, req.Options)
	if err != nil {
		logger.Error("Failed to resolve meditation audio",
			logger.String("meditationId", meditationID),
			logger.ErrorField(err))
		switch {
		case errors.Is(err, voice.ErrSynthesisTimeout):
			respondError(w, http.StatusGatewayTimeout, "audio synthesis timed out")
		case errors.Is(err, voice.ErrNoVoiceAvailable):
			respondError(w, http.StatusServiceUnavailable, "no synthesis voice available")
		default:
			respondError(w, http.StatusInternalServerError, "failed to generate audio")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"playableRef": ref})
}

// VoicesHandler lists the synthesis voices available on this host.
func (h *APIHandler) VoicesHandler(w http.ResponseWriter, r *http.Request) {
	voices := h.synthesizer.AvailableVoices()
	if voices == nil {
		voices = []model.Voice{}
	}
	respondJSON(w, http.StatusOK, voices)
}
