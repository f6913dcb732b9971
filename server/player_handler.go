package server

import (
	"net/http"

	"Bt1Zen/model"
)

// LoadTrackHandler loads a track into the playback session.
func (h *APIHandler) LoadTrackHandler(w http.ResponseWriter, r *http.Request) {
	var track model.AudioTrack
	if !decodeJSON(w, r, &track) {
		return
	}
	if track.ID == "" || track.URL == "" {
		respondError(w, http.StatusBadRequest, "track id and url are required")
		return
	}

	h.session.LoadTrack(track)
	respondJSON(w, http.StatusOK, h.session.State())
}

// PlayHandler starts playback.
func (h *APIHandler) PlayHandler(w http.ResponseWriter, r *http.Request) {
	h.session.Play()
	respondJSON(w, http.StatusOK, h.session.State())
}

// PauseHandler pauses playback.
func (h *APIHandler) PauseHandler(w http.ResponseWriter, r *http.Request) {
	h.session.Pause()
	respondJSON(w, http.StatusOK, h.session.State())
}

// StopHandler pauses and rewinds to the start.
func (h *APIHandler) StopHandler(w http.ResponseWriter, r *http.Request) {
	h.session.Stop()
	respondJSON(w, http.StatusOK, h.session.State())
}

// SeekHandler moves playback to an absolute position.
func (h *APIHandler) SeekHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PositionMs int64 `json:"positionMs"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PositionMs < 0 {
		respondError(w, http.StatusBadRequest, "positionMs must be non-negative")
		return
	}

	h.session.SeekTo(req.PositionMs)
	respondJSON(w, http.StatusOK, h.session.State())
}

// SpeedHandler changes the playback rate.
func (h *APIHandler) SpeedHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.session.SetPlaybackSpeed(req.Speed); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.session.State())
}

// SkipHandler skips forward or backward by a number of seconds.
func (h *APIHandler) SkipHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds  int64 `json:"seconds"`
		Backward bool  `json:"backward"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Backward {
		h.session.SkipBackward(req.Seconds)
	} else {
		h.session.SkipForward(req.Seconds)
	}
	respondJSON(w, http.StatusOK, h.session.State())
}

// ReplayHandler restarts the current track from the beginning.
func (h *APIHandler) ReplayHandler(w http.ResponseWriter, r *http.Request) {
	h.session.Replay()
	respondJSON(w, http.StatusOK, h.session.State())
}

// PlayerStateHandler returns the current playback state snapshot.
func (h *APIHandler) PlayerStateHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.State())
}
