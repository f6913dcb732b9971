package server

import (
	"net/http"
	"strconv"

	"Bt1Zen/core/progress"
	"Bt1Zen/logger"
	"Bt1Zen/model"
)

// progressResponse decorates the raw aggregate with the derived level and
// streak message the UI shows.
type progressResponse struct {
	*model.UserProgress
	Level            int    `json:"level"`
	NextLevelMinutes int64  `json:"nextLevelMinutes"`
	StreakMessage    string `json:"streakMessage"`
}

// GetProgressHandler returns the user's listening aggregate.
func (h *APIHandler) GetProgressHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.progress.GetProgress(r.Context())
	if err != nil {
		logger.Error("Failed to load progress", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}

	level, next := progress.CalculateLevel(p.TotalListeningTime)
	respondJSON(w, http.StatusOK, progressResponse{
		UserProgress:     p,
		Level:            level,
		NextLevelMinutes: next,
		StreakMessage:    progress.StreakMessage(p.CurrentStreak),
	})
}

// ListeningHistoryHandler returns the newest listening-log entries.
func (h *APIHandler) ListeningHistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	sessions, err := h.progress.RecentSessions(r.Context(), limit)
	if err != nil {
		logger.Error("Failed to load listening history", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load listening history")
		return
	}
	if sessions == nil {
		sessions = []model.ListeningSession{}
	}
	respondJSON(w, http.StatusOK, sessions)
}

// ResetProgressHandler clears the user's listening aggregate.
func (h *APIHandler) ResetProgressHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.progress.ResetProgress(r.Context()); err != nil {
		logger.Error("Failed to reset progress", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to reset progress")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
