package handlers

import (
	"net/http"
	"strconv"

	"studymap-backend/internal/middleware"
	"studymap-backend/internal/repository"
)

type StudyLogHandler struct {
	logRepo *repository.StudyLogRepo
}

func NewStudyLogHandler(logRepo *repository.StudyLogRepo) *StudyLogHandler {
	return &StudyLogHandler{logRepo: logRepo}
}

// List returns the caller's completed participation stretches, most recent
// first. Entries appear shortly after leaving a session; the worker pool
// writes them asynchronously.
func (h *StudyLogHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	entries, err := h.logRepo.ListForUser(r.Context(), userID, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
