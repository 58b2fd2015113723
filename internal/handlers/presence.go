package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studymap-backend/internal/middleware"
	"studymap-backend/internal/presence"
)

type PresenceHandler struct {
	publisher *presence.Publisher
}

func NewPresenceHandler(publisher *presence.Publisher) *PresenceHandler {
	return &PresenceHandler{publisher: publisher}
}

// Publish stores the caller's latest location sample. The client ticks this
// periodically while location sharing is on; the server just keeps the last
// sample per user.
func (h *PresenceHandler) Publish(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		Latitude   float64    `json:"latitude"`
		Longitude  float64    `json:"longitude"`
		CapturedAt *time.Time `json:"captured_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	capturedAt := time.Now()
	if req.CapturedAt != nil {
		capturedAt = *req.CapturedAt
	}

	if err := h.publisher.Publish(r.Context(), userID, req.Latitude, req.Longitude, capturedAt); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Location updated"})
}

// Last returns a user's most recent sample with staleness derived at read
// time. location is null when the user has never shared one.
func (h *PresenceHandler) Last(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid user ID", r))
		return
	}

	sample, err := h.publisher.Last(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"location": sample,
		"is_stale": sample.IsStale(time.Now()),
	})
}
