package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studymap-backend/internal/events"
	"studymap-backend/internal/middleware"
	"studymap-backend/internal/repository"
)

type UserHandler struct {
	userRepo *repository.UserRepo
	bus      *events.Bus
}

func NewUserHandler(userRepo *repository.UserRepo, bus *events.Bus) *UserHandler {
	return &UserHandler{userRepo: userRepo, bus: bus}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		DisplayName string  `json:"display_name"`
		Email       string  `json:"email"`
		AvatarURL   *string `json:"avatar_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if req.DisplayName != "" {
		user.DisplayName = req.DisplayName
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.AvatarURL != nil {
		user.AvatarURL = req.AvatarURL
	}

	if err := h.userRepo.Update(r.Context(), user); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// List returns everyone except the caller, for the follow screen.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	users, err := h.userRepo.ListOthers(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// Follow and Unfollow mutate the follow graph and nudge the caller's
// aggregated view so the new followee shows up without waiting for the
// periodic resync.

func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	h.setFollow(w, r, true)
}

func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.setFollow(w, r, false)
}

func (h *UserHandler) setFollow(w http.ResponseWriter, r *http.Request, follow bool) {
	userID := middleware.GetUserID(r.Context())
	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid user ID", r))
		return
	}
	if targetID == userID {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Cannot follow yourself", r))
		return
	}

	if follow {
		err = h.userRepo.Follow(r.Context(), userID, targetID)
	} else {
		err = h.userRepo.Unfollow(r.Context(), userID, targetID)
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.bus.FollowsChanged(r.Context(), userID)

	if follow {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Now following"})
	} else {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Unfollowed"})
	}
}

func (h *UserHandler) Following(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	followees, err := h.userRepo.Followees(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"following": followees})
}
