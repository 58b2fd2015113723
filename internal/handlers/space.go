package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studymap-backend/internal/middleware"
	"studymap-backend/internal/models"
	"studymap-backend/internal/repository"
)

type SpaceHandler struct {
	spaceRepo *repository.SpaceRepo
	userRepo  *repository.UserRepo
}

func NewSpaceHandler(spaceRepo *repository.SpaceRepo, userRepo *repository.UserRepo) *SpaceHandler {
	return &SpaceHandler{spaceRepo: spaceRepo, userRepo: userRepo}
}

func (h *SpaceHandler) List(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.spaceRepo.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"spaces": spaces})
}

func (h *SpaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Latitude    float64  `json:"latitude"`
		Longitude   float64  `json:"longitude"`
		Features    []string `json:"features"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Name is required", r))
		return
	}

	space := &models.StudySpace{
		Name:        req.Name,
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Features:    req.Features,
		CreatedBy:   userID,
	}
	if err := h.spaceRepo.Create(r.Context(), space); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"space": space})
}

func (h *SpaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	spaceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid space ID", r))
		return
	}

	space, err := h.spaceRepo.Get(r.Context(), spaceID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"space":          space,
		"average_rating": space.AverageRating(),
	})
}

func (h *SpaceHandler) Save(w http.ResponseWriter, r *http.Request) {
	h.setSaved(w, r, true)
}

func (h *SpaceHandler) Unsave(w http.ResponseWriter, r *http.Request) {
	h.setSaved(w, r, false)
}

func (h *SpaceHandler) setSaved(w http.ResponseWriter, r *http.Request, save bool) {
	userID := middleware.GetUserID(r.Context())
	spaceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid space ID", r))
		return
	}

	if save {
		err = h.spaceRepo.Save(r.Context(), userID, spaceID)
	} else {
		err = h.spaceRepo.Unsave(r.Context(), userID, spaceID)
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if save {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Space saved"})
	} else {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Space unsaved"})
	}
}

func (h *SpaceHandler) ListSaved(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	spaces, err := h.spaceRepo.ListSaved(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"spaces": spaces})
}

func (h *SpaceHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	spaceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid space ID", r))
		return
	}

	var req struct {
		Rating int    `json:"rating"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Rating must be between 1 and 5", r))
		return
	}

	review := &models.SpaceReview{
		SpaceID: spaceID,
		UserID:  userID,
		Rating:  req.Rating,
		Text:    req.Text,
	}
	if err := h.spaceRepo.AddReview(r.Context(), review); err != nil {
		handleServiceError(w, r, err)
		return
	}

	// Reviewing earns points, mirroring the rewards screen.
	h.userRepo.AddPoints(r.Context(), userID, 10)

	writeJSON(w, http.StatusCreated, map[string]interface{}{"review": review})
}

func (h *SpaceHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	spaceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid space ID", r))
		return
	}

	reviews, err := h.spaceRepo.ListReviews(r.Context(), spaceID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"reviews": reviews})
}
