package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/beer/backend/internal/middleware"
	"github.com/beer/backend/internal/models"
	"github.com/beer/backend/internal/services"
)

type ProfileHandler struct {
	profiles *services.ProfileService
}

func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req models.CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(map[string]string{
			"image": "Invalid image data",
		}))
		return
	}

	// Image upload is network-bound; one bounded attempt, no retries.
	ctx, cancel := context.WithTimeout(r.Context(), 45*time.Second)
	defer cancel()

	p, err := h.profiles.CreateProfile(ctx, userID, &req, image)
	if err != nil {
		log.Printf("[profiles.create] error userID=%s err=%v", userID, err)
		writeServiceError(w, err, "Failed to create profile")
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(p.View(userID)))
}

func (h *ProfileHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	limit := limitParam(r, 50, 100)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	profiles, err := h.profiles.ListProfiles(ctx, limit)
	if err != nil {
		log.Printf("[profiles.list] error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list profiles"))
		return
	}

	views := make([]*models.ProfileView, 0, len(profiles))
	for _, p := range profiles {
		views = append(views, p.View(userID))
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(views))
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	profileID := chi.URLParam(r, "profileID")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	p, err := h.profiles.GetProfile(ctx, profileID)
	if err != nil {
		writeServiceError(w, err, "Failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(p.View(userID)))
}

func (h *ProfileHandler) Vote(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	profileID := chi.URLParam(r, "profileID")

	var req models.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	p, err := h.profiles.Vote(ctx, profileID, userID, req.VoteType)
	if err != nil {
		log.Printf("[profiles.vote] error profileID=%s userID=%s err=%v", profileID, userID, err)
		writeServiceError(w, err, "Failed to record vote")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(p.View(userID)))
}

func (h *ProfileHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	profileID := chi.URLParam(r, "profileID")

	var req models.CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	p, err := h.profiles.AddComment(ctx, profileID, userID, req.Text)
	if err != nil {
		log.Printf("[profiles.comment] error profileID=%s userID=%s err=%v", profileID, userID, err)
		writeServiceError(w, err, "Failed to add comment")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(p.View(userID)))
}
