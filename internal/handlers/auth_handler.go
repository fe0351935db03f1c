package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/beer/backend/internal/middleware"
	"github.com/beer/backend/internal/models"
	"github.com/beer/backend/internal/services"
)

type AuthHandler struct {
	verification *services.VerificationService
}

func NewAuthHandler(verification *services.VerificationService) *AuthHandler {
	return &AuthHandler{verification: verification}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	req.Normalize()
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	// Selfie uploads are network-bound; allow a generous single attempt.
	ctx, cancel := context.WithTimeout(r.Context(), 45*time.Second)
	defer cancel()

	resp, err := h.verification.Register(ctx, &req)
	if err != nil {
		log.Printf("[auth.register] error email=%s err=%v", req.Email, err)
		writeServiceError(w, err, "Failed to create account. Please try again.")
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(resp))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	req.Normalize()
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	resp, err := h.verification.Login(ctx, &req)
	if err != nil {
		log.Printf("[auth.login] error email=%s err=%v", req.Email, err)
		writeServiceError(w, err, "Login failed. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(resp))
}

type submitSelfieRequest struct {
	ImageBase64 string `json:"image_base64"`
}

func (h *AuthHandler) SubmitSelfie(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req submitSelfieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if req.ImageBase64 == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Image data is required"))
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid image data"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 45*time.Second)
	defer cancel()

	selfieURL, err := h.verification.SubmitSelfie(ctx, userID, image)
	if err != nil {
		log.Printf("[auth.selfie] error userID=%s err=%v", userID, err)
		writeServiceError(w, err, "Failed to upload selfie")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"selfie_url": selfieURL}))
}
