package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/beer/backend/internal/middleware"
	"github.com/beer/backend/internal/models"
	"github.com/beer/backend/internal/services"
)

type UserHandler struct {
	verification *services.VerificationService
}

func NewUserHandler(verification *services.VerificationService) *UserHandler {
	return &UserHandler{verification: verification}
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing userID"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	u, err := h.verification.GetUser(ctx, userID)
	if err != nil {
		writeServiceError(w, err, "Failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(u))
}

// StatusStream pushes the user's verification state over SSE in commit
// order, so the pending screen reacts to admin decisions without polling.
func (h *UserHandler) StatusStream(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing userID"))
		return
	}
	// Only the authenticated owner may follow their own status.
	if caller := middleware.GetUserID(r.Context()); caller != userID {
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Forbidden"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Streaming unsupported"))
		return
	}

	updates, err := h.verification.WatchUser(r.Context(), userID)
	if err != nil {
		log.Printf("[users.stream] watch failed userID=%s err=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to watch user"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for u := range updates {
		payload, err := json.Marshal(u)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
}
