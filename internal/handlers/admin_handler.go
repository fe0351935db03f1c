package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/beer/backend/internal/middleware"
	"github.com/beer/backend/internal/models"
	"github.com/beer/backend/internal/services"
)

// AdminHandler serves the review console: pending queue, approve/reject,
// stats and the audit trail.
type AdminHandler struct {
	verification *services.VerificationService
	audit        services.AuditLog
}

func NewAdminHandler(verification *services.VerificationService, audit services.AuditLog) *AdminHandler {
	return &AdminHandler{verification: verification, audit: audit}
}

func limitParam(r *http.Request, def, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	status := models.NormalizeStatus(r.URL.Query().Get("status"))
	limit := limitParam(r, 50, 100)

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	users, err := h.verification.ListUsers(ctx, status, limit)
	if err != nil {
		log.Printf("[admin.users] list error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list users"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]interface{}{
		"users": users,
		"count": len(users),
	}))
}

func (h *AdminHandler) PendingUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	users, err := h.verification.ListUsers(ctx, models.StatusPendingVerification, 0)
	if err != nil {
		log.Printf("[admin.pending] list error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list pending users"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]interface{}{
		"users": users,
		"count": len(users),
	}))
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	adminID := middleware.GetAdminID(r.Context())

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	u, err := h.verification.UpdateStatus(ctx, userID, req.Status, req.Reason, adminID)
	if err != nil {
		log.Printf("[admin.status] error userID=%s err=%v", userID, err)
		writeServiceError(w, err, "Failed to update user status")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(u))
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	stats, err := h.verification.Stats(ctx)
	if err != nil {
		log.Printf("[admin.stats] error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load stats"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(stats))
}

func (h *AdminHandler) Actions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	limit := limitParam(r, 20, 100)

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	actions, err := h.audit.RecentActions(ctx, userID, limit)
	if err != nil {
		log.Printf("[admin.actions] error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load admin actions"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]interface{}{
		"actions": actions,
		"count":   len(actions),
	}))
}

func (h *AdminHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	onlyUnread := r.URL.Query().Get("unread") == "true"
	limit := limitParam(r, 50, 100)

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	notifications, err := h.audit.Notifications(ctx, onlyUnread, limit)
	if err != nil {
		log.Printf("[admin.notifications] error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load notifications"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]interface{}{
		"notifications": notifications,
		"count":         len(notifications),
	}))
}
