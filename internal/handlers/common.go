package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/beer/backend/internal/models"
	"github.com/beer/backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeServiceError maps service sentinels to the HTTP error taxonomy.
// Unknown errors become opaque 500s with the provided fallback message.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var verrs services.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(verrs))
		return
	}

	status := http.StatusInternalServerError
	message := fallback

	switch {
	case errors.Is(err, services.ErrImageTooLarge),
		errors.Is(err, services.ErrImageTooSmall),
		errors.Is(err, services.ErrInvalidImage),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidVote),
		errors.Is(err, services.ErrEmptyComment),
		errors.Is(err, services.ErrCommentTooLong):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, services.ErrEmailExists),
		errors.Is(err, services.ErrPhoneExists):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrUnknownIdentity):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, services.ErrNotVerified),
		errors.Is(err, services.ErrProfileQuota):
		status = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrProfileNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, services.ErrRateLimited):
		status = http.StatusTooManyRequests
		message = err.Error()
	}

	writeJSON(w, status, models.NewErrorResponse(message))
}
