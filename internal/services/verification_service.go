package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/beer/backend/internal/models"
	"github.com/beer/backend/internal/store"
)

// VerificationService drives the user lifecycle: registration, selfie
// submission, admin approval/rejection with username assignment, and login.
type VerificationService struct {
	store store.Store
	auth  Authenticator
	blobs BlobStore
	audit AuditLog
}

func NewVerificationService(st store.Store, auth Authenticator, blobs BlobStore, audit AuditLog) *VerificationService {
	return &VerificationService{
		store: st,
		auth:  auth,
		blobs: blobs,
		audit: audit,
	}
}

// Register creates the auth account and the pending user document. A selfie
// supplied inline is uploaded best-effort: a failed upload never aborts
// registration, it only leaves RequiresSelfieUpload set.
func (s *VerificationService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	if _, err := s.store.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if _, err := s.store.GetUserByPhone(ctx, req.Phone); err == nil {
		return nil, ErrPhoneExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	uid, err := s.auth.CreateAccount(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return nil, err
	}

	selfieURL := ""
	if req.SelfieBase64 != "" {
		if url, err := s.uploadSelfie(ctx, uid, req.SelfieBase64); err != nil {
			// User can submit a selfie later.
			log.Printf("[auth.register] selfie upload failed uid=%s err=%v", uid, err)
		} else {
			selfieURL = url
		}
	}

	now := time.Now()
	u := &models.User{
		ID:                   uid,
		Email:                req.Email,
		Phone:                req.Phone,
		Name:                 req.Name,
		Location:             req.Location,
		Status:               models.StatusPendingVerification,
		SelfieURL:            selfieURL,
		RequiresSelfieUpload: selfieURL == "",
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	token, err := s.auth.CustomToken(ctx, uid)
	if err != nil {
		return nil, err
	}

	log.Printf("[auth.register] user registered id=%s email=%s selfie=%v", uid, req.Email, selfieURL != "")
	return &models.AuthResponse{
		Token:                token,
		User:                 u,
		RequiresSelfieUpload: u.RequiresSelfieUpload,
	}, nil
}

func (s *VerificationService) uploadSelfie(ctx context.Context, uid, selfieBase64 string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(selfieBase64)
	if err != nil {
		return "", fmt.Errorf("decode selfie: %w", err)
	}
	info, err := s.blobs.Upload(ctx, data, UploadOptions{
		Folder:  "beer-app/selfies/" + uid,
		MaxDim:  800,
		CropMode: "limit",
	})
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// Login verifies the password through the authenticator, then requires the
// user document to exist. An auth record without a document is an error,
// not something to auto-repair.
func (s *VerificationService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	uid, err := s.auth.VerifyPassword(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	u, err := s.store.GetUser(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	token, err := s.auth.CustomToken(ctx, uid)
	if err != nil {
		return nil, err
	}

	log.Printf("[auth.login] user logged in id=%s", uid)
	return &models.AuthResponse{
		Token:                token,
		User:                 u,
		RequiresSelfieUpload: u.RequiresSelfieUpload,
	}, nil
}

// SubmitSelfie uploads a new verification selfie and resets the user to
// pending for re-review. Admins get a review-queue notification.
func (s *VerificationService) SubmitSelfie(ctx context.Context, userID string, image []byte) (string, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	if len(image) > MaxImageBytes {
		return "", ErrImageTooLarge
	}

	info, err := s.blobs.Upload(ctx, image, UploadOptions{
		Folder:   "beer-app/selfies/" + userID,
		MaxDim:   800,
		CropMode: "limit",
	})
	if err != nil {
		return "", fmt.Errorf("selfie upload: %w", err)
	}

	now := time.Now()
	err = s.store.UpdateUser(ctx, userID, map[string]interface{}{
		store.FieldSelfieURL:         info.URL,
		store.FieldStatus:            models.StatusPendingVerification,
		store.FieldRequiresSelfie:    false,
		store.FieldSelfieSubmittedAt: now,
		store.FieldUpdatedAt:         now,
	})
	if err != nil {
		return "", err
	}

	if err := s.audit.Notify(ctx, &models.AdminNotification{
		Type:      models.NotificationSelfieSubmitted,
		UserID:    userID,
		SelfieURL: info.URL,
	}); err != nil {
		log.Printf("[auth.selfie] admin notification failed userID=%s err=%v", userID, err)
	}

	log.Printf("[auth.selfie] selfie submitted userID=%s", userID)
	return info.URL, nil
}

// UpdateStatus applies an admin approve/reject decision. Approval assigns a
// username atomically with the status change when the user has none yet.
// Every call appends an audit record; audit failures are swallowed.
func (s *VerificationService) UpdateStatus(ctx context.Context, userID, newStatus, reason, adminID string) (*models.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	now := time.Now()
	fields := map[string]interface{}{
		store.FieldUpdatedAt: now,
	}
	assignedUsername := u.Username

	switch newStatus {
	case "approved":
		if assignedUsername == "" {
			assignedUsername, err = s.allocateUsername(ctx, u.Name)
			if err != nil {
				return nil, err
			}
			fields[store.FieldUsername] = assignedUsername
		}
		fields[store.FieldStatus] = models.StatusApproved
		fields[store.FieldApprovedAt] = now
	case "rejected":
		fields[store.FieldStatus] = models.StatusRejected
		if reason != "" {
			fields[store.FieldRejectionReason] = reason
		}
		fields[store.FieldRejectedAt] = now
	default:
		return nil, ErrInvalidStatus
	}

	if err := s.store.UpdateUser(ctx, userID, fields); err != nil {
		return nil, err
	}

	if err := s.audit.LogAction(ctx, &models.AdminAction{
		Action:  "user_" + newStatus,
		UserID:  userID,
		AdminID: adminID,
		Details: map[string]interface{}{
			"previousStatus": string(u.Status),
			"newStatus":      string(fields[store.FieldStatus].(models.UserStatus)),
			"username":       assignedUsername,
			"reason":         reason,
		},
	}); err != nil {
		log.Printf("[admin.status] audit append failed userID=%s err=%v", userID, err)
	}

	log.Printf("[admin.status] user %s userID=%s admin=%s", newStatus, userID, adminID)
	return s.store.GetUser(ctx, userID)
}

func (s *VerificationService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *VerificationService) ListUsers(ctx context.Context, status models.UserStatus, limit int) ([]*models.User, error) {
	return s.store.ListUsers(ctx, status, limit)
}

func (s *VerificationService) Stats(ctx context.Context) (*models.UserStats, error) {
	counts, err := s.store.CountUsersByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &models.UserStats{
		Pending:  counts[models.StatusPendingVerification],
		Approved: counts[models.StatusApproved],
		Rejected: counts[models.StatusRejected],
	}
	stats.Total = stats.Pending + stats.Approved + stats.Rejected
	return stats, nil
}

// WatchUser exposes the store's ordered per-document change feed so the
// verification-pending screen reacts to admin decisions without polling.
func (s *VerificationService) WatchUser(ctx context.Context, userID string) (<-chan *models.User, error) {
	return s.store.WatchUser(ctx, userID)
}

var nonAlphanumRe = regexp.MustCompile(`[^a-z0-9]`)

const usernameAttempts = 100

// allocateUsername derives a handle from the display name and appends a
// random numeric suffix until it finds one not present in the store. After
// 100 collisions it falls back to the last six digits of the current
// timestamp. Usernames are never reassigned or freed.
func (s *VerificationService) allocateUsername(ctx context.Context, name string) (string, error) {
	base := nonAlphanumRe.ReplaceAllString(strings.ToLower(name), "")
	if len(base) > 10 {
		base = base[:10]
	}
	if base == "" {
		base = "user"
	}

	for i := 0; i < usernameAttempts; i++ {
		candidate := base + strconv.Itoa(rand.Intn(9999)+1)
		exists, err := s.store.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return base + ts[len(ts)-6:], nil
}
