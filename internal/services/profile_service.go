package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/beer/backend/internal/models"
	"github.com/beer/backend/internal/store"
)

// ProfileService enforces the moderation rules around profile creation and
// owns the voting/comment ledger.
type ProfileService struct {
	store   store.Store
	blobs   BlobStore
	limiter *CreationLimiter
	window  time.Duration
	maxInWindow int
}

// MaxActiveProfiles caps pending+approved profiles per user.
const MaxActiveProfiles = 5

func NewProfileService(st store.Store, blobs BlobStore, limiter *CreationLimiter, window time.Duration, maxInWindow int) *ProfileService {
	return &ProfileService{
		store:       st,
		blobs:       blobs,
		limiter:     limiter,
		window:      window,
		maxInWindow: maxInWindow,
	}
}

// CreateProfile runs the moderation pipeline in order: input validation,
// advisory rate check, authorization, quota, image validation, upload, then
// the atomic commit whose in-transaction window re-check is authoritative.
// Nothing is persisted until the upload has completed, and a failed commit
// best-effort deletes the just-uploaded blob so no orphan is left behind.
func (s *ProfileService) CreateProfile(ctx context.Context, userID string, req *models.CreateProfileRequest, image []byte) (*models.Profile, error) {
	req.Normalize()
	if errs := req.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	if len(image) == 0 {
		return nil, ValidationErrors{"image": "Invalid image data"}
	}

	if !s.limiter.Allow(userID) {
		return nil, ErrRateLimited
	}

	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownIdentity
		}
		return nil, err
	}
	if u.Status != models.StatusApproved || u.Username == "" {
		return nil, ErrNotVerified
	}

	active, err := s.store.CountActiveProfiles(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active >= MaxActiveProfiles {
		return nil, ErrProfileQuota
	}

	if len(image) > MaxImageBytes {
		return nil, ErrImageTooLarge
	}
	if len(image) < MinImageBytes {
		return nil, ErrImageTooSmall
	}
	if DetectImageFormat(image) == "" {
		return nil, ErrInvalidImage
	}

	info, err := s.blobs.Upload(ctx, image, UploadOptions{
		Folder:    "beer-app/profiles/" + userID,
		MaxDim:    1200,
		CropMode:  "limit",
		Thumbnail: true,
	})
	if err != nil {
		return nil, fmt.Errorf("profile image upload: %w", err)
	}

	now := time.Now()
	p := &models.Profile{
		ID:                   uuid.New().String(),
		Name:                 req.Name,
		Age:                  req.Age,
		City:                 req.City,
		Description:          req.Description,
		ProfileImageURL:      info.URL,
		ProfileImageThumbURL: info.ThumbURL,
		ProfileImagePublicID: info.PublicID,
		UploaderUserID:       userID,
		UploaderUsername:     u.Username,
		UploaderEmail:        u.Email,
		Comments:             []models.Comment{},
		Votes:                map[string]models.VoteType{},
		ApprovalStatus:       models.ApprovalPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.store.CreateProfile(ctx, p, s.window, s.maxInWindow); err != nil {
		// Cleanup is advisory; its own failure is logged, not escalated.
		if delErr := s.blobs.Delete(ctx, info.PublicID); delErr != nil {
			log.Printf("[profiles.create] orphan blob cleanup failed publicID=%s err=%v", info.PublicID, delErr)
		}
		if errors.Is(err, store.ErrRateWindowExceeded) {
			return nil, ErrRateLimited
		}
		return nil, err
	}

	log.Printf("[profiles.create] profile created id=%s userID=%s username=%s", p.ID, userID, u.Username)
	return p, nil
}

func (s *ProfileService) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	p, err := s.store.GetProfile(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	return p, err
}

func (s *ProfileService) ListProfiles(ctx context.Context, limit int) ([]*models.Profile, error) {
	return s.store.ListProfiles(ctx, limit)
}
