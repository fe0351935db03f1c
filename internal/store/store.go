package store

import (
	"context"
	"errors"
	"time"

	"github.com/beer/backend/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	// ErrRateWindowExceeded is returned by CreateProfile when the durable
	// in-transaction re-check finds the creation window already full.
	ErrRateWindowExceeded = errors.New("creation rate window exceeded")
)

// Canonical field names accepted by UpdateUser. Implementations map these to
// their native column/field paths.
const (
	FieldStatus            = "status"
	FieldUsername          = "username"
	FieldSelfieURL         = "selfieUrl"
	FieldRejectionReason   = "rejectionReason"
	FieldApprovedAt        = "approvedAt"
	FieldRejectedAt        = "rejectedAt"
	FieldSelfieSubmittedAt = "selfieSubmittedAt"
	FieldRequiresSelfie    = "requiresSelfieUpload"
	FieldUpdatedAt         = "updatedAt"
)

// Store is the identity and profile document store. Implementations must
// guarantee:
//   - CreateProfile applies the profile insert, the recent-creation re-check
//     and the uploader's profileCount increment atomically (all-or-nothing),
//     returning ErrRateWindowExceeded when the re-check fails;
//   - MutateProfile serializes concurrent mutations of the same profile;
//   - WatchUser delivers committed changes of one document in commit order.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateUser(ctx context.Context, id string, fields map[string]interface{}) error
	ListUsers(ctx context.Context, status models.UserStatus, limit int) ([]*models.User, error)
	CountUsersByStatus(ctx context.Context) (map[models.UserStatus]int, error)
	WatchUser(ctx context.Context, id string) (<-chan *models.User, error)

	CreateProfile(ctx context.Context, p *models.Profile, window time.Duration, maxInWindow int) error
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	ListProfiles(ctx context.Context, limit int) ([]*models.Profile, error)
	CountActiveProfiles(ctx context.Context, userID string) (int, error)
	MutateProfile(ctx context.Context, id string, mutate func(p *models.Profile) error) (*models.Profile, error)
}
