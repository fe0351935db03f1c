package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/beer/backend/internal/models"
	"github.com/beer/backend/internal/store"
)

// fakeBlobStore records uploads and deletions in memory.
type fakeBlobStore struct {
	mu        sync.Mutex
	uploads   int
	deleted   []string
	uploadErr error
}

func (f *fakeBlobStore) Upload(ctx context.Context, data []byte, opts UploadOptions) (*BlobInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads++
	id := fmt.Sprintf("%s/img%d", opts.Folder, f.uploads)
	info := &BlobInfo{
		URL:       "https://cdn.example.com/" + id + ".jpg",
		PublicID:  id,
		SizeBytes: len(data),
	}
	if opts.Thumbnail {
		info.ThumbURL = "https://cdn.example.com/thumb/" + id + ".jpg"
	}
	return info, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, publicID)
	return nil
}

func validJPEG(size int) []byte {
	data := make([]byte, size)
	data[0], data[1], data[2] = 0xFF, 0xD8, 0xFF
	return data
}

func seedUser(t *testing.T, st store.Store, id string, status models.UserStatus, username string) *models.User {
	t.Helper()
	u := &models.User{
		ID:        id,
		Email:     id + "@example.com",
		Phone:     "+1555000" + id,
		Name:      "Test User",
		Location:  "Austin, TX",
		Status:    status,
		Username:  username,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return u
}

func newTestProfileService(t *testing.T, window time.Duration, maxInWindow int) (*ProfileService, *fakeBlobStore, store.Store) {
	t.Helper()
	st, err := store.NewMemoryStore(nil)
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	blobs := &fakeBlobStore{}
	limiter := NewCreationLimiter(window, maxInWindow)
	return NewProfileService(st, blobs, limiter, window, maxInWindow), blobs, st
}

func validProfileRequest() *models.CreateProfileRequest {
	return &models.CreateProfileRequest{
		Name:        "Jane Doe",
		Age:         25,
		City:        "Austin",
		Description: "Met at the dog park",
		ImageBase64: "set",
	}
}

func TestCreateProfile(t *testing.T) {
	svc, blobs, st := newTestProfileService(t, time.Hour, 10)
	seedUser(t, st, "u1", models.StatusApproved, "janedoe42")

	p, err := svc.CreateProfile(context.Background(), "u1", validProfileRequest(), validJPEG(5000))
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if p.ApprovalStatus != models.ApprovalPending {
		t.Errorf("approval status = %s, want pending", p.ApprovalStatus)
	}
	if p.UploaderUsername != "janedoe42" {
		t.Errorf("uploader username = %s, want janedoe42", p.UploaderUsername)
	}
	if p.ProfileImageURL == "" || p.ProfileImageThumbURL == "" {
		t.Errorf("expected image and thumbnail URLs, got %q / %q", p.ProfileImageURL, p.ProfileImageThumbURL)
	}
	if blobs.uploads != 1 {
		t.Errorf("uploads = %d, want 1", blobs.uploads)
	}

	u, err := st.GetUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.ProfileCount != 1 {
		t.Errorf("profile count = %d, want 1", u.ProfileCount)
	}
}

func TestCreateProfileAgeBounds(t *testing.T) {
	svc, _, st := newTestProfileService(t, time.Hour, 100)
	seedUser(t, st, "u1", models.StatusApproved, "janedoe42")

	for _, tc := range []struct {
		age int
		ok  bool
	}{
		{17, false},
		{18, true},
		{95, true},
		{96, false},
	} {
		req := validProfileRequest()
		req.Age = tc.age
		_, err := svc.CreateProfile(context.Background(), "u1", req, validJPEG(5000))
		if tc.ok && err != nil {
			t.Errorf("age %d: unexpected error %v", tc.age, err)
		}
		if !tc.ok {
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Errorf("age %d: error = %v, want validation errors", tc.age, err)
			} else if verrs["age"] == "" {
				t.Errorf("age %d: expected an age validation message, got %v", tc.age, verrs)
			}
		}
	}
}

func TestCreateProfileNormalizesWhitespace(t *testing.T) {
	svc, _, st := newTestProfileService(t, time.Hour, 10)
	seedUser(t, st, "u1", models.StatusApproved, "janedoe42")

	req := validProfileRequest()
	req.Name = "  Jane   Doe  "
	req.City = " San  Marcos "
	p, err := svc.CreateProfile(context.Background(), "u1", req, validJPEG(5000))
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if p.Name != "Jane Doe" {
		t.Errorf("name = %q, want %q", p.Name, "Jane Doe")
	}
	if p.City != "San Marcos" {
		t.Errorf("city = %q, want %q", p.City, "San Marcos")
	}
}

func TestCreateProfileRequiresApprovedUser(t *testing.T) {
	svc, _, st := newTestProfileService(t, time.Hour, 10)
	seedUser(t, st, "pending", models.StatusPendingVerification, "")
	seedUser(t, st, "rejected", models.StatusRejected, "")

	for _, id := range []string{"pending", "rejected"} {
		_, err := svc.CreateProfile(context.Background(), id, validProfileRequest(), validJPEG(5000))
		if !errors.Is(err, ErrNotVerified) {
			t.Errorf("user %s: error = %v, want ErrNotVerified", id, err)
		}
	}

	_, err := svc.CreateProfile(context.Background(), "ghost", validProfileRequest(), validJPEG(5000))
	if !errors.Is(err, ErrUnknownIdentity) {
		t.Errorf("unknown user: error = %v, want ErrUnknownIdentity", err)
	}
}

func TestCreateProfileQuota(t *testing.T) {
	svc, _, st := newTestProfileService(t, time.Hour, 100)
	seedUser(t, st, "u1", models.StatusApproved, "janedoe42")

	for i := 0; i < MaxActiveProfiles; i++ {
		if _, err := svc.CreateProfile(context.Background(), "u1", validProfileRequest(), validJPEG(5000)); err != nil {
			t.Fatalf("profile %d: %v", i+1, err)
		}
	}
	_, err := svc.CreateProfile(context.Background(), "u1", validProfileRequest(), validJPEG(5000))
	if !errors.Is(err, ErrProfileQuota) {
		t.Errorf("error = %v, want ErrProfileQuota", err)
	}
}

func TestCreateProfileRateLimited(t *testing.T) {
	svc, _, st := newTestProfileService(t, time.Hour, 3)
	seedUser(t, st, "u1", models.StatusApproved, "janedoe42")

	for i := 0; i < 3; i++ {
		if _, err := svc.CreateProfile(context.Background(), "u1", validProfileRequest(), validJPEG(5000)); err != nil {
			t.Fatalf("profile %d: %v", i+1, err)
		}
	}
	_, err := svc.CreateProfile(context.Background(), "u1", validProfileRequest(), validJPEG(5000))
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("error = %v, want ErrRateLimited", err)
	}
}

func TestCreateProfileAfterWindowExpires(t *testing.T) {
	window := 50 * time.Millisecond
	svc, _, st := newTestProfileService(t, window, 1)
	seedUser(t, st, "u1", models.StatusApproved, "janedoe42")

	if _, err := svc.CreateProfile(context.Background(), "u1", validProfileRequest(), validJPEG(5000)); err != nil {
		t.Fatalf("first profile: %v", err)
	}
	if _, err := svc.CreateProfile(context.Background(), "u1", validProfileRequest(), validJPEG(5000)); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("in-window profile: error = %v, want ErrRateLimited", err)
	}

	time.Sleep(window + 20*time.Millisecond)
	if _, err := svc.CreateProfile(context.Background(), "u1", validProfileRequest(), validJPEG(5000)); err != nil {
		t.Errorf("post-window profile: %v", err)
	}
}

func TestCreateProfileImageValidation(t *testing.T) {
	svc, _, st := newTestProfileService(t, time.Hour, 100)
	seedUser(t, st, "u1", models.StatusApproved, "janedoe42")

	corrupt := make([]byte, 5000)
	for i := range corrupt {
		corrupt[i] = 0x42
	}

	for _, tc := range []struct {
		name  string
		image []byte
		want  error
	}{
		{"too small", validJPEG(500), ErrImageTooSmall},
		{"too large", validJPEG(MaxImageBytes + 1), ErrImageTooLarge},
		{"not an image", corrupt, ErrInvalidImage},
	} {
		_, err := svc.CreateProfile(context.Background(), "u1", validProfileRequest(), tc.image)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: error = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestCreateProfileCleansUpBlobOnCommitFailure(t *testing.T) {
	// Advisory limiter lets the call through but the store's window re-check
	// rejects it, so the freshly uploaded blob must be deleted.
	st, err := store.NewMemoryStore(nil)
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	blobs := &fakeBlobStore{}
	svc := NewProfileService(st, blobs, NewCreationLimiter(time.Hour, 10), time.Hour, 0)
	seedUser(t, st, "u1", models.StatusApproved, "janedoe42")

	_, err = svc.CreateProfile(context.Background(), "u1", validProfileRequest(), validJPEG(5000))
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
	if len(blobs.deleted) != 1 {
		t.Errorf("deleted blobs = %d, want 1", len(blobs.deleted))
	}
}

func TestDetectImageFormat(t *testing.T) {
	if got := DetectImageFormat([]byte{0xFF, 0xD8, 0xFF, 0xE0}); got != "jpeg" {
		t.Errorf("jpeg header = %q", got)
	}
	if got := DetectImageFormat([]byte{0x89, 0x50, 0x4E, 0x47}); got != "png" {
		t.Errorf("png header = %q", got)
	}
	if got := DetectImageFormat([]byte(strings.Repeat("x", 16))); got != "" {
		t.Errorf("text bytes = %q, want empty", got)
	}
}
