package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/beer/backend/internal/models"
	"github.com/beer/backend/internal/storage"
)

func newUser(id string) *models.User {
	return &models.User{
		ID:        id,
		Email:     id + "@example.com",
		Phone:     "+1555" + id,
		Name:      "Test User",
		Status:    models.StatusPendingVerification,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func newProfile(id, uploaderID string) *models.Profile {
	return &models.Profile{
		ID:             id,
		Name:           "Jane Doe",
		Age:            25,
		City:           "Austin",
		UploaderUserID: uploaderID,
		Comments:       []models.Comment{},
		Votes:          map[string]models.VoteType{},
		ApprovalStatus: models.ApprovalPending,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

func TestCreateUserDuplicates(t *testing.T) {
	s, err := NewMemoryStore(nil)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	ctx := context.Background()

	if err := s.CreateUser(ctx, newUser("u1")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	dup := newUser("u2")
	dup.Email = "u1@example.com"
	if err := s.CreateUser(ctx, dup); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate email: error = %v, want ErrAlreadyExists", err)
	}

	dup = newUser("u3")
	dup.Phone = "+1555u1"
	if err := s.CreateUser(ctx, dup); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate phone: error = %v, want ErrAlreadyExists", err)
	}
}

func TestUpdateUserFields(t *testing.T) {
	s, err := NewMemoryStore(nil)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	ctx := context.Background()
	if err := s.CreateUser(ctx, newUser("u1")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	now := time.Now()
	err = s.UpdateUser(ctx, "u1", map[string]interface{}{
		FieldStatus:     models.StatusApproved,
		FieldUsername:   "janedoe42",
		FieldApprovedAt: now,
		FieldUpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	u, err := s.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Status != models.StatusApproved || u.Username != "janedoe42" || u.ApprovedAt == nil {
		t.Errorf("unexpected user after update: %+v", u)
	}

	if err := s.UpdateUser(ctx, "ghost", map[string]interface{}{FieldUsername: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user: error = %v, want ErrNotFound", err)
	}
}

func TestGetUserReturnsCopy(t *testing.T) {
	s, err := NewMemoryStore(nil)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	ctx := context.Background()
	if err := s.CreateUser(ctx, newUser("u1")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, _ := s.GetUser(ctx, "u1")
	u.Username = "mutated"

	again, _ := s.GetUser(ctx, "u1")
	if again.Username != "" {
		t.Errorf("mutation of a returned user leaked into the store: %q", again.Username)
	}
}

func TestCreateProfileWindowRecheck(t *testing.T) {
	s, err := NewMemoryStore(nil)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	ctx := context.Background()
	if err := s.CreateUser(ctx, newUser("u1")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := s.CreateProfile(ctx, newProfile("p1", "u1"), time.Hour, 2); err != nil {
		t.Fatalf("first profile: %v", err)
	}
	if err := s.CreateProfile(ctx, newProfile("p2", "u1"), time.Hour, 2); err != nil {
		t.Fatalf("second profile: %v", err)
	}
	if err := s.CreateProfile(ctx, newProfile("p3", "u1"), time.Hour, 2); !errors.Is(err, ErrRateWindowExceeded) {
		t.Errorf("third profile: error = %v, want ErrRateWindowExceeded", err)
	}

	u, _ := s.GetUser(ctx, "u1")
	if u.ProfileCount != 2 {
		t.Errorf("profile count = %d, want 2", u.ProfileCount)
	}

	if err := s.CreateProfile(ctx, newProfile("p4", "ghost"), time.Hour, 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown uploader: error = %v, want ErrNotFound", err)
	}
}

func TestCountActiveProfiles(t *testing.T) {
	s, err := NewMemoryStore(nil)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	ctx := context.Background()
	if err := s.CreateUser(ctx, newUser("u1")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	for i, status := range []models.ApprovalStatus{models.ApprovalPending, models.ApprovalApproved, models.ApprovalRejected} {
		p := newProfile(string(rune('a'+i)), "u1")
		p.ApprovalStatus = status
		if err := s.CreateProfile(ctx, p, time.Hour, 10); err != nil {
			t.Fatalf("CreateProfile: %v", err)
		}
	}

	// Rejected profiles do not count against the quota.
	n, err := s.CountActiveProfiles(ctx, "u1")
	if err != nil {
		t.Fatalf("CountActiveProfiles: %v", err)
	}
	if n != 2 {
		t.Errorf("active profiles = %d, want 2", n)
	}
}

func TestWatchUserOrdering(t *testing.T) {
	s, err := NewMemoryStore(nil)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.CreateUser(ctx, newUser("u1")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	ch, err := s.WatchUser(ctx, "u1")
	if err != nil {
		t.Fatalf("WatchUser: %v", err)
	}

	// Seeded with the current state.
	first := <-ch
	if first.Status != models.StatusPendingVerification {
		t.Fatalf("seed status = %s, want pending_verification", first.Status)
	}

	if err := s.UpdateUser(ctx, "u1", map[string]interface{}{FieldStatus: models.StatusApproved, FieldUsername: "janedoe42"}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if err := s.UpdateUser(ctx, "u1", map[string]interface{}{FieldRejectionReason: "changed my mind"}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	second := <-ch
	if second.Status != models.StatusApproved || second.Username != "janedoe42" {
		t.Errorf("first update out of order: %+v", second)
	}
	third := <-ch
	if third.RejectionReason != "changed my mind" {
		t.Errorf("second update out of order: %+v", third)
	}

	cancel()
	if _, open := <-ch; open {
		// Drain until close; one buffered item may race the close.
		for range ch {
		}
	}
}

func TestMutateProfile(t *testing.T) {
	s, err := NewMemoryStore(nil)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	ctx := context.Background()
	if err := s.CreateUser(ctx, newUser("u1")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.CreateProfile(ctx, newProfile("p1", "u1"), time.Hour, 10); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	p, err := s.MutateProfile(ctx, "p1", func(p *models.Profile) error {
		p.GreenFlags++
		p.Votes["v1"] = models.VoteGreen
		return nil
	})
	if err != nil {
		t.Fatalf("MutateProfile: %v", err)
	}
	if p.GreenFlags != 1 || p.Votes["v1"] != models.VoteGreen {
		t.Errorf("mutation not applied: %+v", p)
	}

	// A mutator error leaves an error, not a partial write surfaced to callers.
	boom := errors.New("boom")
	if _, err := s.MutateProfile(ctx, "p1", func(p *models.Profile) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("error = %v, want boom", err)
	}

	if _, err := s.MutateProfile(ctx, "ghost", func(p *models.Profile) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	snap, err := storage.NewSnapshotFile(dir, "store.json")
	if err != nil {
		t.Fatalf("NewSnapshotFile: %v", err)
	}

	s, err := NewMemoryStore(snap)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	ctx := context.Background()
	if err := s.CreateUser(ctx, newUser("u1")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.CreateProfile(ctx, newProfile("p1", "u1"), time.Hour, 10); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	reloaded, err := NewMemoryStore(snap)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, err := reloaded.GetUser(ctx, "u1"); err != nil {
		t.Errorf("user did not survive the snapshot: %v", err)
	}
	if _, err := reloaded.GetProfile(ctx, "p1"); err != nil {
		t.Errorf("profile did not survive the snapshot: %v", err)
	}
	if _, err := reloaded.GetUserByEmail(ctx, "u1@example.com"); err != nil {
		t.Errorf("email index did not survive the snapshot: %v", err)
	}
}
