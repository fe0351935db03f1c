package store

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/beer/backend/internal/models"
	"github.com/beer/backend/internal/storage"
)

// MemoryStore is a mutex-guarded in-process Store. It serves tests and the
// no-Firebase development mode, optionally snapshotting to disk after every
// mutation. The single write lock trivially satisfies the per-profile
// serialization and ordered-watch requirements of the Store contract.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	byEmail  map[string]string
	byPhone  map[string]string
	profiles map[string]*models.Profile
	watchers map[string][]chan *models.User
	snapshot *storage.SnapshotFile
}

type memorySnapshot struct {
	Users    []*models.User    `json:"users"`
	Profiles []*models.Profile `json:"profiles"`
}

// NewMemoryStore creates an empty store. snapshot may be nil; when set, the
// store loads existing state from it and persists after each mutation.
func NewMemoryStore(snapshot *storage.SnapshotFile) (*MemoryStore, error) {
	s := &MemoryStore{
		users:    make(map[string]*models.User),
		byEmail:  make(map[string]string),
		byPhone:  make(map[string]string),
		profiles: make(map[string]*models.Profile),
		watchers: make(map[string][]chan *models.User),
		snapshot: snapshot,
	}
	if snapshot != nil {
		var snap memorySnapshot
		if err := snapshot.Load(&snap); err != nil {
			return nil, err
		}
		for _, u := range snap.Users {
			u.Status = models.NormalizeStatus(string(u.Status))
			s.users[u.ID] = u
			s.byEmail[u.Email] = u.ID
			s.byPhone[u.Phone] = u.ID
		}
		for _, p := range snap.Profiles {
			s.profiles[p.ID] = p
		}
	}
	return s, nil
}

// persist is best-effort; a failed snapshot write is logged, not surfaced.
func (s *MemoryStore) persist() {
	if s.snapshot == nil {
		return
	}
	snap := memorySnapshot{}
	for _, u := range s.users {
		snap.Users = append(snap.Users, u)
	}
	for _, p := range s.profiles {
		snap.Profiles = append(snap.Profiles, p)
	}
	if err := s.snapshot.Save(&snap); err != nil {
		log.Printf("[store] snapshot save failed: %v", err)
	}
}

func copyUser(u *models.User) *models.User {
	c := *u
	if u.ApprovedAt != nil {
		t := *u.ApprovedAt
		c.ApprovedAt = &t
	}
	if u.RejectedAt != nil {
		t := *u.RejectedAt
		c.RejectedAt = &t
	}
	if u.SelfieSubmittedAt != nil {
		t := *u.SelfieSubmittedAt
		c.SelfieSubmittedAt = &t
	}
	return &c
}

func copyProfile(p *models.Profile) *models.Profile {
	c := *p
	c.Comments = append([]models.Comment(nil), p.Comments...)
	c.Votes = make(map[string]models.VoteType, len(p.Votes))
	for k, v := range p.Votes {
		c.Votes[k] = v
	}
	return &c
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID]; exists {
		return ErrAlreadyExists
	}
	if _, exists := s.byEmail[u.Email]; exists {
		return ErrAlreadyExists
	}
	if _, exists := s.byPhone[u.Phone]; exists {
		return ErrAlreadyExists
	}

	c := copyUser(u)
	s.users[c.ID] = c
	s.byEmail[c.Email] = c.ID
	s.byPhone[c.Phone] = c.ID
	s.persist()
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.users[id]
	if !exists {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byEmail[email]
	if !exists {
		return nil, ErrNotFound
	}
	return copyUser(s.users[id]), nil
}

func (s *MemoryStore) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byPhone[phone]
	if !exists {
		return nil, ErrNotFound
	}
	return copyUser(s.users[id]), nil
}

func (s *MemoryStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.users[id]
	if !exists {
		return ErrNotFound
	}
	applyUserFields(u, fields)
	s.persist()
	s.notifyLocked(u)
	return nil
}

func applyUserFields(u *models.User, fields map[string]interface{}) {
	for k, v := range fields {
		switch k {
		case FieldStatus:
			u.Status = v.(models.UserStatus)
		case FieldUsername:
			u.Username = v.(string)
		case FieldSelfieURL:
			u.SelfieURL = v.(string)
		case FieldRejectionReason:
			u.RejectionReason = v.(string)
		case FieldApprovedAt:
			t := v.(time.Time)
			u.ApprovedAt = &t
		case FieldRejectedAt:
			t := v.(time.Time)
			u.RejectedAt = &t
		case FieldSelfieSubmittedAt:
			t := v.(time.Time)
			u.SelfieSubmittedAt = &t
		case FieldRequiresSelfie:
			u.RequiresSelfieUpload = v.(bool)
		case FieldUpdatedAt:
			u.UpdatedAt = v.(time.Time)
		}
	}
}

func (s *MemoryStore) ListUsers(ctx context.Context, status models.UserStatus, limit int) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.User, 0)
	for _, u := range s.users {
		if status != "" && u.Status != status {
			continue
		}
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CountUsersByStatus(ctx context.Context) (map[models.UserStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.UserStatus]int)
	for _, u := range s.users {
		counts[models.NormalizeStatus(string(u.Status))]++
	}
	return counts, nil
}

// WatchUser registers an ordered change channel for one user document. The
// channel closes when ctx is cancelled. Slow consumers may miss intermediate
// states (oldest entries are dropped when the buffer fills) but deliveries
// never reorder.
func (s *MemoryStore) WatchUser(ctx context.Context, id string) (<-chan *models.User, error) {
	s.mu.Lock()
	ch := make(chan *models.User, 64)
	s.watchers[id] = append(s.watchers[id], ch)
	// Seed with the current state so subscribers don't wait for the next write.
	if u, exists := s.users[id]; exists {
		ch <- copyUser(u)
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		chans := s.watchers[id]
		for i, c := range chans {
			if c == ch {
				s.watchers[id] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		close(ch)
	}()

	return ch, nil
}

func (s *MemoryStore) notifyLocked(u *models.User) {
	for _, ch := range s.watchers[u.ID] {
		c := copyUser(u)
		select {
		case ch <- c:
		default:
			// Buffer full: drop the oldest entry to keep the stream moving.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- c:
			default:
			}
		}
	}
}

func (s *MemoryStore) CreateProfile(ctx context.Context, p *models.Profile, window time.Duration, maxInWindow int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.users[p.UploaderUserID]
	if !exists {
		return ErrNotFound
	}

	// Authoritative re-check of the creation window under the write lock.
	cutoff := time.Now().Add(-window)
	recent := 0
	for _, existing := range s.profiles {
		if existing.UploaderUserID == p.UploaderUserID && existing.CreatedAt.After(cutoff) {
			recent++
		}
	}
	if recent >= maxInWindow {
		return ErrRateWindowExceeded
	}

	c := copyProfile(p)
	s.profiles[c.ID] = c
	u.ProfileCount++
	u.UpdatedAt = time.Now()
	s.persist()
	return nil
}

func (s *MemoryStore) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.profiles[id]
	if !exists {
		return nil, ErrNotFound
	}
	return copyProfile(p), nil
}

func (s *MemoryStore) ListProfiles(ctx context.Context, limit int) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, copyProfile(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CountActiveProfiles(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.profiles {
		if p.UploaderUserID != userID {
			continue
		}
		if p.ApprovalStatus == models.ApprovalPending || p.ApprovalStatus == models.ApprovalApproved {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) MutateProfile(ctx context.Context, id string, mutate func(p *models.Profile) error) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.profiles[id]
	if !exists {
		return nil, ErrNotFound
	}
	if p.Votes == nil {
		p.Votes = make(map[string]models.VoteType)
	}
	if err := mutate(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now()
	s.persist()
	return copyProfile(p), nil
}
