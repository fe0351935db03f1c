package store

import (
	"context"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/beer/backend/internal/models"
)

// FirestoreStore is the durable Store backed by Cloud Firestore. Atomicity of
// the profile-create commit and serialization of profile mutations both ride
// on Firestore transactions; WatchUser rides on per-document snapshots, which
// Firestore delivers in commit order.
type FirestoreStore struct {
	client   *firestore.Client
	users    *firestore.CollectionRef
	profiles *firestore.CollectionRef
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{
		client:   client,
		users:    client.Collection("users"),
		profiles: client.Collection("profiles"),
	}
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func notFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (s *FirestoreStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.users.Doc(u.ID).Create(ctx, u)
	if status.Code(err) == codes.AlreadyExists {
		return ErrAlreadyExists
	}
	return err
}

func (s *FirestoreStore) decodeUser(snap *firestore.DocumentSnapshot) (*models.User, error) {
	var u models.User
	if err := snap.DataTo(&u); err != nil {
		return nil, err
	}
	u.Status = models.NormalizeStatus(string(u.Status))
	return &u, nil
}

func (s *FirestoreStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	snap, err := s.users.Doc(id).Get(ctx)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.decodeUser(snap)
}

func (s *FirestoreStore) getUserWhere(ctx context.Context, field, value string) (*models.User, error) {
	docs, err := s.users.Where(field, "==", value).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return s.decodeUser(docs[0])
}

func (s *FirestoreStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUserWhere(ctx, "email", email)
}

func (s *FirestoreStore) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return s.getUserWhere(ctx, "phone", phone)
}

func (s *FirestoreStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	docs, err := s.users.Where("username", "==", username).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

func (s *FirestoreStore) UpdateUser(ctx context.Context, id string, fields map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	_, err := s.users.Doc(id).Update(ctx, updates)
	if notFound(err) {
		return ErrNotFound
	}
	return err
}

func (s *FirestoreStore) ListUsers(ctx context.Context, statusFilter models.UserStatus, limit int) ([]*models.User, error) {
	q := s.users.Query
	if statusFilter == models.StatusApproved {
		// Legacy documents may still carry the bare "approved" value.
		q = q.Where("status", "in", []string{"approved", string(models.StatusApproved)})
	} else if statusFilter != "" {
		q = q.Where("status", "==", string(statusFilter))
	}
	q = q.OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	users := make([]*models.User, 0, len(docs))
	for _, d := range docs {
		u, err := s.decodeUser(d)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *FirestoreStore) CountUsersByStatus(ctx context.Context) (map[models.UserStatus]int, error) {
	counts := make(map[models.UserStatus]int)
	iter := s.users.Select("status").Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		raw, _ := snap.Data()["status"].(string)
		counts[models.NormalizeStatus(raw)]++
	}
	return counts, nil
}

func (s *FirestoreStore) WatchUser(ctx context.Context, id string) (<-chan *models.User, error) {
	ch := make(chan *models.User, 64)
	snaps := s.users.Doc(id).Snapshots(ctx)

	go func() {
		defer close(ch)
		defer snaps.Stop()
		for {
			snap, err := snaps.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					log.Printf("[store] user watch ended id=%s err=%v", id, err)
				}
				return
			}
			if !snap.Exists() {
				continue
			}
			u, err := s.decodeUser(snap)
			if err != nil {
				log.Printf("[store] user watch decode failed id=%s err=%v", id, err)
				continue
			}
			select {
			case ch <- u:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

func (s *FirestoreStore) CreateProfile(ctx context.Context, p *models.Profile, window time.Duration, maxInWindow int) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// Re-validate the creation window inside the transaction: the
		// caller's pre-check observed the store at an earlier time.
		cutoff := time.Now().Add(-window)
		recent := s.profiles.
			Where("uploaderUserId", "==", p.UploaderUserID).
			Where("createdAt", ">", cutoff)
		docs, err := tx.Documents(recent).GetAll()
		if err != nil {
			return err
		}
		if len(docs) >= maxInWindow {
			return ErrRateWindowExceeded
		}

		if err := tx.Create(s.profiles.Doc(p.ID), p); err != nil {
			return err
		}
		return tx.Update(s.users.Doc(p.UploaderUserID), []firestore.Update{
			{Path: "profileCount", Value: firestore.Increment(1)},
			{Path: "lastProfileCreated", Value: p.CreatedAt},
			{Path: "updatedAt", Value: p.CreatedAt},
		})
	})
}

func (s *FirestoreStore) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	snap, err := s.profiles.Doc(id).Get(ctx)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var p models.Profile
	if err := snap.DataTo(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *FirestoreStore) ListProfiles(ctx context.Context, limit int) ([]*models.Profile, error) {
	q := s.profiles.OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	profiles := make([]*models.Profile, 0, len(docs))
	for _, d := range docs {
		var p models.Profile
		if err := d.DataTo(&p); err != nil {
			return nil, err
		}
		profiles = append(profiles, &p)
	}
	return profiles, nil
}

func (s *FirestoreStore) CountActiveProfiles(ctx context.Context, userID string) (int, error) {
	docs, err := s.profiles.
		Where("uploaderUserId", "==", userID).
		Where("approvalStatus", "in", []string{string(models.ApprovalPending), string(models.ApprovalApproved)}).
		Documents(ctx).GetAll()
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (s *FirestoreStore) MutateProfile(ctx context.Context, id string, mutate func(p *models.Profile) error) (*models.Profile, error) {
	ref := s.profiles.Doc(id)
	var out *models.Profile
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if notFound(err) {
				return ErrNotFound
			}
			return err
		}
		var p models.Profile
		if err := snap.DataTo(&p); err != nil {
			return err
		}
		if p.Votes == nil {
			p.Votes = make(map[string]models.VoteType)
		}
		if err := mutate(&p); err != nil {
			return err
		}
		p.UpdatedAt = time.Now()
		out = &p
		return tx.Set(ref, &p)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
