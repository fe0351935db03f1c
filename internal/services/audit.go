package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/beer/backend/internal/models"
)

// AuditLog records admin actions and review-queue notifications. Call sites
// treat appends as fire-and-forget: errors are logged, never propagated into
// the operation being audited.
type AuditLog interface {
	LogAction(ctx context.Context, action *models.AdminAction) error
	RecentActions(ctx context.Context, userID string, limit int) ([]*models.AdminAction, error)
	Notify(ctx context.Context, n *models.AdminNotification) error
	Notifications(ctx context.Context, onlyUnread bool, limit int) ([]*models.AdminNotification, error)
}

// MemoryAuditLog keeps the audit trail in process. Used in tests and when
// no Mongo URI is configured.
type MemoryAuditLog struct {
	mu            sync.RWMutex
	actions       []*models.AdminAction
	notifications []*models.AdminNotification
}

func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{}
}

func (l *MemoryAuditLog) LogAction(ctx context.Context, action *models.AdminAction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a := *action
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	// Newest first.
	l.actions = append([]*models.AdminAction{&a}, l.actions...)
	return nil
}

func (l *MemoryAuditLog) RecentActions(ctx context.Context, userID string, limit int) ([]*models.AdminAction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*models.AdminAction, 0)
	for _, a := range l.actions {
		if userID != "" && a.UserID != userID {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (l *MemoryAuditLog) Notify(ctx context.Context, n *models.AdminNotification) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := *n
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	l.notifications = append([]*models.AdminNotification{&c}, l.notifications...)
	return nil
}

func (l *MemoryAuditLog) Notifications(ctx context.Context, onlyUnread bool, limit int) ([]*models.AdminNotification, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*models.AdminNotification, 0)
	for _, n := range l.notifications {
		if onlyUnread && n.Read {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
