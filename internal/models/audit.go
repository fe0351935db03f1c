package models

import "time"

// AdminAction is an append-only audit record of an admin mutation. Writes
// are fire-and-forget: a failed append never fails the audited operation.
type AdminAction struct {
	ID        string                 `json:"id" bson:"id"`
	Action    string                 `json:"action" bson:"action"`
	UserID    string                 `json:"user_id" bson:"user_id"`
	AdminID   string                 `json:"admin_id" bson:"admin_id"`
	Details   map[string]interface{} `json:"details,omitempty" bson:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp" bson:"timestamp"`
}

// AdminNotification is a side-channel entry surfaced in the admin review
// queue, e.g. when a user submits a selfie for (re-)review.
type AdminNotification struct {
	ID        string    `json:"id" bson:"id"`
	Type      string    `json:"type" bson:"type"`
	UserID    string    `json:"user_id" bson:"user_id"`
	SelfieURL string    `json:"selfie_url,omitempty" bson:"selfie_url,omitempty"`
	Read      bool      `json:"read" bson:"read"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

const NotificationSelfieSubmitted = "selfie_submitted"
