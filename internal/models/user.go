package models

import (
	"regexp"
	"strings"
	"time"
)

// UserStatus is the verification lifecycle state. Users start pending and
// move exactly once to approved (with a username assigned in the same write)
// or rejected. There is no path back from rejected; re-registering with a
// new identity is the escape hatch.
type UserStatus string

const (
	StatusPendingVerification UserStatus = "pending_verification"
	StatusApproved            UserStatus = "approved_username_assigned"
	StatusRejected            UserStatus = "rejected"
)

// NormalizeStatus folds the legacy "approved" value (written by an older
// backend before usernames were assigned atomically) into the canonical
// approved state. It is applied at read time only; the legacy value is
// never written back.
func NormalizeStatus(s string) UserStatus {
	if s == "approved" {
		return StatusApproved
	}
	return UserStatus(s)
}

// User is the identity document keyed by the auth UID.
type User struct {
	ID                   string     `json:"id" firestore:"id"`
	Email                string     `json:"email" firestore:"email"`
	Phone                string     `json:"phone" firestore:"phone"`
	Name                 string     `json:"name" firestore:"name"`
	Location             string     `json:"location" firestore:"location"`
	Status               UserStatus `json:"status" firestore:"status"`
	Username             string     `json:"username,omitempty" firestore:"username"`
	SelfieURL            string     `json:"selfie_url,omitempty" firestore:"selfieUrl"`
	RejectionReason      string     `json:"rejection_reason,omitempty" firestore:"rejectionReason"`
	ProfileCount         int        `json:"profile_count" firestore:"profileCount"`
	RequiresSelfieUpload bool       `json:"requires_selfie_upload" firestore:"requiresSelfieUpload"`
	CreatedAt            time.Time  `json:"created_at" firestore:"createdAt"`
	UpdatedAt            time.Time  `json:"updated_at" firestore:"updatedAt"`
	ApprovedAt           *time.Time `json:"approved_at,omitempty" firestore:"approvedAt"`
	RejectedAt           *time.Time `json:"rejected_at,omitempty" firestore:"rejectedAt"`
	SelfieSubmittedAt    *time.Time `json:"selfie_submitted_at,omitempty" firestore:"selfieSubmittedAt"`
}

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// Applied after stripping spaces, dashes and parens.
	phoneRe = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
	// Spaces, dashes and parens are presentation noise in phone input.
	phoneStripRe = regexp.MustCompile(`[\s\-()]`)
)

// NormalizePhone strips formatting characters, keeping digits and a leading +.
func NormalizePhone(phone string) string {
	return phoneStripRe.ReplaceAllString(phone, "")
}

type RegisterRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Password     string `json:"password"`
	Location     string `json:"location"`
	SelfieBase64 string `json:"selfie_base64,omitempty"`
}

// Normalize trims and canonicalizes fields in place. Call before Validate.
func (r *RegisterRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = NormalizePhone(strings.TrimSpace(r.Phone))
	r.Location = strings.TrimSpace(r.Location)
}

func (r *RegisterRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if len(r.Name) < 2 || len(r.Name) > 50 {
		errors["name"] = "Name must be between 2 and 50 characters"
	}
	if !emailRe.MatchString(r.Email) {
		errors["email"] = "Please enter a valid email address"
	}
	if !phoneRe.MatchString(r.Phone) {
		errors["phone"] = "Please enter a valid phone number"
	}
	if len(r.Password) < 8 {
		errors["password"] = "Password must be at least 8 characters"
	} else if len(r.Password) > 100 {
		errors["password"] = "Password is too long"
	}
	if len(r.Location) < 2 || len(r.Location) > 100 {
		errors["location"] = "Location must be between 2 and 100 characters"
	}

	return errors
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if !emailRe.MatchString(r.Email) {
		errors["email"] = "Please enter a valid email address"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

// AuthResponse is returned by register and login. Token is a Firebase custom
// token when Firebase is configured, otherwise a backend-signed JWT.
type AuthResponse struct {
	Token                string `json:"token"`
	User                 *User  `json:"user"`
	RequiresSelfieUpload bool   `json:"requires_selfie_upload"`
}

// UserStats summarizes verification states for the admin dashboard.
type UserStats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}
