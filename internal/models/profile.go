package models

import (
	"regexp"
	"strings"
	"time"
)

type VoteType string

const (
	VoteGreen VoteType = "green"
	VoteRed   VoteType = "red"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Comment is immutable once created. Comments are never edited or deleted.
type Comment struct {
	ID        string    `json:"id" firestore:"id"`
	UserID    string    `json:"user_id" firestore:"userId"`
	Username  string    `json:"username" firestore:"username"`
	Text      string    `json:"text" firestore:"text"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
}

// Profile is a user-submitted profile card. Votes maps voter user id to the
// voter's current vote; it is persisted but never serialized to API clients,
// who instead see their own vote via ProfileView.UserVote.
type Profile struct {
	ID                   string         `json:"id" firestore:"id"`
	Name                 string         `json:"name" firestore:"name"`
	Age                  int            `json:"age" firestore:"age"`
	City                 string         `json:"city" firestore:"city"`
	Description          string         `json:"description" firestore:"description"`
	ProfileImageURL      string         `json:"profile_image_url" firestore:"profileImageUrl"`
	ProfileImageThumbURL string         `json:"profile_image_thumb_url,omitempty" firestore:"profileImageThumbUrl"`
	ProfileImagePublicID string         `json:"profile_image_public_id,omitempty" firestore:"profileImagePublicId"`
	UploaderUserID       string         `json:"uploader_user_id" firestore:"uploaderUserId"`
	UploaderUsername     string         `json:"uploader_username" firestore:"uploaderUsername"`
	UploaderEmail        string         `json:"uploader_email,omitempty" firestore:"uploaderEmail"`
	GreenFlags           int            `json:"green_flags" firestore:"greenFlags"`
	RedFlags             int            `json:"red_flags" firestore:"redFlags"`
	CommentCount         int            `json:"comment_count" firestore:"commentCount"`
	Comments             []Comment      `json:"comments" firestore:"comments"`
	Votes                map[string]VoteType `json:"votes,omitempty" firestore:"votes"`
	ApprovalStatus       ApprovalStatus `json:"approval_status" firestore:"approvalStatus"`
	CreatedAt            time.Time      `json:"created_at" firestore:"createdAt"`
	UpdatedAt            time.Time      `json:"updated_at" firestore:"updatedAt"`
}

// ProfileView is the client-facing projection of a Profile: uploader email
// and the raw vote relation stay server-side, and UserVote is recomputed for
// the requesting viewer.
type ProfileView struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Age                  int            `json:"age"`
	City                 string         `json:"city"`
	Description          string         `json:"description"`
	ProfileImageURL      string         `json:"profile_image_url"`
	ProfileImageThumbURL string         `json:"profile_image_thumb_url,omitempty"`
	UploaderUserID       string         `json:"uploader_user_id"`
	UploaderUsername     string         `json:"uploader_username"`
	GreenFlags           int            `json:"green_flags"`
	RedFlags             int            `json:"red_flags"`
	CommentCount         int            `json:"comment_count"`
	Comments             []Comment      `json:"comments"`
	UserVote             *VoteType      `json:"user_vote"`
	ApprovalStatus       ApprovalStatus `json:"approval_status"`
	CreatedAt            time.Time      `json:"created_at"`
}

// View builds the projection for the given viewer.
func (p *Profile) View(viewerID string) *ProfileView {
	v := &ProfileView{
		ID:                   p.ID,
		Name:                 p.Name,
		Age:                  p.Age,
		City:                 p.City,
		Description:          p.Description,
		ProfileImageURL:      p.ProfileImageURL,
		ProfileImageThumbURL: p.ProfileImageThumbURL,
		UploaderUserID:       p.UploaderUserID,
		UploaderUsername:     p.UploaderUsername,
		GreenFlags:           p.GreenFlags,
		RedFlags:             p.RedFlags,
		CommentCount:         p.CommentCount,
		Comments:             p.Comments,
		ApprovalStatus:       p.ApprovalStatus,
		CreatedAt:            p.CreatedAt,
	}
	if v.Comments == nil {
		v.Comments = []Comment{}
	}
	if vote, ok := p.Votes[viewerID]; ok {
		v.UserVote = &vote
	}
	return v
}

var (
	profileNameRe = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)
	cityRe        = regexp.MustCompile(`^[a-zA-Z\s,.-]+$`)
	multiSpaceRe  = regexp.MustCompile(`\s+`)
)

// CollapseSpaces trims and squeezes runs of whitespace to single spaces.
func CollapseSpaces(s string) string {
	return multiSpaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

type CreateProfileRequest struct {
	Name        string `json:"name"`
	Age         int    `json:"age"`
	City        string `json:"city"`
	Description string `json:"description,omitempty"`
	ImageBase64 string `json:"image_base64"`
}

func (r *CreateProfileRequest) Normalize() {
	r.Name = CollapseSpaces(r.Name)
	r.City = CollapseSpaces(r.City)
	r.Description = CollapseSpaces(r.Description)
}

func (r *CreateProfileRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if len(r.Name) < 2 || len(r.Name) > 50 {
		errors["name"] = "Name must be between 2 and 50 characters"
	} else if !profileNameRe.MatchString(r.Name) {
		errors["name"] = "Name can only contain letters, spaces, hyphens, and apostrophes"
	}
	if r.Age < 18 {
		errors["age"] = "Must be at least 18 years old"
	} else if r.Age > 95 {
		errors["age"] = "Age must be 95 or less"
	}
	if len(r.City) < 2 || len(r.City) > 100 {
		errors["city"] = "City must be between 2 and 100 characters"
	} else if !cityRe.MatchString(r.City) {
		errors["city"] = "City can only contain letters, spaces, commas, periods, and hyphens"
	}
	if len(r.Description) > 300 {
		errors["description"] = "Description must be 300 characters or less"
	}
	if r.ImageBase64 == "" {
		errors["image"] = "Profile photo is required"
	}

	return errors
}

type VoteRequest struct {
	VoteType VoteType `json:"vote_type"`
}

type CommentRequest struct {
	Text string `json:"text"`
}
