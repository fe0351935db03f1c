package services

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrPhoneExists        = errors.New("phone number already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnknownIdentity    = errors.New("user id does not resolve to an identity")
	ErrNotVerified        = errors.New("user is not verified")
	ErrProfileQuota       = errors.New("maximum number of active profiles reached")
	ErrRateLimited        = errors.New("profile creation rate limit exceeded")
	ErrImageTooLarge      = errors.New("image exceeds the maximum size")
	ErrImageTooSmall      = errors.New("image is too small to be a valid photo")
	ErrInvalidImage       = errors.New("image is not a valid JPEG or PNG")
	ErrInvalidStatus      = errors.New("invalid verification status")
	ErrInvalidVote        = errors.New("invalid vote type")
	ErrEmptyComment       = errors.New("comment text is required")
	ErrCommentTooLong     = errors.New("comment exceeds the maximum length")
)

// ValidationErrors carries field-level validation messages through the error
// return so handlers can render them as a field-keyed map.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	return "validation failed"
}
