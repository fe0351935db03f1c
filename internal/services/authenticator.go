package services

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Authenticator is the credential primitive of the identity store: it owns
// account creation and password verification, and mints the token the
// client authenticates with. The user document itself lives in the Store.
type Authenticator interface {
	CreateAccount(ctx context.Context, email, password, displayName string) (string, error)
	VerifyPassword(ctx context.Context, email, password string) (string, error)
	CustomToken(ctx context.Context, uid string) (string, error)
}

type memoryAccount struct {
	uid          string
	passwordHash string
}

// MemoryAuthenticator hashes passwords with bcrypt and signs HMAC JWTs.
// Used in tests and when Firebase is not configured.
type MemoryAuthenticator struct {
	mu         sync.RWMutex
	byEmail    map[string]*memoryAccount
	jwtSecret  string
	expiration time.Duration
}

func NewMemoryAuthenticator(jwtSecret string, expiration time.Duration) *MemoryAuthenticator {
	return &MemoryAuthenticator{
		byEmail:    make(map[string]*memoryAccount),
		jwtSecret:  jwtSecret,
		expiration: expiration,
	}
}

func (a *MemoryAuthenticator) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.byEmail[email]; exists {
		return "", ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	acct := &memoryAccount{
		uid:          uuid.New().String(),
		passwordHash: string(hash),
	}
	a.byEmail[email] = acct
	return acct.uid, nil
}

func (a *MemoryAuthenticator) VerifyPassword(ctx context.Context, email, password string) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	acct, exists := a.byEmail[email]
	if !exists {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.passwordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return acct.uid, nil
}

func (a *MemoryAuthenticator) CustomToken(ctx context.Context, uid string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": uid,
		"exp":     time.Now().Add(a.expiration).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.jwtSecret))
}
