package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
)

// FirebaseAuthenticator backs account creation and custom tokens with the
// Firebase Admin SDK. Password verification goes through the Identity
// Toolkit REST endpoint because the Admin SDK has no password primitive;
// that call needs the project's Web API key.
type FirebaseAuthenticator struct {
	client     *fbauth.Client
	webAPIKey  string
	HTTPClient *http.Client
	Endpoint   string
}

func NewFirebaseAuthenticator(client *fbauth.Client, webAPIKey string) *FirebaseAuthenticator {
	return &FirebaseAuthenticator{
		client:    client,
		webAPIKey: webAPIKey,
		Endpoint:  "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword",
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (a *FirebaseAuthenticator) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&fbauth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)

	u, err := a.client.CreateUser(ctx, params)
	if err != nil {
		if fbauth.IsEmailAlreadyExists(err) {
			return "", ErrEmailExists
		}
		return "", err
	}
	return u.UID, nil
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	LocalID string `json:"localId"`
}

func (a *FirebaseAuthenticator) VerifyPassword(ctx context.Context, email, password string) (string, error) {
	body, err := json.Marshal(signInRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return "", err
	}

	endpoint := a.Endpoint + "?key=" + url.QueryEscape(a.webAPIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := a.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		// Identity Toolkit reports wrong password, unknown email and
		// disabled accounts all as 400.
		return "", ErrInvalidCredentials
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identity toolkit signIn http %d", resp.StatusCode)
	}

	var out signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.LocalID == "" {
		return "", ErrInvalidCredentials
	}
	return out.LocalID, nil
}

func (a *FirebaseAuthenticator) CustomToken(ctx context.Context, uid string) (string, error) {
	return a.client.CustomToken(ctx, uid)
}
