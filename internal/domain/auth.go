package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSubmitInFlight     = errors.New("login already in progress")
)

// Credentials is the snapshot of the login form handed to the auth API.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=20"`
}

type AuthResponse struct {
	User        *User  `json:"user"`
	AccessToken string `json:"access_token"`
}

// Session is what a successful login hands to the session store.
type Session struct {
	User        *User     `json:"user" yaml:"user"`
	AccessToken string    `json:"access_token" yaml:"access_token"`
	ExpiresAt   time.Time `json:"expires_at" yaml:"expires_at"`
}

// APIError is a non-2xx answer from the auth API.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("auth api: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrInvalidCredentials
	}
	return nil
}

// AuthClient is the remote login call used by the console.
type AuthClient interface {
	Login(ctx context.Context, creds Credentials) (*Session, error)
}

// AuthService is the server side of the login endpoint.
type AuthService interface {
	Login(ctx context.Context, req Credentials) (*AuthResponse, error)
	CurrentUser(ctx context.Context, token string) (*User, error)
}
