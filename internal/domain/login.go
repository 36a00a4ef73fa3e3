package domain

import (
	"context"
	"errors"
	"time"
)

var ErrUnknownField = errors.New("unknown field")

type FieldID string

const (
	FieldEmail    FieldID = "email"
	FieldPassword FieldID = "password"
)

// LoginFields is the render order of the login form.
var LoginFields = []FieldID{FieldEmail, FieldPassword}

// Known reports whether f is one of LoginFields.
func (f FieldID) Known() bool {
	return f == FieldEmail || f == FieldPassword
}

func (f FieldID) Label() string {
	switch f {
	case FieldEmail:
		return "Email"
	case FieldPassword:
		return "Password"
	default:
		return string(f)
	}
}

// FieldState is one input of the login form. IsValid is only ever produced by
// running the field's validation rules against Value.
type FieldState struct {
	Value   string `json:"value"`
	IsValid bool   `json:"is_valid"`
	Error   string `json:"error"`
	Touched bool   `json:"touched"`
}

// VisibleError is empty until the field has been touched.
func (f FieldState) VisibleError() string {
	if !f.Touched {
		return ""
	}
	return f.Error
}

type SubmitStatus string

const (
	SubmitIdle       SubmitStatus = "idle"
	SubmitSubmitting SubmitStatus = "submitting"
	SubmitSuccess    SubmitStatus = "success"
	SubmitFailed     SubmitStatus = "failed"
)

type Destination string

const (
	DestinationHome     Destination = "home"
	DestinationRegister Destination = "register"
	DestinationLogin    Destination = "login"
)

// RebindPath is where a browser swaps its session cookie after a live view
// sign in rotated the session id.
const RebindPath = "/login/rebind"

func (d Destination) Path() string {
	switch d {
	case DestinationHome:
		return "/"
	case DestinationRegister:
		return "/register"
	default:
		return "/login"
	}
}

// SessionStore receives the signed in user.
type SessionStore interface {
	SetCurrentUser(ctx context.Context, session *Session) error
}

// SessionRepository is the console's keyed session storage.
type SessionRepository interface {
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
	Acquire(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, sessionID string) error
	For(sessionID string) SessionStore

	// Rotate moves a stored session to a new id.
	Rotate(ctx context.Context, fromID, toID string) error
	// IssueRebind hands out a one-time token that lets the browser holding
	// fromID switch its cookie to toID.
	IssueRebind(ctx context.Context, fromID, toID string, ttl time.Duration) (string, error)
	RedeemRebind(ctx context.Context, token, fromID string) (string, error)
}

type Navigator interface {
	Navigate(dest Destination)
}
