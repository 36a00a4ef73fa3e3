package login

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"horizonx-console/internal/domain"
	"horizonx-console/internal/logger"
)

// Controller moves a login attempt through idle, submitting, success and
// failed. Only one login call can be in flight per controller.
type Controller struct {
	form     *Form
	auth     domain.AuthClient
	sessions domain.SessionStore
	nav      domain.Navigator
	log      logger.Logger

	mu      sync.Mutex
	status  domain.SubmitStatus
	failure string
}

func NewController(form *Form, auth domain.AuthClient, sessions domain.SessionStore, nav domain.Navigator, log logger.Logger) *Controller {
	return &Controller{
		form:     form,
		auth:     auth,
		sessions: sessions,
		nav:      nav,
		log:      log,
		status:   domain.SubmitIdle,
	}
}

func (c *Controller) Status() domain.SubmitStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Failure is the banner text of the last rejected attempt.
func (c *Controller) Failure() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// Begin gates a submit. It returns false without side effects on the network
// when a call is already in flight, and false after touching every field when
// the form is not submittable. Otherwise the controller enters submitting and
// the returned credentials must be passed to Call.
func (c *Controller) Begin() (domain.Credentials, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.status {
	case domain.SubmitSubmitting:
		c.log.Debug("login: submit ignored, request in flight")
		return domain.Credentials{}, false
	case domain.SubmitSuccess:
		return domain.Credentials{}, false
	}

	if !c.form.Submittable() {
		c.form.SubmitAttempt()
		return domain.Credentials{}, false
	}

	c.status = domain.SubmitSubmitting
	c.failure = ""
	return c.form.Credentials(), true
}

// Call performs the login request. It touches no controller state and may run
// on any goroutine.
func (c *Controller) Call(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	return c.auth.Login(ctx, creds)
}

// Complete applies the outcome of Call. On success the session is stored and
// the navigator is sent home exactly once.
func (c *Controller) Complete(ctx context.Context, session *domain.Session, callErr error) domain.SubmitStatus {
	c.mu.Lock()
	if c.status != domain.SubmitSubmitting {
		status := c.status
		c.mu.Unlock()
		return status
	}

	if callErr == nil && (session == nil || session.User == nil) {
		callErr = errors.New("login response carried no user")
	}

	if callErr != nil {
		c.fail(failureMessage(callErr))
		c.mu.Unlock()
		c.log.Warn("login: request failed", "error", callErr)
		return domain.SubmitFailed
	}

	if err := c.sessions.SetCurrentUser(ctx, session); err != nil {
		c.fail("Signed in, but the session could not be stored. Please try again.")
		c.mu.Unlock()
		c.log.Error("login: failed to store session", "user_id", session.User.ID, "error", err)
		return domain.SubmitFailed
	}

	c.status = domain.SubmitSuccess
	c.mu.Unlock()

	c.log.Info("login: signed in", "user_id", session.User.ID, "email", session.User.Email)
	c.nav.Navigate(domain.DestinationHome)
	return domain.SubmitSuccess
}

// Submit runs Begin, Call and Complete in sequence and reports whether the
// login call was issued.
func (c *Controller) Submit(ctx context.Context) (domain.SubmitStatus, bool) {
	creds, ok := c.Begin()
	if !ok {
		return c.Status(), false
	}

	session, err := c.Call(ctx, creds)
	return c.Complete(ctx, session, err), true
}

// fail must be called with mu held. The password is dropped so a rejected
// secret does not linger in the form.
func (c *Controller) fail(msg string) {
	c.status = domain.SubmitFailed
	c.failure = msg
	c.form.Reset(domain.FieldPassword)
}

func failureMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidCredentials) {
		return "Invalid email or password."
	}

	if errors.Is(err, domain.ErrSubmitInFlight) {
		return "A sign in request is already in progress."
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "The sign in service did not answer in time. Please try again."
	}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		if msg := sanitize(apiErr.Message); msg != "" {
			return msg
		}
		for _, id := range domain.LoginFields {
			if msg := sanitize(apiErr.Fields[string(id)]); msg != "" {
				return msg
			}
		}
		return fmt.Sprintf("Sign in failed (status %d).", apiErr.StatusCode)
	}

	return "Unable to sign in right now. Please try again."
}
