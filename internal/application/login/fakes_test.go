package login

import (
	"context"
	"sync"

	"horizonx-console/internal/domain"
)

type fakeAuth struct {
	mu      sync.Mutex
	calls   []domain.Credentials
	session *domain.Session
	err     error
}

func (f *fakeAuth) Login(_ context.Context, creds domain.Credentials) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, creds)
	return f.session, f.err
}

func (f *fakeAuth) Calls() []domain.Credentials {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Credentials(nil), f.calls...)
}

type fakeSessions struct {
	stored []*domain.Session
	err    error
}

func (f *fakeSessions) SetCurrentUser(_ context.Context, session *domain.Session) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, session)
	return nil
}

type fakeNav struct {
	visited []domain.Destination
}

func (f *fakeNav) Navigate(dest domain.Destination) {
	f.visited = append(f.visited, dest)
}

func okSession() *domain.Session {
	return &domain.Session{
		User:        &domain.User{ID: 7, Name: "Ada", Email: "a@b.com"},
		AccessToken: "token",
	}
}
