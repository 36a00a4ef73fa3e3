// Package credfile keeps the terminal login session in a YAML file.
package credfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"horizonx-console/internal/domain"

	"gopkg.in/yaml.v3"
)

type file struct {
	APIURL  string          `yaml:"api_url"`
	SavedAt time.Time       `yaml:"saved_at"`
	Session *domain.Session `yaml:"session"`
}

type Store struct {
	path   string
	apiURL string
	now    func() time.Time
}

func NewStore(path, apiURL string) *Store {
	return &Store{path: path, apiURL: apiURL, now: time.Now}
}

func (s *Store) Path() string {
	return s.path
}

// SetCurrentUser writes the session with owner-only permissions.
func (s *Store) SetCurrentUser(_ context.Context, session *domain.Session) error {
	data, err := yaml.Marshal(&file{
		APIURL:  s.apiURL,
		SavedAt: s.now().UTC(),
		Session: session,
	})
	if err != nil {
		return fmt.Errorf("credentials marshal failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("credentials dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("credentials write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("credentials rename: %w", err)
	}

	return nil
}

// Load returns ErrSessionNotFound when no file exists or the stored token has
// expired.
func (s *Store) Load() (*domain.Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("credentials read: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("credentials unmarshal failed: %w", err)
	}

	if f.Session == nil || f.Session.User == nil {
		return nil, domain.ErrSessionNotFound
	}
	if !f.Session.ExpiresAt.IsZero() && !f.Session.ExpiresAt.After(s.now()) {
		return nil, domain.ErrSessionNotFound
	}

	return f.Session, nil
}

func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("credentials remove: %w", err)
	}
	return nil
}
