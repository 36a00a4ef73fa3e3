package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"horizonx-console/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps console sessions keyed by the browser session id.
type SessionStore struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionStore(r *redis.Client, prefix string, ttl time.Duration) *SessionStore {
	return &SessionStore{
		redis:  r,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *SessionStore) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *SessionStore) lockKey(sessionID string) string {
	return s.prefix + ":" + sessionID + ":inflight"
}

// Put stores the session. The lifetime is the configured TTL, shortened to the
// access token expiry when that comes first.
func (s *SessionStore) Put(ctx context.Context, sessionID string, session *domain.Session) error {
	ttl := s.ttl
	if !session.ExpiresAt.IsZero() {
		remaining := session.ExpiresAt.Sub(s.now())
		if remaining <= 0 {
			return fmt.Errorf("session store: access token already expired")
		}
		if remaining < ttl {
			ttl = remaining
		}
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session store marshal failed: %w", err)
	}

	if err := s.redis.Set(ctx, s.key(sessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("session store set failed: %w", err)
	}

	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("session store get failed: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("session store unmarshal failed: %w", err)
	}

	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.key(sessionID), s.lockKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("session store del failed: %w", err)
	}
	return nil
}

// Acquire marks a login call in flight for the session. It reports false when
// another request already holds the mark. The mark expires after ttl so a
// crashed request cannot block the session forever.
func (s *SessionStore) Acquire(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	ok, err := s.redis.SetNX(ctx, s.lockKey(sessionID), s.now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("session store setnx failed: %w", err)
	}
	return ok, nil
}

func (s *SessionStore) Release(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.lockKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("session store release failed: %w", err)
	}
	return nil
}

// Rotate renames the session key; the remaining TTL moves with it.
func (s *SessionStore) Rotate(ctx context.Context, fromID, toID string) error {
	exists, err := s.redis.Exists(ctx, s.key(fromID)).Result()
	if err != nil {
		return fmt.Errorf("session store exists failed: %w", err)
	}
	if exists == 0 {
		return domain.ErrSessionNotFound
	}

	if err := s.redis.Rename(ctx, s.key(fromID), s.key(toID)).Err(); err != nil {
		return fmt.Errorf("session store rename failed: %w", err)
	}
	return nil
}

func (s *SessionStore) rebindKey(token string) string {
	return s.prefix + ":rebind:" + token
}

func (s *SessionStore) IssueRebind(ctx context.Context, fromID, toID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	if err := s.redis.Set(ctx, s.rebindKey(token), fromID+" "+toID, ttl).Err(); err != nil {
		return "", fmt.Errorf("session store rebind set failed: %w", err)
	}
	return token, nil
}

// RedeemRebind consumes the token. It only answers the browser that held the
// old id, so a leaked token is useless elsewhere.
func (s *SessionStore) RedeemRebind(ctx context.Context, token, fromID string) (string, error) {
	raw, err := s.redis.GetDel(ctx, s.rebindKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrSessionNotFound
		}
		return "", fmt.Errorf("session store rebind get failed: %w", err)
	}

	from, to, ok := strings.Cut(raw, " ")
	if !ok || from != fromID {
		return "", domain.ErrSessionNotFound
	}
	return to, nil
}

// For binds the store to one session id so the login view can write to it.
func (s *SessionStore) For(sessionID string) domain.SessionStore {
	return &boundSession{store: s, sessionID: sessionID}
}

type boundSession struct {
	store     *SessionStore
	sessionID string
}

func (b *boundSession) SetCurrentUser(ctx context.Context, session *domain.Session) error {
	return b.store.Put(ctx, b.sessionID, session)
}
