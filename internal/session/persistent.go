package session

import (
	"context"
	"errors"
	"time"

	"chatbox/web/internal/repository"
)

// PersistentStore is a Store backed by the session database, scoped to one
// browser session cookie.
type PersistentStore struct {
	repo      repository.SessionRepository
	sessionID string
	now       func() time.Time
}

// OpenPersistentStore registers (or refreshes) the session row and returns a
// store bound to it.
func OpenPersistentStore(ctx context.Context, repo repository.SessionRepository, sessionID string) (*PersistentStore, error) {
	s := &PersistentStore{repo: repo, sessionID: sessionID, now: time.Now}
	if err := repo.TouchSession(ctx, sessionID, s.now()); err != nil {
		return nil, err
	}
	return s, nil
}

// SessionID is the cookie value this store is scoped to.
func (s *PersistentStore) SessionID() string { return s.sessionID }

func (s *PersistentStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.repo.GetValue(ctx, s.sessionID, key)
	if errors.Is(err, repository.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *PersistentStore) Set(ctx context.Context, key, value string) error {
	return s.repo.SetValue(ctx, s.sessionID, key, value, s.now())
}

func (s *PersistentStore) Remove(ctx context.Context, key string) error {
	return s.repo.DeleteValue(ctx, s.sessionID, key)
}

func (s *PersistentStore) Clear(ctx context.Context) error {
	return s.repo.DeleteValues(ctx, s.sessionID)
}

// Touch records activity on the session so the idle sweep keeps it.
func (s *PersistentStore) Touch(ctx context.Context) error {
	return s.repo.TouchSession(ctx, s.sessionID, s.now())
}
