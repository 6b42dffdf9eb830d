package repository

import (
	"context"
	"time"
)

// SessionRepository defines the storage operations behind persistent browser
// sessions. This interface makes it easy to switch database implementations.
type SessionRepository interface {
	TouchSession(ctx context.Context, sessionID string, now time.Time) error
	DeleteIdleSessions(ctx context.Context, lastSeenBefore time.Time) (int64, error)

	GetValue(ctx context.Context, sessionID, key string) (string, error)
	SetValue(ctx context.Context, sessionID, key, value string, now time.Time) error
	DeleteValue(ctx context.Context, sessionID, key string) error
	DeleteValues(ctx context.Context, sessionID string) error
}
