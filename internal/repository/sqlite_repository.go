package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type sqliteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) SessionRepository {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) TouchSession(ctx context.Context, sessionID string, now time.Time) error {
	query := `INSERT INTO sessions (id, created_at, last_seen_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_seen_at = excluded.last_seen_at`
	_, err := r.db.ExecContext(ctx, query, sessionID, now.UTC(), now.UTC())
	return err
}

func (r *sqliteRepository) DeleteIdleSessions(ctx context.Context, lastSeenBefore time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	cutoff := lastSeenBefore.UTC()
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM session_values WHERE session_id IN (SELECT id FROM sessions WHERE last_seen_at < ?)", cutoff); err != nil {
		return 0, fmt.Errorf("could not delete idle session values: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE last_seen_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("could not delete idle sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func (r *sqliteRepository) GetValue(ctx context.Context, sessionID, key string) (string, error) {
	query := "SELECT value FROM session_values WHERE session_id = ? AND key = ?"
	var value string
	if err := r.db.QueryRowContext(ctx, query, sessionID, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (r *sqliteRepository) SetValue(ctx context.Context, sessionID, key, value string, now time.Time) error {
	query := `INSERT INTO session_values (session_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query, sessionID, key, value, now.UTC())
	return err
}

func (r *sqliteRepository) DeleteValue(ctx context.Context, sessionID, key string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM session_values WHERE session_id = ? AND key = ?", sessionID, key)
	return err
}

func (r *sqliteRepository) DeleteValues(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM session_values WHERE session_id = ?", sessionID)
	return err
}
