package service

import (
	"context"
	"fmt"
	"log/slog"

	"chatbox/web/internal/backend"
	app_errors "chatbox/web/internal/errors"
	"chatbox/web/internal/model"
)

// ArchiveService manages the archived-chats modal: listing, restoring and
// deleting conversations one at a time or in bulk.
type ArchiveService struct {
	store backend.ConversationStore
}

func NewArchiveService(store backend.ConversationStore) *ArchiveService {
	return &ArchiveService{store: store}
}

// ListArchived returns the user's archived conversations. Rows without a
// resolvable id are dropped.
func (s *ArchiveService) ListArchived(ctx context.Context, userID string) ([]model.ArchivedSummary, error) {
	if userID == "" {
		return []model.ArchivedSummary{}, nil
	}
	list, err := s.store.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed loading archived conversations: %w", err)
	}

	rows := make([]model.ArchivedSummary, 0, len(list))
	for _, convo := range list {
		if !convo.Archived() {
			continue
		}
		if row, ok := convo.ArchivedSummary(); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (s *ArchiveService) Archive(ctx context.Context, id string) error {
	id, err := requireID(id)
	if err != nil {
		return err
	}
	if _, err := s.store.ArchiveConversation(ctx, id); err != nil {
		return fmt.Errorf("failed to archive conversation: %w", err)
	}
	return nil
}

func (s *ArchiveService) Unarchive(ctx context.Context, id string) error {
	id, err := requireID(id)
	if err != nil {
		return err
	}
	if _, err := s.store.UnarchiveConversation(ctx, id); err != nil {
		return fmt.Errorf("failed to unarchive conversation: %w", err)
	}
	return nil
}

// Delete removes the conversation from the database for good.
func (s *ArchiveService) Delete(ctx context.Context, id string) error {
	id, err := requireID(id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// UnarchiveMany restores ids in order and stops at the first failure. It
// returns how many were restored.
func (s *ArchiveService) UnarchiveMany(ctx context.Context, ids []string) (int, error) {
	return s.each(ctx, ids, s.Unarchive)
}

// DeleteMany deletes ids in order and stops at the first failure. It returns
// how many were deleted.
func (s *ArchiveService) DeleteMany(ctx context.Context, ids []string) (int, error) {
	return s.each(ctx, ids, s.Delete)
}

func (s *ArchiveService) each(ctx context.Context, ids []string, op func(context.Context, string) error) (int, error) {
	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if err := op(ctx, id); err != nil {
			slog.Warn("Bulk archive operation stopped", "id", id, "done", done, "error", err)
			return done, err
		}
		done++
	}
	return done, nil
}

func requireID(id string) (string, error) {
	id = model.NormalizeID(id)
	if id == "" {
		return "", fmt.Errorf("%w: conversation id is required", app_errors.ErrValidation)
	}
	return id, nil
}
