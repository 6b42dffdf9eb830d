package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"chatbox/web/internal/backend"
	"chatbox/web/internal/model"
	"chatbox/web/internal/session"
)

// touchInterval throttles how often a workspace records activity in its store.
const touchInterval = time.Minute

// WorkspaceDeps are the shared collaborators every workspace is built from.
type WorkspaceDeps struct {
	Chat          backend.ChatCompleter
	Conversations backend.ConversationStore
	Auth          backend.Authenticator
	Greeting      string
	Logger        *slog.Logger
}

// Workspace is everything one browser session (or one terminal) works with:
// its session view, its chat coordinator and the services around them.
type Workspace struct {
	ID      string
	Session *session.Context
	Chat    *Coordinator
	Archive *ArchiveService
	Auth    *AuthService

	conversations backend.ConversationStore
	toucher       interface{ Touch(context.Context) error }

	mu        sync.Mutex
	lastSeen  time.Time
	lastTouch time.Time
}

// NewWorkspace builds a workspace over store and reopens the conversation the
// store remembers.
func NewWorkspace(ctx context.Context, id string, store session.Store, deps WorkspaceDeps, onChange func()) (*Workspace, error) {
	sc := session.NewContext(store)
	coord, err := NewCoordinator(ctx, deps.Chat, deps.Conversations, sc, CoordinatorOptions{
		Greeting: deps.Greeting,
		OnChange: onChange,
		Logger:   deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	w := &Workspace{
		ID:            id,
		Session:       sc,
		Chat:          coord,
		Archive:       NewArchiveService(deps.Conversations),
		Auth:          NewAuthService(deps.Auth),
		conversations: deps.Conversations,
	}
	if t, ok := store.(interface{ Touch(context.Context) error }); ok {
		w.toucher = t
	}

	if err := coord.Restore(ctx); err != nil {
		slog.Warn("Could not restore active conversation", "workspace", id, "error", err)
	}
	if err := coord.RefreshChats(ctx); err != nil {
		slog.Warn("Could not load chat list", "workspace", id, "error", err)
	}
	return w, nil
}

// markSeen records activity and reports whether it is due to be persisted,
// which happens at most once per touchInterval.
func (w *Workspace) markSeen(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastSeen = now
	due := w.toucher != nil && now.Sub(w.lastTouch) >= touchInterval
	if due {
		w.lastTouch = now
	}
	return due
}

func (w *Workspace) touch(ctx context.Context) {
	if err := w.toucher.Touch(ctx); err != nil {
		slog.Warn("Could not record session activity", "workspace", w.ID, "error", err)
	}
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

// Close stops the workspace's in-flight requests.
func (w *Workspace) Close() {
	w.Chat.Close()
}

// Login signs in and loads the user's chat list. Signing in as someone else
// resets the chat panel first.
func (w *Workspace) Login(ctx context.Context, in LoginInput) (*Account, error) {
	prev := w.userID(ctx)
	acct, err := w.Auth.Login(ctx, w.Session, in)
	if err != nil {
		return nil, err
	}
	w.switchUser(prev, acct.UserID)
	w.refresh(ctx)
	return acct, nil
}

// Signup creates the account, signs in and loads the (empty) chat list.
func (w *Workspace) Signup(ctx context.Context, in SignupInput) (*Account, error) {
	prev := w.userID(ctx)
	acct, err := w.Auth.Signup(ctx, w.Session, in)
	if err != nil {
		return nil, err
	}
	w.switchUser(prev, acct.UserID)
	w.refresh(ctx)
	return acct, nil
}

func (w *Workspace) userID(ctx context.Context) string {
	st, err := w.Session.Load(ctx)
	if err != nil {
		slog.Warn("Could not read session before sign-in", "workspace", w.ID, "error", err)
		return ""
	}
	return st.UserID
}

// switchUser drops the open conversation when the identity changed, so the
// next turn is never saved into another user's conversation.
func (w *Workspace) switchUser(prev, next string) {
	if prev != next {
		w.Chat.Reset()
	}
}

// Logout clears the session and resets the chat panel.
func (w *Workspace) Logout(ctx context.Context) error {
	if err := w.Auth.Logout(ctx, w.Session); err != nil {
		return err
	}
	w.Chat.Reset()
	return nil
}

// ArchiveChat archives id, leaving it first if it is the open conversation.
func (w *Workspace) ArchiveChat(ctx context.Context, id string) error {
	if err := w.Archive.Archive(ctx, id); err != nil {
		return err
	}
	w.leaveIfActive(id)
	w.refresh(ctx)
	return nil
}

// DeleteChat deletes id, leaving it first if it is the open conversation.
func (w *Workspace) DeleteChat(ctx context.Context, id string) error {
	if err := w.Archive.Delete(ctx, id); err != nil {
		return err
	}
	w.leaveIfActive(id)
	w.refresh(ctx)
	return nil
}

// ListArchived returns the signed-in user's archived conversations.
func (w *Workspace) ListArchived(ctx context.Context) ([]model.ArchivedSummary, error) {
	st, err := w.Session.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !st.CanSave() {
		return []model.ArchivedSummary{}, nil
	}
	return w.Archive.ListArchived(ctx, st.UserID)
}

// UnarchiveMany restores ids and refreshes the sidebar, even after a partial
// failure.
func (w *Workspace) UnarchiveMany(ctx context.Context, ids []string) (int, error) {
	n, err := w.Archive.UnarchiveMany(ctx, ids)
	w.refresh(ctx)
	return n, err
}

// DeleteMany deletes ids and refreshes the sidebar, even after a partial
// failure.
func (w *Workspace) DeleteMany(ctx context.Context, ids []string) (int, error) {
	n, err := w.Archive.DeleteMany(ctx, ids)
	for _, id := range ids[:n] {
		w.leaveIfActive(id)
	}
	w.refresh(ctx)
	return n, err
}

// Transcript returns the document to export: the open chat when chatID is
// empty, otherwise the stored conversation chatID.
func (w *Workspace) Transcript(ctx context.Context, chatID string) (title string, msgs model.Transcript, err error) {
	chatID = model.NormalizeID(chatID)
	if chatID == "" {
		st := w.Chat.Snapshot()
		for _, c := range st.Chats {
			if c.ID == st.ActiveConversationID {
				title = c.Title
			}
		}
		return title, st.Messages, nil
	}

	convo, err := w.conversations.GetConversation(ctx, chatID)
	if err != nil {
		return "", nil, fmt.Errorf("could not load conversation for export: %w", err)
	}
	if convo == nil {
		return "", nil, nil
	}
	return strings.TrimSpace(convo.Title()), model.FromTurns(convo.Turns()), nil
}

func (w *Workspace) leaveIfActive(id string) {
	if id = model.NormalizeID(id); id != "" && id == w.Chat.ActiveConversationID() {
		w.Chat.StartNewChat()
	}
}

func (w *Workspace) refresh(ctx context.Context) {
	if err := w.Chat.RefreshChats(ctx); err != nil {
		slog.Warn("Could not refresh chat list", "workspace", w.ID, "error", err)
	}
}

// WorkspaceFactory opens the workspace for a session id.
type WorkspaceFactory func(ctx context.Context, sessionID string) (*Workspace, error)

// WorkspaceRegistry keeps one live workspace per session id and evicts the
// ones that have been idle longer than the TTL.
type WorkspaceRegistry struct {
	open WorkspaceFactory
	ttl  time.Duration
	now  func() time.Time

	mu    sync.Mutex
	items map[string]*Workspace
}

func NewWorkspaceRegistry(open WorkspaceFactory, ttl time.Duration) *WorkspaceRegistry {
	return &WorkspaceRegistry{
		open:  open,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]*Workspace),
	}
}

// Get returns the workspace for sessionID, opening it on first use. The
// workspace is marked seen before the lock is released, so a concurrent Sweep
// cannot close it under the caller.
func (r *WorkspaceRegistry) Get(ctx context.Context, sessionID string) (*Workspace, error) {
	r.mu.Lock()
	w, ok := r.items[sessionID]
	var due bool
	if ok {
		due = w.markSeen(r.now())
	}
	r.mu.Unlock()
	if ok {
		if due {
			w.touch(ctx)
		}
		return w, nil
	}

	created, err := r.open(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("could not open workspace: %w", err)
	}

	r.mu.Lock()
	w, ok = r.items[sessionID]
	if !ok {
		w = created
		r.items[sessionID] = created
	}
	due = w.markSeen(r.now())
	r.mu.Unlock()

	if ok {
		created.Close()
	}
	if due {
		w.touch(ctx)
	}
	return w, nil
}

// Len is the number of live workspaces.
func (r *WorkspaceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Sweep closes and forgets workspaces idle for longer than the TTL.
func (r *WorkspaceRegistry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var idle []*Workspace
	for id, w := range r.items {
		if w.idleSince().Before(cutoff) {
			idle = append(idle, w)
			delete(r.items, id)
		}
	}
	r.mu.Unlock()

	for _, w := range idle {
		w.Close()
	}
	if len(idle) > 0 {
		slog.Info("Evicted idle workspaces", "count", len(idle))
	}
	return len(idle)
}

// Close shuts down every workspace.
func (r *WorkspaceRegistry) Close() {
	r.mu.Lock()
	items := r.items
	r.items = make(map[string]*Workspace)
	r.mu.Unlock()

	for _, w := range items {
		w.Close()
	}
}
