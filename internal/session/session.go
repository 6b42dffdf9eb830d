// Package session is the tab-scoped key/value state the chat reads to decide
// who is talking and which conversation is open.
package session

import (
	"context"

	"chatbox/web/internal/model"
)

// Keys written by the login/signup flows and the chat coordinator.
const (
	KeyIsLoggedIn           = "isLoggedIn"
	KeyUserID               = "userId"
	KeyUserEmail            = "userEmail"
	KeyActiveConversationID = "activeConversationId"
)

// Store is a key/value store scoped to one browser tab (or one terminal).
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// State is the session as the coordinator sees it.
type State struct {
	IsLoggedIn           bool
	UserID               string
	UserEmail            string
	ActiveConversationID string
}

// CanSave reports whether turns may be persisted to the conversation store.
func (s State) CanSave() bool {
	return s.IsLoggedIn && s.UserID != ""
}

// Context is a typed view over a Store.
type Context struct {
	store Store
}

func NewContext(store Store) *Context {
	return &Context{store: store}
}

// Store returns the underlying key/value store.
func (c *Context) Store() Store { return c.store }

// Load reads the current session. Missing keys read as zero values.
func (c *Context) Load(ctx context.Context) (State, error) {
	var st State
	loggedIn, _, err := c.store.Get(ctx, KeyIsLoggedIn)
	if err != nil {
		return st, err
	}
	st.IsLoggedIn = loggedIn == "true"

	if st.UserID, _, err = c.store.Get(ctx, KeyUserID); err != nil {
		return st, err
	}
	if st.UserEmail, _, err = c.store.Get(ctx, KeyUserEmail); err != nil {
		return st, err
	}
	active, _, err := c.store.Get(ctx, KeyActiveConversationID)
	if err != nil {
		return st, err
	}
	st.ActiveConversationID = model.NormalizeID(active)
	return st, nil
}

// SetUser records a successful login or signup. A blank userID removes the
// key so a previous user's id never outlives the new login.
func (c *Context) SetUser(ctx context.Context, userID, email string) error {
	if err := c.store.Set(ctx, KeyIsLoggedIn, "true"); err != nil {
		return err
	}
	if err := c.store.Set(ctx, KeyUserEmail, email); err != nil {
		return err
	}
	if userID == "" {
		return c.store.Remove(ctx, KeyUserID)
	}
	return c.store.Set(ctx, KeyUserID, userID)
}

// SetActiveConversation persists the open conversation id. A blank id removes
// the key instead.
func (c *Context) SetActiveConversation(ctx context.Context, id string) error {
	id = model.NormalizeID(id)
	if id == "" {
		return c.store.Remove(ctx, KeyActiveConversationID)
	}
	return c.store.Set(ctx, KeyActiveConversationID, id)
}

// ClearActiveConversation removes the open conversation id.
func (c *Context) ClearActiveConversation(ctx context.Context) error {
	return c.store.Remove(ctx, KeyActiveConversationID)
}

// Logout empties the store.
func (c *Context) Logout(ctx context.Context) error {
	return c.store.Clear(ctx)
}
