package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"chatbox/web/internal/backend"
	app_errors "chatbox/web/internal/errors"
	"chatbox/web/internal/model"
	"chatbox/web/internal/session"
)

// Bubble texts shown by the coordinator.
const (
	EmptyReply          = "(Empty reply)"
	TimeoutBubble       = "⚠️ Timed out. Server took too long."
	RequestFailedBubble = "⚠️ Request failed."
	GuestNotice         = "⚠️ You're chatting as a guest, so this conversation won't be saved. Log in to keep your history."
	OpenFailedBubble    = "⚠️ Failed to open this conversation. A new chat will start."
)

// State is the observable chat state handed to the presentation layer.
type State struct {
	Messages             model.Transcript            `json:"messages"`
	Sending              bool                        `json:"sending"`
	Chats                []model.ConversationSummary `json:"chats"`
	EditingIndex         *int                        `json:"editingIndex"`
	EditingText          string                      `json:"editingText"`
	ActiveConversationID string                      `json:"activeConversationId,omitempty"`
}

// CoordinatorOptions tunes a Coordinator.
type CoordinatorOptions struct {
	// Greeting is the first bubble of a fresh chat.
	Greeting string
	// OnChange is called, outside any lock, after every state change.
	OnChange func()
	Logger   *slog.Logger
}

// request is the per-send baseline used for staleness checks.
type request struct {
	token       uint64
	convoAtSend string
	text        string
}

// inflight is the abort handle of the running completion call.
type inflight struct {
	token  uint64
	cancel context.CancelFunc
}

// Coordinator drives "user sends a message" → "assistant replies" → "turn is
// saved" for one chat panel. All state lives behind mu; network calls run on
// goroutines and re-check the request token, the sending flag and the active
// conversation when they resume.
type Coordinator struct {
	chat     backend.ChatCompleter
	store    backend.ConversationStore
	session  *session.Context
	greeting string
	onChange func()
	log      *slog.Logger

	baseCtx context.Context
	stopAll context.CancelFunc
	wg      sync.WaitGroup

	mu                   sync.Mutex
	messages             model.Transcript
	sending              bool
	activeConversationID string
	requestToken         uint64
	inflight             *inflight
	editingIndex         int
	editingText          string
	editingOriginal      string
	chats                []model.ConversationSummary
	guestNoticeShown     bool
}

// NewCoordinator builds a coordinator and reads the active conversation id from
// the session store.
func NewCoordinator(ctx context.Context, chat backend.ChatCompleter, store backend.ConversationStore, sess *session.Context, opts CoordinatorOptions) (*Coordinator, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	baseCtx, stopAll := context.WithCancel(context.WithoutCancel(ctx))
	c := &Coordinator{
		chat:         chat,
		store:        store,
		session:      sess,
		greeting:     opts.Greeting,
		onChange:     opts.OnChange,
		log:          logger.With("component", "coordinator"),
		baseCtx:      baseCtx,
		stopAll:      stopAll,
		messages:     model.NewTranscript(opts.Greeting),
		editingIndex: -1,
	}

	st, err := sess.Load(ctx)
	if err != nil {
		stopAll()
		return nil, fmt.Errorf("could not load session: %w", err)
	}
	c.activeConversationID = st.ActiveConversationID
	return c, nil
}

// Restore reopens the conversation remembered by the session store, if any.
func (c *Coordinator) Restore(ctx context.Context) error {
	c.mu.Lock()
	id := c.activeConversationID
	c.mu.Unlock()
	if id == "" {
		return nil
	}
	return c.OpenChat(ctx, id)
}

// Snapshot returns the observable state.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := State{
		Messages:             c.messages,
		Sending:              c.sending,
		Chats:                c.chats,
		EditingText:          c.editingText,
		ActiveConversationID: c.activeConversationID,
	}
	if c.editingIndex >= 0 {
		idx := c.editingIndex
		st.EditingIndex = &idx
	}
	if st.Chats == nil {
		st.Chats = []model.ConversationSummary{}
	}
	return st
}

// ActiveConversationID returns the id the next turn will be saved to, or "".
func (c *Coordinator) ActiveConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeConversationID
}

// Submit is the input box's submit intent: it resends an edit when one is in
// progress and sends a new message otherwise. While editing, text replaces the
// working copy, so blank text leaves the transcript untouched.
func (c *Coordinator) Submit(text string) bool {
	c.mu.Lock()
	editing := c.editingIndex >= 0
	if editing {
		c.editingText = text
	}
	c.mu.Unlock()

	if editing {
		return c.SaveEditAndResend()
	}
	return c.SendMessage(text)
}

// SendMessage appends the user's message and starts the completion request.
// Blank text or a request already in flight make it a no-op that returns false.
func (c *Coordinator) SendMessage(text string) bool {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if text == "" || c.sending {
		c.mu.Unlock()
		return false
	}
	c.messages = c.messages.Append(model.Message{Role: model.RoleUser, Text: text})
	c.dispatchLocked(text)
	c.mu.Unlock()

	c.notify()
	return true
}

// dispatchLocked advances the token and starts the completion goroutine.
func (c *Coordinator) dispatchLocked(text string) {
	c.requestToken++
	req := request{token: c.requestToken, convoAtSend: c.activeConversationID, text: text}
	c.sending = true

	ctx, cancel := context.WithCancel(c.baseCtx)
	c.inflight = &inflight{token: req.token, cancel: cancel}

	c.wg.Add(1)
	go c.run(ctx, cancel, req)
}

func (c *Coordinator) run(ctx context.Context, cancel context.CancelFunc, req request) {
	defer c.wg.Done()
	defer cancel()

	st, err := c.session.Load(ctx)
	if err != nil {
		c.log.Warn("Could not read session before sending, continuing as guest", "error", err)
		st = session.State{}
	}

	chatReq := &backend.ChatRequest{Message: req.text, ConversationID: req.convoAtSend}
	if st.CanSave() {
		chatReq.UserID = st.UserID
	}

	c.log.Debug("Sending chat message", "token", req.token, "conversation_id", req.convoAtSend)
	resp, err := c.chat.Complete(ctx, chatReq)
	if err != nil {
		c.fail(req, err, st.CanSave())
		return
	}

	reply := EmptyReply
	if resp != nil {
		if r := strings.TrimSpace(resp.Reply); r != "" {
			reply = r
		}
	}

	// Re-read the session: the user may have logged in or out while waiting.
	st, err = c.session.Load(c.baseCtx)
	if err != nil {
		c.log.Warn("Could not read session after reply, turn will not be saved", "error", err)
		st = session.State{}
	}

	c.mu.Lock()
	if c.isStaleLocked(req) {
		c.releaseLocked(req)
		c.mu.Unlock()
		c.log.Debug("Discarding stale reply", "token", req.token, "outcome", model.OutcomeStale)
		c.notify()
		return
	}
	c.messages = c.messages.Append(model.Message{Role: model.RoleAI, Text: reply})
	if c.inflight != nil && c.inflight.token == req.token {
		c.inflight = nil
	}
	canSave := st.CanSave()
	if !canSave {
		c.guestNoticeLocked()
	}
	c.mu.Unlock()
	c.notify()

	if canSave {
		c.save(ctx, req, st.UserID, reply)
	}

	c.mu.Lock()
	if c.requestToken == req.token {
		c.sending = false
	}
	c.mu.Unlock()
	c.log.Debug("Chat request finished", "token", req.token, "outcome", model.OutcomeDelivered)
	c.notify()
}

// save writes the turn through to the conversation store. Failures and
// staleness are logged and never touch the visible transcript.
func (c *Coordinator) save(ctx context.Context, req request, userID, reply string) {
	saveCtx := context.WithoutCancel(ctx)

	c.mu.Lock()
	stale := c.requestToken != req.token || c.activeConversationID != req.convoAtSend
	convoID := c.activeConversationID
	c.mu.Unlock()
	if stale {
		c.log.Info("Skipping save, request is no longer current", "token", req.token)
		return
	}

	if convoID != "" {
		if _, err := c.store.AddTurn(saveCtx, convoID, &backend.AddTurnRequest{UserMessage: req.text, BotResponse: reply}); err != nil {
			c.log.Warn("Failed to save turn, continuing unsaved", "conversation_id", convoID, "error", err)
		}
		return
	}

	convo, err := c.store.CreateConversation(saveCtx, &backend.CreateConversationRequest{
		UserID:           userID,
		FirstUserMessage: req.text,
		FirstBotResponse: reply,
	})
	if err != nil {
		c.log.Warn("Failed to create conversation, continuing unsaved", "error", err)
		return
	}
	if convo == nil {
		c.log.Warn("Backend returned no conversation after create")
		return
	}
	newID, ok := model.ExtractID(convo.Record)
	if !ok {
		c.log.Warn("Created conversation has no recognizable id")
		return
	}

	c.mu.Lock()
	if c.requestToken != req.token || c.activeConversationID != req.convoAtSend {
		c.mu.Unlock()
		c.log.Info("Not adopting created conversation, chat moved on", "conversation_id", newID)
		return
	}
	c.activeConversationID = newID
	c.mu.Unlock()
	c.log.Info("Created conversation", "conversation_id", newID)

	if err := c.session.SetActiveConversation(saveCtx, newID); err != nil {
		c.log.Warn("Could not persist active conversation", "conversation_id", newID, "error", err)
	}
	if err := c.RefreshChats(saveCtx); err != nil {
		c.log.Warn("Could not refresh chat list", "error", err)
	}
}

// guestNoticeLocked appends the unsaved-chat notice the first time a guest
// send completes, whether it got a reply or an error.
func (c *Coordinator) guestNoticeLocked() {
	if c.guestNoticeShown {
		return
	}
	c.guestNoticeShown = true
	c.messages = c.messages.Append(model.Message{Role: model.RoleAI, Text: GuestNotice})
}

// fail turns a completion error into an error bubble unless the request went
// stale, in which case it is dropped silently.
func (c *Coordinator) fail(req request, err error, canSave bool) {
	c.mu.Lock()
	if c.isStaleLocked(req) {
		c.releaseLocked(req)
		c.mu.Unlock()
		c.log.Debug("Dropping error from stale request", "token", req.token, "outcome", model.OutcomeCancelled, "error", err)
		c.notify()
		return
	}
	c.messages = c.messages.Append(model.Message{Role: model.RoleAI, Text: FailureText(err)})
	if !canSave {
		c.guestNoticeLocked()
	}
	c.sending = false
	c.inflight = nil
	c.mu.Unlock()

	c.log.Warn("Chat request failed", "token", req.token, "outcome", model.OutcomeFailed, "error", err)
	c.notify()
}

func (c *Coordinator) isStaleLocked(req request) bool {
	return !c.sending || c.requestToken != req.token || c.activeConversationID != req.convoAtSend
}

// releaseLocked clears sending for a stale request that still owns the token,
// which happens when the conversation was switched under it.
func (c *Coordinator) releaseLocked(req request) {
	if c.requestToken != req.token {
		return
	}
	c.sending = false
	if c.inflight != nil && c.inflight.token == req.token {
		c.inflight = nil
	}
}

// FailureText is the bubble shown for a failed completion.
func FailureText(err error) string {
	switch backend.Classify(err) {
	case model.FailureTimeout:
		return TimeoutBubble
	case model.FailureHTTP:
		code := backend.StatusCode(err)
		return fmt.Sprintf("⚠️ HTTP %d: %s", code, http.StatusText(code))
	}
	return RequestFailedBubble
}

// StopGeneration aborts the in-flight completion. Any reply that still arrives
// is ignored. With openEdit set, the last user message is put into edit mode
// unless an edit is already in progress.
func (c *Coordinator) StopGeneration(openEdit bool) {
	c.mu.Lock()
	c.stopLocked()
	if openEdit && c.editingIndex < 0 {
		if idx := c.messages.LastIndexOf(model.RoleUser); idx >= 0 {
			c.enterEditLocked(idx)
		}
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Coordinator) stopLocked() {
	if c.inflight != nil {
		c.inflight.cancel()
		c.inflight = nil
	}
	c.requestToken++
	c.sending = false
}

// StartEditUserMessage puts the user message at index into edit mode.
func (c *Coordinator) StartEditUserMessage(index int) bool {
	c.mu.Lock()
	if c.editingIndex == index {
		c.mu.Unlock()
		return true
	}
	if c.editingIndex >= 0 || index < 0 || index >= len(c.messages) || c.messages[index].Role != model.RoleUser {
		c.mu.Unlock()
		return false
	}
	if c.sending {
		c.stopLocked()
	}
	c.enterEditLocked(index)
	c.mu.Unlock()

	c.notify()
	return true
}

func (c *Coordinator) enterEditLocked(index int) {
	c.editingIndex = index
	c.editingOriginal = c.messages[index].Text
	c.editingText = c.editingOriginal
}

func (c *Coordinator) exitEditLocked() {
	c.editingIndex = -1
	c.editingText = ""
	c.editingOriginal = ""
}

// UpdateEditText replaces the working copy of the message being edited.
func (c *Coordinator) UpdateEditText(text string) bool {
	c.mu.Lock()
	if c.editingIndex < 0 {
		c.mu.Unlock()
		return false
	}
	c.editingText = text
	c.mu.Unlock()
	c.notify()
	return true
}

// CancelEdit leaves edit mode without changing the transcript.
func (c *Coordinator) CancelEdit() {
	c.mu.Lock()
	c.exitEditLocked()
	c.mu.Unlock()
	c.notify()
}

// SaveEditAndResend discards everything after the edited message, replaces its
// text and runs the send pipeline again with the edited text.
func (c *Coordinator) SaveEditAndResend() bool {
	c.mu.Lock()
	if c.editingIndex < 0 {
		c.mu.Unlock()
		return false
	}
	text := strings.TrimSpace(c.editingText)
	if text == "" {
		c.mu.Unlock()
		return false
	}
	if c.sending {
		c.stopLocked()
	}
	idx := c.editingIndex
	c.messages = c.messages.TruncateAfter(idx).Replace(idx, text)
	c.exitEditLocked()
	c.dispatchLocked(text)
	c.mu.Unlock()

	c.notify()
	return true
}

// OpenChat switches the panel to an existing conversation. In-progress work is
// abandoned first. When the fetch fails the chat falls back to a new
// conversation and a warning bubble explains why.
func (c *Coordinator) OpenChat(ctx context.Context, chatID string) error {
	id := model.NormalizeID(chatID)
	if id == "" {
		return fmt.Errorf("%w: conversation id is required", app_errors.ErrValidation)
	}

	c.mu.Lock()
	c.stopLocked()
	c.exitEditLocked()
	token := c.requestToken
	c.mu.Unlock()
	c.notify()

	convo, fetchErr := c.store.GetConversation(ctx, id)

	st, err := c.session.Load(ctx)
	if err != nil {
		c.log.Warn("Could not read session while opening chat", "error", err)
	}

	c.mu.Lock()
	if c.requestToken != token {
		c.mu.Unlock()
		c.log.Debug("Ignoring superseded open", "conversation_id", id)
		return nil
	}
	if fetchErr == nil && convo == nil {
		fetchErr = fmt.Errorf("%w: empty conversation response", app_errors.ErrNotFound)
	}
	if fetchErr != nil {
		c.activeConversationID = ""
		c.messages = c.messages.Append(model.Message{Role: model.RoleAI, Text: OpenFailedBubble})
		c.mu.Unlock()

		if err := c.session.ClearActiveConversation(ctx); err != nil {
			c.log.Warn("Could not clear active conversation", "error", err)
		}
		c.log.Warn("Failed to open conversation", "conversation_id", id, "error", fetchErr)
		c.notify()
		return fmt.Errorf("open conversation %s: %w", id, fetchErr)
	}

	resolved, ok := model.ExtractID(convo.Record)
	if !ok {
		resolved = id
	}
	c.messages = model.FromTurns(convo.Turns())
	c.activeConversationID = resolved
	c.mu.Unlock()

	if st.IsLoggedIn {
		if err := c.session.SetActiveConversation(ctx, resolved); err != nil {
			c.log.Warn("Could not persist active conversation", "conversation_id", resolved, "error", err)
		}
	}
	c.notify()
	return nil
}

// StartNewChat abandons in-progress work and resets the panel to the greeting.
// The next send creates a fresh conversation.
func (c *Coordinator) StartNewChat() {
	c.mu.Lock()
	c.stopLocked()
	c.exitEditLocked()
	c.messages = model.NewTranscript(c.greeting)
	c.activeConversationID = ""
	c.mu.Unlock()

	if err := c.session.ClearActiveConversation(c.baseCtx); err != nil {
		c.log.Warn("Could not clear active conversation", "error", err)
	}
	c.notify()
}

// Reset is StartNewChat for a logout: the sidebar is emptied and the guest
// notice may be shown again.
func (c *Coordinator) Reset() {
	c.StartNewChat()
	c.mu.Lock()
	c.chats = nil
	c.guestNoticeShown = false
	c.mu.Unlock()
	c.notify()
}

// RefreshChats reloads the sidebar with the user's non-archived conversations.
// Guests get an empty list.
func (c *Coordinator) RefreshChats(ctx context.Context) error {
	st, err := c.session.Load(ctx)
	if err != nil {
		return fmt.Errorf("could not load session: %w", err)
	}
	if !st.CanSave() {
		c.mu.Lock()
		c.chats = nil
		c.mu.Unlock()
		c.notify()
		return nil
	}

	list, err := c.store.GetByUser(ctx, st.UserID)
	if err != nil {
		return err
	}
	chats := make([]model.ConversationSummary, 0, len(list))
	for _, convo := range list {
		if convo.Archived() {
			continue
		}
		if s, ok := convo.Summary(); ok {
			chats = append(chats, s)
		}
	}

	c.mu.Lock()
	c.chats = chats
	c.mu.Unlock()
	c.notify()
	return nil
}

// Wait blocks until every started request has finished, including its save.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close abandons in-flight work and waits for the goroutines to exit.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.stopLocked()
	c.mu.Unlock()
	c.stopAll()
	c.wg.Wait()
}

func (c *Coordinator) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}
