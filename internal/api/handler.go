package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	app_errors "chatbox/web/internal/errors"
	"chatbox/web/internal/export"
	"chatbox/web/internal/service"
)

// ChatHandler serves the chat panel: state, submit, stop, edit and the
// sidebar's open/new/export actions. The workspace comes from the session
// middleware.
type ChatHandler struct {
	now func() time.Time
}

func NewChatHandler() *ChatHandler {
	return &ChatHandler{now: time.Now}
}

// waitIfAsked blocks until the workspace's requests settle when the caller
// passed ?wait=true, or until the client goes away.
func waitIfAsked(r *http.Request, ws *service.Workspace) {
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); !wait {
		return
	}
	done := make(chan struct{})
	go func() {
		ws.Chat.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-r.Context().Done():
	}
}

// GetState godoc
// @Summary      Get chat state
// @Description  Returns the transcript, the sending flag, the sidebar list and the edit state.
// @Tags         Chat
// @Produce      json
// @Success      200  {object}  service.State
// @Router       /v1/state [get]
func (h *ChatHandler) GetState(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ws.Chat.Snapshot())
}

// HandleSubmit godoc
// @Summary      Submit the input box
// @Description  Sends a new message, or resends the message being edited. Blank text or a request already in flight is a no-op reported as accepted=false.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        wait     query  bool           false  "Block until the reply has been handled"
// @Param        message  body   SubmitRequest  true   "Message text"
// @Success      200      {object}  SubmitResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      429      {object}  ErrorResponse
// @Router       /v1/messages [post]
func (h *ChatHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	var req SubmitRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	accepted := ws.Chat.Submit(req.Text)
	if accepted {
		waitIfAsked(r, ws)
	}
	respondWithJSON(w, http.StatusOK, SubmitResponse{Accepted: accepted, State: ws.Chat.Snapshot()})
}

// HandleStop godoc
// @Summary      Stop generation
// @Description  Aborts the in-flight request. With openEdit the last user message is put into edit mode.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        stop  body  StopRequest  false  "Stop options"
// @Success      200   {object}  service.State
// @Router       /v1/stop [post]
func (h *ChatHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	var req StopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, fmt.Errorf("%w: invalid request payload", app_errors.ErrValidation))
		return
	}
	ws.Chat.StopGeneration(req.OpenEdit)
	respondWithJSON(w, http.StatusOK, ws.Chat.Snapshot())
}

// HandleStartEdit godoc
// @Summary      Edit a user message
// @Description  Puts the user message at index into edit mode, stopping any in-flight request first.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        edit  body  StartEditRequest  true  "Message index"
// @Success      200   {object}  service.State
// @Failure      400   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /v1/edit [post]
func (h *ChatHandler) HandleStartEdit(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	var req StartEditRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	if !ws.Chat.StartEditUserMessage(*req.Index) {
		respondWithError(w, errConflict("message %d cannot be edited right now", *req.Index))
		return
	}
	respondWithJSON(w, http.StatusOK, ws.Chat.Snapshot())
}

// HandleUpdateEdit godoc
// @Summary      Update the edit text
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        edit  body  EditTextRequest  true  "Working copy"
// @Success      200   {object}  service.State
// @Failure      409   {object}  ErrorResponse
// @Router       /v1/edit [put]
func (h *ChatHandler) HandleUpdateEdit(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	var req EditTextRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	if !ws.Chat.UpdateEditText(req.Text) {
		respondWithError(w, errConflict("no message is being edited"))
		return
	}
	respondWithJSON(w, http.StatusOK, ws.Chat.Snapshot())
}

// HandleCancelEdit godoc
// @Summary      Cancel editing
// @Tags         Chat
// @Produce      json
// @Success      200  {object}  service.State
// @Router       /v1/edit [delete]
func (h *ChatHandler) HandleCancelEdit(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	ws.Chat.CancelEdit()
	respondWithJSON(w, http.StatusOK, ws.Chat.Snapshot())
}

// HandleResendEdit godoc
// @Summary      Save the edit and resend
// @Description  Discards every message after the edited one and sends the edited text again.
// @Tags         Chat
// @Produce      json
// @Param        wait  query  bool  false  "Block until the reply has been handled"
// @Success      200   {object}  SubmitResponse
// @Router       /v1/edit/resend [post]
func (h *ChatHandler) HandleResendEdit(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	accepted := ws.Chat.SaveEditAndResend()
	if accepted {
		waitIfAsked(r, ws)
	}
	respondWithJSON(w, http.StatusOK, SubmitResponse{Accepted: accepted, State: ws.Chat.Snapshot()})
}

// GetChats godoc
// @Summary      List conversations
// @Description  Reloads the sidebar with the signed-in user's non-archived conversations.
// @Tags         Chats
// @Produce      json
// @Success      200  {array}   model.ConversationSummary
// @Failure      502  {object}  ErrorResponse
// @Router       /v1/chats [get]
func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if err := ws.Chat.RefreshChats(r.Context()); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ws.Chat.Snapshot().Chats)
}

// HandleNewChat godoc
// @Summary      Start a new chat
// @Tags         Chats
// @Produce      json
// @Success      200  {object}  service.State
// @Router       /v1/chats/new [post]
func (h *ChatHandler) HandleNewChat(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	ws.Chat.StartNewChat()
	respondWithJSON(w, http.StatusOK, ws.Chat.Snapshot())
}

// HandleOpenChat godoc
// @Summary      Open a conversation
// @Description  Replaces the transcript with the stored conversation. When it cannot be loaded the chat starts over with a warning bubble, still answered with 200.
// @Tags         Chats
// @Produce      json
// @Param        chatID  path  string  true  "Conversation ID"
// @Success      200     {object}  service.State
// @Failure      400     {object}  ErrorResponse
// @Router       /v1/chats/{chatID}/open [post]
func (h *ChatHandler) HandleOpenChat(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if err := ws.Chat.OpenChat(r.Context(), chi.URLParam(r, "chatID")); err != nil && errors.Is(err, app_errors.ErrValidation) {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ws.Chat.Snapshot())
}

// HandleExportCurrent godoc
// @Summary      Export the open chat
// @Tags         Export
// @Produce      application/pdf
// @Produce      plain
// @Param        format  query  string  false  "pdf (default) or txt"
// @Success      200
// @Failure      400  {object}  ErrorResponse
// @Router       /v1/export [get]
func (h *ChatHandler) HandleExportCurrent(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "")
}

// HandleExportChat godoc
// @Summary      Export a stored conversation
// @Tags         Export
// @Produce      application/pdf
// @Produce      plain
// @Param        chatID  path   string  true   "Conversation ID"
// @Param        format  query  string  false  "pdf (default) or txt"
// @Success      200
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /v1/chats/{chatID}/export [get]
func (h *ChatHandler) HandleExportChat(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, chi.URLParam(r, "chatID"))
}

func (h *ChatHandler) export(w http.ResponseWriter, r *http.Request, chatID string) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	title, msgs, err := ws.Transcript(r.Context(), chatID)
	if err != nil {
		respondWithError(w, err)
		return
	}

	now := h.now()
	var buf bytes.Buffer
	if err := export.Write(&buf, format, export.Document{Title: title, Messages: msgs, ExportedAt: now}); err != nil {
		respondWithError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(format, now)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
