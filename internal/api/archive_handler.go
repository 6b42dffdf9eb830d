package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ArchiveHandler serves archiving and deleting conversations, from the
// sidebar and from the archived-chats modal.
type ArchiveHandler struct{}

func NewArchiveHandler() *ArchiveHandler {
	return &ArchiveHandler{}
}

// GetArchived godoc
// @Summary      List archived conversations
// @Tags         Archive
// @Produce      json
// @Success      200  {array}   model.ArchivedSummary
// @Failure      502  {object}  ErrorResponse
// @Router       /v1/archive [get]
func (h *ArchiveHandler) GetArchived(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	rows, err := ws.ListArchived(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rows)
}

// HandleArchiveChat godoc
// @Summary      Archive a conversation
// @Description  Moves the conversation to Archived Chats. Archiving the open conversation starts a new chat.
// @Tags         Archive
// @Produce      json
// @Param        chatID  path  string  true  "Conversation ID"
// @Success      200     {object}  service.State
// @Failure      404     {object}  ErrorResponse
// @Router       /v1/chats/{chatID}/archive [post]
func (h *ArchiveHandler) HandleArchiveChat(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if err := ws.ArchiveChat(r.Context(), chi.URLParam(r, "chatID")); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ws.Chat.Snapshot())
}

// HandleDeleteChat godoc
// @Summary      Delete a conversation
// @Description  Permanently deletes the conversation. Deleting the open conversation starts a new chat.
// @Tags         Archive
// @Produce      json
// @Param        chatID  path  string  true  "Conversation ID"
// @Success      200     {object}  service.State
// @Failure      404     {object}  ErrorResponse
// @Router       /v1/chats/{chatID} [delete]
func (h *ArchiveHandler) HandleDeleteChat(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if err := ws.DeleteChat(r.Context(), chi.URLParam(r, "chatID")); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ws.Chat.Snapshot())
}

// HandleUnarchiveChat godoc
// @Summary      Unarchive a conversation
// @Tags         Archive
// @Produce      json
// @Param        chatID  path  string  true  "Conversation ID"
// @Success      200     {object}  StatusResponse
// @Failure      404     {object}  ErrorResponse
// @Router       /v1/archive/{chatID}/unarchive [post]
func (h *ArchiveHandler) HandleUnarchiveChat(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if _, err := ws.UnarchiveMany(r.Context(), []string{chi.URLParam(r, "chatID")}); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// HandleUnarchiveMany godoc
// @Summary      Unarchive selected conversations
// @Description  Restores the ids one by one and stops at the first failure.
// @Tags         Archive
// @Accept       json
// @Produce      json
// @Param        ids  body  IDsRequest  true  "Conversation IDs"
// @Success      200  {object}  BulkResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      502  {object}  BulkResponse
// @Router       /v1/archive/unarchive [post]
func (h *ArchiveHandler) HandleUnarchiveMany(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	var req IDsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	n, err := ws.UnarchiveMany(r.Context(), req.IDs)
	respondBulk(w, n, err, "Failed to unarchive selected chats.")
}

// HandleDeleteMany godoc
// @Summary      Delete selected conversations
// @Description  Deletes the ids one by one and stops at the first failure.
// @Tags         Archive
// @Accept       json
// @Produce      json
// @Param        ids  body  IDsRequest  true  "Conversation IDs"
// @Success      200  {object}  BulkResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      502  {object}  BulkResponse
// @Router       /v1/archive/delete [post]
func (h *ArchiveHandler) HandleDeleteMany(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	var req IDsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	n, err := ws.DeleteMany(r.Context(), req.IDs)
	respondBulk(w, n, err, "Failed to delete selected chats.")
}

func respondBulk(w http.ResponseWriter, done int, err error, failure string) {
	if err == nil {
		respondWithJSON(w, http.StatusOK, BulkResponse{Done: done})
		return
	}
	code, _ := statusFor(err)
	respondWithJSON(w, code, BulkResponse{Done: done, Error: failure})
}
