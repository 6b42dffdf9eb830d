package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app_errors "chatbox/web/internal/errors"
	"chatbox/web/internal/model"
)

// TestConversationClient runs every conversation endpoint against an httptest
// stand-in for the REST backend and checks method, path and payload.
func TestConversationClient(t *testing.T) {
	var capturedMethod, capturedPath string
	var capturedBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedMethod = r.Method
		capturedPath = r.URL.Path
		capturedBody = nil
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&capturedBody)
		}

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/conversations/by-user/u1":
			_, err := w.Write([]byte(`[{"_id":"a","title":"First"},{"conversationId":"b"}]`))
			assert.NoError(t, err)
		case r.URL.Path == "/api/conversations/missing":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			_, err := w.Write([]byte(`{"id":"c1","archived":true}`))
			assert.NoError(t, err)
		}
	}))
	defer server.Close()

	client := NewConversationClient(NewClient(server.URL + "/"))
	ctx := context.Background()

	t.Run("GetByUser", func(t *testing.T) {
		list, err := client.GetByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		id, _ := model.ExtractID(list[1].Record)
		assert.Equal(t, "b", id)
		assert.Equal(t, http.MethodGet, capturedMethod)
	})

	t.Run("CreateConversation", func(t *testing.T) {
		convo, err := client.CreateConversation(ctx, &CreateConversationRequest{UserID: "u1", FirstUserMessage: "first", FirstBotResponse: "reply1"})
		require.NoError(t, err)
		id, _ := model.ExtractID(convo.Record)
		assert.Equal(t, "c1", id)
		assert.Equal(t, http.MethodPost, capturedMethod)
		assert.Equal(t, "/api/conversations", capturedPath)
		assert.Equal(t, "first", capturedBody["firstUserMessage"])
		assert.Equal(t, "reply1", capturedBody["firstBotResponse"])
	})

	t.Run("AddTurn", func(t *testing.T) {
		_, err := client.AddTurn(ctx, "c1", &AddTurnRequest{UserMessage: "next", BotResponse: "ok"})
		require.NoError(t, err)
		assert.Equal(t, "/api/conversations/c1/turns", capturedPath)
		assert.Equal(t, "next", capturedBody["userMessage"])
	})

	t.Run("Archive and Unarchive", func(t *testing.T) {
		_, err := client.ArchiveConversation(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, http.MethodPatch, capturedMethod)
		assert.Equal(t, "/api/conversations/c1/archive", capturedPath)

		_, err = client.UnarchiveConversation(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "/api/conversations/c1/unarchive", capturedPath)
	})

	t.Run("DeleteConversation", func(t *testing.T) {
		require.NoError(t, client.DeleteConversation(ctx, "c1"))
		assert.Equal(t, http.MethodDelete, capturedMethod)
	})

	t.Run("GetConversation not found", func(t *testing.T) {
		_, err := client.GetConversation(ctx, "missing")
		require.Error(t, err)
		assert.Equal(t, 404, StatusCode(err))
		assert.True(t, errors.Is(err, app_errors.ErrNotFound))
		assert.Equal(t, model.FailureHTTP, Classify(err))
	})
}

func TestChatClient(t *testing.T) {
	t.Run("Reply", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/chat", r.URL.Path)
			var body ChatRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "hello", body.Message)
			_, _ = w.Write([]byte(`{"reply":"hi there"}`))
		}))
		defer server.Close()

		resp, err := NewChatClient(NewClient(server.URL)).Complete(context.Background(), &ChatRequest{Message: "hello"})
		require.NoError(t, err)
		assert.Equal(t, "hi there", resp.Reply)
	})

	t.Run("Missing reply field", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		resp, err := NewChatClient(NewClient(server.URL)).Complete(context.Background(), &ChatRequest{Message: "hello"})
		require.NoError(t, err)
		assert.Empty(t, resp.Reply)
	})

	t.Run("Server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := NewChatClient(NewClient(server.URL)).Complete(context.Background(), &ChatRequest{Message: "hello"})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadGateway, StatusCode(err))
		assert.True(t, errors.Is(err, app_errors.ErrUpstream))
	})

	t.Run("Timeout", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))
		defer server.Close()
		defer close(release)

		client := NewChatClient(NewClient(server.URL, WithTimeout(50*time.Millisecond)))
		_, err := client.Complete(context.Background(), &ChatRequest{Message: "slow"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTimeout))
		assert.Equal(t, model.FailureTimeout, Classify(err))
	})

	t.Run("Caller cancellation is not a timeout", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))
		defer server.Close()
		defer close(release)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		_, err := NewChatClient(NewClient(server.URL)).Complete(ctx, &ChatRequest{Message: "stop me"})
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrTimeout))
		assert.Equal(t, model.FailureGeneric, Classify(err))
	})
}

func TestAuthClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			_, _ = w.Write([]byte(`{"_id":"u9","email":"me@example.com"}`))
		default:
			w.WriteHeader(http.StatusConflict)
		}
	}))
	defer server.Close()

	client := NewAuthClient(NewClient(server.URL))

	rec, err := client.Login(context.Background(), &Credentials{Email: "me@example.com", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "u9", rec.String("_id"))

	_, err = client.Signup(context.Background(), &SignupRequest{Email: "me@example.com", Password: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, app_errors.ErrConflict))
}
