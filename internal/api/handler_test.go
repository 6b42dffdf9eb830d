package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"chatbox/web/internal/api"
	"chatbox/web/internal/backend"
	backendmocks "chatbox/web/internal/backend/mocks"
	app_errors "chatbox/web/internal/errors"
	"chatbox/web/internal/interfaces/mocks"
	"chatbox/web/internal/model"
	"chatbox/web/internal/service"
	"chatbox/web/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	greeting  = "Hi! Ask me anything."
	sessionID = "5f0c8a4e-3a5e-4a63-9b8f-1a0c7d1e2f30"
)

var loggedIn = map[string]string{
	session.KeyIsLoggedIn: "true",
	session.KeyUserID:     "u1",
	session.KeyUserEmail:  "me@example.com",
}

type fixture struct {
	router   http.Handler
	ws       *service.Workspace
	provider *mocks.MockWorkspaceProvider
	chat     *backendmocks.MockChatCompleter
	convos   *backendmocks.MockConversationStore
	auth     *backendmocks.MockAuthenticator
}

// setupRouter builds a real workspace over mocked backend clients and mounts
// it behind the full router. expect runs before the workspace restores.
func setupRouter(t *testing.T, seed map[string]string, opts api.RouterOptions, expect func(f *fixture)) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		provider: mocks.NewMockWorkspaceProvider(t),
		chat:     backendmocks.NewMockChatCompleter(t),
		convos:   backendmocks.NewMockConversationStore(t),
		auth:     backendmocks.NewMockAuthenticator(t),
	}
	store := session.NewMemoryStore()
	for k, v := range seed {
		require.NoError(t, store.Set(ctx, k, v))
	}
	if expect != nil {
		expect(f)
	}

	ws, err := service.NewWorkspace(ctx, sessionID, store, service.WorkspaceDeps{
		Chat:          f.chat,
		Conversations: f.convos,
		Auth:          f.auth,
		Greeting:      greeting,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(ws.Close)
	f.ws = ws

	f.provider.On("Get", mock.Anything, mock.AnythingOfType("string")).Return(ws, nil).Maybe()
	f.router = api.NewRouter(f.provider, api.NewHandlers(), opts)
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.AddCookie(&http.Cookie{Name: api.SessionCookieName, Value: sessionID})
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestSessionMiddleware(t *testing.T) {
	t.Run("IssuesCookieWhenMissing", func(t *testing.T) {
		f := setupRouter(t, nil, api.RouterOptions{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, api.SessionCookieName, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
		assert.NotEqual(t, sessionID, cookies[0].Value)
		f.provider.AssertCalled(t, "Get", mock.Anything, cookies[0].Value)
	})

	t.Run("ReusesValidCookie", func(t *testing.T) {
		f := setupRouter(t, nil, api.RouterOptions{}, nil)

		rr := f.do(t, http.MethodGet, "/api/v1/state", "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, rr.Result().Cookies())
		f.provider.AssertCalled(t, "Get", mock.Anything, sessionID)

		st := decode[service.State](t, rr)
		assert.Equal(t, model.Transcript{{Role: model.RoleAI, Text: greeting}}, st.Messages)
		assert.False(t, st.Sending)
	})

	t.Run("ProviderFailure", func(t *testing.T) {
		provider := mocks.NewMockWorkspaceProvider(t)
		provider.On("Get", mock.Anything, sessionID).Return(nil, app_errors.ErrInternal).Once()
		router := api.NewRouter(provider, api.NewHandlers(), api.RouterOptions{})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
		req.AddCookie(&http.Cookie{Name: api.SessionCookieName, Value: sessionID})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestHealthz(t *testing.T) {
	router := api.NewRouter(mocks.NewMockWorkspaceProvider(t), api.NewHandlers(), api.RouterOptions{})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestChatHandler_HandleSubmit(t *testing.T) {
	t.Run("GuestWaitsForReply", func(t *testing.T) {
		f := setupRouter(t, nil, api.RouterOptions{}, func(f *fixture) {
			f.chat.On("Complete", mock.Anything, &backend.ChatRequest{Message: "Hello"}).
				Return(&backend.ChatResponse{Reply: "Hi there"}, nil).Once()
		})

		rr := f.do(t, http.MethodPost, "/api/v1/messages?wait=true", `{"text":"  Hello  "}`)

		require.Equal(t, http.StatusOK, rr.Code)
		resp := decode[api.SubmitResponse](t, rr)
		assert.True(t, resp.Accepted)
		assert.False(t, resp.State.Sending)
		assert.Equal(t, model.Transcript{
			{Role: model.RoleAI, Text: greeting},
			{Role: model.RoleUser, Text: "Hello"},
			{Role: model.RoleAI, Text: "Hi there"},
			{Role: model.RoleAI, Text: service.GuestNotice},
		}, resp.State.Messages)
	})

	t.Run("BlankIsNotAccepted", func(t *testing.T) {
		f := setupRouter(t, nil, api.RouterOptions{}, nil)

		rr := f.do(t, http.MethodPost, "/api/v1/messages", `{"text":"   "}`)

		require.Equal(t, http.StatusOK, rr.Code)
		resp := decode[api.SubmitResponse](t, rr)
		assert.False(t, resp.Accepted)
		assert.Len(t, resp.State.Messages, 1)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		f := setupRouter(t, nil, api.RouterOptions{}, nil)

		rr := f.do(t, http.MethodPost, "/api/v1/messages", `{"text":`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("RateLimited", func(t *testing.T) {
		f := setupRouter(t, nil, api.RouterOptions{SendRateLimit: 0.001, SendRateBurst: 1}, nil)

		first := f.do(t, http.MethodPost, "/api/v1/messages", `{"text":""}`)
		second := f.do(t, http.MethodPost, "/api/v1/messages", `{"text":""}`)

		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
	})
}

func TestChatHandler_Edit(t *testing.T) {
	t.Run("MissingIndex", func(t *testing.T) {
		f := setupRouter(t, nil, api.RouterOptions{}, nil)

		rr := f.do(t, http.MethodPost, "/api/v1/edit", `{}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("AssistantMessageIsNotEditable", func(t *testing.T) {
		f := setupRouter(t, nil, api.RouterOptions{}, nil)

		rr := f.do(t, http.MethodPost, "/api/v1/edit", `{"index":0}`)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("UpdateWithoutEditConflicts", func(t *testing.T) {
		f := setupRouter(t, nil, api.RouterOptions{}, nil)

		rr := f.do(t, http.MethodPut, "/api/v1/edit", `{"text":"x"}`)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("EditAndResend", func(t *testing.T) {
		f := setupRouter(t, nil, api.RouterOptions{}, func(f *fixture) {
			f.chat.On("Complete", mock.Anything, &backend.ChatRequest{Message: "first"}).
				Return(&backend.ChatResponse{Reply: "one"}, nil).Once()
			f.chat.On("Complete", mock.Anything, &backend.ChatRequest{Message: "second"}).
				Return(&backend.ChatResponse{Reply: "two"}, nil).Once()
		})

		require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/messages?wait=true", `{"text":"first"}`).Code)
		require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/edit", `{"index":1}`).Code)
		require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/api/v1/edit", `{"text":"second"}`).Code)

		rr := f.do(t, http.MethodPost, "/api/v1/edit/resend?wait=true", "")

		require.Equal(t, http.StatusOK, rr.Code)
		resp := decode[api.SubmitResponse](t, rr)
		assert.True(t, resp.Accepted)
		assert.Nil(t, resp.State.EditingIndex)
		assert.Equal(t, model.Transcript{
			{Role: model.RoleAI, Text: greeting},
			{Role: model.RoleUser, Text: "second"},
			{Role: model.RoleAI, Text: "two"},
		}, resp.State.Messages)
	})

	t.Run("StopWithoutBody", func(t *testing.T) {
		f := setupRouter(t, nil, api.RouterOptions{}, nil)

		rr := f.do(t, http.MethodPost, "/api/v1/stop", "")

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestChatHandler_HandleOpenChat(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := setupRouter(t, loggedIn, api.RouterOptions{}, func(f *fixture) {
			f.convos.On("GetByUser", mock.Anything, "u1").Return([]model.Conversation{}, nil).Once()
			f.convos.On("GetConversation", mock.Anything, "c1").Return(&model.Conversation{Record: model.Record{
				"_id": "c1", "turns": []any{map[string]any{"userMessage": "hi", "botResponse": "hello"}},
			}}, nil).Once()
		})

		rr := f.do(t, http.MethodPost, "/api/v1/chats/c1/open", "")

		require.Equal(t, http.StatusOK, rr.Code)
		st := decode[service.State](t, rr)
		assert.Equal(t, "c1", st.ActiveConversationID)
		assert.Len(t, st.Messages, 2)
	})

	t.Run("FailureStillAnswersWithState", func(t *testing.T) {
		f := setupRouter(t, loggedIn, api.RouterOptions{}, func(f *fixture) {
			f.convos.On("GetByUser", mock.Anything, "u1").Return([]model.Conversation{}, nil).Once()
			f.convos.On("GetConversation", mock.Anything, "gone").
				Return(nil, &backend.HTTPError{StatusCode: http.StatusNotFound}).Once()
		})

		rr := f.do(t, http.MethodPost, "/api/v1/chats/gone/open", "")

		require.Equal(t, http.StatusOK, rr.Code)
		st := decode[service.State](t, rr)
		assert.Empty(t, st.ActiveConversationID)
		assert.Equal(t, service.OpenFailedBubble, st.Messages[len(st.Messages)-1].Text)
	})
}

func TestChatHandler_Export(t *testing.T) {
	t.Run("CurrentAsText", func(t *testing.T) {
		f := setupRouter(t, nil, api.RouterOptions{}, nil)

		rr := f.do(t, http.MethodGet, "/api/v1/export?format=txt", "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
		assert.Regexp(t, `^attachment; filename="conversation-\d+\.txt"$`, rr.Header().Get("Content-Disposition"))
		assert.Contains(t, rr.Body.String(), greeting)
	})

	t.Run("StoredAsPDF", func(t *testing.T) {
		f := setupRouter(t, loggedIn, api.RouterOptions{}, func(f *fixture) {
			f.convos.On("GetByUser", mock.Anything, "u1").Return([]model.Conversation{}, nil).Once()
			f.convos.On("GetConversation", mock.Anything, "c9").Return(&model.Conversation{Record: model.Record{
				"_id": "c9", "title": "Trip", "turns": []any{map[string]any{"userMessage": "where", "botResponse": "Paris"}},
			}}, nil).Once()
		})

		rr := f.do(t, http.MethodGet, "/api/v1/chats/c9/export", "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rr.Body.String(), "%PDF-"))
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		f := setupRouter(t, nil, api.RouterOptions{}, nil)

		rr := f.do(t, http.MethodGet, "/api/v1/export?format=docx", "")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestArchiveHandler(t *testing.T) {
	t.Run("ListArchived", func(t *testing.T) {
		f := setupRouter(t, loggedIn, api.RouterOptions{}, func(f *fixture) {
			f.convos.On("GetByUser", mock.Anything, "u1").Return([]model.Conversation{
				{Record: model.Record{"_id": "a1", "title": "Old", "archived": true}},
				{Record: model.Record{"_id": "c1", "title": "Live"}},
			}, nil)
		})

		rr := f.do(t, http.MethodGet, "/api/v1/archive", "")

		require.Equal(t, http.StatusOK, rr.Code)
		rows := decode[[]model.ArchivedSummary](t, rr)
		require.Len(t, rows, 1)
		assert.Equal(t, "a1", rows[0].ID)
	})

	t.Run("DeleteManyStopsAtFirstFailure", func(t *testing.T) {
		f := setupRouter(t, loggedIn, api.RouterOptions{}, func(f *fixture) {
			f.convos.On("GetByUser", mock.Anything, "u1").Return([]model.Conversation{}, nil)
			f.convos.On("DeleteConversation", mock.Anything, "a1").Return(nil).Once()
			f.convos.On("DeleteConversation", mock.Anything, "a2").Return(errors.New("boom")).Once()
		})

		rr := f.do(t, http.MethodPost, "/api/v1/archive/delete", `{"ids":["a1","a2","a3"]}`)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		resp := decode[api.BulkResponse](t, rr)
		assert.Equal(t, 1, resp.Done)
		assert.Equal(t, "Failed to delete selected chats.", resp.Error)
		f.convos.AssertNotCalled(t, "DeleteConversation", mock.Anything, "a3")
	})

	t.Run("UnarchiveManyNeedsIDs", func(t *testing.T) {
		f := setupRouter(t, nil, api.RouterOptions{}, nil)

		rr := f.do(t, http.MethodPost, "/api/v1/archive/unarchive", `{"ids":[]}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("ArchiveNotFound", func(t *testing.T) {
		f := setupRouter(t, loggedIn, api.RouterOptions{}, func(f *fixture) {
			f.convos.On("GetByUser", mock.Anything, "u1").Return([]model.Conversation{}, nil).Once()
			f.convos.On("ArchiveConversation", mock.Anything, "nope").
				Return(nil, &backend.HTTPError{StatusCode: http.StatusNotFound}).Once()
		})

		rr := f.do(t, http.MethodPost, "/api/v1/chats/nope/archive", "")

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestAuthHandler(t *testing.T) {
	t.Run("LoginRejected", func(t *testing.T) {
		f := setupRouter(t, nil, api.RouterOptions{}, func(f *fixture) {
			f.auth.On("Login", mock.Anything, &backend.Credentials{Email: "me@example.com", Password: "bad"}).
				Return(nil, &backend.HTTPError{StatusCode: http.StatusUnauthorized}).Once()
		})

		rr := f.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"me@example.com","password":"bad"}`)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, decode[api.ErrorResponse](t, rr).Error, "Invalid email or password")
	})

	t.Run("LoginLoadsSidebar", func(t *testing.T) {
		f := setupRouter(t, nil, api.RouterOptions{}, func(f *fixture) {
			f.auth.On("Login", mock.Anything, mock.Anything).
				Return(model.Record{"userId": "u1", "email": "me@example.com"}, nil).Once()
			f.convos.On("GetByUser", mock.Anything, "u1").Return([]model.Conversation{
				{Record: model.Record{"_id": "c1", "title": "First"}},
			}, nil).Once()
		})

		rr := f.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"me@example.com","password":"Secret1!"}`)

		require.Equal(t, http.StatusOK, rr.Code)
		resp := decode[api.AccountResponse](t, rr)
		assert.Equal(t, service.Account{UserID: "u1", Email: "me@example.com"}, resp.Account)
		assert.Equal(t, []model.ConversationSummary{{ID: "c1", Title: "First"}}, resp.State.Chats)

		me := decode[api.SessionResponse](t, f.do(t, http.MethodGet, "/api/v1/auth/session", ""))
		assert.Equal(t, api.SessionResponse{IsLoggedIn: true, UserEmail: "me@example.com"}, me)
	})

	t.Run("SignupWeakPassword", func(t *testing.T) {
		f := setupRouter(t, nil, api.RouterOptions{}, nil)

		rr := f.do(t, http.MethodPost, "/api/v1/auth/signup",
			`{"username":"ann","email":"ann@example.com","password":"abc","confirmPassword":"abc"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decode[api.ErrorResponse](t, rr).Error, "Password must be at least 6 characters")
	})

	t.Run("Logout", func(t *testing.T) {
		f := setupRouter(t, loggedIn, api.RouterOptions{}, func(f *fixture) {
			f.convos.On("GetByUser", mock.Anything, "u1").Return([]model.Conversation{
				{Record: model.Record{"_id": "c1", "title": "First"}},
			}, nil).Once()
		})

		rr := f.do(t, http.MethodPost, "/api/v1/auth/logout", "")

		require.Equal(t, http.StatusOK, rr.Code)
		st := decode[service.State](t, rr)
		assert.Empty(t, st.Chats)
		assert.Equal(t, model.Transcript{{Role: model.RoleAI, Text: greeting}}, st.Messages)
	})
}
