package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatbox/web/internal/backend"
	"chatbox/web/internal/backend/mocks"
	"chatbox/web/internal/model"
	"chatbox/web/internal/service"
	"chatbox/web/internal/session"
)

type workspaceMocks struct {
	chat   *mocks.MockChatCompleter
	convos *mocks.MockConversationStore
	auth   *mocks.MockAuthenticator
	store  *session.MemoryStore
}

func setupWorkspace(t *testing.T, seed map[string]string, expect func(m workspaceMocks)) (*service.Workspace, workspaceMocks) {
	t.Helper()
	ctx := context.Background()
	m := workspaceMocks{
		chat:   mocks.NewMockChatCompleter(t),
		convos: mocks.NewMockConversationStore(t),
		auth:   mocks.NewMockAuthenticator(t),
		store:  session.NewMemoryStore(),
	}
	for k, v := range seed {
		require.NoError(t, m.store.Set(ctx, k, v))
	}
	if expect != nil {
		expect(m)
	}

	w, err := service.NewWorkspace(ctx, "ws-1", m.store, service.WorkspaceDeps{
		Chat:          m.chat,
		Conversations: m.convos,
		Auth:          m.auth,
		Greeting:      greeting,
		Logger:        discardLogger,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w, m
}

var loggedIn = map[string]string{
	session.KeyIsLoggedIn: "true",
	session.KeyUserID:     "u1",
	session.KeyUserEmail:  "me@example.com",
}

func withActive(id string) map[string]string {
	seed := map[string]string{session.KeyActiveConversationID: id}
	for k, v := range loggedIn {
		seed[k] = v
	}
	return seed
}

func TestNewWorkspace_RestoresAndLoadsSidebar(t *testing.T) {
	w, _ := setupWorkspace(t, withActive("c1"), func(m workspaceMocks) {
		m.convos.On("GetConversation", mock.Anything, "c1").Return(&model.Conversation{Record: model.Record{
			"_id": "c1", "turns": []any{map[string]any{"userMessage": "hi", "botResponse": "hello"}},
		}}, nil).Once()
		m.convos.On("GetByUser", mock.Anything, "u1").Return([]model.Conversation{
			{Record: model.Record{"_id": "c1", "title": "Greetings"}},
		}, nil).Once()
	})

	st := w.Chat.Snapshot()
	assert.Equal(t, "c1", st.ActiveConversationID)
	assert.Len(t, st.Messages, 2)
	assert.Equal(t, []model.ConversationSummary{{ID: "c1", Title: "Greetings"}}, st.Chats)
}

func TestWorkspace_ArchiveActiveChatStartsNewChat(t *testing.T) {
	ctx := context.Background()
	w, m := setupWorkspace(t, withActive("c1"), func(m workspaceMocks) {
		m.convos.On("GetConversation", mock.Anything, "c1").
			Return(&model.Conversation{Record: model.Record{"_id": "c1"}}, nil).Once()
		m.convos.On("GetByUser", mock.Anything, "u1").Return([]model.Conversation{}, nil)
	})
	m.convos.On("ArchiveConversation", ctx, "c1").Return(&model.Conversation{}, nil).Once()

	require.NoError(t, w.ArchiveChat(ctx, "c1"))

	st := w.Chat.Snapshot()
	assert.Empty(t, st.ActiveConversationID)
	assert.Equal(t, model.Transcript{ai(greeting)}, st.Messages)
	_, ok, _ := m.store.Get(ctx, session.KeyActiveConversationID)
	assert.False(t, ok)
}

func TestWorkspace_DeleteOtherChatKeepsPanel(t *testing.T) {
	ctx := context.Background()
	w, m := setupWorkspace(t, withActive("c1"), func(m workspaceMocks) {
		m.convos.On("GetConversation", mock.Anything, "c1").
			Return(&model.Conversation{Record: model.Record{"_id": "c1"}}, nil).Once()
		m.convos.On("GetByUser", mock.Anything, "u1").Return([]model.Conversation{}, nil)
	})
	m.convos.On("DeleteConversation", ctx, "c2").Return(nil).Once()

	require.NoError(t, w.DeleteChat(ctx, "c2"))
	assert.Equal(t, "c1", w.Chat.ActiveConversationID())
}

func TestWorkspace_DeleteManyLeavesActiveOnlyIfDeleted(t *testing.T) {
	ctx := context.Background()
	w, m := setupWorkspace(t, withActive("b"), func(m workspaceMocks) {
		m.convos.On("GetConversation", mock.Anything, "b").
			Return(&model.Conversation{Record: model.Record{"_id": "b"}}, nil).Once()
		m.convos.On("GetByUser", mock.Anything, "u1").Return([]model.Conversation{}, nil)
	})
	m.convos.On("DeleteConversation", ctx, "a").Return(nil).Once()
	m.convos.On("DeleteConversation", ctx, "b").Return(errors.New("nope")).Once()

	n, err := w.DeleteMany(ctx, []string{"a", "b"})
	assert.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "b", w.Chat.ActiveConversationID())
}

func TestWorkspace_LoginLogout(t *testing.T) {
	ctx := context.Background()
	w, m := setupWorkspace(t, nil, nil)

	m.auth.On("Login", ctx, &backend.Credentials{Email: "me@example.com", Password: "pw"}).
		Return(model.Record{"userId": "u1"}, nil).Once()
	m.convos.On("GetByUser", ctx, "u1").Return([]model.Conversation{
		{Record: model.Record{"_id": "c1", "title": "First"}},
	}, nil).Once()

	_, err := w.Login(ctx, service.LoginInput{Email: "me@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Len(t, w.Chat.Snapshot().Chats, 1)

	require.NoError(t, w.Logout(ctx))
	assert.Empty(t, w.Chat.Snapshot().Chats)
	assert.Empty(t, m.store.Snapshot())

	archived, err := w.ListArchived(ctx)
	require.NoError(t, err)
	assert.Empty(t, archived)
}

func TestWorkspace_LoginAsAnotherUserLeavesTheirConversation(t *testing.T) {
	ctx := context.Background()
	w, m := setupWorkspace(t, withActive("cA"), func(m workspaceMocks) {
		m.convos.On("GetConversation", mock.Anything, "cA").Return(&model.Conversation{Record: model.Record{
			"_id": "cA", "turns": []any{map[string]any{"userMessage": "private", "botResponse": "noted"}},
		}}, nil).Once()
		m.convos.On("GetByUser", mock.Anything, "u1").Return([]model.Conversation{
			{Record: model.Record{"_id": "cA", "title": "Private"}},
		}, nil).Once()
	})
	require.Equal(t, "cA", w.Chat.ActiveConversationID())

	m.auth.On("Login", ctx, &backend.Credentials{Email: "other@example.com", Password: "pw"}).
		Return(model.Record{"userId": "u2"}, nil).Once()
	m.convos.On("GetByUser", mock.Anything, "u2").Return([]model.Conversation{}, nil)

	_, err := w.Login(ctx, service.LoginInput{Email: "other@example.com", Password: "pw"})
	require.NoError(t, err)

	st := w.Chat.Snapshot()
	assert.Empty(t, st.ActiveConversationID)
	assert.Empty(t, st.Chats)
	assert.Equal(t, model.Transcript{ai(greeting)}, st.Messages)
	_, ok, _ := m.store.Get(ctx, session.KeyActiveConversationID)
	assert.False(t, ok)

	m.chat.On("Complete", mock.Anything, &backend.ChatRequest{Message: "mine", UserID: "u2"}).
		Return(&backend.ChatResponse{Reply: "ok"}, nil).Once()
	m.convos.On("CreateConversation", mock.Anything, &backend.CreateConversationRequest{
		UserID: "u2", FirstUserMessage: "mine", FirstBotResponse: "ok",
	}).Return(&model.Conversation{Record: model.Record{"_id": "cB"}}, nil).Once()

	require.True(t, w.Chat.SendMessage("mine"))
	w.Chat.Wait()
	assert.Equal(t, "cB", w.Chat.ActiveConversationID())
}

func TestWorkspace_LoginAsSameUserKeepsConversation(t *testing.T) {
	ctx := context.Background()
	w, m := setupWorkspace(t, withActive("cA"), func(m workspaceMocks) {
		m.convos.On("GetConversation", mock.Anything, "cA").
			Return(&model.Conversation{Record: model.Record{"_id": "cA"}}, nil).Once()
		m.convos.On("GetByUser", mock.Anything, "u1").Return([]model.Conversation{}, nil)
	})
	m.auth.On("Login", ctx, &backend.Credentials{Email: "me@example.com", Password: "pw"}).
		Return(model.Record{"userId": "u1"}, nil).Once()

	_, err := w.Login(ctx, service.LoginInput{Email: "me@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "cA", w.Chat.ActiveConversationID())
}

func TestWorkspace_Transcript(t *testing.T) {
	ctx := context.Background()

	t.Run("Open chat", func(t *testing.T) {
		w, _ := setupWorkspace(t, nil, nil)
		title, msgs, err := w.Transcript(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, title)
		assert.Equal(t, model.Transcript{ai(greeting)}, msgs)
	})

	t.Run("Stored chat", func(t *testing.T) {
		w, m := setupWorkspace(t, nil, nil)
		m.convos.On("GetConversation", ctx, "c5").Return(&model.Conversation{Record: model.Record{
			"_id": "c5", "title": " Recipes ",
			"turns": []any{map[string]any{"userMessage": "pasta?", "botResponse": "boil water"}},
		}}, nil).Once()

		title, msgs, err := w.Transcript(ctx, "c5")
		require.NoError(t, err)
		assert.Equal(t, "Recipes", title)
		assert.Equal(t, model.Transcript{user("pasta?"), ai("boil water")}, msgs)
	})
}
