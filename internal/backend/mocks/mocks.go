// Package mocks holds testify mocks for the backend client interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chatbox/web/internal/backend"
	"chatbox/web/internal/model"
)

// MockChatCompleter is a mock type for the ChatCompleter type
type MockChatCompleter struct {
	mock.Mock
}

// Complete provides a mock function with given fields: ctx, req
func (_m *MockChatCompleter) Complete(ctx context.Context, req *backend.ChatRequest) (*backend.ChatResponse, error) {
	ret := _m.Called(ctx, req)

	var r0 *backend.ChatResponse
	if rf, ok := ret.Get(0).(func(context.Context, *backend.ChatRequest) *backend.ChatResponse); ok {
		r0 = rf(ctx, req)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*backend.ChatResponse)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, *backend.ChatRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockChatCompleter creates a new instance of MockChatCompleter. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockChatCompleter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockChatCompleter {
	m := &MockChatCompleter{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// MockConversationStore is a mock type for the ConversationStore type
type MockConversationStore struct {
	mock.Mock
}

func conversationResult(ret mock.Arguments) (*model.Conversation, error) {
	var r0 *model.Conversation
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Conversation)
	}
	return r0, ret.Error(1)
}

// GetByUser provides a mock function with given fields: ctx, userID
func (_m *MockConversationStore) GetByUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	ret := _m.Called(ctx, userID)

	var r0 []model.Conversation
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.Conversation)
	}
	return r0, ret.Error(1)
}

// CreateConversation provides a mock function with given fields: ctx, req
func (_m *MockConversationStore) CreateConversation(ctx context.Context, req *backend.CreateConversationRequest) (*model.Conversation, error) {
	return conversationResult(_m.Called(ctx, req))
}

// AddTurn provides a mock function with given fields: ctx, conversationID, req
func (_m *MockConversationStore) AddTurn(ctx context.Context, conversationID string, req *backend.AddTurnRequest) (*model.Conversation, error) {
	return conversationResult(_m.Called(ctx, conversationID, req))
}

// GetConversation provides a mock function with given fields: ctx, conversationID
func (_m *MockConversationStore) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	return conversationResult(_m.Called(ctx, conversationID))
}

// DeleteConversation provides a mock function with given fields: ctx, conversationID
func (_m *MockConversationStore) DeleteConversation(ctx context.Context, conversationID string) error {
	ret := _m.Called(ctx, conversationID)
	return ret.Error(0)
}

// ArchiveConversation provides a mock function with given fields: ctx, conversationID
func (_m *MockConversationStore) ArchiveConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	return conversationResult(_m.Called(ctx, conversationID))
}

// UnarchiveConversation provides a mock function with given fields: ctx, conversationID
func (_m *MockConversationStore) UnarchiveConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	return conversationResult(_m.Called(ctx, conversationID))
}

// NewMockConversationStore creates a new instance of MockConversationStore. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockConversationStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockConversationStore {
	m := &MockConversationStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// MockAuthenticator is a mock type for the Authenticator type
type MockAuthenticator struct {
	mock.Mock
}

// Login provides a mock function with given fields: ctx, creds
func (_m *MockAuthenticator) Login(ctx context.Context, creds *backend.Credentials) (model.Record, error) {
	ret := _m.Called(ctx, creds)

	var r0 model.Record
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(model.Record)
	}
	return r0, ret.Error(1)
}

// Signup provides a mock function with given fields: ctx, req
func (_m *MockAuthenticator) Signup(ctx context.Context, req *backend.SignupRequest) (model.Record, error) {
	ret := _m.Called(ctx, req)

	var r0 model.Record
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(model.Record)
	}
	return r0, ret.Error(1)
}

// NewMockAuthenticator creates a new instance of MockAuthenticator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockAuthenticator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAuthenticator {
	m := &MockAuthenticator{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
