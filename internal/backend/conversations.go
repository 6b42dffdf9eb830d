package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"chatbox/web/internal/model"
)

// CreateConversationRequest is the first turn of a new conversation.
type CreateConversationRequest struct {
	UserID           string `json:"userId"`
	FirstUserMessage string `json:"firstUserMessage"`
	FirstBotResponse string `json:"firstBotResponse"`
}

// AddTurnRequest appends one exchange to an existing conversation.
type AddTurnRequest struct {
	UserMessage string `json:"userMessage"`
	BotResponse string `json:"botResponse"`
}

// ConversationStore is the backend's conversation persistence API.
type ConversationStore interface {
	GetByUser(ctx context.Context, userID string) ([]model.Conversation, error)
	CreateConversation(ctx context.Context, req *CreateConversationRequest) (*model.Conversation, error)
	AddTurn(ctx context.Context, conversationID string, req *AddTurnRequest) (*model.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, conversationID string) error
	ArchiveConversation(ctx context.Context, conversationID string) (*model.Conversation, error)
	UnarchiveConversation(ctx context.Context, conversationID string) (*model.Conversation, error)
}

// ConversationClient talks to {BackendURL}/api/conversations.
type ConversationClient struct {
	c *Client
}

func NewConversationClient(c *Client) *ConversationClient {
	return &ConversationClient{c: c}
}

const conversationsPath = "/api/conversations"

func conversationPath(id string, suffix string) string {
	return conversationsPath + "/" + url.PathEscape(id) + suffix
}

func (cc *ConversationClient) GetByUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	var list []model.Conversation
	if err := cc.c.do(ctx, http.MethodGet, conversationsPath+"/by-user/"+url.PathEscape(userID), nil, &list); err != nil {
		return nil, fmt.Errorf("list conversations for user %s: %w", userID, err)
	}
	return list, nil
}

func (cc *ConversationClient) CreateConversation(ctx context.Context, req *CreateConversationRequest) (*model.Conversation, error) {
	var convo model.Conversation
	if err := cc.c.do(ctx, http.MethodPost, conversationsPath, req, &convo); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &convo, nil
}

func (cc *ConversationClient) AddTurn(ctx context.Context, conversationID string, req *AddTurnRequest) (*model.Conversation, error) {
	var convo model.Conversation
	if err := cc.c.do(ctx, http.MethodPost, conversationPath(conversationID, "/turns"), req, &convo); err != nil {
		return nil, fmt.Errorf("add turn to conversation %s: %w", conversationID, err)
	}
	return &convo, nil
}

func (cc *ConversationClient) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	var convo model.Conversation
	if err := cc.c.do(ctx, http.MethodGet, conversationPath(conversationID, ""), nil, &convo); err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", conversationID, err)
	}
	return &convo, nil
}

func (cc *ConversationClient) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := cc.c.do(ctx, http.MethodDelete, conversationPath(conversationID, ""), nil, nil); err != nil {
		return fmt.Errorf("delete conversation %s: %w", conversationID, err)
	}
	return nil
}

func (cc *ConversationClient) ArchiveConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	var convo model.Conversation
	if err := cc.c.do(ctx, http.MethodPatch, conversationPath(conversationID, "/archive"), struct{}{}, &convo); err != nil {
		return nil, fmt.Errorf("archive conversation %s: %w", conversationID, err)
	}
	return &convo, nil
}

func (cc *ConversationClient) UnarchiveConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	var convo model.Conversation
	if err := cc.c.do(ctx, http.MethodPatch, conversationPath(conversationID, "/unarchive"), struct{}{}, &convo); err != nil {
		return nil, fmt.Errorf("unarchive conversation %s: %w", conversationID, err)
	}
	return &convo, nil
}
