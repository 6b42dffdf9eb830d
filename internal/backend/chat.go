package backend

import (
	"context"
	"net/http"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message        string `json:"message"`
	UserID         string `json:"userId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

// ChatResponse is the body returned by POST /api/chat. Reply may be empty or
// missing; callers normalize it.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ChatCompleter produces an assistant reply for a user message.
type ChatCompleter interface {
	Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// ChatClient calls the backend's chat completion endpoint.
type ChatClient struct {
	c *Client
}

func NewChatClient(c *Client) *ChatClient {
	return &ChatClient{c: c}
}

func (cc *ChatClient) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := cc.c.do(ctx, http.MethodPost, "/api/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
