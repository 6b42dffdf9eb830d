package backend

import (
	"context"
	"fmt"
	"net/http"

	"chatbox/web/internal/model"
)

// Credentials is the body of POST /api/auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Authenticator is the backend's auth API. Responses are open records because
// the user id arrives as userId, id or _id depending on the endpoint.
type Authenticator interface {
	Login(ctx context.Context, creds *Credentials) (model.Record, error)
	Signup(ctx context.Context, req *SignupRequest) (model.Record, error)
}

type AuthClient struct {
	c *Client
}

func NewAuthClient(c *Client) *AuthClient {
	return &AuthClient{c: c}
}

func (ac *AuthClient) Login(ctx context.Context, creds *Credentials) (model.Record, error) {
	var rec model.Record
	if err := ac.c.do(ctx, http.MethodPost, "/api/auth/login", creds, &rec); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return rec, nil
}

func (ac *AuthClient) Signup(ctx context.Context, req *SignupRequest) (model.Record, error) {
	var rec model.Record
	if err := ac.c.do(ctx, http.MethodPost, "/api/auth/signup", req, &rec); err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	return rec, nil
}
