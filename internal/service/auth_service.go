package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"chatbox/web/internal/backend"
	app_errors "chatbox/web/internal/errors"
	"chatbox/web/internal/model"
	"chatbox/web/internal/session"
)

// LoginInput is what the login form submits.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SignupInput is what the signup form submits.
type SignupInput struct {
	Username        string `json:"username" validate:"required,min=3"`
	Email           string `json:"email" validate:"required,allowed_email"`
	Password        string `json:"password" validate:"required,strong_password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// Account is the signed-in identity written to the session.
type Account struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// AuthService forwards credentials to the backend and records the result in
// the caller's session.
type AuthService struct {
	auth backend.Authenticator
}

func NewAuthService(auth backend.Authenticator) *AuthService {
	return &AuthService{auth: auth}
}

// resolveUserID picks the user id out of an auth response.
func resolveUserID(rec model.Record) string {
	for _, key := range []string{"userId", "id", "_id"} {
		if v := strings.TrimSpace(rec.String(key)); v != "" {
			return v
		}
	}
	return ""
}

// Login authenticates and stores isLoggedIn, userEmail and userId.
func (s *AuthService) Login(ctx context.Context, sess *session.Context, in LoginInput) (*Account, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: Email and password are required", app_errors.ErrValidation)
	}

	rec, err := s.auth.Login(ctx, &backend.Credentials{Email: in.Email, Password: in.Password})
	if err != nil {
		switch backend.StatusCode(err) {
		case http.StatusUnauthorized, http.StatusConflict:
			return nil, fmt.Errorf("%w: Invalid email or password", app_errors.ErrUnauthorized)
		}
		slog.Warn("Login request failed", "error", err)
		return nil, fmt.Errorf("%w: %s", app_errors.ErrUpstream, backendMessage(err, "Login failed. Please try again."))
	}

	userID := resolveUserID(rec)
	if userID == "" {
		return nil, fmt.Errorf("%w: Login succeeded but userId was not returned by backend.", app_errors.ErrUpstream)
	}
	acct := &Account{UserID: userID, Email: in.Email}
	if e := strings.TrimSpace(rec.String("email")); e != "" {
		acct.Email = e
	}
	if err := sess.SetUser(ctx, acct.UserID, acct.Email); err != nil {
		return nil, fmt.Errorf("could not store login: %w", err)
	}
	slog.Info("User logged in", "user_id", acct.UserID)
	return acct, nil
}

// Signup validates the form, creates the account and logs the user in. A
// backend that omits the user id still leaves the session logged in, but turns
// will not be saved until an id is known.
func (s *AuthService) Signup(ctx context.Context, sess *session.Context, in SignupInput) (*Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	rec, err := s.auth.Signup(ctx, &backend.SignupRequest{Username: in.Username, Email: in.Email, Password: in.Password})
	if err != nil {
		msg := backendMessage(err, "Signup failed. Please try again.")
		var httpErr *backend.HTTPError
		if errors.As(err, &httpErr) {
			return nil, fmt.Errorf("%w: %s", httpErr.Unwrap(), msg)
		}
		return nil, fmt.Errorf("%w: %s", app_errors.ErrUpstream, msg)
	}

	acct := &Account{UserID: resolveUserID(rec), Email: in.Email}
	if e := strings.TrimSpace(rec.String("email")); e != "" {
		acct.Email = e
	}
	if err := sess.SetUser(ctx, acct.UserID, acct.Email); err != nil {
		return nil, fmt.Errorf("could not store signup: %w", err)
	}
	slog.Info("User signed up", "user_id", acct.UserID)
	return acct, nil
}

// Logout removes every session key.
func (s *AuthService) Logout(ctx context.Context, sess *session.Context) error {
	return sess.Logout(ctx)
}

// backendMessage extracts the human-readable error the backend put in its JSON
// body ({"message"}, {"general"}, {"email"} or {"username"}), falling back to
// def.
func backendMessage(err error, def string) string {
	var httpErr *backend.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Body == "" {
		return def
	}
	var body map[string]any
	if json.Unmarshal([]byte(httpErr.Body), &body) != nil {
		return def
	}
	rec := model.Record(body)
	var parts []string
	for _, key := range []string{"message", "general", "username", "email"} {
		if v := strings.TrimSpace(rec.String(key)); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return def
	}
	return strings.Join(parts, "; ")
}
