package api

import (
	"net/http"

	"chatbox/web/internal/service"
)

// AuthHandler forwards login and signup to the backend and keeps the result
// in the browser session. Form rules are checked by the auth service so the
// messages match the ones the forms show.
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// SessionResponse is what the top bar needs to know about the visitor.
type SessionResponse struct {
	IsLoggedIn bool   `json:"isLoggedIn"`
	UserEmail  string `json:"userEmail,omitempty"`
}

// GetSession godoc
// @Summary      Current visitor
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  SessionResponse
// @Router       /v1/auth/session [get]
func (h *AuthHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	st, err := ws.Session.Load(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SessionResponse{IsLoggedIn: st.IsLoggedIn, UserEmail: st.UserEmail})
}

// HandleLogin godoc
// @Summary      Log in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials  body  service.LoginInput  true  "Email and password"
// @Success      200          {object}  AccountResponse
// @Failure      400          {object}  ErrorResponse
// @Failure      401          {object}  ErrorResponse
// @Router       /v1/auth/login [post]
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	var req service.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	acct, err := ws.Login(r.Context(), req)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, AccountResponse{Account: *acct, State: ws.Chat.Snapshot()})
}

// HandleSignup godoc
// @Summary      Sign up
// @Description  Creates an account and logs in. Email must end in an allowed domain and the password must contain upper and lower case letters, a digit and a symbol.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        account  body  service.SignupInput  true  "New account"
// @Success      201      {object}  AccountResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Router       /v1/auth/signup [post]
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	var req service.SignupInput
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	acct, err := ws.Signup(r.Context(), req)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, AccountResponse{Account: *acct, State: ws.Chat.Snapshot()})
}

// HandleLogout godoc
// @Summary      Log out
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  service.State
// @Router       /v1/auth/logout [post]
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFrom(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if err := ws.Logout(r.Context()); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ws.Chat.Snapshot())
}
