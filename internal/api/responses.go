package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"chatbox/web/internal/backend"
	app_errors "chatbox/web/internal/errors"
	"chatbox/web/internal/service"
)

// ErrorResponse defines the standard JSON structure for error messages.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse defines a generic success response for operations that do
// not return a resource.
type StatusResponse struct {
	Status string `json:"status"`
}

// SubmitRequest is the body of POST /v1/messages.
type SubmitRequest struct {
	Text string `json:"text" validate:"max=20000" example:"What is the capital of France?"`
}

// SubmitResponse reports whether the submit intent started a request, along
// with the chat state right after it.
type SubmitResponse struct {
	Accepted bool          `json:"accepted"`
	State    service.State `json:"state"`
}

// StopRequest is the body of POST /v1/stop.
type StopRequest struct {
	OpenEdit bool `json:"openEdit"`
}

// StartEditRequest is the body of POST /v1/edit.
type StartEditRequest struct {
	Index *int `json:"index" validate:"required,min=0" example:"2"`
}

// EditTextRequest is the body of PUT /v1/edit.
type EditTextRequest struct {
	Text string `json:"text" validate:"max=20000"`
}

// IDsRequest is the body of the bulk archive endpoints.
type IDsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// BulkResponse reports how many conversations a bulk operation got through.
type BulkResponse struct {
	Done  int    `json:"done"`
	Error string `json:"error,omitempty"`
}

// AccountResponse is returned by login and signup.
type AccountResponse struct {
	Account service.Account `json:"account"`
	State   service.State   `json:"state"`
}

// statusFor maps an error onto the HTTP status and the message the browser
// may see.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, app_errors.ErrNotFound):
		return http.StatusNotFound, "The requested conversation was not found."
	case errors.Is(err, app_errors.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, app_errors.ErrUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, app_errors.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, app_errors.ErrPermission):
		return http.StatusForbidden, "You do not have permission to perform this action."
	case errors.Is(err, app_errors.ErrRateLimited):
		return http.StatusTooManyRequests, "You're sending messages too quickly. Please wait a moment."
	case errors.Is(err, backend.ErrTimeout):
		return http.StatusGatewayTimeout, "The chat backend took too long to respond."
	case errors.Is(err, app_errors.ErrUpstream):
		return http.StatusBadGateway, err.Error()
	}
	return http.StatusInternalServerError, "An unexpected internal server error occurred."
}

// respondWithError is the centralized error handling function for the API
// layer. The detailed error is logged; the browser gets the mapped message.
func respondWithError(w http.ResponseWriter, err error) {
	statusCode, message := statusFor(err)
	slog.Warn("Responding with error", "status_code", statusCode, "client_message", message, "internal_error", err)
	respondWithJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondWithJSON marshals payload and writes it with the given status code.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func errConflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", app_errors.ErrConflict, fmt.Sprintf(format, args...))
}

// decodeJSON reads a JSON body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request payload", app_errors.ErrValidation)
	}
	return nil
}

// decodeAndValidate reads a JSON body into dst and checks its validate tags.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := decodeJSON(r, dst); err != nil {
		return err
	}
	return validateRequest(dst)
}
