package web

// errors.go turns service errors into JSON responses.
//
// Every error is logged with its technical detail and the request ID, then
// sent to the client as {message, code, action}. Validation failures also
// carry an errors object keyed by form field, which the console shows
// beside the matching inputs.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/registry/internal/core"
	"github.com/JonMunkholm/registry/internal/userform"
)

var errRateLimited = errors.New("rate limit exceeded")

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// respondError logs err and writes the user-facing version of it.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"mapped", core.IsUserFacing(err),
		"request_id", middleware.GetReqID(r.Context()),
	)

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "5")
	}
	respondErrorJSON(w, userMsg, status, fieldErrors(err))
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int, fields map[string]string) {
	writeJSON(w, status, ErrorResponse{
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Errors:  fields,
	})
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrUnauthenticated), errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrAccountInactive):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyUploads), errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fieldErrors lists per-field messages for validation failures.
func fieldErrors(err error) map[string]string {
	var form userform.Errors
	if errors.As(err, &form) {
		out := make(map[string]string, len(form))
		for _, fe := range form {
			if _, seen := out[fe.Field]; !seen {
				out[fe.Field] = fe.Message
			}
		}
		return out
	}
	var invalid *core.InvalidError
	if errors.As(err, &invalid) && invalid.Field != "" {
		return map[string]string{invalid.Field: invalid.Message}
	}
	return nil
}
