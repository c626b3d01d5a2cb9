// Package apperr classifies errors returned by the registry API client and
// turns them into the single-line messages shown in the console.
//
// Three kinds of failure exist:
//
//   - Transport: the request never produced a response (DNS, refused
//     connection, timeout, cancelled context).
//   - Server: the API answered with a non-success status. The message the
//     server put in its body is preferred over a generic fallback.
//   - Validation: a local precondition failed before any request was made.
//     The table controller ignores these silently; forms display them.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind identifies the error class.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindServer
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// ErrValidation marks local precondition failures.
var ErrValidation = errors.New("validation failed")

// ErrUnauthorized is wrapped by server errors carrying HTTP 401.
var ErrUnauthorized = errors.New("unauthorized")

// TransportError reports a request that produced no response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError reports a non-success HTTP response.
type ServerError struct {
	Op      string
	Status  int
	Message string // from the response body, may be empty
	Code    string // optional support code from the response body
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *ServerError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Validationf builds an error that classifies as KindValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// KindOf classifies err.
func KindOf(err error) Kind {
	var te *TransportError
	var se *ServerError
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &se):
		return KindServer
	case errors.As(err, &te):
		return KindTransport
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindUnknown
	}
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// UserMessage is a display-ready description of a failure.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

type transportPattern struct {
	pattern string
	msg     UserMessage
}

var transportPatterns = []transportPattern{
	{"connection refused", UserMessage{"Unable to reach the registry server", "Check that the server is running", "NET001"}},
	{"no such host", UserMessage{"Registry host could not be resolved", "Check the configured base URL", "NET002"}},
	{"deadline exceeded", UserMessage{"Request timed out", "Please try again", "NET003"}},
	{"timeout", UserMessage{"Request timed out", "Please try again", "NET003"}},
	{"connection reset", UserMessage{"Connection to the server was interrupted", "Please try again", "NET004"}},
	{"tls", UserMessage{"Secure connection failed", "Check the server certificate", "NET005"}},
}

var defaultTransport = UserMessage{
	Message: "Network error",
	Action:  "Please try again",
	Code:    "NET000",
}

// Map converts err into a UserMessage.
func Map(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if errors.Is(err, context.Canceled) {
		return UserMessage{Message: "Request was cancelled", Action: "Please try again", Code: "NET006"}
	}

	var se *ServerError
	if errors.As(err, &se) {
		msg := se.Message
		if msg == "" {
			msg = http.StatusText(se.Status)
		}
		um := UserMessage{Message: msg, Code: se.Code}
		switch {
		case se.Status == http.StatusUnauthorized:
			um.Action = "Please log in again"
		case se.Status == http.StatusTooManyRequests:
			um.Action = "Please wait a moment before trying again"
		case se.Status >= 500:
			um.Action = "Please try again"
		}
		return um
	}

	var te *TransportError
	if errors.As(err, &te) {
		s := strings.ToLower(te.Err.Error())
		for _, p := range transportPatterns {
			if strings.Contains(s, p.pattern) {
				return p.msg
			}
		}
		return defaultTransport
	}

	return UserMessage{Message: err.Error()}
}

// Message returns the one-line message for err, "" for nil.
func Message(err error) string {
	um := Map(err)
	if um.Message == "" {
		return ""
	}
	if um.Code != "" {
		return fmt.Sprintf("%s (Code: %s)", um.Message, um.Code)
	}
	return um.Message
}
