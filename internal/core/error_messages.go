package core

// # Error Codes Reference
//
// Every error the API returns carries a code users can quote to support.
// Codes are grouped by category:
//
// # User Errors (USR001-USR099)
//
//	USR001 - Not found: The user does not exist or was already deleted
//	         Action: Refresh the list and try again
//	         Match: ErrNotFound
//
//	USR002 - Email taken: Another user already has this email
//	         Action: Use a different email address
//	         Match: ErrEmailTaken
//
// # Authentication Errors (AUTH001-AUTH099)
//
//	AUTH001 - Invalid credentials: Email or password is wrong
//	          Action: Check your email and password
//	          Match: ErrInvalidCredentials
//
//	AUTH002 - Unauthenticated: Missing, unknown or expired token
//	          Action: Log in again
//	          Match: ErrUnauthenticated
//
//	AUTH003 - Inactive account: The account is disabled
//	          Action: Ask an administrator to activate your account
//	          Match: ErrAccountInactive
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid input: the message names the failing field
//	         Match: ErrValidation
//
//	VAL002 - Request too large: Upload exceeds the maximum request size
//	         Patterns: "request body too large"
//
//	VAL003 - Malformed form: The form submission could not be read
//	         Patterns: "multipart", "malformed"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key         Patterns: "duplicate key"
//	DB002 - Unique constraint     Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key           Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused    Patterns: "connection refused"
//	DB005 - Connection reset      Patterns: "connection reset"
//	DB006 - Timeout               Patterns: "timeout"
//	DB007 - Deadlock              Patterns: "deadlock"
//
// # Request Errors (NET001-NET099)
//
//	NET001 - Request cancelled    Patterns: "context canceled"
//	NET002 - Request timed out    Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//
//	RATE002 - Uploads busy: Too many uploads in progress
//	          Match: ErrTooManyUploads
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// Sentinel matches (errors.Is) are checked before patterns. Patterns are
// matched case-insensitively with strings.Contains and the first match wins.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/registry/internal/userform"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrNotFound, UserMessage{
		Message: "User not found",
		Action:  "Refresh the list and try again",
		Code:    "USR001",
	}},
	{ErrEmailTaken, UserMessage{
		Message: "The email has already been taken",
		Action:  "Use a different email address",
		Code:    "USR002",
	}},
	{ErrInvalidCredentials, UserMessage{
		Message: "Invalid email or password",
		Action:  "Check your email and password",
		Code:    "AUTH001",
	}},
	{ErrUnauthenticated, UserMessage{
		Message: "Unauthenticated.",
		Action:  "Log in again",
		Code:    "AUTH002",
	}},
	{ErrAccountInactive, UserMessage{
		Message: "This account is inactive",
		Action:  "Ask an administrator to activate your account",
		Code:    "AUTH003",
	}},
	{ErrTooManyUploads, UserMessage{
		Message: "Server is busy processing other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "RATE002",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user
// messages. Specific patterns come before general ones.
var errorPatterns = []errorPattern{
	// Request size and form parsing
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "Upload exceeds the maximum request size",
			Action:  "Send smaller files",
			Code:    "VAL002",
		},
	},
	{
		pattern: "multipart",
		msg: UserMessage{
			Message: "The form submission could not be read",
			Action:  "Submit the form again",
			Code:    "VAL003",
		},
	},
	{
		pattern: "malformed",
		msg: UserMessage{
			Message: "The form submission could not be read",
			Action:  "Submit the form again",
			Code:    "VAL003",
		},
	},

	// Constraints
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Refresh the list and try again",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Use a different value",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Use a different value",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Refresh the form and pick an existing role",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Refresh the form and pick an existing role",
			Code:    "DB003",
		},
	},

	// Request lifetime, ahead of the generic "timeout"
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "NET001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "NET002",
		},
	},

	// Connectivity
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check the server log for the technical error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Validation errors keep their own text under VAL001.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if errors.Is(err, ErrValidation) {
		return UserMessage{
			Message: validationText(err),
			Action:  "Correct the highlighted fields and try again",
			Code:    "VAL001",
		}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func validationText(err error) string {
	var ie *InvalidError
	if errors.As(err, &ie) {
		return ie.Message
	}
	var fe userform.Errors
	if errors.As(err, &fe) && len(fe) > 0 {
		return fe[0].Message
	}
	return err.Error()
}

// IsUserFacing reports whether err maps to something other than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// InvalidError is a single rejected input. It matches ErrValidation.
type InvalidError struct {
	Field   string
	Message string
}

func (e *InvalidError) Error() string { return e.Message }

func (e *InvalidError) Unwrap() error { return ErrValidation }

// Invalidf builds an InvalidError for field.
func Invalidf(field, format string, args ...any) error {
	return &InvalidError{Field: field, Message: fmt.Sprintf(format, args...)}
}
