package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/registry/internal/userform"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "not found sentinel",
			err:         fmt.Errorf("get user: %w", ErrNotFound),
			wantCode:    "USR001",
			wantMessage: "User not found",
		},
		{
			name:        "email taken sentinel",
			err:         ErrEmailTaken,
			wantCode:    "USR002",
			wantMessage: "The email has already been taken",
		},
		{
			name:        "invalid credentials",
			err:         ErrInvalidCredentials,
			wantCode:    "AUTH001",
			wantMessage: "Invalid email or password",
		},
		{
			name:        "unauthenticated",
			err:         ErrUnauthenticated,
			wantCode:    "AUTH002",
			wantMessage: "Unauthenticated.",
		},
		{
			name:        "invalid input keeps its text",
			err:         Invalidf("per_page", "per_page must be one of 2, 5, 10, 25, 50, 100"),
			wantCode:    "VAL001",
			wantMessage: "per_page must be one of 2, 5, 10, 25, 50, 100",
		},
		{
			name:        "form errors use the first message",
			err:         userform.Errors{{Field: "email", Message: "email is a required field"}, {Field: "dob", Message: "dob is a required field"}},
			wantCode:    "VAL001",
			wantMessage: "email is a required field",
		},
		{
			name:        "too many uploads",
			err:         ErrTooManyUploads,
			wantCode:    "RATE002",
			wantMessage: "Server is busy processing other uploads",
		},
		{
			name:        "request body too large",
			err:         errors.New("http: request body too large"),
			wantCode:    "VAL002",
			wantMessage: "Upload exceeds the maximum request size",
		},
		{
			name:        "duplicate key maps correctly",
			err:         errors.New("ERROR: duplicate key value violates unique constraint"),
			wantCode:    "DB001",
			wantMessage: "A record with this ID already exists",
		},
		{
			name:        "connection refused maps correctly",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "DB004",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "deadline exceeded before generic timeout",
			err:         errors.New("list users: context deadline exceeded (timeout)"),
			wantCode:    "NET002",
			wantMessage: "Request timed out",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("DEADLOCK detected"),
			wantCode:    "DB007",
			wantMessage: "Database was busy with conflicting operations",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", ErrInvalidCredentials, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInvalidError(t *testing.T) {
	err := Invalidf("sort", "cannot sort by %q", "password")

	if !errors.Is(err, ErrValidation) {
		t.Error("InvalidError should match ErrValidation")
	}
	var ie *InvalidError
	if !errors.As(err, &ie) || ie.Field != "sort" {
		t.Errorf("expected InvalidError for field sort, got %#v", err)
	}
	if err.Error() != `cannot sort by "password"` {
		t.Errorf("Error() = %q", err.Error())
	}
}
