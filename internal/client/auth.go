package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/JonMunkholm/registry/internal/session"
)

// Login exchanges email and password for credentials with POST /login.
func (c *Client) Login(ctx context.Context, email, password string) (session.Credentials, error) {
	body, err := jsonBody(map[string]string{"email": email, "password": password})
	if err != nil {
		return session.Credentials{}, fmt.Errorf("login: %w", err)
	}
	resp, _, err := c.do(ctx, request{
		op:          "login",
		fallback:    "Login failed. Please try again.",
		method:      http.MethodPost,
		path:        "/login",
		body:        body,
		contentType: "application/json",
		anonymous:   true,
	})
	if err != nil {
		return session.Credentials{}, err
	}

	data := gjson.GetBytes(resp, "data")
	tok := data.Get("authorization").String()
	if tok == "" {
		tok = data.Get("token").String()
	}
	if tok == "" {
		return session.Credentials{}, errors.New("login: response carries no token")
	}
	u := data.Get("user")
	return session.Credentials{
		Token: tok,
		User: session.User{
			ID:    u.Get("id").String(),
			Name:  u.Get("name").String(),
			Email: u.Get("email").String(),
		},
	}, nil
}

// Logout invalidates the current token with GET /logout.
func (c *Client) Logout(ctx context.Context) error {
	_, _, err := c.do(ctx, request{
		op:       "logout",
		fallback: "Failed to log out",
		method:   http.MethodGet,
		path:     "/logout",
	})
	return err
}
