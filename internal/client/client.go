// Package client is the HTTP transport for the registry API. It implements
// the table package's Fetcher, Mutator and DetailFetcher interfaces and the
// login, role and user form calls the console needs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/JonMunkholm/registry/internal/apperr"
	"github.com/JonMunkholm/registry/internal/session"
)

const (
	defaultTimeout = 30 * time.Second
	defaultUA      = "registry-console"
	maxErrorBody   = 64 << 10
)

// Options configures the Client.
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// HTTPClient overrides the underlying client; Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the registry API on behalf of the logged-in user.
type Client struct {
	http  *http.Client
	base  *url.URL
	opts  Options
	creds session.Provider
	log   *slog.Logger
}

// New creates a Client. creds supplies the bearer token and is cleared when
// the server answers 401.
func New(o Options, creds session.Provider) (*Client, error) {
	if strings.TrimSpace(o.BaseURL) == "" {
		return nil, errors.New("client: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(o.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base URL: %w", err)
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: o.Timeout}
	}
	log := o.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		http:  hc,
		base:  base,
		opts:  o,
		creds: creds,
		log:   log.With("component", "client"),
	}, nil
}

// request describes one API call.
type request struct {
	op          string // operation name used in errors
	fallback    string // message when the server gives none
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	anonymous   bool
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// do performs r and returns the response body of a 2xx answer.
func (c *Client) do(ctx context.Context, r request) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path, r.query), r.body)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: new request: %w", r.op, err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if !r.anonymous && c.creds != nil {
		if tok := c.creds.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, &apperr.TransportError{Op: r.op, Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	c.log.Debug("api call",
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		serr := &apperr.ServerError{
			Op:      r.op,
			Status:  resp.StatusCode,
			Message: gjson.GetBytes(body, "message").String(),
			Code:    gjson.GetBytes(body, "code").String(),
		}
		if serr.Message == "" {
			serr.Message = r.fallback
		}
		if resp.StatusCode == http.StatusUnauthorized && !r.anonymous && c.creds != nil {
			c.creds.Clear()
		}
		return nil, nil, serr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &apperr.TransportError{Op: r.op, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, resp.Header, nil
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// decodeObject converts a gjson object into a plain map.
func decodeObject(res gjson.Result) map[string]any {
	m, ok := res.Value().(map[string]any)
	if !ok {
		return nil
	}
	return m
}
