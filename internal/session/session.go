// Package session stores the console's login credentials and hands the
// bearer token to the API client on demand.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Provider supplies the current bearer token. Clear is called by the API
// client when the server rejects the token.
type Provider interface {
	Token() string
	Clear()
}

// User is the account a session belongs to.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Credentials are what a successful login returns.
type Credentials struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Store holds credentials in memory and, when a path is set, in a 0600 JSON file.
// It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	path  string
	creds Credentials
}

// NewStore returns a store persisted at path. An empty path keeps credentials in memory only.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads persisted credentials. A missing file is not an error.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return fmt.Errorf("parse session %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.creds = c
	s.mu.Unlock()
	return nil
}

// Set replaces the credentials and persists them.
func (s *Store) Set(c Credentials) error {
	s.mu.Lock()
	s.creds = c
	s.mu.Unlock()

	if s.path == "" {
		return nil
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Token returns the bearer token, "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.Token
}

// User returns the logged-in user.
func (s *Store) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.User
}

// LoggedIn reports whether a token is held.
func (s *Store) LoggedIn() bool {
	return s.Token() != ""
}

// Clear forgets the credentials and removes the persisted file.
func (s *Store) Clear() {
	s.mu.Lock()
	s.creds = Credentials{}
	s.mu.Unlock()

	if s.path == "" {
		return
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to remove session file", "path", s.path, "error", err)
	}
}
