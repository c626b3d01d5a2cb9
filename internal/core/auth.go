package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Login checks email and password and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, Invalidf("email", "email and password are required")
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !u.Active {
		return LoginResult{}, ErrAccountInactive
	}

	now := s.now().UTC()
	sess := Session{
		Token:     s.newToken(),
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
		IPAddress: GetIPAddressFromContext(ctx),
		UserAgent: GetUserAgentFromContext(ctx),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}
	return LoginResult{Token: sess.Token, User: u}, nil
}

// Logout revokes token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.DeleteSession(ctx, token)
}

// Authenticate resolves a bearer token to its active user.
func (s *Service) Authenticate(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrUnauthenticated
	}
	sess, err := s.store.GetSession(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrUnauthenticated
	}
	if err != nil {
		return User{}, fmt.Errorf("authenticate: %w", err)
	}
	if !s.now().Before(sess.ExpiresAt) {
		if err := s.store.DeleteSession(ctx, token); err != nil {
			s.log.Warn("delete expired session", "error", err)
		}
		return User{}, ErrUnauthenticated
	}

	u, err := s.store.GetUser(ctx, sess.UserID)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrUnauthenticated
	}
	if err != nil {
		return User{}, fmt.Errorf("authenticate: %w", err)
	}
	if !u.Active {
		return User{}, ErrUnauthenticated
	}
	return u, nil
}

// PurgeSessions deletes expired sessions and reports how many went.
func (s *Service) PurgeSessions(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions(ctx, s.now().UTC())
}

// Bootstrap is the first account created on an empty registry.
type Bootstrap struct {
	Name     string
	Email    string
	Password string
	RoleID   int32
}

// EnsureAdmin creates b when the registry has no users yet. It reports
// whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, b Bootstrap) (bool, error) {
	if b.Email == "" || b.Password == "" {
		return false, nil
	}
	n, err := s.store.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	role, err := s.store.GetRole(ctx, b.RoleID)
	if err != nil {
		return false, fmt.Errorf("bootstrap role %d: %w", b.RoleID, err)
	}
	hash, err := s.HashPassword(b.Password)
	if err != nil {
		return false, err
	}
	if b.Name == "" {
		b.Name = "Administrator"
	}
	now := s.now().UTC()
	u := User{
		ID:           uuid.New(),
		Name:         b.Name,
		Email:        b.Email,
		PasswordHash: hash,
		Role:         role,
		DOB:          time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		Gender:       GenderMale,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, u, nil); err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	return true, nil
}
