package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Store persists users, roles and sessions.
type Store interface {
	ListUsers(ctx context.Context, p ListParams) (UserPage, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	CountUsers(ctx context.Context) (int, error)

	// CreateUser inserts u with its files.
	CreateUser(ctx context.Context, u User, files []StoredFile) error

	// UpdateUser replaces u's columns and appends files. When files holds a
	// profile the previous profile row is removed and returned. An empty
	// PasswordHash keeps the current password.
	UpdateUser(ctx context.Context, u User, files []StoredFile) (removed []StoredFile, err error)

	// DeleteUsers removes all ids or none. It fails with ErrNotFound when
	// any id is unknown and returns the files the users owned.
	DeleteUsers(ctx context.Context, ids []uuid.UUID) ([]StoredFile, error)

	// EachUser calls fn for every user in name order until fn fails.
	EachUser(ctx context.Context, fn func(User) error) error

	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int32) (Role, error)

	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	Ping(ctx context.Context) error
}
