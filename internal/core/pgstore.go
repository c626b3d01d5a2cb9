package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `u.id, u.name, u.email, u.password_hash, u.role_id, r.name, u.dob, u.gender, u.status, u.created_at, u.updated_at`

const userFrom = ` FROM users u JOIN roles r ON r.id = u.role_id`

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps an open pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// buildListQuery returns the count and page statements for p. p is expected
// to be normalized by the Service.
func buildListQuery(p ListParams) (countSQL string, countArgs []any, listSQL string, listArgs []any) {
	wb := NewWhereBuilder()
	wb.AddSearch(p.Search, "u.name", "u.email")
	AddIn(wb, "u.role_id", p.RoleIDs)
	where, args := wb.Build()

	countSQL = "SELECT COUNT(*)" + userFrom + where

	order := "u.created_at DESC"
	if col, ok := SortColumns[p.Sort]; ok {
		dir := "ASC"
		if p.Desc {
			dir = "DESC"
		}
		order = col + " " + dir
	}
	idx := wb.NextArgIndex()
	listSQL = fmt.Sprintf("SELECT %s%s%s ORDER BY %s, u.id LIMIT $%d OFFSET $%d",
		userColumns, userFrom, where, order, idx, idx+1)

	listArgs = append(append([]any{}, args...), p.PerPage, (p.Page-1)*p.PerPage)
	return countSQL, args, listSQL, listArgs
}

func (s *PGStore) ListUsers(ctx context.Context, p ListParams) (UserPage, error) {
	countSQL, countArgs, listSQL, listArgs := buildListQuery(p)

	var total int
	if err := s.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return UserPage{}, fmt.Errorf("count users: %w", err)
	}

	users, err := queryUsers(ctx, s.pool, listSQL, listArgs...)
	if err != nil {
		return UserPage{}, fmt.Errorf("list users: %w", err)
	}
	if err := s.attachFiles(ctx, s.pool, users); err != nil {
		return UserPage{}, err
	}
	return UserPage{Users: users, Total: total}, nil
}

func (s *PGStore) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return s.getUser(ctx, "SELECT "+userColumns+userFrom+" WHERE u.id = $1", id)
}

func (s *PGStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, "SELECT "+userColumns+userFrom+" WHERE lower(u.email) = lower($1)", email)
}

func (s *PGStore) getUser(ctx context.Context, sql string, arg any) (User, error) {
	users, err := queryUsers(ctx, s.pool, sql, arg)
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	if len(users) == 0 {
		return User{}, ErrNotFound
	}
	if err := s.attachFiles(ctx, s.pool, users); err != nil {
		return User{}, err
	}
	return users[0], nil
}

func (s *PGStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *PGStore) CreateUser(ctx context.Context, u User, files []StoredFile) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, role_id, dob, gender, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role.ID, u.DOB, int16(u.Gender), u.Active, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", classify(err))
	}
	if err := insertFiles(ctx, tx, files); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) UpdateUser(ctx context.Context, u User, files []StoredFile) ([]StoredFile, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE users SET name = $2, email = $3, role_id = $4, dob = $5, gender = $6, status = $7,
			password_hash = COALESCE(NULLIF($8, ''), password_hash), updated_at = $9
		WHERE id = $1`,
		u.ID, u.Name, u.Email, u.Role.ID, u.DOB, int16(u.Gender), u.Active, u.PasswordHash, u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	var removed []StoredFile
	for _, f := range files {
		if f.Kind != FileProfile {
			continue
		}
		removed, err = deleteFiles(ctx, tx,
			"DELETE FROM user_files WHERE user_id = $1 AND kind = $2", u.ID, string(FileProfile))
		if err != nil {
			return nil, err
		}
		break
	}
	if err := insertFiles(ctx, tx, files); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return removed, nil
}

func (s *PGStore) DeleteUsers(ctx context.Context, ids []uuid.UUID) ([]StoredFile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	files, err := deleteFiles(ctx, tx,
		"DELETE FROM user_files WHERE user_id = ANY($1::uuid[])", keys)
	if err != nil {
		return nil, err
	}
	tag, err := tx.Exec(ctx, "DELETE FROM users WHERE id = ANY($1::uuid[])", keys)
	if err != nil {
		return nil, fmt.Errorf("delete users: %w", classify(err))
	}
	if int(tag.RowsAffected()) != len(uniqueIDs(ids)) {
		return nil, ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return files, nil
}

func (s *PGStore) EachUser(ctx context.Context, fn func(User) error) error {
	rows, err := s.pool.Query(ctx, "SELECT "+userColumns+userFrom+" ORDER BY u.name, u.id")
	if err != nil {
		return fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return err
		}
		if err := fn(u); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *PGStore) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name FROM roles ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (s *PGStore) GetRole(ctx context.Context, id int32) (Role, error) {
	var r Role
	err := s.pool.QueryRow(ctx, "SELECT id, name FROM roles WHERE id = $1", id).Scan(&r.ID, &r.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, ErrNotFound
	}
	if err != nil {
		return Role{}, fmt.Errorf("get role: %w", err)
	}
	return r, nil
}

func (s *PGStore) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (token, user_id, ip_address, user_agent, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sess.Token, sess.UserID, sess.IPAddress, sess.UserAgent, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PGStore) GetSession(ctx context.Context, token string) (Session, error) {
	var sess Session
	err := s.pool.QueryRow(ctx, `
		SELECT token, user_id, ip_address, user_agent, created_at, expires_at
		FROM sessions WHERE token = $1`, token).
		Scan(&sess.Token, &sess.UserID, &sess.IPAddress, &sess.UserAgent, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *PGStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM sessions WHERE token = $1", token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *PGStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM sessions WHERE expires_at <= $1", now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func queryUsers(ctx context.Context, db DBTX, sql string, args ...any) ([]User, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u      User
		gender int16
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role.ID, &u.Role.Name,
		&u.DOB, &gender, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Gender = Gender(gender)
	return u, nil
}

func (s *PGStore) attachFiles(ctx context.Context, db DBTX, users []User) error {
	if len(users) == 0 {
		return nil
	}
	keys := make([]string, len(users))
	index := make(map[uuid.UUID]int, len(users))
	for i, u := range users {
		keys[i] = u.ID.String()
		index[u.ID] = i
	}

	rows, err := db.Query(ctx, `
		SELECT id, user_id, kind, name, size, storage_key, created_at
		FROM user_files WHERE user_id = ANY($1::uuid[]) ORDER BY created_at, id`, keys)
	if err != nil {
		return fmt.Errorf("query user files: %w", err)
	}
	files, err := collectFiles(rows)
	if err != nil {
		return err
	}

	grouped := make(map[uuid.UUID][]StoredFile, len(users))
	for _, f := range files {
		grouped[f.UserID] = append(grouped[f.UserID], f)
	}
	for id, fs := range grouped {
		users[index[id]].AttachFiles(fs)
	}
	return nil
}

func collectFiles(rows pgx.Rows) ([]StoredFile, error) {
	defer rows.Close()
	var files []StoredFile
	for rows.Next() {
		var (
			f    StoredFile
			kind string
		)
		if err := rows.Scan(&f.ID, &f.UserID, &kind, &f.Name, &f.Size, &f.Key, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user file: %w", err)
		}
		f.Kind = FileKind(kind)
		files = append(files, f)
	}
	return files, rows.Err()
}

func insertFiles(ctx context.Context, db DBTX, files []StoredFile) error {
	for _, f := range files {
		_, err := db.Exec(ctx, `
			INSERT INTO user_files (id, user_id, kind, name, size, storage_key, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			f.ID, f.UserID, string(f.Kind), f.Name, f.Size, f.Key, f.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert user file: %w", err)
		}
	}
	return nil
}

func deleteFiles(ctx context.Context, db DBTX, sql string, args ...any) ([]StoredFile, error) {
	rows, err := db.Query(ctx, sql+" RETURNING id, user_id, kind, name, size, storage_key, created_at", args...)
	if err != nil {
		return nil, fmt.Errorf("delete user files: %w", err)
	}
	return collectFiles(rows)
}

func uniqueIDs(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// classify turns constraint violations into domain errors.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if pgErr.ConstraintName == "users_email_key" {
				return ErrEmailTaken
			}
		case "23503":
			if pgErr.ConstraintName == "users_role_id_fkey" {
				return fmt.Errorf("%w: unknown role", ErrValidation)
			}
		}
	}
	return err
}
