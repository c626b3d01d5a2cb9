package core

import (
	"context"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory Store for service tests.
type memStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]User
	files    map[uuid.UUID][]StoredFile
	roles    map[int32]Role
	sessions map[string]Session
	listed   []ListParams
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[uuid.UUID]User{},
		files:    map[uuid.UUID][]StoredFile{},
		roles:    map[int32]Role{1: {ID: 1, Name: "Admin"}, 2: {ID: 2, Name: "Editor"}},
		sessions: map[string]Session{},
	}
}

func (m *memStore) withFiles(u User) User {
	u.AttachFiles(m.files[u.ID])
	return u
}

func (m *memStore) ListUsers(_ context.Context, p ListParams) (UserPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listed = append(m.listed, p)
	var out []User
	for _, u := range m.users {
		out = append(out, m.withFiles(u))
	}
	slices.SortFunc(out, func(a, b User) int { return strings.Compare(a.Name, b.Name) })
	return UserPage{Users: out, Total: len(out)}, nil
}

func (m *memStore) GetUser(_ context.Context, id uuid.UUID) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return m.withFiles(u), nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return m.withFiles(u), nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memStore) CountUsers(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *memStore) CreateUser(_ context.Context, u User, files []StoredFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.users {
		if strings.EqualFold(other.Email, u.Email) {
			return ErrEmailTaken
		}
	}
	u.Profile, u.Galleries, u.Pictures = nil, nil, nil
	m.users[u.ID] = u
	m.files[u.ID] = append(m.files[u.ID], files...)
	return nil
}

func (m *memStore) UpdateUser(_ context.Context, u User, files []StoredFile) ([]StoredFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.users[u.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if u.PasswordHash == "" {
		u.PasswordHash = cur.PasswordHash
	}
	u.Profile, u.Galleries, u.Pictures = nil, nil, nil
	m.users[u.ID] = u

	var removed []StoredFile
	if slices.ContainsFunc(files, func(f StoredFile) bool { return f.Kind == FileProfile }) {
		kept := m.files[u.ID][:0:0]
		for _, f := range m.files[u.ID] {
			if f.Kind == FileProfile {
				removed = append(removed, f)
				continue
			}
			kept = append(kept, f)
		}
		m.files[u.ID] = kept
	}
	m.files[u.ID] = append(m.files[u.ID], files...)
	return removed, nil
}

func (m *memStore) DeleteUsers(_ context.Context, ids []uuid.UUID) ([]StoredFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if _, ok := m.users[id]; !ok {
			return nil, ErrNotFound
		}
	}
	var files []StoredFile
	for _, id := range ids {
		files = append(files, m.files[id]...)
		delete(m.users, id)
		delete(m.files, id)
	}
	return files, nil
}

func (m *memStore) EachUser(ctx context.Context, fn func(User) error) error {
	page, _ := m.ListUsers(ctx, ListParams{})
	for _, u := range page.Users {
		if err := fn(u); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) ListRoles(context.Context) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var roles []Role
	for _, r := range m.roles {
		roles = append(roles, r)
	}
	slices.SortFunc(roles, func(a, b Role) int { return int(a.ID - b.ID) })
	return roles, nil
}

func (m *memStore) GetRole(_ context.Context, id int32) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return r, nil
}

func (m *memStore) CreateSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = s
	return nil
}

func (m *memStore) GetSession(_ context.Context, token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *memStore) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *memStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for tok, s := range m.sessions {
		if !s.ExpiresAt.After(now) {
			delete(m.sessions, tok)
			n++
		}
	}
	return n, nil
}

func (m *memStore) Ping(context.Context) error { return nil }

// memFiles is an in-memory FileStore.
type memFiles struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemFiles() *memFiles { return &memFiles{data: map[string][]byte{}} }

func (f *memFiles) Save(_ context.Context, userID uuid.UUID, kind FileKind, up Upload) (StoredFile, error) {
	b, err := io.ReadAll(up.Content)
	if err != nil {
		return StoredFile{}, err
	}
	id := uuid.New()
	key := userID.String() + "/" + id.String()
	f.mu.Lock()
	f.data[key] = b
	f.mu.Unlock()
	return StoredFile{ID: id, UserID: userID, Kind: kind, Name: up.Name, Size: int64(len(b)), Key: key}, nil
}

func (f *memFiles) Open(key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(b))), nil
}

func (f *memFiles) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *memFiles) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}
