package web

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/registry/internal/core"
)

// fakeStore keeps users, files and sessions in maps. Listing ignores the
// search and filter and returns users by name.
type fakeStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]core.User
	files    map[uuid.UUID][]core.StoredFile
	sessions map[string]core.Session
	roles    []core.Role
	listed   []core.ListParams
	pingErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[uuid.UUID]core.User{},
		files:    map[uuid.UUID][]core.StoredFile{},
		sessions: map[string]core.Session{},
		roles:    []core.Role{{ID: 1, Name: "Admin"}, {ID: 2, Name: "Editor"}},
	}
}

func (f *fakeStore) load(u core.User) core.User {
	u.AttachFiles(f.files[u.ID])
	return u
}

func (f *fakeStore) ListUsers(_ context.Context, p core.ListParams) (core.UserPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, p)
	out := make([]core.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, f.load(u))
	}
	slices.SortFunc(out, func(a, b core.User) int { return strings.Compare(a.Name, b.Name) })
	return core.UserPage{Users: out, Total: len(out)}, nil
}

func (f *fakeStore) GetUser(_ context.Context, id uuid.UUID) (core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return f.load(u), nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return f.load(u), nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (f *fakeStore) CountUsers(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

func (f *fakeStore) CreateUser(_ context.Context, u core.User, files []core.StoredFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Profile, u.Galleries, u.Pictures = nil, nil, nil
	f.users[u.ID] = u
	f.files[u.ID] = append(f.files[u.ID], files...)
	return nil
}

func (f *fakeStore) UpdateUser(_ context.Context, u core.User, files []core.StoredFile) ([]core.StoredFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.users[u.ID]
	if !ok {
		return nil, core.ErrNotFound
	}
	if u.PasswordHash == "" {
		u.PasswordHash = cur.PasswordHash
	}
	u.Profile, u.Galleries, u.Pictures = nil, nil, nil
	f.users[u.ID] = u

	var removed []core.StoredFile
	if slices.ContainsFunc(files, func(sf core.StoredFile) bool { return sf.Kind == core.FileProfile }) {
		f.files[u.ID] = slices.DeleteFunc(f.files[u.ID], func(sf core.StoredFile) bool {
			if sf.Kind == core.FileProfile {
				removed = append(removed, sf)
				return true
			}
			return false
		})
	}
	f.files[u.ID] = append(f.files[u.ID], files...)
	return removed, nil
}

func (f *fakeStore) DeleteUsers(_ context.Context, ids []uuid.UUID) ([]core.StoredFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if _, ok := f.users[id]; !ok {
			return nil, core.ErrNotFound
		}
	}
	var files []core.StoredFile
	for _, id := range ids {
		files = append(files, f.files[id]...)
		delete(f.users, id)
		delete(f.files, id)
	}
	return files, nil
}

func (f *fakeStore) EachUser(ctx context.Context, fn func(core.User) error) error {
	page, _ := f.ListUsers(ctx, core.ListParams{})
	for _, u := range page.Users {
		if err := fn(u); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) ListRoles(context.Context) ([]core.Role, error) {
	return slices.Clone(f.roles), nil
}

func (f *fakeStore) GetRole(_ context.Context, id int32) (core.Role, error) {
	for _, r := range f.roles {
		if r.ID == id {
			return r, nil
		}
	}
	return core.Role{}, core.ErrNotFound
}

func (f *fakeStore) CreateSession(_ context.Context, s core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.Token] = s
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, token string) (core.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[token]
	if !ok {
		return core.Session{}, core.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) DeleteSession(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
	return nil
}

func (f *fakeStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for tok, s := range f.sessions {
		if !s.ExpiresAt.After(now) {
			delete(f.sessions, tok)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

// fakeFiles is an in-memory FileStore whose readers do not seek.
type fakeFiles struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeFiles() *fakeFiles { return &fakeFiles{data: map[string][]byte{}} }

func (f *fakeFiles) Save(_ context.Context, userID uuid.UUID, kind core.FileKind, up core.Upload) (core.StoredFile, error) {
	b, err := io.ReadAll(up.Content)
	if err != nil {
		return core.StoredFile{}, err
	}
	id := uuid.New()
	key := userID.String() + "/" + id.String()
	f.mu.Lock()
	f.data[key] = b
	f.mu.Unlock()
	return core.StoredFile{ID: id, UserID: userID, Kind: kind, Name: up.Name, Size: int64(len(b)), Key: key}, nil
}

func (f *fakeFiles) Open(key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.data[key]
	if !ok {
		return nil, core.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeFiles) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

var errBoom = errors.New("boom")
