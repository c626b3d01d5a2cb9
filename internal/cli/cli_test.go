package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/registry/internal/apperr"
	"github.com/JonMunkholm/registry/internal/filter"
	"github.com/JonMunkholm/registry/internal/session"
	"github.com/JonMunkholm/registry/internal/table"
	"github.com/JonMunkholm/registry/internal/userform"
)

const testToken = "tok-1"

var (
	alice = map[string]any{
		"id": 1, "name": "Alice", "email": "alice@example.com",
		"role": map[string]any{"id": 1, "name": "Admin"}, "role_id": 1,
		"dob": "1990-01-02", "gender": 2, "gender_text": "Female",
		"status": 1, "status_text": "Active",
		"profile":        map[string]any{"id": 10, "name": "alice.png", "size": 120},
		"user_galleries": []any{map[string]any{"id": 11, "name": "a.png", "size": 300}},
		"user_pictures":  []any{map[string]any{"id": 12, "name": "b.png", "size": 400}},
		"created_at":     "2026-01-02T03:04:05Z",
	}
	bob = map[string]any{
		"id": 2, "name": "Bob", "email": "bob@example.com",
		"role": map[string]any{"id": 2, "name": "Editor"}, "role_id": 2,
		"dob": "1985-06-07", "gender": 1, "gender_text": "Male",
		"status": 0, "status_text": "Inactive",
	}
)

// fakeRegistry serves the subset of the registry API the console uses.
type fakeRegistry struct {
	*httptest.Server

	mu        sync.Mutex
	listQuery url.Values
	deleted   []string
	bulk      []string
	loggedOut bool
	submitted *submission
}

type submission struct {
	path  string
	value url.Values
	files map[string][]string
}

func newFakeRegistry(t *testing.T) *fakeRegistry {
	t.Helper()
	f := &fakeRegistry{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"authorization": testToken,
			"token_type":    "Bearer",
			"user":          map[string]any{"id": 1, "name": "Admin", "email": body.Email},
		}})
	})
	mux.HandleFunc("GET /logout", f.authed(func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		f.loggedOut = true
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out"})
	}))
	mux.HandleFunc("GET /users", f.authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.listQuery = r.URL.Query()
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{alice, bob}, "total": 2})
	}))
	mux.HandleFunc("GET /users/{id}", f.authed(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1" {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "User not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": alice})
	}))
	mux.HandleFunc("DELETE /users/{id}", f.authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deleted = append(f.deleted, r.PathValue("id"))
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"message": "User deleted"})
	}))
	mux.HandleFunc("POST /users-delete-multiple", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ID []string `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.bulk = body.ID
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"message": "Users deleted"})
	}))
	mux.HandleFunc("GET /users-export", f.authed(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, "id,name\n1,Alice\n2,Bob\n")
	}))
	mux.HandleFunc("GET /roles", f.authed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{
			map[string]any{"id": 1, "name": "Admin"},
			map[string]any{"id": 2, "name": "Editor"},
		}})
	}))
	mux.HandleFunc("POST /users", f.authed(f.saveUser("9")))
	mux.HandleFunc("POST /users/{id}", f.authed(func(w http.ResponseWriter, r *http.Request) {
		f.saveUser(r.PathValue("id"))(w, r)
	}))

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeRegistry) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthenticated"})
			return
		}
		h(w, r)
	}
}

func (f *fakeRegistry) saveUser(id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
			return
		}
		sub := &submission{path: r.URL.Path, value: url.Values(r.MultipartForm.Value), files: map[string][]string{}}
		for field, headers := range r.MultipartForm.File {
			for _, h := range headers {
				sub.files[field] = append(sub.files[field], h.Filename)
			}
		}
		f.mu.Lock()
		f.submitted = sub
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": id, "email": r.FormValue("email")}})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type harness struct {
	srv         *fakeRegistry
	sessionFile string
	exportDir   string
}

func newHarness(t *testing.T, loggedIn bool) *harness {
	t.Helper()
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	h := &harness{
		srv:         newFakeRegistry(t),
		sessionFile: filepath.Join(dir, "session.json"),
		exportDir:   filepath.Join(dir, "exports"),
	}
	if loggedIn {
		store := session.NewStore(h.sessionFile)
		require.NoError(t, store.Set(session.Credentials{
			Token: testToken,
			User:  session.User{ID: "1", Name: "Admin", Email: "admin@example.com"},
		}))
	}
	return h
}

func (h *harness) run(stdin string, args ...string) (string, string, error) {
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{
		"--base-url=" + h.srv.URL,
		"--session-file=" + h.sessionFile,
		"--export-dir=" + h.exportDir,
	}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func (h *harness) session(t *testing.T) *session.Store {
	t.Helper()
	store := session.NewStore(h.sessionFile)
	require.NoError(t, store.Load())
	return store
}

func TestLogin(t *testing.T) {
	h := newHarness(t, false)

	out, _, err := h.run("secret\n", "login", "--email=admin@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Admin <admin@example.com>")

	store := h.session(t)
	assert.True(t, store.LoggedIn())
	assert.Equal(t, testToken, store.Token())
	assert.Equal(t, "admin@example.com", store.User().Email)
}

func TestLogin_Failures(t *testing.T) {
	h := newHarness(t, false)

	_, _, err := h.run("", "login", "--email=admin@example.com", "--password=wrong")
	var se *apperr.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.False(t, h.session(t).LoggedIn())

	_, _, err = h.run("", "login", "--email=admin@example.com")
	assert.ErrorContains(t, err, "no password")

	_, _, err = h.run("", "login")
	assert.ErrorContains(t, err, "--email")
}

func TestLogout(t *testing.T) {
	h := newHarness(t, true)

	out, _, err := h.run("", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.True(t, h.srv.loggedOut)
	assert.False(t, h.session(t).LoggedIn())

	out, _, err = h.run("", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestCommandsRequireLogin(t *testing.T) {
	h := newHarness(t, false)

	for _, args := range [][]string{
		nil,
		{"users"},
		{"users", "list"},
		{"users", "show", "1"},
		{"users", "export"},
		{"users", "delete", "1", "--yes"},
		{"users", "create"},
		{"users", "edit", "1"},
	} {
		_, _, err := h.run("", args...)
		assert.ErrorIs(t, err, errNotLoggedIn, "%v", args)
	}
}

func TestBrowseFallsBackToList(t *testing.T) {
	h := newHarness(t, true)

	out, _, err := h.run("")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "bob@example.com")
	assert.Contains(t, out, "1-2 of 2")
	assert.Equal(t, "10", h.srv.listQuery.Get("per_page"))
}

func TestList_Query(t *testing.T) {
	h := newHarness(t, true)

	_, _, err := h.run("", "users", "list",
		"--per-page=5", "--sort=email", "--order=desc", "--search=al", "--role=Editor", "--role=1", "--page=2")
	require.NoError(t, err)

	q := h.srv.listQuery
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "5", q.Get("per_page"))
	assert.Equal(t, "email", q.Get("sort"))
	assert.Equal(t, "desc", q.Get("order_by"))
	assert.Equal(t, "al", q.Get("search"))
	assert.Equal(t, filter.Filter{filter.Role: {"2", "1"}}.Encode(), q.Get("filter"))
}

func TestList_Formats(t *testing.T) {
	h := newHarness(t, true)

	out, _, err := h.run("", "users", "list", "--output=json")
	require.NoError(t, err)
	var page struct {
		Data  []map[string]any `json:"data"`
		Total int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "Alice", page.Data[0]["name"])

	out, _, err = h.run("", "users", "list", "-o", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "1,Alice,alice@example.com,Admin,")

	out, _, err = h.run("", "users", "list", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "| Alice |")
}

func TestList_BadFlags(t *testing.T) {
	h := newHarness(t, true)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--per-page=7"}, "--per-page"},
		{[]string{"--sort=files"}, "cannot sort"},
		{[]string{"--sort=nope"}, "cannot sort"},
		{[]string{"--sort=name", "--order=sideways"}, "--order"},
		{[]string{"--role=Nobody"}, "unknown role"},
		{[]string{"--output=yaml"}, "unknown output format"},
	}
	for _, tt := range tests {
		_, _, err := h.run("", append([]string{"users", "list"}, tt.args...)...)
		assert.ErrorContains(t, err, tt.want, "%v", tt.args)
	}
}

func TestShow(t *testing.T) {
	h := newHarness(t, true)

	out, _, err := h.run("", "users", "show", "1")
	require.NoError(t, err)
	for _, want := range []string{"alice@example.com", "Admin", "alice.png", "a.png", "b.png"} {
		assert.Contains(t, out, want)
	}

	_, _, err = h.run("", "users", "show", "99")
	var se *apperr.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Status)
}

func TestExport(t *testing.T) {
	h := newHarness(t, true)

	_, errOut, err := h.run("", "users", "export")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Exported to "+h.exportDir)
	matches, err := filepath.Glob(filepath.Join(h.exportDir, "users_export-*.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,Alice\n2,Bob\n", string(data))

	out, _, err := h.run("", "users", "export", "--out=-")
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,Alice\n2,Bob\n", out)

	path := filepath.Join(t.TempDir(), "all.csv")
	_, _, err = h.run("", "users", "export", "--out="+path)
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2,Bob")
}

func TestDelete(t *testing.T) {
	h := newHarness(t, true)

	out, _, err := h.run("", "users", "delete", "1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Record deleted")
	assert.Equal(t, []string{"1"}, h.srv.deleted)

	out, _, err = h.run("", "users", "delete", "1", "2", "-y")
	require.NoError(t, err)
	assert.Contains(t, out, "2 records deleted")
	assert.Equal(t, []string{"1", "2"}, h.srv.bulk)

	_, _, err = h.run("y\n", "users", "delete", "2")
	assert.ErrorContains(t, err, "--yes")
	assert.Equal(t, []string{"1"}, h.srv.deleted)
}

func writeFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("img:"+name), 0o600))
	return path
}

func TestCreate(t *testing.T) {
	h := newHarness(t, true)

	out, _, err := h.run("", "users", "create",
		"--name=Ann Lee", "--email=ann@example.com", "--password=pw", "--dob=1990-04-01",
		"--role=Editor", "--gender=female", "--status=active",
		"--profile="+writeFile(t, "me.png"),
		"--gallery="+writeFile(t, "g1.png"), "--gallery="+writeFile(t, "g2.png"),
		"--picture="+writeFile(t, "p.png"))
	require.NoError(t, err)
	assert.Contains(t, out, "Created user 9 (ann@example.com)")

	sub := h.srv.submitted
	require.NotNil(t, sub)
	assert.Equal(t, "/users", sub.path)
	assert.Equal(t, "Ann Lee", sub.value.Get("name"))
	assert.Equal(t, "2", sub.value.Get("role_id"))
	assert.Equal(t, "2", sub.value.Get("gender"))
	assert.Equal(t, "1", sub.value.Get("status"))
	assert.Equal(t, "pw", sub.value.Get("password"))
	assert.Equal(t, []string{"me.png"}, sub.files["profile"])
	assert.Equal(t, []string{"g1.png", "g2.png"}, sub.files["user_galleries[]"])
	assert.Equal(t, []string{"p.png"}, sub.files["user_pictures[]"])
}

func TestCreate_InvalidFormNotSent(t *testing.T) {
	h := newHarness(t, true)

	_, _, err := h.run("", "users", "create", "--name=Ann", "--email=not-an-email")
	var fe userform.Errors
	require.ErrorAs(t, err, &fe)
	assert.NotEmpty(t, fe.Get("email"))
	assert.Nil(t, h.srv.submitted)

	_, _, err = h.run("", "users", "create", "--gender=other")
	assert.ErrorContains(t, err, "gender")
	_, _, err = h.run("", "users", "create", "--status=maybe")
	assert.ErrorContains(t, err, "status")
	_, _, err = h.run("", "users", "create", "--profile=/does/not/exist.png")
	assert.ErrorContains(t, err, "--profile")
}

func TestEdit_KeepsStoredFiles(t *testing.T) {
	h := newHarness(t, true)

	out, _, err := h.run("", "users", "edit", "1", "--name=Alicia", "--status=inactive")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated user 1 (alice@example.com)")

	sub := h.srv.submitted
	require.NotNil(t, sub)
	assert.Equal(t, "/users/1", sub.path)
	assert.Equal(t, "Alicia", sub.value.Get("name"))
	assert.Equal(t, "alice@example.com", sub.value.Get("email"))
	assert.Equal(t, "0", sub.value.Get("status"))
	assert.Equal(t, "2", sub.value.Get("gender"))
	assert.Equal(t, "1", sub.value.Get("role_id"))
	assert.False(t, sub.value.Has("password"))
	assert.Empty(t, sub.files)
}

func TestFormFromRow(t *testing.T) {
	row := table.Row{
		"id": float64(1), "name": "Alice", "email": "alice@example.com",
		"role": map[string]any{"id": float64(3), "name": "Admin"},
		"dob":  "1990-01-02", "gender": float64(1), "status": float64(1),
		"profile":        map[string]any{"name": "alice.png", "size": float64(120)},
		"user_galleries": []any{map[string]any{"name": "a.png", "size": float64(300)}},
	}
	f := formFromRow(row)

	assert.Equal(t, "Alice", f.Name)
	assert.Equal(t, "3", f.RoleID)
	assert.Equal(t, userform.GenderMale, f.Gender)
	require.NotNil(t, f.Status)
	assert.True(t, *f.Status)
	require.NotNil(t, f.Profile)
	assert.True(t, f.Profile.Stored)
	require.Len(t, f.Galleries, 1)
	assert.Equal(t, userform.Attachment{Name: "a.png", Size: 300, Stored: true}, f.Galleries[0])
	assert.Empty(t, f.Pictures)
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]bool{"active": true, "Inactive": false, "1": true, "false": false} {
		got, err := parseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseStatus("")
	assert.Error(t, err)
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, userform.Errors{{Field: "email", Message: "email must be a valid email address"}})
	assert.Equal(t, "Error: the form is invalid\n  email: email must be a valid email address\n", buf.String())

	buf.Reset()
	PrintError(&buf, &apperr.ServerError{Op: "list users", Status: 500, Message: "Server Error", Code: "SRV001"})
	assert.Equal(t, "Error: Server Error (Code: SRV001)\n", buf.String())
}
