package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/registry/internal/core"
	"github.com/JonMunkholm/registry/internal/filter"
	"github.com/JonMunkholm/registry/internal/logging"
)

// multipartMemory is how much of a form is held in memory before file
// parts spill to temporary files.
const multipartMemory = 8 << 20

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// handleListUsers serves GET /users.
//
// Query parameters: page, per_page, sort, order_by (asc|desc), search and
// filter (an encoded filter token, e.g. role_id).
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	p, err := parseListParams(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err = core.NormalizeListParams(p)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	page, err := s.service.ListUsers(r.Context(), p)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageEnvelope{
		Data:    newUserResources(page.Users),
		Total:   page.Total,
		Page:    p.Page,
		PerPage: p.PerPage,
	})
}

func parseListParams(r *http.Request) (core.ListParams, error) {
	q := r.URL.Query()
	var p core.ListParams
	var err error

	if p.Page, err = intParam(q.Get("page"), "page"); err != nil {
		return p, err
	}
	if p.PerPage, err = intParam(q.Get("per_page"), "per_page"); err != nil {
		return p, err
	}

	p.Sort = strings.TrimSpace(q.Get("sort"))
	switch strings.ToLower(q.Get("order_by")) {
	case "", "asc":
	case "desc":
		p.Desc = true
	default:
		return p, core.Invalidf("order_by", "order_by must be asc or desc")
	}
	p.Search = q.Get("search")

	p.Filter, err = filter.Decode(q.Get("filter"))
	if err != nil {
		return p, core.Invalidf("filter", "filter is not a valid filter token")
	}
	return p, nil
}

// intParam parses an optional integer query value. Empty yields 0.
func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.Invalidf(name, "%s must be a number", name)
	}
	return n, nil
}

// handleGetUser serves GET /users/{id}.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	u, err := s.service.GetUser(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: newUserResource(u)})
}

// handleCreateUser serves POST /users with a multipart form.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	s.withUpload(w, r, func(in core.UserInput) {
		u, err := s.service.CreateUser(r.Context(), in)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		logging.FromContext(r.Context()).Info("user created", "user_id", u.ID, "email", u.Email)
		writeJSON(w, http.StatusCreated, envelope{Data: newUserResource(u)})
	})
}

// handleUpdateUser serves POST /users/{id} with a multipart form. An empty
// password keeps the current one.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.withUpload(w, r, func(in core.UserInput) {
		u, err := s.service.UpdateUser(r.Context(), id, in)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		logging.FromContext(r.Context()).Info("user updated", "user_id", u.ID)
		writeJSON(w, http.StatusOK, envelope{Data: newUserResource(u)})
	})
}

// withUpload holds an upload slot, parses the form and calls fn. Temporary
// files are released when fn returns.
func (s *Server) withUpload(w http.ResponseWriter, r *http.Request, fn func(core.UserInput)) {
	if s.uploads != nil {
		if err := s.uploads.Acquire(r.Context()); err != nil {
			s.respondError(w, r, err)
			return
		}
		defer s.uploads.Release()
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, err)
			return
		}
		s.respondError(w, r, core.Invalidf("form", "request body must be multipart/form-data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	in, closeFiles, err := readUserInput(r.MultipartForm)
	defer closeFiles()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	fn(in)
}

// readUserInput maps form fields onto a UserInput. Array fields are
// accepted with or without the [] suffix.
func readUserInput(form *multipart.Form) (core.UserInput, func(), error) {
	value := func(key string) string {
		if vs := form.Value[key]; len(vs) > 0 {
			return strings.TrimSpace(vs[0])
		}
		return ""
	}

	in := core.UserInput{
		Name:     value("name"),
		Email:    value("email"),
		Password: value("password"),
		DOB:      value("dob"),
		RoleID:   value("role_id"),
		Gender:   value("gender"),
	}
	if raw := value("status"); raw != "" {
		active, err := parseStatus(raw)
		if err != nil {
			return in, func() {}, err
		}
		in.Status = &active
	}

	var opened []io.Closer
	closeAll := func() {
		for _, c := range opened {
			_ = c.Close()
		}
	}
	open := func(fh *multipart.FileHeader) (core.Upload, error) {
		f, err := fh.Open()
		if err != nil {
			return core.Upload{}, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		return core.Upload{Name: fh.Filename, Size: fh.Size, Content: f}, nil
	}
	group := func(key string) ([]core.Upload, error) {
		headers := slices.Concat(form.File[key+"[]"], form.File[key])
		ups := make([]core.Upload, 0, len(headers))
		for _, fh := range headers {
			up, err := open(fh)
			if err != nil {
				return nil, err
			}
			ups = append(ups, up)
		}
		return ups, nil
	}

	if fhs := form.File["profile"]; len(fhs) > 0 {
		up, err := open(fhs[0])
		if err != nil {
			return in, closeAll, err
		}
		in.Profile = &up
	}
	var err error
	if in.Galleries, err = group("user_galleries"); err != nil {
		return in, closeAll, err
	}
	if in.Pictures, err = group("user_pictures"); err != nil {
		return in, closeAll, err
	}
	return in, closeAll, nil
}

func parseStatus(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "1", "true", "on", "active":
		return true, nil
	case "0", "false", "off", "inactive":
		return false, nil
	default:
		return false, core.Invalidf("status", "status must be 1 or 0")
	}
}

// handleDeleteUser serves DELETE /users/{id}.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.service.DeleteUser(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("user deleted", "user_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully."})
}

// handleDeleteUsers serves POST /users-delete-multiple with {"id": [...]}.
// Either every listed user is deleted or none is.
func (s *Server) handleDeleteUsers(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID []string `json:"id"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&body); err != nil {
		s.respondError(w, r, core.Invalidf("id", "request body must be JSON with an id list"))
		return
	}
	ids, err := core.ParseIDs(body.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.service.DeleteUsers(r.Context(), ids); err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("users deleted", "count", len(ids))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Users deleted successfully.",
		"deleted": len(ids),
	})
}

// handleExport serves GET /users-export as a CSV attachment. The file is
// built before the first byte is sent so failures still produce JSON.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.service.ExportCSV(r.Context(), &buf); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": core.ExportFileName}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// handleUserFile serves GET /users/{id}/files/{fileID}.
func (s *Server) handleUserFile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	fileID, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		s.respondError(w, r, core.ErrNotFound)
		return
	}

	f, rc, err := s.service.OpenFile(r.Context(), userID, fileID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer rc.Close()

	ctype := mime.TypeByExtension(strings.ToLower(path.Ext(f.Name)))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": f.Name}))

	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, f.Name, f.CreatedAt, rs)
		return
	}
	w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	_, _ = io.Copy(w, rc)
}

// userIDParam parses a user id path parameter. Malformed ids are reported
// as not found.
func userIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, core.ErrNotFound
	}
	return id, nil
}
