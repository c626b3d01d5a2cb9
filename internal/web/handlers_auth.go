package web

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/JonMunkholm/registry/internal/core"
	"github.com/JonMunkholm/registry/internal/logging"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Authorization string       `json:"authorization"`
	TokenType     string       `json:"token_type"`
	User          userResource `json:"user"`
}

// handleLogin serves POST /login. It accepts JSON or a urlencoded form.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	ctype, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ctype == "application/json" {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
			s.respondError(w, r, core.Invalidf("email", "request body must be JSON with email and password"))
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		req.Email = r.PostFormValue("email")
		req.Password = r.PostFormValue("password")
	}

	res, err := s.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("login", "user_id", res.User.ID, "ip", r.RemoteAddr)
	writeJSON(w, http.StatusOK, envelope{Data: loginResponse{
		Authorization: res.Token,
		TokenType:     "Bearer",
		User:          newUserResource(res.User),
	}})
}

// handleLogout serves GET /logout and revokes the caller's token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Logout(r.Context(), core.AuthTokenFromContext(r.Context())); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out."})
}

// handleListRoles serves GET /roles.
func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.service.Roles(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out := make([]roleResource, len(roles))
	for i, role := range roles {
		out[i] = newRoleResource(role)
	}
	writeJSON(w, http.StatusOK, envelope{Data: out})
}

type healthResponse struct {
	Status  string                   `json:"status"`
	Uploads core.UploadLimiterStatus `json:"uploads"`
}

// handleHealth serves GET /healthz. It reports 503 when the database is
// unreachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var res healthResponse
	if s.uploads != nil {
		res.Uploads = s.uploads.Status()
	}
	if err := s.service.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("health check failed", "error", err)
		res.Status = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, res)
		return
	}
	res.Status = "ok"
	writeJSON(w, http.StatusOK, res)
}
