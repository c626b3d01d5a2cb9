package web

import (
	"time"

	"github.com/JonMunkholm/registry/internal/core"
)

// roleResource is a role as sent to clients.
type roleResource struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

// fileResource is an uploaded file as sent to clients. URL is relative to
// the API base.
type fileResource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// userResource is the JSON shape of a user in list, detail and mutation
// responses. Status is 1 or 0.
type userResource struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	Role       roleResource   `json:"role"`
	RoleID     int32          `json:"role_id"`
	DOB        string         `json:"dob"`
	Gender     int16          `json:"gender"`
	GenderText string         `json:"gender_text"`
	Status     int            `json:"status"`
	StatusText string         `json:"status_text"`
	Profile    *fileResource  `json:"profile"`
	Galleries  []fileResource `json:"user_galleries"`
	Pictures   []fileResource `json:"user_pictures"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func newUserResource(u core.User) userResource {
	res := userResource{
		ID:         u.ID.String(),
		Name:       u.Name,
		Email:      u.Email,
		Role:       newRoleResource(u.Role),
		RoleID:     u.Role.ID,
		DOB:        u.DOB.Format(time.DateOnly),
		Gender:     int16(u.Gender),
		GenderText: u.Gender.String(),
		StatusText: u.StatusText(),
		Galleries:  newFileResources(u.Galleries),
		Pictures:   newFileResources(u.Pictures),
		CreatedAt:  u.CreatedAt.UTC(),
		UpdatedAt:  u.UpdatedAt.UTC(),
	}
	if u.Active {
		res.Status = 1
	}
	if u.Profile != nil {
		f := newFileResource(*u.Profile)
		res.Profile = &f
	}
	return res
}

func newUserResources(users []core.User) []userResource {
	out := make([]userResource, len(users))
	for i, u := range users {
		out[i] = newUserResource(u)
	}
	return out
}

func newRoleResource(r core.Role) roleResource {
	return roleResource{ID: r.ID, Name: r.Name}
}

func newFileResource(f core.StoredFile) fileResource {
	return fileResource{
		ID:   f.ID.String(),
		Name: f.Name,
		Size: f.Size,
		URL:  "/users/" + f.UserID.String() + "/files/" + f.ID.String(),
	}
}

func newFileResources(files []core.StoredFile) []fileResource {
	out := make([]fileResource, len(files))
	for i, f := range files {
		out[i] = newFileResource(f)
	}
	return out
}

// envelope wraps a payload as {"data": ...}.
type envelope struct {
	Data any `json:"data"`
}

// pageEnvelope is the list response.
type pageEnvelope struct {
	Data    []userResource `json:"data"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
}
