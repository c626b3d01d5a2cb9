package core

import (
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/registry/internal/apperr"
	"github.com/JonMunkholm/registry/internal/filter"
)

var (
	// ErrNotFound is returned when a user or session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation wraps input the service refuses. It is the same sentinel
	// the user form and the console classify with.
	ErrValidation = apperr.ErrValidation

	// ErrInvalidCredentials is returned by Login for a bad email/password pair.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthenticated is returned for missing, unknown or expired tokens.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrAccountInactive is returned by Login for a deactivated user.
	ErrAccountInactive = errors.New("account is inactive")

	// ErrEmailTaken is returned when another user already has the email.
	ErrEmailTaken = errors.New("email already taken")
)

// Gender as stored in the users table.
type Gender int16

const (
	GenderMale   Gender = 1
	GenderFemale Gender = 2
)

func (g Gender) Valid() bool { return g == GenderMale || g == GenderFemale }

func (g Gender) String() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	default:
		return ""
	}
}

// FileKind groups a user's uploaded files.
type FileKind string

const (
	FileProfile FileKind = "profile"
	FileGallery FileKind = "gallery"
	FilePicture FileKind = "picture"
)

// Role is an assignable user role.
type Role struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

// StoredFile is an uploaded file attached to a user.
type StoredFile struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"-"`
	Kind      FileKind  `json:"kind"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Key       string    `json:"-"` // location inside the FileStore
	CreatedAt time.Time `json:"created_at"`
}

// User is a registry entry.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	DOB          time.Time
	Gender       Gender
	Active       bool
	Profile      *StoredFile
	Galleries    []StoredFile
	Pictures     []StoredFile
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StatusText renders Active for display and export.
func (u User) StatusText() string {
	if u.Active {
		return "Active"
	}
	return "Inactive"
}

// AttachFiles sorts files into the profile, gallery and picture slots.
func (u *User) AttachFiles(files []StoredFile) {
	u.Profile, u.Galleries, u.Pictures = nil, nil, nil
	for i := range files {
		f := files[i]
		switch f.Kind {
		case FileProfile:
			u.Profile = &f
		case FileGallery:
			u.Galleries = append(u.Galleries, f)
		case FilePicture:
			u.Pictures = append(u.Pictures, f)
		}
	}
}

// PageSizes are the accepted per_page values.
var PageSizes = []int{2, 5, 10, 25, 50, 100}

// DefaultPerPage applies when per_page is absent.
const DefaultPerPage = 10

// SortColumns maps public sort keys to SQL expressions.
var SortColumns = map[string]string{
	"name":        "u.name",
	"email":       "u.email",
	"dob":         "u.dob",
	"role":        "r.name",
	"gender_text": "u.gender",
	"status_text": "u.status",
	"created_at":  "u.created_at",
}

// ListParams selects one page of users.
type ListParams struct {
	Page    int
	PerPage int
	Sort    string // key of SortColumns, "" for the default order
	Desc    bool
	Search  string
	Filter  filter.Filter

	// RoleIDs is the role_id filter, resolved from Filter by the Service.
	RoleIDs []int32
}

// UserPage is one page of users and the number of matches overall.
type UserPage struct {
	Users []User
	Total int
}

// Upload is a file received with a create or edit request.
type Upload struct {
	Name    string
	Size    int64
	Content io.Reader
}

// UserInput carries the fields of a create or edit request. Status is nil
// when the request did not send it.
type UserInput struct {
	Name      string
	Email     string
	Password  string
	DOB       string
	RoleID    string
	Gender    string
	Status    *bool
	Profile   *Upload
	Galleries []Upload
	Pictures  []Upload
}

// Session is an issued bearer token.
type Session struct {
	Token     string
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
	IPAddress string
	UserAgent string
}

// LoginResult is what a successful login returns to the caller.
type LoginResult struct {
	Token string
	User  User
}
