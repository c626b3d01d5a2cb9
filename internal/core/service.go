package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/JonMunkholm/registry/internal/filter"
	"github.com/JonMunkholm/registry/internal/userform"
)

// Service is the main entry point for registry operations.
type Service struct {
	store      Store
	files      FileStore
	log        *slog.Logger
	bcryptCost int
	sessionTTL time.Duration
	now        func() time.Time
	newToken   func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) { s.bcryptCost = cost }
}

// WithSessionTTL sets how long issued tokens stay valid.
func WithSessionTTL(d time.Duration) ServiceOption {
	return func(s *Service) { s.sessionTTL = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithTokenSource replaces the session token generator.
func WithTokenSource(fn func() string) ServiceOption {
	return func(s *Service) { s.newToken = fn }
}

// WithServiceLogger sets the logger for background cleanup failures.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

// NewService creates a Service over store and files.
func NewService(store Store, files FileStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:      store,
		files:      files,
		log:        slog.Default(),
		bcryptCost: bcrypt.DefaultCost,
		sessionTTL: 24 * time.Hour,
		now:        time.Now,
		newToken:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// NormalizeListParams applies defaults and rejects values the listing
// cannot honor.
func NormalizeListParams(p ListParams) (ListParams, error) {
	switch {
	case p.Page == 0:
		p.Page = 1
	case p.Page < 0:
		return p, Invalidf("page", "page must be at least 1")
	}

	if p.PerPage == 0 {
		p.PerPage = DefaultPerPage
	}
	if !slices.Contains(PageSizes, p.PerPage) {
		return p, Invalidf("per_page", "per_page must be one of %s", joinInts(PageSizes))
	}

	if p.Sort != "" {
		if _, ok := SortColumns[p.Sort]; !ok {
			return p, Invalidf("sort", "cannot sort by %q", p.Sort)
		}
	}

	p.Search = strings.TrimSpace(p.Search)

	p.RoleIDs = nil
	for _, key := range p.Filter.Keys() {
		if key != filter.Role {
			return p, Invalidf("filter", "unknown filter %q", key)
		}
		for _, v := range p.Filter.Values(key) {
			id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
			if err != nil {
				return p, Invalidf("filter", "invalid role id %q", v)
			}
			p.RoleIDs = append(p.RoleIDs, int32(id))
		}
	}
	return p, nil
}

// ListUsers returns one page of users matching p.
func (s *Service) ListUsers(ctx context.Context, p ListParams) (UserPage, error) {
	p, err := NormalizeListParams(p)
	if err != nil {
		return UserPage{}, err
	}
	page, err := s.store.ListUsers(ctx, p)
	if err != nil {
		return UserPage{}, fmt.Errorf("list users: %w", err)
	}
	return page, nil
}

// GetUser returns the user with id.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return s.store.GetUser(ctx, id)
}

// Roles lists the assignable roles.
func (s *Service) Roles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

// CreateUser validates in under create rules, stores its files and inserts
// the user.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (User, error) {
	form := in.form(User{})
	if err := userform.Validate(ctx, form, userform.ModeCreate); err != nil {
		return User{}, err
	}

	u, err := s.applyInput(ctx, User{}, in)
	if err != nil {
		return User{}, err
	}
	if err := s.ensureEmailFree(ctx, u.Email, uuid.Nil); err != nil {
		return User{}, err
	}

	u.ID = uuid.New()
	u.CreatedAt = s.now().UTC()
	u.UpdatedAt = u.CreatedAt
	if u.PasswordHash, err = s.HashPassword(in.Password); err != nil {
		return User{}, err
	}

	saved, err := s.saveUploads(ctx, u.ID, in)
	if err != nil {
		return User{}, err
	}
	if err := s.store.CreateUser(ctx, u, saved); err != nil {
		s.discard(saved)
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return s.store.GetUser(ctx, u.ID)
}

// UpdateUser validates in under edit rules and applies it to user id. New
// gallery and picture files are appended; a new profile replaces the old one.
func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, in UserInput) (User, error) {
	current, err := s.store.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}

	form := in.form(current)
	if err := userform.Validate(ctx, form, userform.ModeEdit); err != nil {
		return User{}, err
	}

	u, err := s.applyInput(ctx, current, in)
	if err != nil {
		return User{}, err
	}
	if err := s.ensureEmailFree(ctx, u.Email, u.ID); err != nil {
		return User{}, err
	}
	u.PasswordHash = ""
	if in.Password != "" {
		if u.PasswordHash, err = s.HashPassword(in.Password); err != nil {
			return User{}, err
		}
	}
	u.UpdatedAt = s.now().UTC()

	saved, err := s.saveUploads(ctx, u.ID, in)
	if err != nil {
		return User{}, err
	}
	removed, err := s.store.UpdateUser(ctx, u, saved)
	if err != nil {
		s.discard(saved)
		return User{}, fmt.Errorf("update user: %w", err)
	}
	s.discard(removed)
	return s.store.GetUser(ctx, u.ID)
}

// DeleteUser removes one user and its files.
func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.DeleteUsers(ctx, []uuid.UUID{id})
}

// DeleteUsers removes every listed user or none of them.
func (s *Service) DeleteUsers(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return Invalidf("id", "select at least one user")
	}
	files, err := s.store.DeleteUsers(ctx, ids)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete users: %w", err)
	}
	s.discard(files)
	return nil
}

// OpenFile returns one of user userID's files and its contents. The caller
// closes the reader.
func (s *Service) OpenFile(ctx context.Context, userID, fileID uuid.UUID) (StoredFile, io.ReadCloser, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return StoredFile{}, nil, err
	}
	all := append(slices.Clone(u.Galleries), u.Pictures...)
	if u.Profile != nil {
		all = append(all, *u.Profile)
	}
	for _, f := range all {
		if f.ID == fileID {
			rc, err := s.files.Open(f.Key)
			if err != nil {
				return StoredFile{}, nil, err
			}
			return f, rc, nil
		}
	}
	return StoredFile{}, nil, ErrNotFound
}

// ParseIDs converts request ids into UUIDs.
func ParseIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(strings.TrimSpace(r))
		if err != nil {
			return nil, Invalidf("id", "invalid user id %q", r)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// HashPassword hashes pw with the configured bcrypt cost.
func (s *Service) HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// applyInput copies validated fields from in onto u.
func (s *Service) applyInput(ctx context.Context, u User, in UserInput) (User, error) {
	dob, err := time.Parse(time.DateOnly, in.DOB)
	if err != nil {
		return User{}, Invalidf("dob", "dob must be a date in YYYY-MM-DD format")
	}
	roleID, err := strconv.ParseInt(in.RoleID, 10, 32)
	if err != nil {
		return User{}, Invalidf("role_id", "role_id must be a number")
	}
	role, err := s.store.GetRole(ctx, int32(roleID))
	if errors.Is(err, ErrNotFound) {
		return User{}, Invalidf("role_id", "the selected role does not exist")
	}
	if err != nil {
		return User{}, fmt.Errorf("get role: %w", err)
	}
	g, err := userform.ParseGender(in.Gender)
	if err != nil {
		return User{}, Invalidf("gender", "gender must be male or female")
	}

	u.Name = strings.TrimSpace(in.Name)
	u.Email = strings.TrimSpace(in.Email)
	u.Role = role
	u.DOB = dob
	u.Gender = Gender(g)
	u.Active = in.Status != nil && *in.Status
	return u, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string, self uuid.UUID) error {
	other, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check email: %w", err)
	case other.ID == self:
		return nil
	default:
		return userform.Errors{{Field: "email", Message: "The email has already been taken."}}
	}
}

func (s *Service) saveUploads(ctx context.Context, userID uuid.UUID, in UserInput) ([]StoredFile, error) {
	var saved []StoredFile
	store := func(kind FileKind, up Upload) error {
		f, err := s.files.Save(ctx, userID, kind, up)
		if err != nil {
			s.discard(saved)
			return err
		}
		saved = append(saved, f)
		return nil
	}
	if in.Profile != nil {
		if err := store(FileProfile, *in.Profile); err != nil {
			return nil, err
		}
	}
	for _, up := range in.Galleries {
		if err := store(FileGallery, up); err != nil {
			return nil, err
		}
	}
	for _, up := range in.Pictures {
		if err := store(FilePicture, up); err != nil {
			return nil, err
		}
	}
	return saved, nil
}

// discard removes file bytes whose rows are gone. Failures only leave
// orphaned files behind, so they are logged.
func (s *Service) discard(files []StoredFile) {
	for _, f := range files {
		if err := s.files.Remove(f.Key); err != nil {
			s.log.Warn("remove user file", "key", f.Key, "error", err)
		}
	}
}

// form builds the shared user form from in, counting current's stored files.
func (in UserInput) form(current User) userform.Form {
	g, _ := userform.ParseGender(in.Gender)
	f := userform.Form{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		DOB:      in.DOB,
		RoleID:   in.RoleID,
		Gender:   g,
		Status:   in.Status,
	}

	switch {
	case in.Profile != nil:
		f.Profile = &userform.Attachment{Name: in.Profile.Name, Size: in.Profile.Size}
	case current.Profile != nil:
		f.Profile = &userform.Attachment{Name: current.Profile.Name, Size: current.Profile.Size, Stored: true}
	}
	f.Galleries = attachments(current.Galleries, in.Galleries)
	f.Pictures = attachments(current.Pictures, in.Pictures)
	return f
}

func attachments(stored []StoredFile, uploads []Upload) []userform.Attachment {
	out := make([]userform.Attachment, 0, len(stored)+len(uploads))
	for _, f := range stored {
		out = append(out, userform.Attachment{Name: f.Name, Size: f.Size, Stored: true})
	}
	for _, up := range uploads {
		out = append(out, userform.Attachment{Name: up.Name, Size: up.Size})
	}
	return out
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
