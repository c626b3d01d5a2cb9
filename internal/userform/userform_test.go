package userform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/registry/internal/apperr"
)

func validForm() Form {
	active := true
	return Form{
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		Password:  "s3cret-pass",
		DOB:       "1990-12-10",
		RoleID:    "2",
		Gender:    GenderFemale,
		Status:    &active,
		Profile:   &Attachment{Name: "me.png", Size: 1024},
		Galleries: []Attachment{{Name: "g1.png", Size: 2048}},
		Pictures:  []Attachment{{Name: "p1.png", Size: 2048}},
	}
}

func TestValidate_ValidForm(t *testing.T) {
	assert.NoError(t, Validate(context.Background(), validForm(), ModeCreate))
	assert.NoError(t, Validate(context.Background(), validForm(), ModeEdit))
}

func TestValidate_PasswordDependsOnMode(t *testing.T) {
	f := validForm()
	f.Password = ""

	err := Validate(context.Background(), f, ModeCreate)
	require.Error(t, err)
	var errs Errors
	require.True(t, errors.As(err, &errs))
	assert.Equal(t, "password is a required field", errs.Get("password"))

	assert.NoError(t, Validate(context.Background(), f, ModeEdit))
}

func TestValidate_FieldRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Form)
		field   string
		message string
	}{
		{"name required", func(f *Form) { f.Name = "" }, "name", "name is a required field"},
		{"email required", func(f *Form) { f.Email = "" }, "email", "email is a required field"},
		{"email format", func(f *Form) { f.Email = "not-an-email" }, "email", "email must be a valid email address"},
		{"dob required", func(f *Form) { f.DOB = "" }, "dob", "dob is a required field"},
		{"dob format", func(f *Form) { f.DOB = "10/12/1990" }, "dob", "dob does not match the 2006-01-02 format"},
		{"role required", func(f *Form) { f.RoleID = "" }, "role_id", "role_id is a required field"},
		{"gender required", func(f *Form) { f.Gender = 0 }, "gender", "gender is a required field"},
		{"gender range", func(f *Form) { f.Gender = 5 }, "gender", "gender must be one of [1 2]"},
		{"status required", func(f *Form) { f.Status = nil }, "status", "status is a required field"},
		{"profile required", func(f *Form) { f.Profile = nil }, "profile", "profile is a required field"},
		{"galleries size", func(f *Form) {
			f.Galleries = []Attachment{{Name: "a", Size: 3 << 20}, {Name: "b", Size: 2 << 20}}
		}, "user_galleries", "user_galleries total file size exceeds 4MB"},
		{"pictures size", func(f *Form) {
			f.Pictures = []Attachment{{Name: "a", Size: MaxGroupBytes + 1}}
		}, "user_pictures", "user_pictures total file size exceeds 4MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			err := Validate(context.Background(), f, ModeEdit)
			require.Error(t, err)

			var errs Errors
			require.True(t, errors.As(err, &errs))
			assert.Equal(t, tt.message, errs.Get(tt.field))
		})
	}
}

func TestValidate_EmptyGroups(t *testing.T) {
	f := validForm()
	f.Galleries = nil
	f.Pictures = []Attachment{}

	err := Validate(context.Background(), f, ModeCreate)
	var errs Errors
	require.True(t, errors.As(err, &errs))
	assert.Contains(t, errs.Get("user_galleries"), "at least 1")
	assert.Contains(t, errs.Get("user_pictures"), "at least 1")
}

func TestValidate_StoredFilesDoNotCount(t *testing.T) {
	f := validForm()
	f.Galleries = []Attachment{{Name: "old.png", Size: 10 << 20, Stored: true}, {Name: "new.png", Size: 1 << 20}}
	assert.NoError(t, Validate(context.Background(), f, ModeEdit))
}

func TestValidate_ErrorsOrderedAndClassified(t *testing.T) {
	err := Validate(context.Background(), Form{}, ModeCreate)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	var errs Errors
	require.True(t, errors.As(err, &errs))
	require.NotEmpty(t, errs)
	assert.Equal(t, "name", errs[0].Field)
	assert.Equal(t, "email", errs[1].Field)
	assert.Equal(t, "password", errs[2].Field)
}

func TestParseGender(t *testing.T) {
	g, err := ParseGender("Female")
	require.NoError(t, err)
	assert.Equal(t, GenderFemale, g)

	g, err = ParseGender("1")
	require.NoError(t, err)
	assert.Equal(t, "Male", g.String())

	_, err = ParseGender("other")
	assert.Error(t, err)
}
