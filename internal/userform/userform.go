// Package userform validates the create/edit user form. The mode is passed
// in explicitly; the password is only mandatory when creating.
package userform

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/JonMunkholm/registry/internal/apperr"
)

// Mode selects create or edit rules.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// Gender values as stored by the registry.
type Gender int

const (
	GenderMale   Gender = 1
	GenderFemale Gender = 2
)

// ParseGender accepts "male"/"female" or "1"/"2".
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "1":
		return GenderMale, nil
	case "female", "f", "2":
		return GenderFemale, nil
	default:
		return 0, fmt.Errorf("unknown gender %q", s)
	}
}

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

// MaxGroupBytes caps the combined size of new files in one upload group.
const MaxGroupBytes = 4 << 20

// Attachment is one file in the form. Stored files already live on the
// server and do not count towards size limits.
type Attachment struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Path   string `json:"-"`
	Stored bool   `json:"stored"`
}

// Form is the user create/edit payload.
type Form struct {
	Name      string       `json:"name" validate:"required"`
	Email     string       `json:"email" validate:"required,email"`
	Password  string       `json:"password" validate:"required_on_create"`
	DOB       string       `json:"dob" validate:"required,datetime=2006-01-02"`
	RoleID    string       `json:"role_id" validate:"required,numeric"`
	Gender    Gender       `json:"gender" validate:"required,oneof=1 2"`
	Status    *bool        `json:"status" validate:"required"`
	Profile   *Attachment  `json:"profile" validate:"required"`
	Galleries []Attachment `json:"user_galleries" validate:"min=1,maxbytes=4194304"`
	Pictures  []Attachment `json:"user_pictures" validate:"min=1,maxbytes=4194304"`
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Message string
}

// Errors lists failures in form field order.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

// Unwrap classifies form errors as validation failures.
func (e Errors) Unwrap() error { return apperr.ErrValidation }

// Get returns the message for field, "" when it passed.
func (e Errors) Get(field string) string {
	for _, fe := range e {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

type modeKey struct{}

type validatorSvc struct {
	validate   *validator.Validate
	translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *validatorSvc
)

func get() *validatorSvc {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// json tag names in messages
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)

		_ = v.RegisterValidationCtx("required_on_create", requiredOnCreate)
		_ = v.RegisterValidation("maxbytes", maxBytes)
		registerRequiredOnCreate(v, trans)
		registerMaxBytes(v, trans)

		vSvc = &validatorSvc{validate: v, translator: trans}
	})
	return vSvc
}

// Validate checks f under mode's rules. It returns nil or Errors.
func Validate(ctx context.Context, f Form, mode Mode) error {
	svc := get()
	ctx = context.WithValue(ctx, modeKey{}, mode)

	err := svc.validate.StructCtx(ctx, f)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate user form: %w", err)
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: fe.Translate(svc.translator)})
	}
	return out
}

func requiredOnCreate(ctx context.Context, fl validator.FieldLevel) bool {
	mode, _ := ctx.Value(modeKey{}).(Mode)
	if mode != ModeCreate {
		return true
	}
	return strings.TrimSpace(fl.Field().String()) != ""
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.ParseInt(fl.Param(), 10, 64)
	if err != nil {
		return false
	}
	files, ok := fl.Field().Interface().([]Attachment)
	if !ok {
		return false
	}
	return NewBytes(files) <= limit
}

// NewBytes sums the sizes of files not yet stored on the server.
func NewBytes(files []Attachment) int64 {
	var total int64
	for _, f := range files {
		if !f.Stored {
			total += f.Size
		}
	}
	return total
}

func registerRequiredOnCreate(v *validator.Validate, trans ut.Translator) {
	_ = v.RegisterTranslation("required_on_create", trans,
		func(ut ut.Translator) error {
			return ut.Add("required_on_create", "{0} is a required field", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("required_on_create", fe.Field())
			return msg
		},
	)
}

func registerMaxBytes(v *validator.Validate, trans ut.Translator) {
	_ = v.RegisterTranslation("maxbytes", trans,
		func(ut ut.Translator) error {
			return ut.Add("maxbytes", "{0} total file size exceeds {1}", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("maxbytes", fe.Field(), humanBytes(fe.Param()))
			return msg
		},
	)
}

func humanBytes(param string) string {
	n, err := strconv.ParseInt(param, 10, 64)
	if err != nil {
		return param + " bytes"
	}
	if n >= 1<<20 && n%(1<<20) == 0 {
		return strconv.FormatInt(n>>20, 10) + "MB"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}
