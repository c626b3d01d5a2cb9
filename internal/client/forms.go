package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/JonMunkholm/registry/internal/table"
	"github.com/JonMunkholm/registry/internal/userform"
)

// CreateUser validates f in create mode and submits it with POST /users.
func (c *Client) CreateUser(ctx context.Context, f userform.Form) (table.Row, error) {
	return c.submitForm(ctx, f, userform.ModeCreate, "create user", "/users")
}

// UpdateUser validates f in edit mode and submits it with POST /users/{id}.
// Files marked Stored are left as they are on the server.
func (c *Client) UpdateUser(ctx context.Context, id table.RowID, f userform.Form) (table.Row, error) {
	return c.submitForm(ctx, f, userform.ModeEdit, "update user", "/users/"+url.PathEscape(string(id)))
}

func (c *Client) submitForm(ctx context.Context, f userform.Form, mode userform.Mode, op, path string) (table.Row, error) {
	if err := userform.Validate(ctx, f, mode); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := writeForm(mw, f); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	body, _, err := c.do(ctx, request{
		op:          op,
		fallback:    "Failed to save user",
		method:      http.MethodPost,
		path:        path,
		body:        &buf,
		contentType: mw.FormDataContentType(),
	})
	if err != nil {
		return nil, err
	}
	return table.Row(decodeObject(gjson.GetBytes(body, "data"))), nil
}

func writeForm(mw *multipart.Writer, f userform.Form) error {
	status := "0"
	if f.Status != nil && *f.Status {
		status = "1"
	}
	fields := [][2]string{
		{"name", f.Name},
		{"email", f.Email},
		{"role_id", f.RoleID},
		{"dob", f.DOB},
		{"gender", strconv.Itoa(int(f.Gender))},
		{"status", status},
	}
	if f.Password != "" {
		fields = append(fields, [2]string{"password", f.Password})
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}

	if f.Profile != nil && !f.Profile.Stored {
		if err := attach(mw, "profile", *f.Profile); err != nil {
			return err
		}
	}
	for _, a := range f.Galleries {
		if !a.Stored {
			if err := attach(mw, "user_galleries[]", a); err != nil {
				return err
			}
		}
	}
	for _, a := range f.Pictures {
		if !a.Stored {
			if err := attach(mw, "user_pictures[]", a); err != nil {
				return err
			}
		}
	}
	return nil
}

func attach(mw *multipart.Writer, field string, a userform.Attachment) error {
	src, err := os.Open(a.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", field, err)
	}
	defer src.Close()

	name := a.Name
	if name == "" {
		name = filepath.Base(a.Path)
	}
	dst, err := mw.CreateFormFile(field, name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy %s: %w", field, err)
	}
	return nil
}

// AttachmentFromPath describes a local file for upload.
func AttachmentFromPath(path string) (userform.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return userform.Attachment{}, err
	}
	if info.IsDir() {
		return userform.Attachment{}, fmt.Errorf("%s is a directory", path)
	}
	return userform.Attachment{Name: filepath.Base(path), Size: info.Size(), Path: path}, nil
}
