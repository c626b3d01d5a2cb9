package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileStore keeps the bytes of uploaded user files.
type FileStore interface {
	Save(ctx context.Context, userID uuid.UUID, kind FileKind, up Upload) (StoredFile, error)
	Open(key string) (io.ReadCloser, error)
	Remove(key string) error
}

// DiskFileStore stores files below a root directory, one folder per user.
type DiskFileStore struct {
	root string
	now  func() time.Time
}

// NewDiskFileStore creates root if needed.
func NewDiskFileStore(root string) (*DiskFileStore, error) {
	if root == "" {
		return nil, errors.New("file store: root directory is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	return &DiskFileStore{root: root, now: time.Now}, nil
}

func (d *DiskFileStore) Save(ctx context.Context, userID uuid.UUID, kind FileKind, up Upload) (StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return StoredFile{}, err
	}

	id := uuid.New()
	name := filepath.Base(strings.ReplaceAll(up.Name, `\`, "/"))
	if name == "." || name == "/" {
		name = "file"
	}
	key := path.Join(userID.String(), id.String()+strings.ToLower(filepath.Ext(name)))

	full, err := d.resolve(key)
	if err != nil {
		return StoredFile{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return StoredFile{}, fmt.Errorf("save %s: %w", kind, err)
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return StoredFile{}, fmt.Errorf("save %s: %w", kind, err)
	}
	n, err := io.Copy(f, up.Content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(full)
		return StoredFile{}, fmt.Errorf("save %s: %w", kind, err)
	}

	return StoredFile{
		ID:        id,
		UserID:    userID,
		Kind:      kind,
		Name:      name,
		Size:      n,
		Key:       key,
		CreatedAt: d.now().UTC(),
	}, nil
}

func (d *DiskFileStore) Open(key string) (io.ReadCloser, error) {
	full, err := d.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Remove deletes key. Missing files are not an error.
func (d *DiskFileStore) Remove(key string) error {
	full, err := d.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (d *DiskFileStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid file key %q", key)
	}
	return filepath.Join(d.root, filepath.FromSlash(clean[1:])), nil
}
