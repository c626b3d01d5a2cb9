package console

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DirSink writes exports into Dir. Each file name gets a timestamp so earlier
// exports are never overwritten.
type DirSink struct {
	Dir string
	Now func() time.Time
}

// Deliver implements table.FileSink.
func (s DirSink) Deliver(name string, data []byte) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	base := stampedName(name, now())

	for i := 0; ; i++ {
		candidate := base
		if i > 0 {
			ext := filepath.Ext(base)
			candidate = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(base, ext), i, ext)
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create export file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("write export file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close export file: %w", err)
		}
		return path, nil
	}
}

// stampedName turns "users_export.csv" into "users_export-20060102-150405.csv".
func stampedName(name string, t time.Time) string {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "export.csv"
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%s%s", strings.TrimSuffix(name, ext), t.Format("20060102-150405"), ext)
}
