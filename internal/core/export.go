package core

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// ExportFileName is the attachment name of the CSV export.
const ExportFileName = "users_export.csv"

var exportHeader = []string{"ID", "Name", "Email", "Role", "DOB", "Gender", "Status", "Created At"}

// ExportCSV writes every user to w as CSV, header first.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("export header: %w", err)
	}

	err := s.store.EachUser(ctx, func(u User) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return cw.Write(exportRecord(u))
	})
	if err != nil {
		return fmt.Errorf("export users: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

func exportRecord(u User) []string {
	return []string{
		u.ID.String(),
		u.Name,
		u.Email,
		u.Role.Name,
		u.DOB.Format(time.DateOnly),
		u.Gender.String(),
		u.StatusText(),
		u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
