package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/JonMunkholm/registry/internal/client"
	"github.com/JonMunkholm/registry/internal/table"
	"github.com/JonMunkholm/registry/internal/userform"
)

// formFlags are the user form fields as command-line flags.
type formFlags struct {
	name      string
	email     string
	password  string
	dob       string
	role      string
	gender    string
	status    string
	profile   string
	galleries []string
	pictures  []string
}

func (f *formFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "full name")
	fs.StringVar(&f.email, "email", "", "email address")
	fs.StringVar(&f.password, "password", "", "password (required when creating)")
	fs.StringVar(&f.dob, "dob", "", "date of birth, YYYY-MM-DD")
	fs.StringVar(&f.role, "role", "", "role id or name")
	fs.StringVar(&f.gender, "gender", "", "male or female")
	fs.StringVar(&f.status, "status", "", "active or inactive")
	fs.StringVar(&f.profile, "profile", "", "profile picture file")
	fs.StringArrayVar(&f.galleries, "gallery", nil, "gallery image file (repeatable)")
	fs.StringArrayVar(&f.pictures, "picture", nil, "picture file (repeatable)")
}

// apply copies the flags that were set onto form. New gallery and picture
// files are added to the ones already on it.
func (f *formFlags) apply(cmd *cobra.Command, a *app, form *userform.Form) error {
	fs := cmd.Flags()
	if fs.Changed("name") {
		form.Name = strings.TrimSpace(f.name)
	}
	if fs.Changed("email") {
		form.Email = strings.TrimSpace(f.email)
	}
	if fs.Changed("password") {
		form.Password = f.password
	}
	if fs.Changed("dob") {
		form.DOB = f.dob
	}
	if fs.Changed("role") {
		ids, err := a.resolveRoles(cmd, []string{f.role})
		if err != nil {
			return err
		}
		form.RoleID = ids[0]
	}
	if fs.Changed("gender") {
		g, err := userform.ParseGender(f.gender)
		if err != nil {
			return err
		}
		form.Gender = g
	}
	if fs.Changed("status") {
		active, err := parseStatus(f.status)
		if err != nil {
			return err
		}
		form.Status = &active
	}
	if fs.Changed("profile") {
		att, err := client.AttachmentFromPath(f.profile)
		if err != nil {
			return fmt.Errorf("--profile: %w", err)
		}
		form.Profile = &att
	}
	for _, p := range f.galleries {
		att, err := client.AttachmentFromPath(p)
		if err != nil {
			return fmt.Errorf("--gallery: %w", err)
		}
		form.Galleries = append(form.Galleries, att)
	}
	for _, p := range f.pictures {
		att, err := client.AttachmentFromPath(p)
		if err != nil {
			return fmt.Errorf("--picture: %w", err)
		}
		form.Pictures = append(form.Pictures, att)
	}
	return nil
}

func parseStatus(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "1", "true", "yes":
		return true, nil
	case "inactive", "0", "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid status %q: use active or inactive", s)
	}
}

func newCreateCmd(a *app) *cobra.Command {
	var f formFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Example: `  registry-console users create --name "Ann Lee" --email ann@example.com \
    --password s3cret --dob 1990-04-01 --role Admin --gender female --status active \
    --profile me.png --gallery a.png --picture b.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			var form userform.Form
			if err := f.apply(cmd, a, &form); err != nil {
				return err
			}
			row, err := a.api.CreateUser(cmd.Context(), form)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", row.ID(), row.Text("email"))
			return nil
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var f formFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a user",
		Long: `Change a user. Fields not given keep their current value; new gallery and
picture files are added to the existing ones.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			id := table.RowID(args[0])
			current, err := a.api.FetchDetail(cmd.Context(), id)
			if err != nil {
				return err
			}
			form := formFromRow(current)
			if err := f.apply(cmd, a, &form); err != nil {
				return err
			}
			row, err := a.api.UpdateUser(cmd.Context(), id, form)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated user %s (%s)\n", row.ID(), row.Text("email"))
			return nil
		},
	}
	f.register(cmd.Flags())
	return cmd
}

// formFromRow pre-fills an edit form from a user resource. Existing files
// are marked Stored so they are not uploaded again.
func formFromRow(r table.Row) userform.Form {
	f := userform.Form{
		Name:   r.Text("name"),
		Email:  r.Text("email"),
		DOB:    r.Text("dob"),
		RoleID: r.Text("role_id"),
	}
	if f.RoleID == "" {
		f.RoleID = r.Text("role.id")
	}
	if g, err := userform.ParseGender(r.Text("gender")); err == nil {
		f.Gender = g
	}
	if s := r.Text("status"); s != "" {
		active := s == "1" || s == "true"
		f.Status = &active
	}
	if name := r.Text("profile.name"); name != "" {
		f.Profile = &userform.Attachment{Name: name, Stored: true}
	}
	f.Galleries = storedFiles(r, "user_galleries")
	f.Pictures = storedFiles(r, "user_pictures")
	return f
}

func storedFiles(r table.Row, path string) []userform.Attachment {
	v, _ := r.Lookup(path)
	list, _ := v.([]any)
	out := make([]userform.Attachment, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		size, _ := obj["size"].(float64)
		out = append(out, userform.Attachment{
			Name:   table.Row(obj).Text("name"),
			Size:   int64(size),
			Stored: true,
		})
	}
	return out
}
