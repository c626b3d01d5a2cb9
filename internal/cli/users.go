package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/registry/internal/console"
	"github.com/JonMunkholm/registry/internal/filter"
	"github.com/JonMunkholm/registry/internal/table"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "users",
		Short:       "Browse users interactively",
		Long:        "Browse users in a terminal table. Falls back to 'users list' when stdout is not a terminal.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationTUI: "true"},
		RunE:        a.runBrowse,
	}
	cmd.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newExportCmd(a),
		newDeleteCmd(a),
		newCreateCmd(a),
		newEditCmd(a),
	)
	return cmd
}

func (a *app) runBrowse(cmd *cobra.Command, _ []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if !isTerminal(cmd.OutOrStdout()) {
		return a.runList(cmd, listOptions{output: "table"})
	}

	ctrl := a.newController()
	m := console.New(ctrl, console.Options{
		User:    a.store.User().Email,
		Roles:   a.api,
		Timeout: a.cfg.Timeout,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	if !a.store.LoggedIn() {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Your session has expired. Run 'registry-console login' to sign in again.")
	}
	return nil
}

type listOptions struct {
	page    int
	perPage int
	sort    string
	order   string
	search  string
	roles   []string
	output  string
}

func newListCmd(a *app) *cobra.Command {
	var o listOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of users",
		Example: `  registry-console users list --sort name --order desc
  registry-console users list --search ali --role Admin --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			return a.runList(cmd, o)
		},
	}
	f := cmd.Flags()
	f.IntVar(&o.page, "page", 1, "page number")
	f.IntVar(&o.perPage, "per-page", 0, fmt.Sprintf("rows per page, one of %v", table.PageSizes))
	f.StringVar(&o.sort, "sort", "", "column to sort by")
	f.StringVar(&o.order, "order", "asc", "sort order (asc|desc)")
	f.StringVar(&o.search, "search", "", "free-text search")
	f.StringSliceVar(&o.roles, "role", nil, "only users with this role id or name (repeatable)")
	f.StringVarP(&o.output, "output", "o", "table", "output format (table|json|csv|markdown)")
	_ = cmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json", "csv", "markdown"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

// runList applies the options to a fresh controller, waits for the page and prints it.
func (a *app) runList(cmd *cobra.Command, o listOptions) error {
	ctrl := a.newController()
	defer ctrl.Close()

	if o.perPage != 0 {
		if !table.ValidPageSize(o.perPage) {
			return fmt.Errorf("--per-page must be one of %v", table.PageSizes)
		}
		ctrl.SetPageSize(o.perPage)
	}
	if o.sort != "" {
		col, ok := ctrl.Columns().Lookup(o.sort)
		if !ok || !col.Sortable {
			return fmt.Errorf("cannot sort by %q", o.sort)
		}
		dir, err := parseOrder(o.order)
		if err != nil {
			return err
		}
		ctrl.SortBy(o.sort, dir)
	}
	if o.search != "" {
		ctrl.CommitSearch(o.search)
	}
	if len(o.roles) > 0 {
		ids, err := a.resolveRoles(cmd, o.roles)
		if err != nil {
			return err
		}
		ctrl.SetFilter(filter.Filter{}.With(filter.Role, ids...))
	}
	if o.page > 1 {
		ctrl.SetPage(o.page)
	}

	// the setters above only stage the query; one fetch settles it
	settle(ctrl, ctrl.Refresh())
	if err := ctrl.Failure(); err != nil {
		return err
	}
	return renderPage(cmd.OutOrStdout(), ctrl.View(), o.output)
}

func parseOrder(s string) (table.Direction, error) {
	switch strings.ToLower(s) {
	case "", "asc":
		return table.Asc, nil
	case "desc":
		return table.Desc, nil
	default:
		return "", fmt.Errorf("--order must be asc or desc, got %q", s)
	}
}

// resolveRoles maps role names to ids. Numeric values are taken as ids.
func (a *app) resolveRoles(cmd *cobra.Command, values []string) ([]string, error) {
	var names []string
	for _, v := range values {
		if _, err := strconv.Atoi(v); err != nil {
			names = append(names, v)
		}
	}
	if len(names) == 0 {
		return values, nil
	}

	roles, err := a.api.Roles(cmd.Context())
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		if _, err := strconv.Atoi(v); err == nil {
			ids = append(ids, v)
			continue
		}
		found := false
		for _, r := range roles {
			if strings.EqualFold(r.Name, v) {
				ids = append(ids, r.ID)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown role %q", v)
		}
	}
	return ids, nil
}

func newShowCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			row, err := a.api.FetchDetail(cmd.Context(), table.RowID(args[0]))
			if err != nil {
				return err
			}
			return renderDetail(cmd.OutOrStdout(), row, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format (table|json)")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download every user as CSV",
		Long: `Download every user as CSV. Without --out the file lands in the export
directory under a timestamped name; --out - writes to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			var extra []table.Option
			if out != "" {
				extra = append(extra, table.WithFileSink(pathSink{path: out, stdout: cmd.OutOrStdout()}))
			}
			ctrl := a.newController(extra...)
			defer ctrl.Close()

			settle(ctrl, ctrl.Export())
			if err := ctrl.Failure(); err != nil {
				return err
			}
			if out != "-" {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), ctrl.Notice())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write to this path instead (- for stdout)")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete users",
		Long:  "Delete one or more users. Several ids are removed in a single request.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			if !yes {
				ok, err := confirm(cmd, fmt.Sprintf("Delete %d user(s)? [y/N] ", len(args)))
				if err != nil {
					return err
				}
				if !ok {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Aborted")
					return nil
				}
			}

			ids := make([]table.RowID, len(args))
			for i, id := range args {
				ids[i] = table.RowID(id)
			}
			out := cmd.OutOrStdout()
			if len(ids) == 1 {
				if err := a.api.Delete(cmd.Context(), ids[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out, "Record deleted")
				return nil
			}
			if err := a.api.BulkDelete(cmd.Context(), ids); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "%d records deleted\n", len(ids))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm asks on a terminal. Without one it refuses rather than guess.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	in := cmd.InOrStdin()
	if !isTerminal(in) {
		return false, errors.New("refusing to delete without --yes when stdin is not a terminal")
	}
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// pathSink delivers an export to a fixed path, or to stdout for "-".
type pathSink struct {
	path   string
	stdout io.Writer
}

func (s pathSink) Deliver(_ string, data []byte) (string, error) {
	if s.path == "-" {
		_, err := s.stdout.Write(data)
		return "stdout", err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return "", err
	}
	return s.path, nil
}
