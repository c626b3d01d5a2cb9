// Package cli provides the command-line interface of the registry console.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/JonMunkholm/registry/internal/apperr"
	"github.com/JonMunkholm/registry/internal/cli/config"
	"github.com/JonMunkholm/registry/internal/client"
	"github.com/JonMunkholm/registry/internal/console"
	"github.com/JonMunkholm/registry/internal/logging"
	"github.com/JonMunkholm/registry/internal/session"
	"github.com/JonMunkholm/registry/internal/table"
	"github.com/JonMunkholm/registry/internal/userform"
)

// Version is set at build time.
var Version = "0.1.0"

// exportFileName is the name suggested for CSV exports.
const exportFileName = "users_export.csv"

// annotationTUI marks commands that take over the terminal.
const annotationTUI = "tui"

var errNotLoggedIn = errors.New("not logged in: run 'registry-console login' first")

// app holds what the commands share once flags and config are resolved.
type app struct {
	cfgFile string

	cfg     *config.Config
	store   *session.Store
	api     *client.Client
	logFile *os.File
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "registry-console",
		Short: "Manage the users of a registry server",
		Long: `registry-console is an admin console for a registry server.

Run without a subcommand to browse users interactively, or use the
users subcommands for scripted access.`,
		Version:     Version,
		Annotations: map[string]string{annotationTUI: "true"},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
		RunE:          a.runBrowse,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./"+config.FileName+")")
	pf.String("base-url", "", "registry server URL")
	pf.Duration("timeout", 0, "per-request timeout")
	pf.String("session-file", "", "where login credentials are kept")
	pf.String("export-dir", "", "directory CSV exports are written to")
	pf.Int("page-size", 0, "rows per page")
	pf.Duration("debounce", 0, "quiet period before search input is applied")
	pf.String("log-file", "", "append logs to this file")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-format", "", "log format (text|json)")
	pf.Bool("cancel-superseded", false, "abort list requests made obsolete by newer ones")
	pf.Bool("refetch-after-delete", false, "reload the page after deleting a single user")

	_ = root.RegisterFlagCompletionFunc("log-format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(newLoginCmd(a), newLogoutCmd(a), newUsersCmd(a))
	return root
}

// PrintError writes err for a terminal user. Form errors are listed per field.
func PrintError(w io.Writer, err error) {
	var fe userform.Errors
	if errors.As(err, &fe) {
		_, _ = fmt.Fprintln(w, "Error: the form is invalid")
		for _, e := range fe {
			_, _ = fmt.Fprintf(w, "  %s: %s\n", e.Field, e.Message)
		}
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %s\n", apperr.Message(err))
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := a.setupLogging(cmd); err != nil {
		return err
	}
	if cfg.FileUsed != "" {
		slog.Debug("config loaded", "file", cfg.FileUsed)
	}

	a.store = session.NewStore(cfg.SessionFile)
	if err := a.store.Load(); err != nil {
		slog.Warn("ignoring unreadable session", "error", err)
	}
	a.api, err = client.New(client.Options{
		BaseURL:   cfg.BaseURL,
		UserAgent: "registry-console/" + Version,
		Timeout:   cfg.Timeout,
		Logger:    slog.Default(),
	}, a.store)
	return err
}

// setupLogging sends logs to the log file when one is configured. Without
// one, the terminal UI discards them and other commands use stderr.
func (a *app) setupLogging(cmd *cobra.Command) error {
	w := cmd.ErrOrStderr()
	switch {
	case a.cfg.LogFile != "":
		f, err := os.OpenFile(a.cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		w = f
	case cmd.Annotations[annotationTUI] == "true":
		w = io.Discard
	}
	logging.SetupWriter(w, a.cfg.LogLevel, a.cfg.LogFormat)
	return nil
}

func (a *app) close() error {
	if a.logFile == nil {
		return nil
	}
	err := a.logFile.Close()
	a.logFile = nil
	return err
}

func (a *app) requireLogin() error {
	if a.store == nil || !a.store.LoggedIn() {
		return errNotLoggedIn
	}
	return nil
}

// newController builds a users table controller from the resolved config.
// Later options override earlier ones.
func (a *app) newController(extra ...table.Option) *table.Controller {
	opts := []table.Option{
		table.WithColumns(console.UserColumns()...),
		table.WithMutator(a.api),
		table.WithDetailFetcher(a.api),
		table.WithFileSink(console.DirSink{Dir: a.cfg.ExportDir}),
		table.WithExportName(exportFileName),
		table.WithPageSize(a.cfg.PageSize),
		table.WithQuietPeriod(a.cfg.Debounce),
		table.WithRequestTimeout(a.cfg.Timeout),
		table.WithLogger(slog.Default()),
	}
	if a.cfg.CancelSuperseded {
		opts = append(opts, table.WithCancelSuperseded())
	}
	if a.cfg.RefetchAfterDelete {
		opts = append(opts, table.WithRefetchAfterDelete())
	}
	return table.New(a.api, append(opts, extra...)...)
}

// settle runs cmd and every command its results lead to, feeding the
// messages back into ctrl, until nothing is left to run.
func settle(ctrl *table.Controller, cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg := next()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if msg != nil {
			queue = append(queue, ctrl.Update(msg))
		}
	}
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
