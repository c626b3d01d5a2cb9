package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/JonMunkholm/registry/internal/apperr"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Long: `Sign in with an administrator account. The password is prompted for
when it is not given; piped input is read as the password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				pw, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				password = pw
			}

			creds, err := a.api.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.store.Set(creds); err != nil {
				return err
			}
			who := creds.User.Email
			if creds.User.Name != "" {
				who = fmt.Sprintf("%s <%s>", creds.User.Name, creds.User.Email)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", who)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the session and forget it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if !a.store.LoggedIn() {
				_, _ = fmt.Fprintln(out, "Not logged in")
				return nil
			}
			// the local session goes either way
			if err := a.api.Logout(cmd.Context()); err != nil && !errors.Is(err, apperr.ErrUnauthorized) {
				slog.Warn("server logout failed", "error", err)
			}
			a.store.Clear()
			_, _ = fmt.Fprintln(out, "Logged out")
			return nil
		},
	}
}

// readPassword prompts without echo on a terminal and otherwise reads one line.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("no password given")
	}
	return pw, nil
}
