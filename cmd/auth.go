package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/takutakahashi/trackerctl/pkg/credentials"
	"github.com/takutakahashi/trackerctl/pkg/output"
	"github.com/takutakahashi/trackerctl/pkg/session"
	"github.com/takutakahashi/trackerctl/pkg/tracker"
)

func newLoginCmd(a *app) *cobra.Command {
	var (
		username      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session tokens",
		Long: `Sign in with a username and password. The access and refresh tokens
are kept in the configured credential store for the current profile.

Examples:
  trackerctl login --username alice
  echo "$PASSWORD" | trackerctl login --username alice --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())

			if username == "" {
				var err error
				username, err = prompt(cmd, in, "Username: ")
				if err != nil {
					return err
				}
			}
			password, err := readPassword(cmd, in, passwordStdin)
			if err != nil {
				return err
			}

			user, err := a.session.Login(cmd.Context(), username, password)
			if err != nil {
				return failed("log in", err)
			}
			if user == nil {
				a.log.Warn("[SESSION] Signed in but the user profile could not be loaded")
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", username)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.Username, user.DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var (
		req           session.RegisterRequest
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, bufio.NewReader(cmd.InOrStdin()), passwordStdin)
			if err != nil {
				return err
			}
			req.Password = password

			user, err := a.session.Register(cmd.Context(), req)
			if err != nil {
				return failed("register", err)
			}
			name := req.Username
			if user != nil {
				name = user.Username
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "Username")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "Last name")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Logout(); err != nil {
				return failed("log out", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			user, err := a.session.RefreshCurrentUser(cmd.Context())
			if err != nil {
				return failed("load current user", err)
			}
			return a.print(cmd, user, func() *output.Table { return userDetail(user) })
		},
	}
}

func newTokenCmd(a *app) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect stored tokens",
	}

	tokenCmd.AddCommand(&cobra.Command{
		Use:   "inspect",
		Short: "Show the claims of the stored tokens",
		Long:  "Decode the stored access and refresh tokens. Signatures are not verified.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := map[string]*session.TokenInfo{}
			for _, key := range []string{credentials.KeyAccess, credentials.KeyRefresh} {
				token, ok, err := a.store.Get(key)
				if err != nil {
					return failed("read "+key+" token", err)
				}
				if !ok {
					continue
				}
				info, err := session.InspectToken(token)
				if err != nil {
					return failed("inspect "+key+" token", err)
				}
				infos[key] = info
			}
			if len(infos) == 0 {
				return session.ErrNotAuthenticated
			}

			return a.print(cmd, infos, func() *output.Table {
				now := time.Now()
				table := &output.Table{Headers: []string{"TOKEN", "TYPE", "USER", "EXPIRES", "REMAINING"}}
				for _, key := range []string{credentials.KeyAccess, credentials.KeyRefresh} {
					info, ok := infos[key]
					if !ok {
						continue
					}
					expires, remaining := "-", "-"
					if info.ExpiresAt != nil {
						expires = info.ExpiresAt.Local().Format(time.RFC3339)
						remaining = info.Remaining(now).Round(time.Second).String()
						if info.Expired(now) {
							remaining = "expired"
						}
					}
					table.Append(key, info.TokenType, info.UserID, expires, remaining)
				}
				return table
			})
		},
	})
	return tokenCmd
}

// requireSession fails early when no tokens are stored
func (a *app) requireSession() error {
	ok, err := a.session.IsAuthenticated()
	if err != nil {
		return failed("read session", err)
	}
	if !ok {
		return fmt.Errorf("%w: run 'trackerctl login' first", session.ErrNotAuthenticated)
	}
	return nil
}

func prompt(cmd *cobra.Command, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readPassword reads a password from stdin, without echo when stdin is a terminal
func readPassword(cmd *cobra.Command, in *bufio.Reader, fromStdin bool) (string, error) {
	if !fromStdin {
		if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			password, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return "", fmt.Errorf("failed to read password: %w", err)
			}
			return string(password), nil
		}
		return prompt(cmd, in, "Password: ")
	}

	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("no password given on stdin")
	}
	return password, nil
}

func userDetail(u *tracker.User) *output.Table {
	table := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	table.Append("ID", fmt.Sprint(u.ID))
	table.Append("Username", u.Username)
	table.Append("Name", u.DisplayName())
	table.Append("Email", u.Email)
	table.Append("Role", u.Role)
	if u.DateJoined != nil {
		table.Append("Joined", formatTime(*u.DateJoined))
	}
	return table
}
