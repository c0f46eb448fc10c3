// Package cmd implements the trackerctl command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/takutakahashi/trackerctl/pkg/client"
	"github.com/takutakahashi/trackerctl/pkg/config"
	"github.com/takutakahashi/trackerctl/pkg/credentials"
	"github.com/takutakahashi/trackerctl/pkg/logger"
	"github.com/takutakahashi/trackerctl/pkg/output"
	"github.com/takutakahashi/trackerctl/pkg/session"
	"github.com/takutakahashi/trackerctl/pkg/tracker"
	"github.com/takutakahashi/trackerctl/pkg/utils"
)

// SessionExpiredMessage is printed when the stored session can no longer be refreshed
const SessionExpiredMessage = "Session expired. Run 'trackerctl login' to sign in again."

// app holds the state shared by every subcommand of one invocation
type app struct {
	v          *viper.Viper
	configFile string
	verbose    bool

	cfg     *config.Config
	format  output.Format
	log     *logrus.Logger
	cleanup func()
	store   credentials.Store
	client  *client.Client
	tracker *tracker.Tracker
	session *session.Manager
}

// NewRootCmd builds the trackerctl command tree
func NewRootCmd() *cobra.Command {
	a := &app{v: config.New(), cleanup: func() {}}

	rootCmd := &cobra.Command{
		Use:   "trackerctl",
		Short: "Project tracker CLI",
		Long: `Command line client for the project tracker API.

Sign in once with "trackerctl login"; the access token is refreshed
automatically when it expires. Settings are read from flags, TRACKERCTL_*
environment variables and ~/.config/trackerctl/config.yaml.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "Configuration file path")
	flags.String("base-url", config.DefaultBaseURL, "API base URL")
	flags.String("profile", config.DefaultProfile, "Credential profile")
	flags.StringP("output", "o", config.OutputTable, "Output format: table, json, yaml or toml")
	flags.Duration("timeout", utils.DefaultHTTPClientConfig().Timeout, "HTTP request timeout")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	a.bindFlags(flags, map[string]string{
		"base_url": "base-url",
		"profile":  "profile",
		"output":   "output",
		"timeout":  "timeout",
	})

	rootCmd.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newTokenCmd(a),
		newRequestCmd(a),
		newProjectsCmd(a),
		newIssuesCmd(a),
		newCommentsCmd(a),
		newUsersCmd(a),
		newChatsCmd(a),
		newMessagesCmd(a),
		newNotificationsCmd(a),
	)
	return rootCmd
}

// bindFlags binds config keys to flags in flags
func (a *app) bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			log.Printf("Failed to bind %s flag: %v", name, err)
		}
	}
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.format, err = output.ParseFormat(cfg.Output)
	if err != nil {
		return err
	}

	logCfg := cfg.Log
	if a.verbose {
		logCfg.Level = "debug"
	}
	l, cleanup, err := logger.New(logCfg)
	if err != nil {
		return err
	}
	if logCfg.Output == "" || strings.EqualFold(logCfg.Output, "stderr") {
		l.SetOutput(cmd.ErrOrStderr())
	}
	a.log = l
	a.cleanup = cleanup

	if cfg.ConfigFile != "" {
		l.Debugf("[CONFIG] Loaded %s", cfg.ConfigFile)
	}

	store, err := credentials.NewStore(cmd.Context(), cfg.Credentials(), l)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	a.store = store

	redirect := client.RedirectFunc(func(context.Context) {
		fmt.Fprintln(cmd.ErrOrStderr(), SessionExpiredMessage)
	})
	c, err := client.NewFromConfig(cfg.Client(), store, redirect, l)
	if err != nil {
		return err
	}
	a.client = c
	a.tracker = tracker.New(c)
	a.session = session.NewManager(c, l)
	return nil
}

func (a *app) teardown(_ *cobra.Command, _ []string) error {
	defer a.cleanup()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			return fmt.Errorf("failed to close credential store: %w", err)
		}
	}
	return nil
}

// print writes value in the selected format. table renders the table
// format; when it is nil JSON is used instead.
func (a *app) print(cmd *cobra.Command, value interface{}, table func() *output.Table) error {
	w := cmd.OutOrStdout()
	if a.format == output.FormatTable {
		if table == nil {
			return output.NewFormatter().FormatJSON(value, w)
		}
		return table().Write(w)
	}
	return output.NewFormatter().Format(value, a.format, w)
}

// printf writes a status line unless a structured format was requested
func (a *app) printf(cmd *cobra.Command, format string, args ...interface{}) {
	if a.format != output.FormatTable {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

// failed wraps err for display. API errors are reduced to the server's
// message and status code.
func failed(action string, err error) error {
	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Errorf("failed to %s: %s (HTTP %d)", action, httpErr.Detail(), httpErr.StatusCode)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func parseID(kind, arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID: %q", kind, arg)
	}
	return id, nil
}

func writeString(w io.Writer, s string) {
	_, _ = io.WriteString(w, s)
}
