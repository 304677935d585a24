package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/marcus/taskflow/internal/api"
	"github.com/marcus/taskflow/internal/auth"
	"github.com/marcus/taskflow/internal/config"
	"github.com/marcus/taskflow/internal/credstore"
	"github.com/marcus/taskflow/internal/gateway"
	"github.com/marcus/taskflow/internal/input"
	"github.com/marcus/taskflow/internal/output"
	"github.com/spf13/cobra"
)

var version string

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// session wires the client stack for one command run.
type session struct {
	cfg     *config.Config
	store   credstore.Store
	client  *api.Client
	machine *auth.Machine
}

var (
	current *session

	flagAPIURL    string
	flagJSON      bool
	flagDebug     bool
	flagNoPersist bool
)

var rootCmd = &cobra.Command{
	Use:   "taskflow",
	Short: "Terminal client for the TaskFlow task tracker",
	Long: `taskflow - manage your TaskFlow account and tasks from the terminal.

Log in once with 'taskflow login'; the token is kept in ~/.config/taskflow
and sent with every request until 'taskflow logout'.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) { teardown() },
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		report(err)
		teardown()
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "account", Title: "Account Commands:"},
		&cobra.Group{ID: "tasks", Title: "Task Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagAPIURL, "api-url", "", "Backend base URL (overrides config and TASKFLOW_API_URL)")
	pf.BoolVar(&flagJSON, "json", false, "Print machine-readable JSON")
	pf.BoolVar(&flagDebug, "debug", false, "Log requests to stderr")
	pf.BoolVar(&flagNoPersist, "no-persist", false, "Keep the token in memory only")
}

// setup loads config, configures logging and builds the client stack.
func setup(cmd *cobra.Command, args []string) error {
	if cmd.Annotations["skipSetup"] == "true" {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagAPIURL != "" {
		cfg.APIURL = strings.TrimRight(flagAPIURL, "/")
	}
	if flagNoPersist {
		cfg.TokenStore = config.StoreMemory
	}
	configureLogging(cfg, os.Stderr)

	store, err := credstore.Open(cfg)
	if err != nil {
		return err
	}
	gw := gateway.New(cfg.APIURL, store, gateway.WithTimeout(time.Duration(cfg.Timeout)))
	client := api.New(gw, store)
	current = &session{
		cfg:     cfg,
		store:   store,
		client:  client,
		machine: auth.NewMachine(client, store),
	}
	slog.Debug("cmd: ready", "api_url", cfg.APIURL, "token_store", cfg.TokenStore)
	return nil
}

func teardown() {
	if current == nil {
		return
	}
	if c, ok := current.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Debug("cmd: close token store", "err", err)
		}
	}
	current = nil
}

func configureLogging(cfg *config.Config, w io.Writer) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	if flagDebug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// report prints err for the user, as JSON when --json is set.
func report(err error) {
	code, msg := classify(err)
	if flagJSON {
		output.JSONError(code, msg)
		return
	}
	output.Error("%s", msg)
	if code == output.ErrCodeUnauthorized {
		output.Info("Run 'taskflow login' to sign in.")
	}
}

func classify(err error) (code, msg string) {
	msg = gateway.Message(err)
	if msg == "" {
		msg = "Something went wrong. Please try again."
	}
	var tErr *gateway.TransportError
	switch {
	case input.IsValidation(err):
		return output.ErrCodeInvalidInput, msg
	case errors.Is(err, gateway.ErrUnauthorized), errors.Is(err, errNotLoggedIn):
		return output.ErrCodeUnauthorized, msg
	case errors.Is(err, gateway.ErrNotFound):
		return output.ErrCodeNotFound, msg
	case errors.As(err, &tErr):
		return output.ErrCodeUnreachable, "Cannot reach the TaskFlow server: " + msg
	}
	var reqErr *gateway.RequestError
	if errors.As(err, &reqErr) {
		return output.ErrCodeRequest, msg
	}
	return output.ErrCodeGeneric, msg
}

var errNotLoggedIn = errors.New("not logged in")

// cmdContext returns the context for a command's requests.
func cmdContext(cmd *cobra.Command) context.Context {
	if c := cmd.Context(); c != nil {
		return c
	}
	return context.Background()
}
