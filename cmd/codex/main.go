// Package main implements the codex CLI for managing project vaults.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/codex/internal/config"
	"github.com/fyrsmithlabs/codex/internal/logging"
	"github.com/fyrsmithlabs/codex/internal/session"
	"github.com/fyrsmithlabs/codex/internal/telemetry"
	"github.com/fyrsmithlabs/codex/internal/vault"
)

var (
	// global flags
	configPath string
	jsonOutput bool
	logLevel   string

	// version information
	version = "dev"

	// app is built by setup before any subcommand runs.
	app *appState
)

// appState holds the per-invocation services.
type appState struct {
	cfg     *config.Config
	logger  *logging.Logger
	tel     *telemetry.Telemetry
	session *session.Session
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if cerr := teardown(); cerr != nil {
		fmt.Fprintf(os.Stderr, "codex: cleanup: %v\n", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "codex",
	Short: "Store many small projects in one vault file",
	Long: `codex keeps a collection of small script projects inside a single
vault file. Each project's files live in their own namespace next to a
manifest describing it.

Examples:
  # Create a vault and add a project
  codex new projects.codex
  codex add projects.codex ./hello --description "Greets people"

  # List projects and extract one to a scratch directory
  codex list projects.codex
  codex extract projects.codex 3f2a`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/codex/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
}

// setup loads configuration and builds the logger, telemetry and session.
func setup(cmd *cobra.Command, args []string) error {
	if app != nil {
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	ctx := cmd.Context()
	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, tel)
	if err != nil {
		return err
	}

	sess, err := session.New(cfg, logger)
	if err != nil {
		return err
	}

	app = &appState{cfg: cfg, logger: logger, tel: tel, session: sess}
	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.String("reason", h.Reason))
	}
	logger.Debug(sess.Context(ctx), "command started", zap.String("command", cmd.CommandPath()))
	return nil
}

func newLogger(cfg *config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	lc := logging.NewDefaultConfig()
	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	lc.Level = level
	lc.Format = cfg.Logging.Format

	if tel.IsEnabled() {
		lc.Output.OTEL = true
		if tel.LoggerProvider() == nil {
			tel.SetLoggerProvider(global.GetLoggerProvider())
		}
	}
	return logging.NewLogger(lc, tel.LoggerProvider())
}

// teardown removes scratch directories registered during the command and
// flushes telemetry.
func teardown() error {
	if app == nil {
		return nil
	}
	a := app
	app = nil

	ctx := context.Background()
	errs := []error{
		a.session.Shutdown(ctx),
		a.tel.Shutdown(ctx),
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

// openVault opens path as the session's current vault.
func openVault(ctx context.Context, path string) (*vault.Vault, error) {
	v, err := app.session.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault %s: %w", path, err)
	}
	return v, nil
}

// resolveProject maps a full id or unique id prefix to a project id.
func resolveProject(v *vault.Vault, ref string) (string, error) {
	id, err := v.ResolveID(ref)
	if err != nil {
		return "", fmt.Errorf("project %q: %w", ref, err)
	}
	return id, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
