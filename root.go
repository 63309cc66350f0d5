// Command gramsetu-go is a CLI client for the gramsetu panchayat platform
// backend: session management with transparent credential refresh, content
// listing, and signed media URL resolution.
package main

import (
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/gramsetu/gramsetu-go/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagBaseURL    string
	flagTenant     string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// cfgHolder holds the effective configuration loaded by
// PersistentPreRunE. Available to all subcommands after the root pre-run
// phase completes; commands read snapshots through cfgHolder.Config().
var cfgHolder *config.Holder

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gramsetu-go",
		Short:   "Panchayat platform CLI client",
		Long:    "A CLI client for the gramsetu panchayat platform backend.",
		Version: version,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "backend base URL")
	cmd.PersistentFlags().StringVar(&flagTenant, "tenant", "", "panchayat tenant slug")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	// Register subcommands.
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newPostsCmd())
	cmd.AddCommand(newMediaCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the override chain
// (defaults -> config file -> env -> CLI flags) into cfgHolder.
func loadConfig() error {
	env := config.ReadEnvOverrides()
	if flagConfigPath != "" {
		env.ConfigPath = flagConfigPath
	}

	cfg, err := config.Resolve(env)
	if err != nil {
		return err
	}

	// CLI flags always win.
	if flagBaseURL != "" {
		cfg.API.BaseURL = flagBaseURL
	}

	if flagTenant != "" {
		cfg.API.Tenant = config.NormalizeTenant(flagTenant)
	}

	cfgPath := env.ConfigPath
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}

	cfgHolder = config.NewHolder(cfg, cfgPath)

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win. Non-TTY stderr gets
// JSON output for log shippers.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if cfgHolder != nil {
		switch cfgHolder.Config().Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
