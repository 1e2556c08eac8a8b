// Package main provides the CLI entrypoint for tapclick.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tapclick/internal/config"
	"github.com/jmylchreest/tapclick/internal/dbus"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		timeout    time.Duration
	}
	logger *slog.Logger
)

// needsConfig marks commands that load the config file. The rest only talk
// to tapclickd.
const needsConfig = "needs-config"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tapclick",
	Short: "Low-latency click feedback for Linux desktops",
	Long: `tapclick plays a short click on demand through an audio stream that
tapclickd keeps open, warm and healthy.

Most commands talk to a running tapclickd over the session bus. Use
'tapclick play' to run a supervisor in-process with an interactive pad.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		if _, ok := cmd.Annotations[needsConfig]; !ok {
			return nil
		}

		var err error
		cfg, err = config.Load(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/tapclick/tapclickd.toml)")
	rootCmd.PersistentFlags().DurationVar(&globalOpts.timeout, "timeout", 2*time.Second,
		"Timeout for calls to tapclickd")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// withClient connects to tapclickd and runs fn with a call timeout.
func withClient(fn func(ctx context.Context, c *dbus.Client) error) error {
	client, err := dbus.Connect()
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Debug("failed to close bus connection", "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), globalOpts.timeout)
	defer cancel()
	return fn(ctx, client)
}
