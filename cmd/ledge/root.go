// Package main provides the CLI entrypoint for ledge.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledge-desktop/ledge/internal/dbus"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global flags and state
var (
	globalOpts struct {
		verbose bool
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ledge",
	Short: "Control the ledge display daemon",
	Long: `ledge talks to the ledged display daemon over D-Bus.

ledged owns a thin always-on surface at the top of each display: it
arbitrates what the surface shows, runs the hover open/close lifecycle,
and publishes every change as a D-Bus signal for the renderer.

Running ledge without a subcommand prints the daemon status.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()
		return nil
	},
	// Default to status when no subcommand is provided
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd, args)
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
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// withClient runs fn against a fresh daemon connection.
func withClient(fn func(c *dbus.Client) error) error {
	c, err := dbus.NewClient()
	if err != nil {
		return fmt.Errorf("failed to reach ledged: %w", err)
	}
	defer c.Close()
	return fn(c)
}
