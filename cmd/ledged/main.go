// Package main is the entry point for the ledged display daemon.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ledge-desktop/ledge/internal/config"
	"github.com/ledge-desktop/ledge/internal/daemon"
)

const appName = "ledged"

var (
	// Build-time variables
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default ~/.config/ledge/ledged.toml)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	noAdapters := flag.Bool("no-adapters", false, "Skip compositor and bus watchers, serve a fallback display")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(appName, "version", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: resolveLogLevel(*configPath, *logLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("starting ledged", "version", version, "pid", os.Getpid())

	d, err := daemon.New(daemon.Options{
		ConfigPath: *configPath,
		Version:    version,
		NoAdapters: *noAdapters,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize daemon", "error", err)
		os.Exit(1)
	}

	if err := d.Start(); err != nil {
		logger.Error("failed to start daemon", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	d.Stop()
}

// resolveLogLevel applies the flag override when given, otherwise the
// configured level. An unreadable config falls back to info so startup
// errors still get logged; daemon.New reports the real failure.
func resolveLogLevel(configPath, override string) slog.Level {
	if override != "" {
		var lv slog.Level
		if err := lv.UnmarshalText([]byte(override)); err == nil {
			return lv
		}
		fmt.Fprintf(os.Stderr, "invalid log level %q, using configured level\n", override)
	}
	cfg, err := config.LoadDaemonConfig(configPath)
	if err != nil {
		return slog.LevelInfo
	}
	return cfg.LogLevel()
}
