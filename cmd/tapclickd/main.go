// Package main is the entry point for the tapclickd audio stream daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	godbus "github.com/godbus/dbus/v5"

	"github.com/jmylchreest/tapclick/internal/config"
	"github.com/jmylchreest/tapclick/internal/dbus"
	"github.com/jmylchreest/tapclick/internal/engine"
	"github.com/jmylchreest/tapclick/internal/metrics"
	"github.com/jmylchreest/tapclick/internal/supervisor"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/tapclick/tapclickd.toml)")
	verbose := flag.Bool("verbose", false, "Enable debug logging regardless of log.level")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("tapclickd version", version)
		os.Exit(0)
	}

	// The level follows log.level and changes on config reload.
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := run(*configPath, *verbose, level, logger); err != nil {
		logger.Error("tapclickd failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, verbose bool, level *slog.LevelVar, logger *slog.Logger) error {
	logger.Info("starting tapclickd", "version", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setLevel(level, cfg, verbose)

	mixer := engine.NewMixer(cfg.Audio, logger)

	// The session bus carries focus and the control interface. A daemon
	// with static focus still serves control when a bus is available.
	conn, err := godbus.ConnectSessionBus()
	if err != nil {
		if config.FocusProvider(cfg.Focus.Provider) == config.FocusProviderDBus {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		logger.Warn("no session bus, control interface disabled", "error", err)
	}
	if conn != nil {
		defer conn.Close()
	}

	focus, closeFocus := newFocusProvider(cfg, conn, logger)
	defer closeFocus()

	sup, err := supervisor.New(supervisor.FromConfig(cfg), supervisor.Dependencies{
		Engine: mixer,
		Focus:  focus,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create supervisor: %w", err)
	}
	if err := sup.Start(); err != nil {
		return fmt.Errorf("failed to start supervisor: %w", err)
	}

	var control *dbus.ControlServer
	if conn != nil {
		control = dbus.NewControlServer(conn, sup, logger)
		if err := control.Start(); err != nil {
			logger.Warn("failed to start control server", "error", err)
			control = nil
		} else {
			sup.SetFeedbackHook(func(ev supervisor.TriggerEvent) {
				go func() {
					if err := control.EmitTriggered(ev); err != nil {
						logger.Debug("failed to emit trigger signal", "error", err)
					}
				}()
			})
		}
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Listen != "" {
		metricsServer = metrics.NewServer(func() (any, bool) {
			st := sup.Status()
			return st, st.Healthy
		}, logger)
		if err := metricsServer.Start(cfg.Metrics.Listen); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
			metricsServer = nil
		}
	}

	watcher := startConfigWatcher(configPath, cfg, sup, mixer, level, verbose, logger)

	logger.Info("tapclickd ready", "focus", cfg.Focus.Provider, "metrics", cfg.Metrics.Listen)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			logger.Warn("error stopping config watcher", "error", err)
		}
	}

	// Shutdown is bounded by the drain timeout; the extra second covers the
	// final stop task.
	select {
	case err := <-sup.Shutdown():
		if err != nil {
			logger.Warn("supervisor shutdown incomplete", "error", err)
		}
	case <-time.After(cfg.Timing.DrainTimeout.Duration() + time.Second):
		logger.Warn("supervisor shutdown timed out")
	}

	if control != nil {
		if err := control.Stop(); err != nil {
			logger.Warn("error stopping control server", "error", err)
		}
	}
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Warn("error stopping metrics server", "error", err)
		}
	}

	logger.Info("tapclickd stopped")
	return nil
}

// newFocusProvider builds the configured focus provider. The returned func
// releases anything it opened beyond conn.
func newFocusProvider(cfg *config.Config, conn *godbus.Conn, logger *slog.Logger) (supervisor.FocusProvider, func()) {
	if config.FocusProvider(cfg.Focus.Provider) == config.FocusProviderStatic || conn == nil {
		return supervisor.NewStaticFocus(true), func() {}
	}

	broker := dbus.NewFocusBroker(conn, logger)
	if !cfg.Focus.WatchSleep {
		return broker, func() {}
	}

	system, err := godbus.ConnectSystemBus()
	if err != nil {
		logger.Warn("no system bus, sleep will not affect focus", "error", err)
		return broker, func() {}
	}
	broker.WatchSleep(system)
	return broker, func() {
		if err := system.Close(); err != nil {
			logger.Debug("failed to close system bus", "error", err)
		}
	}
}

// startConfigWatcher applies the settings that can change live and logs the
// sections that need a restart. Restart-only sections are compared against
// the config the daemon started with.
func startConfigWatcher(
	path string,
	current *config.Config,
	sup *supervisor.Supervisor,
	mixer *engine.Mixer,
	level *slog.LevelVar,
	verbose bool,
	logger *slog.Logger,
) *config.Watcher {
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			logger.Warn("config hot reload disabled", "error", err)
			return nil
		}
		path = p
	}
	path = config.ExpandPath(path)

	watcher, err := config.NewWatcher(path, logger)
	if err != nil {
		logger.Warn("config hot reload disabled", "error", err)
		return nil
	}

	watcher.SetChangeCallback(func(next *config.Config) {
		sup.SetDebounceInterval(next.Timing.Debounce.Duration())
		mixer.SetClickVolume(next.Audio.ClickVolume)
		setLevel(level, next, verbose)

		if sections := current.RestartRequired(next); len(sections) > 0 {
			logger.Warn("config changes need a restart to apply", "sections", sections)
		}
		logger.Info("live settings applied",
			"debounce", next.Timing.Debounce.Duration(),
			"click_volume", next.Audio.ClickVolume,
			"log_level", next.Log.Level)
	})

	if err := watcher.Start(); err != nil {
		logger.Warn("config hot reload disabled", "error", err)
		return nil
	}
	return watcher
}

func setLevel(level *slog.LevelVar, cfg *config.Config, verbose bool) {
	if verbose {
		level.Set(slog.LevelDebug)
		return
	}
	level.Set(cfg.SlogLevel())
}
