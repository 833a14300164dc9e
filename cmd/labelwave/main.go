// Command labelwave is the main entry point for the labelwave annotation
// server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/labelwave/labelwave/internal/config"
	"github.com/labelwave/labelwave/internal/observe"
	"github.com/labelwave/labelwave/internal/server"
	"github.com/labelwave/labelwave/internal/session"
	"github.com/labelwave/labelwave/pkg/timeline"
	beepsrc "github.com/labelwave/labelwave/pkg/timeline/beep"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "labelwave: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("labelwave starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"media_dir", cfg.Server.MediaDir,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Metrics ───────────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(context.Background(), observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	metrics := observe.DefaultMetrics()

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Document manager + server ─────────────────────────────────────────────
	mgr := session.NewManager(cfg, metrics, logger)
	srv := server.New(cfg, mgr, mediaOpener(cfg.Server.MediaDir), metrics, logger)

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("shutdown signal received, stopping…")
	if err := shutdownMetrics(context.Background()); err != nil {
		slog.Warn("metrics shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// loadConfig reads the config file, falling back to defaults when the file
// does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("config file not found, using defaults", "path", path)
		return config.Default(), nil
	}
	return cfg, err
}

// mediaOpener creates beep sources for files under dir. Path components in
// the requested filename are stripped so clients cannot escape the media
// directory.
func mediaOpener(dir string) server.OpenSource {
	return func(_ context.Context, filename string) (timeline.Source, error) {
		name := filepath.Base(filename)
		if name == "." || name == string(filepath.Separator) {
			return nil, fmt.Errorf("invalid filename %q", filename)
		}
		return beepsrc.Open(filepath.Join(dir, name)), nil
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
