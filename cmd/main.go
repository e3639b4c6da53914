package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	app "github.com/okian/evalfast/internal/app"
	"github.com/okian/evalfast/internal/config"
	"github.com/okian/evalfast/pkg/logger"
	"github.com/okian/evalfast/pkg/metrics"
)

// Exit codes.
const (
	exitOK     = 0
	exitConfig = 1
	exitRun    = 2
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, stdout, stderr io.Writer) int {
	// .env first so DB_* and EVALFAST_* can come from it.
	if err := config.LoadDotEnv(ctx); err != nil {
		_, _ = io.WriteString(stderr, "failed to read .env: "+err.Error()+"\n")
		return exitConfig
	}

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		_, _ = io.WriteString(stderr, "failed to load config: "+err.Error()+"\n")
		return exitConfig
	}

	if err := logger.Init(logger.WithOutput(stdout), logger.WithJSON(cfg.LogJSON)); err != nil {
		_, _ = io.WriteString(stderr, "failed to initialize logging: "+err.Error()+"\n")
		return exitConfig
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	if !cfg.Render {
		log.Info(ctx, "rendering disabled by configuration")
	}

	m := metrics.Default()
	svc, err := app.NewFromConfig(cfg, log, app.WithMetrics(m))
	if err != nil {
		log.Error(ctx, "cannot build pipeline", logger.Error(err))
		return exitConfig
	}

	_, runErr := svc.Run(ctx)

	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn(ctx, "could not write metrics file", logger.String("path", cfg.MetricsFile), logger.Error(err))
		}
	}
	if runErr != nil {
		return exitRun
	}
	return exitOK
}
