package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/nodebuild/internal/buildfile"
	"github.com/specialistvlad/nodebuild/internal/config"
	"github.com/specialistvlad/nodebuild/internal/ctxlog"
	"github.com/specialistvlad/nodebuild/internal/engine"
)

// App runs one builder command.
type App struct {
	errW      io.Writer
	logger    *slog.Logger
	opts      *config.Options
	engine    *engine.Engine
	installer engine.Installer
}

// NewApp loads the build file, validates the merged options and prepares
// the engine. Logs and the verbose trace go to errW. A nil installer selects
// the package manager configured in the options.
func NewApp(errW io.Writer, cfg *Config, installer engine.Installer) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	raw := cfg.Options
	if cfg.BuildFile != "" {
		file, err := buildfile.Load(ctx, cfg.BuildFile, cfg.buildFileVars())
		if err != nil {
			return nil, fmt.Errorf("failed to load build file: %w", err)
		}
		raw = file.Apply(raw)
	}

	opts, err := config.New(raw)
	if err != nil {
		return nil, err
	}
	logger.Debug("Options validated.", "command", opts.Command, "curdir", opts.CurDir, "bindir", opts.BinDir)

	eng := engine.New(opts, errW)
	if installer == nil {
		installer = &engine.PackageManager{Engine: eng}
	}

	return &App{
		errW:      errW,
		logger:    logger,
		opts:      opts,
		engine:    eng,
		installer: installer,
	}, nil
}

// Options returns the validated options. This is primarily for testing.
func (a *App) Options() *config.Options {
	return a.opts
}
