package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/specialistvlad/nodebuild/internal/archive"
	"github.com/specialistvlad/nodebuild/internal/ctxlog"
	"github.com/specialistvlad/nodebuild/internal/fsutil"
	"github.com/specialistvlad/nodebuild/internal/manifest"
)

// Installer populates node_modules in the build directory.
type Installer interface {
	Install(ctx context.Context) error
}

// PackageManager installs dependencies by running the configured package
// manager script. A node_modules bundle left by an earlier build-package step
// is unpacked instead.
type PackageManager struct {
	Engine *Engine
}

// Install implements Installer.
func (p *PackageManager) Install(ctx context.Context) error {
	opts := p.Engine.Opts
	logger := ctxlog.FromContext(ctx)

	pj, err := manifest.LoadDir(opts.CurDir)
	if err != nil {
		return err
	}
	if !pj.HasDependencies() {
		logger.Debug("Module has no dependencies, skipping install.")
		return nil
	}
	if err := os.MkdirAll(opts.BinDir, 0o755); err != nil {
		return fmt.Errorf("creating build directory: %w", err)
	}

	if ok, err := fsutil.Exists(opts.NodeModulesBundle); err != nil {
		return err
	} else if ok {
		logger.Debug("Unpacking node_modules bundle.", "path", opts.NodeModulesBundle)
		return archive.Extract(opts.NodeModulesBundle, opts.BinDir)
	}

	if err := fsutil.CopyFile(manifest.PackageJSONPath(opts.CurDir), manifest.PackageJSONPath(opts.BinDir)); err != nil {
		return err
	}

	env, err := Environment(opts)
	if err != nil {
		return err
	}
	args := []string{opts.NodejsBin, opts.PmScript, "install"}
	logger.Info("▶️ Installing dependencies", "pm", opts.PmType)
	if err := p.Engine.Exec(ctx, Command{Args: args, Env: env, Dir: opts.BinDir}, false); err != nil {
		return err
	}
	return nil
}
