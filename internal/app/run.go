package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/nodebuild/internal/archive"
	"github.com/specialistvlad/nodebuild/internal/config"
	"github.com/specialistvlad/nodebuild/internal/ctxlog"
	"github.com/specialistvlad/nodebuild/internal/engine"
	"github.com/specialistvlad/nodebuild/internal/fsutil"
	"github.com/specialistvlad/nodebuild/internal/manifest"
	"github.com/specialistvlad/nodebuild/internal/prepdeps"
	"github.com/specialistvlad/nodebuild/internal/tools"
)

// Run executes the configured command and then post-processes its output.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.opts.Command)

	var err error
	switch a.opts.Command {
	case config.CommandPrepareDeps:
		err = prepdeps.Run(ctx, a.opts)
	case config.CommandBuildPackage:
		err = a.buildPackage(ctx)
	case config.CommandBuildTsc:
		err = a.buildTsc(ctx, false)
	case config.CommandBuildTsProto:
		err = a.buildTsc(ctx, true)
	case config.CommandBuildNext:
		err = a.buildBundler(ctx, tools.Next(a.opts))
	case config.CommandBuildVite:
		err = a.buildBundler(ctx, tools.Vite(a.opts))
	case config.CommandBuildWebpack:
		err = a.buildBundler(ctx, tools.Webpack(a.opts))
	default:
		err = &config.Error{Field: "command", Reason: fmt.Sprintf("unknown command %q", a.opts.Command)}
	}
	if err != nil {
		return err
	}

	if err := a.postProcess(ctx); err != nil {
		return fmt.Errorf("post-processing output: %w", err)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// buildPackage only installs node_modules and packs them into the workspace
// bundle. Modules without dependencies produce nothing.
func (a *App) buildPackage(ctx context.Context) error {
	pj, err := manifest.LoadDir(a.opts.CurDir)
	if err != nil {
		return err
	}
	if !pj.HasDependencies() {
		a.logger.Info("Module has no dependencies, nothing to build.")
		return nil
	}
	if err := a.installer.Install(ctx); err != nil {
		return err
	}
	if !a.opts.Bundle {
		return nil
	}

	nodeModules := manifest.NodeModulesPath(a.opts.BinDir)
	if ok, err := fsutil.Exists(nodeModules); err != nil || !ok {
		return err
	}
	a.logger.Debug("Bundling node_modules.", "dest", a.opts.NodeModulesBundle)
	return archive.Bundle([]string{manifest.NodeModulesDirname}, a.opts.BinDir, a.opts.NodeModulesBundle)
}

// buildTsc compiles every tsconfig in turn and bundles the union of their
// output directories. withProto runs the ts-proto generator first.
func (a *App) buildTsc(ctx context.Context, withProto bool) error {
	if err := a.installer.Install(ctx); err != nil {
		return err
	}
	if withProto {
		if err := (&tools.TsProto{Engine: a.engine}).Generate(ctx); err != nil {
			return err
		}
	}

	cfgs, err := tools.LoadTsConfigs(a.opts)
	if err != nil {
		return err
	}
	outDirs, err := tools.OutputDirs(cfgs)
	if err != nil {
		return err
	}

	for _, cfg := range cfgs {
		ad, err := tools.Tsc(a.opts, cfg)
		if err != nil {
			return err
		}
		if err := a.engine.Build(ctx, ad); err != nil {
			return err
		}
	}

	if !a.opts.Bundle {
		return nil
	}
	return a.engine.Bundle(ctx, outDirs)
}

func (a *App) buildBundler(ctx context.Context, ad engine.Adapter) error {
	if err := a.installer.Install(ctx); err != nil {
		return err
	}
	return a.engine.Build(ctx, ad)
}
