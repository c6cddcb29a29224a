package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/specialistvlad/nodebuild/internal/archive"
	"github.com/specialistvlad/nodebuild/internal/closure"
	"github.com/specialistvlad/nodebuild/internal/config"
	"github.com/specialistvlad/nodebuild/internal/ctxlog"
	"github.com/specialistvlad/nodebuild/internal/fsutil"
	"github.com/specialistvlad/nodebuild/internal/linker"
	"github.com/specialistvlad/nodebuild/internal/manifest"
	"github.com/specialistvlad/nodebuild/internal/tsconfig"
)

// Engine runs builds for one module.
type Engine struct {
	Opts    *config.Options
	Closure *closure.Walker
	Run     Runner
	// Stderr receives the verbose trace. Nil disables it.
	Stderr io.Writer

	// depsPrepared is set once dependencies are in place. Later builds in the
	// same invocation (one per tsconfig) reuse them.
	depsPrepared bool
}

// New returns an Engine that runs real processes.
func New(opts *config.Options, stderr io.Writer) *Engine {
	return &Engine{
		Opts:    opts,
		Closure: closure.New(),
		Run:     ExecRunner,
		Stderr:  stderr,
	}
}

// Build runs the whole lifecycle for ad. Nothing is bundled unless every
// earlier step succeeded.
func (e *Engine) Build(ctx context.Context, ad Adapter) error {
	logger := ctxlog.FromContext(ctx).With("tool", ad.Name, "moddir", e.Opts.ModDir)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Info("▶️ Building module", "bindir", e.Opts.BinDir)

	if err := os.MkdirAll(e.Opts.BinDir, 0o755); err != nil {
		return fmt.Errorf("creating build directory: %w", err)
	}

	steps := []struct {
		name string
		fn   func(context.Context, Adapter) error
	}{
		{"copy-package-json", e.copyPackageJSON},
		{"prepare-dependencies", e.prepareDependencies},
		{"copy-sources", e.copySources},
		{"generate-tool-config", e.generateToolConfig},
		{"invoke-tool", e.invokeTool},
		{"validate-outputs", e.validateOutputs},
		{"fix-permissions", e.fixPermissions},
	}
	for _, step := range steps {
		logger.Debug("Lifecycle step started.", "step", step.name)
		if err := step.fn(ctx, ad); err != nil {
			return err
		}
	}

	if !ad.SkipBundle && e.Opts.Bundle {
		if err := e.Bundle(ctx, ad.OutputDirs); err != nil {
			return err
		}
	}

	logger.Info("✅ Module built")
	return nil
}

// Bundle packs outputDirs of the build directory into the output file.
func (e *Engine) Bundle(ctx context.Context, outputDirs []string) error {
	ctxlog.FromContext(ctx).Debug("Bundling outputs.", "dirs", outputDirs, "dest", e.Opts.OutputFile)
	if err := archive.Bundle(outputDirs, e.Opts.BinDir, e.Opts.OutputFile); err != nil {
		return fmt.Errorf("bundling %s: %w", e.Opts.OutputFile, err)
	}
	return nil
}

func (e *Engine) copyPackageJSON(ctx context.Context, ad Adapter) error {
	if ad.SkipPackageJSON {
		return nil
	}
	return fsutil.CopyFile(manifest.PackageJSONPath(e.Opts.CurDir), manifest.PackageJSONPath(e.Opts.BinDir))
}

func (e *Engine) prepareDependencies(ctx context.Context, _ Adapter) error {
	if e.depsPrepared {
		ctxlog.FromContext(ctx).Debug("Dependencies already prepared.")
		return nil
	}
	if err := e.Closure.ExtractPeers(ctx, e.Opts.BinDir, closure.NewVisited()); err != nil {
		return err
	}
	if len(e.Opts.ExternalDependencies) > 0 {
		if err := linker.Link(ctx, manifest.NodeModulesPath(e.Opts.BinDir), e.Opts.ExternalDependencies); err != nil {
			return err
		}
	}
	e.depsPrepared = true
	return nil
}

func (e *Engine) copySources(ctx context.Context, ad Adapter) error {
	ignore := NewIgnoreSet(e.Opts, ad)
	entries, err := os.ReadDir(e.Opts.CurDir)
	if err != nil {
		return fmt.Errorf("reading module sources: %w", err)
	}

	logger := ctxlog.FromContext(ctx)
	for _, entry := range entries {
		if ignore.Contains(entry.Name()) {
			logger.Debug("Skipping ignored source entry.", "name", entry.Name())
			continue
		}
		src := filepath.Join(e.Opts.CurDir, entry.Name())
		dst := filepath.Join(e.Opts.BinDir, entry.Name())
		if err := fsutil.CopyIfNotExists(src, dst); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) generateToolConfig(ctx context.Context, ad Adapter) error {
	if ad.TsConfig == "" {
		return nil
	}

	cfg, err := LoadTsConfig(e.Opts.CurDir, ad.TsConfig)
	if err != nil {
		return err
	}
	cfg.CompilerOptions()["skipLibCheck"] = true

	dst := filepath.Join(e.Opts.BinDir, ad.TsConfig)
	ctxlog.FromContext(ctx).Debug("Writing merged tsconfig.", "path", dst)
	return cfg.Write(dst)
}

// LoadTsConfig loads a module's tsconfig with its extends chain inlined
// against the module's workspace dependencies.
func LoadTsConfig(curDir, name string) (*tsconfig.Config, error) {
	cfg, err := tsconfig.Load(filepath.Join(curDir, name))
	if err != nil {
		return nil, err
	}
	pj, err := manifest.LoadDir(curDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.InlineExtend(pj.DepPathsByName()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (e *Engine) invokeTool(ctx context.Context, ad Adapter) error {
	env, err := Environment(e.Opts)
	if err != nil {
		return err
	}
	script, err := ad.Script(e.Opts.BinDir)
	if err != nil {
		return err
	}

	args := append([]string{e.Opts.NodejsBin, script}, ad.Args...)
	return e.Exec(ctx, Command{Args: args, Env: env, Dir: e.Opts.BinDir}, true)
}

// tracing reports whether tool invocations are echoed to Stderr. Local runs
// trace by default since nobody reads the build farm logs for them.
func (e *Engine) tracing() bool {
	return e.Stderr != nil && (e.Opts.Verbose || e.Opts.LocalCLI)
}

// Exec runs cmd synchronously and turns a non-zero exit into a BuildError.
func (e *Engine) Exec(ctx context.Context, cmd Command, printEnv bool) error {
	logger := ctxlog.FromContext(ctx)
	if e.tracing() {
		printInvocation(e.Stderr, cmd, printEnv)
	}

	logger.Debug("Running external process.", "args", cmd.Args, "dir", cmd.Dir)
	res, err := e.Run(ctx, cmd)
	if err != nil {
		return err
	}

	if e.tracing() {
		printOutput(e.Stderr, res)
	}
	if res.Code != 0 {
		logger.Error("External process failed.", "code", res.Code)
		return &BuildError{Command: e.Opts.Command, Code: res.Code, Stdout: res.Stdout, Stderr: res.Stderr}
	}
	return nil
}

func (e *Engine) validateOutputs(ctx context.Context, ad Adapter) error {
	for _, dir := range ad.OutputDirs {
		if _, err := os.Stat(filepath.Join(e.Opts.BinDir, dir)); err == nil {
			continue
		}
		return &OutputContractError{
			Command:    e.Opts.Command,
			Dir:        dir,
			ConfigFile: ad.ConfigFile,
			Hint:       ad.HintMacro,
		}
	}
	return nil
}

func (e *Engine) fixPermissions(ctx context.Context, _ Adapter) error {
	pj, err := manifest.LoadDir(e.Opts.CurDir)
	if err != nil {
		return err
	}
	bins, err := pj.Bins()
	if err != nil {
		return err
	}
	for _, bin := range bins {
		if err := fsutil.AddExecBits(filepath.Join(e.Opts.BinDir, bin)); err != nil {
			return fmt.Errorf("making %s executable: %w", bin, err)
		}
	}
	return nil
}
