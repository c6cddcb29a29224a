package tools

import (
	"github.com/specialistvlad/nodebuild/internal/config"
	"github.com/specialistvlad/nodebuild/internal/engine"
	"github.com/specialistvlad/nodebuild/internal/manifest"
)

// resolveBin returns a ScriptResolver for a package's executable.
func resolveBin(pkg, bin string) engine.ScriptResolver {
	return func(binDir string) (string, error) {
		return manifest.ResolveBin(binDir, pkg, bin)
	}
}

// bundler fills the fields shared by every bundler adapter.
func bundler(opts *config.Options, name string, script engine.ScriptResolver, args []string, hint string) engine.Adapter {
	return engine.Adapter{
		Name:       name,
		Script:     script,
		Args:       args,
		OutputDirs: opts.OutputDirs,
		ConfigFile: opts.BundlerConfig,
		HintMacro:  hint,
		TsConfig:   opts.TsConfigs[0],
	}
}

// Vite builds with `vite build`.
func Vite(opts *config.Options) engine.Adapter {
	return bundler(opts, "vite", resolveBin("vite", ""),
		[]string{"build", "--config", opts.BundlerConfig}, "TS_VITE_OUTPUT")
}

// Webpack builds with webpack-cli.
func Webpack(opts *config.Options) engine.Adapter {
	return bundler(opts, "webpack", resolveBin("webpack-cli", ""),
		[]string{"--config", opts.BundlerConfig, "--color"}, "TS_WEBPACK_OUTPUT")
}

// Next runs the configured next.js command, `build` by default.
func Next(opts *config.Options) engine.Adapter {
	return bundler(opts, "next", resolveBin("next", ""),
		[]string{opts.TsNextCommand}, "TS_NEXT_OUTPUT")
}
