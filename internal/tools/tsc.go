package tools

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/nodebuild/internal/config"
	"github.com/specialistvlad/nodebuild/internal/engine"
	"github.com/specialistvlad/nodebuild/internal/tsconfig"
)

// Tsc compiles one tsconfig with the TypeScript compiler. It never bundles:
// a module may have several tsconfigs and the caller bundles their union.
// Every directory the config writes, declarationDir included, is validated.
func Tsc(opts *config.Options, cfg *tsconfig.Config) (engine.Adapter, error) {
	outDirs, err := cfg.OutDirs()
	if err != nil {
		return engine.Adapter{}, err
	}
	rel, err := filepath.Rel(opts.CurDir, cfg.Path())
	if err != nil {
		return engine.Adapter{}, fmt.Errorf("tsconfig %s is outside the module: %w", cfg.Path(), err)
	}

	return engine.Adapter{
		Name:        "tsc",
		Script:      resolveBin("typescript", "tsc"),
		Args:        []string{"--project", rel, "--incremental", "false", "--composite", "false", "--pretty"},
		OutputDirs:  outDirs,
		ConfigFile:  rel,
		TsConfig:    rel,
		ExtraIgnore: opts.TsConfigs,
		SkipBundle:  true,
	}, nil
}

// LoadTsConfigs loads every tsconfig of the module with extends inlined.
func LoadTsConfigs(opts *config.Options) ([]*tsconfig.Config, error) {
	cfgs := make([]*tsconfig.Config, 0, len(opts.TsConfigs))
	for _, name := range opts.TsConfigs {
		cfg, err := engine.LoadTsConfig(opts.CurDir, name)
		if err != nil {
			return nil, err
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, nil
}

// OutputDirs unions the output directories of cfgs. Two configs writing to
// the same directory is a configuration error.
func OutputDirs(cfgs []*tsconfig.Config) ([]string, error) {
	owner := make(map[string]string)
	for _, cfg := range cfgs {
		dirs, err := cfg.OutDirs()
		if err != nil {
			return nil, err
		}
		for _, dir := range dirs {
			if prev, dup := owner[dir]; dup {
				return nil, &config.Error{
					Field:  "tsconfigs",
					Reason: fmt.Sprintf("%s: other config file %s already has outdir '%s'", cfg.Path(), prev, dir),
				}
			}
			owner[dir] = cfg.Path()
		}
	}

	out := make([]string, 0, len(owner))
	for dir := range owner {
		out = append(out, dir)
	}
	sort.Strings(out)
	return out, nil
}
