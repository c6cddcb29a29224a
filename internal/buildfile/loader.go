// Package buildfile loads the optional HCL build file that carries settings
// which do not fit on a command line: external dependency links, extra copy
// ignores, default environment and ts-proto options.
//
//	env          = ["NODE_ENV=production"]
//	ignore       = ["fixtures"]
//	output_dirs  = ["dist"]
//	ts_proto_opt = { outputServices = "grpc-js" }
//
//	external_dependency "@acme/ui" {
//	  path = "${build_root}/libs/ui/dist"
//	}
//
// String expressions can refer to moddir, curdir, bindir, source_root and
// build_root.
package buildfile

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/nodebuild/internal/config"
	"github.com/specialistvlad/nodebuild/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Vars are the values exposed to expressions in the build file.
type Vars struct {
	ModDir     string
	CurDir     string
	BinDir     string
	SourceRoot string
	BuildRoot  string
}

// fileRoot is the decoding schema of a build file.
type fileRoot struct {
	Env          []string              `hcl:"env,optional"`
	Ignore       []string              `hcl:"ignore,optional"`
	OutputDirs   []string              `hcl:"output_dirs,optional"`
	TsProtoOpt   map[string]string     `hcl:"ts_proto_opt,optional"`
	ExternalDeps []*externalDependency `hcl:"external_dependency,block"`
}

type externalDependency struct {
	Name string `hcl:"name,label"`
	Path string `hcl:"path"`
}

// File is a decoded build file.
type File struct {
	Env                  []string
	Ignore               []string
	OutputDirs           []string
	TsProtoOpt           map[string]string
	ExternalDependencies map[string]string
}

// Load parses and evaluates the build file at path.
func Load(ctx context.Context, path string, vars Vars) (*File, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build file loader started.", "path", path)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse build file %s: %w", path, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(hclFile.Body, evalContext(vars), &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode build file %s: %w", path, diags)
	}

	file := &File{
		Env:                  root.Env,
		Ignore:               root.Ignore,
		OutputDirs:           root.OutputDirs,
		TsProtoOpt:           root.TsProtoOpt,
		ExternalDependencies: make(map[string]string, len(root.ExternalDeps)),
	}

	baseDir := filepath.Dir(path)
	for _, dep := range root.ExternalDeps {
		if _, dup := file.ExternalDependencies[dep.Name]; dup {
			return nil, fmt.Errorf("build file %s: external_dependency %q declared twice", path, dep.Name)
		}
		src := dep.Path
		if !filepath.IsAbs(src) {
			src = filepath.Join(baseDir, src)
		}
		file.ExternalDependencies[dep.Name] = filepath.Clean(src)
	}

	logger.Debug("Build file loaded.", "env", len(file.Env), "ignore", len(file.Ignore), "external_dependencies", len(file.ExternalDependencies))
	return file, nil
}

func evalContext(vars Vars) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"moddir":      cty.StringVal(vars.ModDir),
			"curdir":      cty.StringVal(vars.CurDir),
			"bindir":      cty.StringVal(vars.BinDir),
			"source_root": cty.StringVal(vars.SourceRoot),
			"build_root":  cty.StringVal(vars.BuildRoot),
		},
	}
}

// Apply merges the build file into opts. Command-line values win: build file
// env entries go first so later CLI entries override them, and output_dirs
// only apply when none were given on the command line.
func (f *File) Apply(opts config.Options) config.Options {
	if f == nil {
		return opts
	}

	opts.Env = append(append([]string{}, f.Env...), opts.Env...)
	opts.ExtraIgnore = append(append([]string{}, f.Ignore...), opts.ExtraIgnore...)
	if len(opts.OutputDirs) == 0 {
		opts.OutputDirs = append([]string{}, f.OutputDirs...)
	}

	if len(f.TsProtoOpt) > 0 {
		keys := make([]string, 0, len(f.TsProtoOpt))
		for k := range f.TsProtoOpt {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fileOpts := make([]string, 0, len(keys))
		for _, k := range keys {
			fileOpts = append(fileOpts, k+"="+f.TsProtoOpt[k])
		}
		opts.TsProtoOpt = append(fileOpts, opts.TsProtoOpt...)
	}

	if len(f.ExternalDependencies) > 0 {
		merged := make(map[string]string, len(f.ExternalDependencies)+len(opts.ExternalDependencies))
		for k, v := range f.ExternalDependencies {
			merged[k] = v
		}
		for k, v := range opts.ExternalDependencies {
			merged[k] = v
		}
		opts.ExternalDependencies = merged
	}
	return opts
}
