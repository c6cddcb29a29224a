package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/nodebuild/internal/manifest"
)

// Builder commands.
const (
	CommandPrepareDeps  = "prepare-deps"
	CommandBuildPackage = "build-package"
	CommandBuildTsc     = "build-tsc"
	CommandBuildTsProto = "build-ts-proto"
	CommandBuildNext    = "build-next"
	CommandBuildVite    = "build-vite"
	CommandBuildWebpack = "build-webpack"
)

// Package manager types.
const (
	PmTypePnpm = "pnpm"
	PmTypeNpm  = "npm"
)

// Error is a configuration problem detected before any process runs.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Options describes one builder invocation.
type Options struct {
	Command string

	SourceRoot string // absolute source root
	BuildRoot  string // absolute build root
	ModDir     string // module path relative to both roots

	NodejsBin string
	PmScript  string
	PmType    string

	Bundle   bool
	Verbose  bool
	LocalCLI bool

	// Builders.
	OutputFile string
	TsConfigs  []string
	VcsInfo    string
	Env        []string

	// Bundlers.
	OutputDirs        []string
	BundlerConfigPath string
	TsNextCommand     string

	// ts-proto.
	ProtocBin  string
	ProtoPaths []string
	ProtoSrcs  []string
	TsProtoOpt []string

	// prepare-deps.
	ResourceRoot  string
	TarballsStore string

	// Build file extras.
	ExternalDependencies map[string]string
	ExtraIgnore          []string

	// Derived by New.
	CurDir            string
	BinDir            string
	NodeModulesBundle string
	BundlerConfig     string
}

// New validates opts and fills in the derived paths.
func New(opts Options) (*Options, error) {
	if err := opts.validateBase(); err != nil {
		return nil, err
	}

	opts.CurDir = filepath.Join(opts.SourceRoot, opts.ModDir)
	opts.BinDir = filepath.Join(opts.BuildRoot, opts.ModDir)
	opts.NodeModulesBundle = filepath.Join(opts.BinDir, manifest.NodeModulesWorkspaceBundleFilename)
	if opts.BundlerConfigPath != "" {
		opts.BundlerConfig = strings.Trim(strings.TrimPrefix(opts.BundlerConfigPath, opts.CurDir), "/")
	}
	if opts.Command == CommandBuildNext && opts.TsNextCommand == "" {
		opts.TsNextCommand = "build"
	}

	if err := opts.validateCommand(); err != nil {
		return nil, err
	}
	return &opts, nil
}

func (o *Options) validateBase() error {
	if !filepath.IsAbs(o.SourceRoot) {
		return invalid("source-root", "must be an absolute path, got %q", o.SourceRoot)
	}
	if !filepath.IsAbs(o.BuildRoot) {
		return invalid("build-root", "must be an absolute path, got %q", o.BuildRoot)
	}
	if o.ModDir == "" || !filepath.IsLocal(o.ModDir) {
		return invalid("moddir", "must be a relative path inside the workspace, got %q", o.ModDir)
	}
	if o.NodejsBin == "" {
		return invalid("nodejs-bin", "is required")
	}
	if _, err := os.Stat(o.NodejsBin); err != nil {
		return invalid("nodejs-bin", "binary %s is not available: %v", o.NodejsBin, err)
	}
	if o.PmScript == "" {
		return invalid("pm-script", "is required")
	}
	if o.PmType != PmTypePnpm && o.PmType != PmTypeNpm {
		return invalid("pm-type", "must be %q or %q, got %q", PmTypePnpm, PmTypeNpm, o.PmType)
	}
	for _, pair := range o.Env {
		if _, _, err := ParseKeyValue(pair); err != nil {
			return invalid("env", "%v", err)
		}
	}
	return nil
}

func (o *Options) validateCommand() error {
	switch o.Command {
	case CommandPrepareDeps:
		if o.TarballsStore == "" {
			return invalid("tarballs-store", "is required")
		}
	case CommandBuildPackage:
	case CommandBuildTsc:
		return o.validateBuilder()
	case CommandBuildTsProto:
		if err := o.validateBuilder(); err != nil {
			return err
		}
		if o.ProtocBin == "" {
			return invalid("protoc-bin", "is required")
		}
		if _, err := os.Stat(o.ProtocBin); err != nil {
			return invalid("protoc-bin", "binary %s is not available: %v", o.ProtocBin, err)
		}
		if len(o.ProtoPaths) == 0 {
			return invalid("proto-paths", "at least one path is required")
		}
		if len(o.ProtoSrcs) == 0 {
			return invalid("proto-srcs", "at least one source is required")
		}
		for _, opt := range o.TsProtoOpt {
			if _, _, err := ParseKeyValue(opt); err != nil {
				return invalid("ts-proto-opt", "%v", err)
			}
		}
	case CommandBuildNext, CommandBuildVite, CommandBuildWebpack:
		if err := o.validateBuilder(); err != nil {
			return err
		}
		if len(o.OutputDirs) == 0 {
			return invalid("output-dirs", "at least one output directory is required")
		}
		if o.BundlerConfigPath == "" {
			return invalid("bundler-config-path", "is required")
		}
	default:
		return invalid("command", "unknown command %q", o.Command)
	}
	return nil
}

func (o *Options) validateBuilder() error {
	if o.OutputFile == "" {
		return invalid("output-file", "is required")
	}
	if len(o.TsConfigs) == 0 {
		return invalid("tsconfigs", "at least one tsconfig is required")
	}
	return nil
}

// ParseKeyValue splits a "KEY=VALUE" string on its first "=".
func ParseKeyValue(pair string) (string, string, error) {
	key, value, ok := strings.Cut(pair, "=")
	if !ok || key == "" {
		return "", "", fmt.Errorf("expected `key=value` format, got `%s`", pair)
	}
	return key, value, nil
}
