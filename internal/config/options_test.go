package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseOptions(command string) Options {
	return Options{
		Command:    command,
		SourceRoot: "/src",
		BuildRoot:  "/build",
		ModDir:     "apps/web",
		NodejsBin:  "/bin/sh",
		PmScript:   "/pm/pnpm.cjs",
		PmType:     PmTypePnpm,
		OutputFile: "/build/apps/web/web.output.tar",
		TsConfigs:  []string{"tsconfig.json"},
	}
}

func TestNew_DerivedPaths(t *testing.T) {
	t.Parallel()
	opts := baseOptions(CommandBuildVite)
	opts.OutputDirs = []string{"dist"}
	opts.BundlerConfigPath = "/src/apps/web/vite.config.ts"

	cfg, err := New(opts)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/src", "apps", "web"), cfg.CurDir)
	assert.Equal(t, filepath.Join("/build", "apps", "web"), cfg.BinDir)
	assert.Equal(t, filepath.Join("/build", "apps", "web", "workspace_node_modules.tar"), cfg.NodeModulesBundle)
	assert.Equal(t, "vite.config.ts", cfg.BundlerConfig)
}

func TestNew_NextDefaultsCommand(t *testing.T) {
	t.Parallel()
	opts := baseOptions(CommandBuildNext)
	opts.OutputDirs = []string{".next"}
	opts.BundlerConfigPath = "/src/apps/web/next.config.js"

	cfg, err := New(opts)
	require.NoError(t, err)
	assert.Equal(t, "build", cfg.TsNextCommand)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		mutate    func(o *Options)
		wantField string
	}{
		{"relative source root", func(o *Options) { o.SourceRoot = "src" }, "source-root"},
		{"relative build root", func(o *Options) { o.BuildRoot = "build" }, "build-root"},
		{"escaping moddir", func(o *Options) { o.ModDir = "../outside" }, "moddir"},
		{"empty moddir", func(o *Options) { o.ModDir = "" }, "moddir"},
		{"missing nodejs", func(o *Options) { o.NodejsBin = "/definitely/not/node" }, "nodejs-bin"},
		{"missing pm script", func(o *Options) { o.PmScript = "" }, "pm-script"},
		{"unknown pm type", func(o *Options) { o.PmType = "yarn" }, "pm-type"},
		{"malformed env", func(o *Options) { o.Env = []string{"NO_EQUALS_SIGN"} }, "env"},
		{"env with empty key", func(o *Options) { o.Env = []string{"=value"} }, "env"},
		{"missing output file", func(o *Options) { o.OutputFile = "" }, "output-file"},
		{"missing tsconfigs", func(o *Options) { o.TsConfigs = nil }, "tsconfigs"},
		{"bundler without output dirs", func(o *Options) { o.Command = CommandBuildWebpack; o.BundlerConfigPath = "/x" }, "output-dirs"},
		{"bundler without config", func(o *Options) { o.Command = CommandBuildWebpack; o.OutputDirs = []string{"dist"} }, "bundler-config-path"},
		{"prepare-deps without store", func(o *Options) { o.Command = CommandPrepareDeps }, "tarballs-store"},
		{"ts-proto without protoc", func(o *Options) { o.Command = CommandBuildTsProto }, "protoc-bin"},
		{"ts-proto bad opt", func(o *Options) {
			o.Command = CommandBuildTsProto
			o.ProtocBin = "/bin/sh"
			o.ProtoPaths = []string{"proto"}
			o.ProtoSrcs = []string{"a.proto"}
			o.TsProtoOpt = []string{"oops"}
		}, "ts-proto-opt"},
		{"unknown command", func(o *Options) { o.Command = "build-rollup" }, "command"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := baseOptions(CommandBuildTsc)
			tc.mutate(&opts)

			_, err := New(opts)

			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.wantField, cfgErr.Field)
		})
	}
}

func TestParseKeyValue(t *testing.T) {
	t.Parallel()

	k, v, err := ParseKeyValue("PATH=/custom:/bin")
	require.NoError(t, err)
	assert.Equal(t, "PATH", k)
	assert.Equal(t, "/custom:/bin", v)

	k, v, err = ParseKeyValue("EXPR=a=b")
	require.NoError(t, err)
	assert.Equal(t, "EXPR", k)
	assert.Equal(t, "a=b", v)

	k, v, err = ParseKeyValue("EMPTY=")
	require.NoError(t, err)
	assert.Equal(t, "EMPTY", k)
	assert.Empty(t, v)

	_, _, err = ParseKeyValue("broken")
	assert.ErrorContains(t, err, "`key=value`")
}
