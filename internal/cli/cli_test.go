package cli

import (
	"bytes"
	"testing"

	"github.com/specialistvlad/nodebuild/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var globalArgs = []string{
	"--source-root", "/src",
	"--build-root", "/build",
	"--moddir", "apps/web",
	"--nodejs-bin", "/opt/node/bin/node",
	"--pm-script", "/opt/pnpm/pnpm.cjs",
}

func TestParse_BuildVite(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	args := append(append([]string{}, globalArgs...),
		"--verbose", "--bundle=false", "--build-config", "/src/apps/web/build.hcl",
		"build-vite",
		"--output-file", "/build/apps/web/web.output.tar",
		"--tsconfigs", "tsconfig.json",
		"--output-dirs", "dist", "--output-dirs", "assets",
		"--bundler-config-path", "/src/apps/web/vite.config.ts",
		"--env", "A=1", "--env", "B=x=y",
		"--vcs-info", "vcs.json",
	)

	// --- Act ---
	cfg, shouldExit, err := Parse(args, &bytes.Buffer{})

	// --- Assert ---
	require.NoError(t, err)
	assert.False(t, shouldExit)
	o := cfg.Options
	assert.Equal(t, config.CommandBuildVite, o.Command)
	assert.Equal(t, "/src", o.SourceRoot)
	assert.Equal(t, "/build", o.BuildRoot)
	assert.Equal(t, "apps/web", o.ModDir)
	assert.Equal(t, config.PmTypePnpm, o.PmType)
	assert.True(t, o.Verbose)
	assert.False(t, o.Bundle)
	assert.Equal(t, []string{"tsconfig.json"}, o.TsConfigs)
	assert.Equal(t, []string{"dist", "assets"}, o.OutputDirs)
	assert.Equal(t, []string{"A=1", "B=x=y"}, o.Env)
	assert.Equal(t, "vcs.json", o.VcsInfo)
	assert.Equal(t, "/src/apps/web/build.hcl", cfg.BuildFile)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestParse_Commands(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		args  []string
		check func(t *testing.T, o config.Options)
	}{
		{
			name: "prepare-deps",
			args: []string{"prepare-deps", "--resource-root", "/res", "--tarballs-store", ".store"},
			check: func(t *testing.T, o config.Options) {
				assert.Equal(t, "/res", o.ResourceRoot)
				assert.Equal(t, ".store", o.TarballsStore)
			},
		},
		{
			name: "build-ts-proto",
			args: []string{"build-ts-proto", "--protoc-bin", "/bin/protoc", "--proto-paths", "p1", "--proto-paths", "p2",
				"--proto-srcs", "a.proto", "--ts-proto-opt", "forceLong=long", "--tsconfigs", "tsconfig.json"},
			check: func(t *testing.T, o config.Options) {
				assert.Equal(t, "/bin/protoc", o.ProtocBin)
				assert.Equal(t, []string{"p1", "p2"}, o.ProtoPaths)
				assert.Equal(t, []string{"a.proto"}, o.ProtoSrcs)
				assert.Equal(t, []string{"forceLong=long"}, o.TsProtoOpt)
			},
		},
		{
			name: "build-next default command",
			args: []string{"build-next"},
			check: func(t *testing.T, o config.Options) {
				assert.Equal(t, "build", o.TsNextCommand)
			},
		},
		{
			name: "build-package",
			args: []string{"build-package"},
			check: func(t *testing.T, o config.Options) {
				assert.Equal(t, config.CommandBuildPackage, o.Command)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			args := append(append([]string{}, globalArgs...), tc.args...)
			cfg, shouldExit, err := Parse(args, &bytes.Buffer{})
			require.NoError(t, err)
			require.False(t, shouldExit)
			tc.check(t, cfg.Options)
		})
	}
}

func TestParse_Help(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{"-h"}, out)
	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")

	out.Reset()
	_, shouldExit, err = Parse(globalArgs, out)
	require.NoError(t, err)
	assert.True(t, shouldExit, "no command prints usage")
	assert.Contains(t, out.String(), "build-webpack")
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"unknown global flag", []string{"--workers", "3", "build-tsc"}, "flag provided but not defined: -workers"},
		{"unknown command", append(append([]string{}, globalArgs...), "build-rollup"), `unknown command "build-rollup"`},
		{"flag of another command", append(append([]string{}, globalArgs...), "build-tsc", "--output-dirs", "dist"), "flag provided but not defined: -output-dirs"},
		{"stray argument", append(append([]string{}, globalArgs...), "build-package", "extra"), "unexpected arguments: extra"},
		{"bad log format", append([]string{"--log-format", "xml"}, append(append([]string{}, globalArgs...), "build-package")...), "invalid log-format"},
		{"bad log level", append([]string{"--log-level", "trace"}, append(append([]string{}, globalArgs...), "build-package")...), "invalid log-level"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(tc.args, &bytes.Buffer{})
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}
