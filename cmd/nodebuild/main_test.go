package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/nodebuild/internal/cli"
	"github.com/specialistvlad/nodebuild/internal/config"
	"github.com/specialistvlad/nodebuild/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(out, &bytes.Buffer{}, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// Providing an unknown flag will cause cli.Parse to return an error.
	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(out, &bytes.Buffer{}, args)

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_ConfigError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// A relative source root is rejected before any process runs.
	args := []string{
		"--source-root", "relative", "--build-root", "/build", "--moddir", "web",
		"--nodejs-bin", "/bin/sh", "--pm-script", "/pnpm.cjs",
		"build-package",
	}
	errW := &bytes.Buffer{}

	// --- Act ---
	err := run(&bytes.Buffer{}, errW, args)

	// --- Assert ---
	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "source-root", cfgErr.Field)
	assert.Equal(t, 1, exitCode(err, errW))
	assert.Contains(t, errW.String(), "invalid configuration: source-root")
}

func TestRun_ToolExitCodePropagates(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	curDir := filepath.Join(root, "src", "web")
	binDir := filepath.Join(root, "build", "web")
	write := func(path, content string) {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write(filepath.Join(curDir, "package.json"), `{"name": "web"}`)
	write(filepath.Join(curDir, "tsconfig.json"), `{"compilerOptions": {"outDir": "lib"}}`)
	write(filepath.Join(binDir, "node_modules", "typescript", "package.json"), `{"name": "typescript", "bin": {"tsc": "tsc.sh"}}`)
	write(filepath.Join(binDir, "node_modules", "typescript", "tsc.sh"), `echo "src/index.ts(1,1): error TS1005" >&2; exit 2`)

	args := []string{
		"--source-root", filepath.Join(root, "src"), "--build-root", filepath.Join(root, "build"), "--moddir", "web",
		"--nodejs-bin", "/bin/sh", "--pm-script", filepath.Join(root, "pnpm.cjs"),
		"build-tsc", "--output-file", filepath.Join(binDir, "web.output.tar"), "--tsconfigs", "tsconfig.json",
	}
	errW := &bytes.Buffer{}

	// --- Act ---
	err := run(&bytes.Buffer{}, errW, args)

	// --- Assert ---
	var buildErr *engine.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, 2, exitCode(err, errW))
	assert.Contains(t, errW.String(), "build-tsc exited with code 2")
	assert.Contains(t, errW.String(), "error TS1005")
	assert.NoFileExists(t, filepath.Join(binDir, "web.output.tar"))
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"exit error", &cli.ExitError{Code: 2, Message: "bad flag"}, 2},
		{"build error", &engine.BuildError{Command: "build-vite", Code: 7}, 7},
		{"wrapped build error", fmt.Errorf("step: %w", &engine.BuildError{Command: "build-vite", Code: 5}), 5},
		{"output contract", &engine.OutputContractError{Command: "build-vite", Dir: "dist"}, 1},
		{"plain error", errors.New("boom"), 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, exitCode(tc.err, &bytes.Buffer{}))
		})
	}
}
