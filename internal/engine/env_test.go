package engine

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/nodebuild/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// safeBuffer is a bytes.Buffer usable as a shared writer.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestEnvironment(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	binDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "vcs.json"),
		[]byte(`{"commit-hash": "abc", "build_number": 42, "dirty": false}`), 0o644))
	opts := &config.Options{
		ModDir:    "apps/web",
		NodejsBin: "/opt/node/bin/node",
		BinDir:    binDir,
		VcsInfo:   "vcs.json",
		Env:       []string{"PATH=/custom", "EXTRA=a=b"},
	}

	// --- Act ---
	env, err := Environment(opts)

	// --- Assert ---
	require.NoError(t, err)
	want := map[string]string{
		"VCS_INFO_COMMIT_HASH":  "abc",
		"VCS_INFO_BUILD_NUMBER": "42",
		"VCS_INFO_DIRTY":        "false",
		"MODDIR":                "apps/web",
		"PATH":                  "/custom",
		"NODE_PATH":             filepath.Join(binDir, "node_modules"),
		"EXTRA":                 "a=b",
	}
	if diff := cmp.Diff(want, env); diff != "" {
		t.Errorf("environment mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvironment_Defaults(t *testing.T) {
	t.Parallel()
	env, err := Environment(&config.Options{ModDir: "m", NodejsBin: "/usr/bin/node", BinDir: "/b/m"})
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin", env["PATH"])
	assert.Equal(t, "/b/m/node_modules", env["NODE_PATH"])
	assert.Len(t, env, 3)
}

func TestEnvironment_Errors(t *testing.T) {
	t.Parallel()

	_, err := Environment(&config.Options{BinDir: t.TempDir(), VcsInfo: "missing.json"})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Environment(&config.Options{Env: []string{"NOVALUE"}})
	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "env", cfgErr.Field)
}

func TestVcsInfoVar(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "VCS_INFO_COMMIT_HASH", VcsInfoVar("commit-hash"))
	assert.Equal(t, "VCS_INFO_BRANCH", VcsInfoVar("branch"))
}

func TestEnvList(t *testing.T) {
	t.Parallel()
	got := EnvList(map[string]string{"B": "2", "A": "1"})
	assert.Equal(t, []string{"A=1", "B=2"}, got)
}

func TestNewIgnoreSet(t *testing.T) {
	t.Parallel()
	opts := &config.Options{ExtraIgnore: []string{"fixtures"}}
	ad := Adapter{TsConfig: "tsconfig.build.json", OutputDirs: []string{"./out"}, ExtraIgnore: []string{"tsconfig.test.json"}}

	set := NewIgnoreSet(opts, ad)

	for _, name := range []string{".idea", ".vscode", "dist", "build", "bundle", "node_modules", "pnpm-lock.yaml",
		"workspace_node_modules.tar", "output.tar", "output.tar.uuid", ".traces", "a.yaml",
		"tsconfig.build.json", "out", "tsconfig.test.json", "fixtures"} {
		assert.True(t, set.Contains(name), name)
	}
	assert.False(t, set.Contains("src"))
	assert.False(t, set.Contains("package.json"))
	assert.Len(t, set.Names(), 16)
}

func TestBuildError(t *testing.T) {
	t.Parallel()
	err := &BuildError{Command: "build-tsc", Code: 3, Stdout: "\x1b[96mhello\x1b[0m", Stderr: "bad"}
	assert.Equal(t, "build-tsc exited with code 3\n\x1b[36mhello\x1b[0m\nbad", err.Error())

	quiet := &BuildError{Command: "build-tsc", Code: 1}
	assert.Equal(t, "build-tsc exited with code 1", quiet.Error())
}

func TestOutputContractError(t *testing.T) {
	t.Parallel()
	noHint := &OutputContractError{Command: "build-tsc", Dir: "lib", ConfigFile: "tsconfig.json"}
	assert.NotContains(t, noHint.Error(), "Add macro")
	assert.Contains(t, noHint.Error(), "'lib'")
	assert.Contains(t, noHint.Error(), "tsconfig.json")
}
