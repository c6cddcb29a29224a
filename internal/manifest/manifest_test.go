package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := PackageJSONPath(dir)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()
	_, err := LoadDir(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWorkspaceDepPaths(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	appDir := filepath.Join(root, "apps", "web")
	writeManifest(t, appDir, `{
		"name": "web",
		"dependencies": {
			"@acme/ui": "workspace:../../libs/ui",
			"react": "18.2.0"
		},
		"devDependencies": {
			"@acme/config": "workspace:../../libs/config",
			"@acme/ui": "workspace:../../libs/ui"
		},
		"peerDependencies": {"@acme/theme": "workspace:../../libs/theme"}
	}`)

	pj, err := LoadDir(appDir)
	require.NoError(t, err)

	want := []string{
		filepath.Join(root, "libs", "config"),
		filepath.Join(root, "libs", "theme"),
		filepath.Join(root, "libs", "ui"),
	}
	if diff := cmp.Diff(want, pj.WorkspaceDepPaths()); diff != "" {
		t.Errorf("WorkspaceDepPaths() mismatch (-want +got):\n%s", diff)
	}

	byName := pj.DepPathsByName()
	assert.Equal(t, filepath.Join(root, "libs", "ui"), byName["@acme/ui"])
	assert.NotContains(t, byName, "react")
	assert.True(t, pj.HasDependencies())
}

func TestBins(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		content     string
		wantBins    []string
		wantDefault string
		expectErr   bool
	}{
		{
			name:        "string form",
			content:     `{"name": "@acme/cli", "bin": "./bin/cli.js"}`,
			wantBins:    []string{"./bin/cli.js"},
			wantDefault: "./bin/cli.js",
		},
		{
			name:        "object form",
			content:     `{"name": "tool", "bin": {"tool": "dist/tool.js", "helper": "dist/helper.js"}}`,
			wantBins:    []string{"dist/helper.js", "dist/tool.js"},
			wantDefault: "dist/tool.js",
		},
		{
			name:     "no bin",
			content:  `{"name": "lib"}`,
			wantBins: []string{},
		},
		{
			name:      "invalid bin",
			content:   `{"name": "lib", "bin": 42}`,
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tc.content)
			pj, err := LoadDir(dir)
			require.NoError(t, err)

			bins, err := pj.Bins()
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantBins, bins)

			got, ok := pj.BinPath("")
			assert.Equal(t, tc.wantDefault != "", ok)
			assert.Equal(t, tc.wantDefault, got)
		})
	}
}

func TestResolveBin(t *testing.T) {
	t.Parallel()
	bindir := t.TempDir()
	writeManifest(t, filepath.Join(bindir, "node_modules", "typescript"),
		`{"name": "typescript", "bin": {"tsc": "./bin/tsc", "tsserver": "./bin/tsserver"}}`)

	got, err := ResolveBin(bindir, "typescript", "tsc")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(bindir, "node_modules", "typescript", "bin", "tsc"), got)

	_, err = ResolveBin(bindir, "typescript", "")
	assert.ErrorContains(t, err, `does not declare bin "typescript"`)

	_, err = ResolveBin(bindir, "vite", "")
	assert.Error(t, err)
}
