// Package manifest reads the subset of a module's package.json that the build
// lifecycle needs: workspace dependencies and executable entry points.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WorkspaceProtocol prefixes dependency specs that point at a sibling module
// by relative path.
const WorkspaceProtocol = "workspace:"

// PackageJSON is a loaded, read-only module manifest.
type PackageJSON struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	Bin                  json.RawMessage   `json:"bin"`

	path string
}

// Load reads and decodes the manifest at path.
func Load(path string) (*PackageJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}

	var pj PackageJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	pj.path = path
	return &pj, nil
}

// LoadDir reads the package.json inside dir.
func LoadDir(dir string) (*PackageJSON, error) {
	return Load(PackageJSONPath(dir))
}

// Path is the file the manifest was loaded from.
func (p *PackageJSON) Path() string {
	return p.path
}

// Dir is the module directory holding the manifest.
func (p *PackageJSON) Dir() string {
	return filepath.Dir(p.path)
}

// HasDependencies reports whether any dependency group is non-empty.
func (p *PackageJSON) HasDependencies() bool {
	return len(p.Dependencies)+len(p.DevDependencies)+len(p.PeerDependencies)+len(p.OptionalDependencies) > 0
}

// workspaceDeps returns name -> absolute path for every workspace dependency.
func (p *PackageJSON) workspaceDeps() map[string]string {
	out := make(map[string]string)
	for _, group := range []map[string]string{p.Dependencies, p.DevDependencies, p.PeerDependencies, p.OptionalDependencies} {
		for name, spec := range group {
			if !strings.HasPrefix(spec, WorkspaceProtocol) {
				continue
			}
			rel := strings.TrimPrefix(spec, WorkspaceProtocol)
			if _, seen := out[name]; seen {
				continue
			}
			out[name] = filepath.Clean(filepath.Join(p.Dir(), rel))
		}
	}
	return out
}

// WorkspaceDepPaths lists the absolute directories of the module's workspace
// dependencies, sorted and without duplicates.
func (p *PackageJSON) WorkspaceDepPaths() []string {
	seen := make(map[string]struct{})
	var paths []string
	for _, path := range p.workspaceDeps() {
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// DepPathsByName maps workspace dependency names to their directories. Used
// to resolve config inheritance that refers to a package by name.
func (p *PackageJSON) DepPathsByName() map[string]string {
	return p.workspaceDeps()
}

// binMap normalizes the "bin" field. The string form is keyed by the package
// name without its scope.
func (p *PackageJSON) binMap() (map[string]string, error) {
	if len(p.Bin) == 0 || string(p.Bin) == "null" {
		return nil, nil
	}

	var single string
	if err := json.Unmarshal(p.Bin, &single); err == nil {
		return map[string]string{unscoped(p.Name): single}, nil
	}

	var many map[string]string
	if err := json.Unmarshal(p.Bin, &many); err != nil {
		return nil, fmt.Errorf("manifest %s: \"bin\" must be a string or an object: %w", p.path, err)
	}
	return many, nil
}

// Bins returns the executable entry points, relative to the module
// directory, sorted.
func (p *PackageJSON) Bins() ([]string, error) {
	bins, err := p.binMap()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(bins))
	for _, rel := range bins {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out, nil
}

// BinPath returns the script registered under name, or the package default
// when name is empty.
func (p *PackageJSON) BinPath(name string) (string, bool) {
	bins, err := p.binMap()
	if err != nil || bins == nil {
		return "", false
	}
	if name == "" {
		name = unscoped(p.Name)
	}
	rel, ok := bins[name]
	return rel, ok
}

func unscoped(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// ResolveBin returns the absolute path of a package's executable script as
// installed under dir/node_modules.
func ResolveBin(dir, packageName, binName string) (string, error) {
	pkgDir := filepath.Join(NodeModulesPath(dir), packageName)
	pj, err := LoadDir(pkgDir)
	if err != nil {
		return "", fmt.Errorf("resolving bin of %s: %w", packageName, err)
	}

	rel, ok := pj.BinPath(binName)
	if !ok {
		if binName == "" {
			binName = unscoped(packageName)
		}
		return "", fmt.Errorf("package %s does not declare bin %q", packageName, binName)
	}
	return filepath.Clean(filepath.Join(pkgDir, rel)), nil
}
