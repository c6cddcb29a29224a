// Package tsconfig loads a TypeScript project file, flattens its "extends"
// chain against the workspace and writes the merged result into the build
// directory, where the compiler runs without access to the source tree.
package tsconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tailscale/hujson"
)

// pathOptions are compilerOptions resolved relative to the file declaring them.
var pathOptions = []string{"outDir", "rootDir", "baseUrl", "declarationDir", "tsBuildInfoFile"}

// pathLists are top-level arrays of paths resolved relative to the declaring file.
var pathLists = []string{"include", "exclude", "files"}

// Config is a decoded tsconfig.json.
type Config struct {
	path string
	data map[string]any
}

// Load reads a tsconfig file. Comments and trailing commas are accepted.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading tsconfig: %w", err)
	}
	std, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing tsconfig %s: %w", path, err)
	}

	data := make(map[string]any)
	if err := json.Unmarshal(std, &data); err != nil {
		return nil, fmt.Errorf("decoding tsconfig %s: %w", path, err)
	}
	return &Config{path: filepath.Clean(path), data: data}, nil
}

// Path is the file the config was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Data exposes the decoded document.
func (c *Config) Data() map[string]any {
	return c.data
}

// InlineExtend replaces the "extends" chain by its merged content. Package
// references are resolved through depPaths (package name -> directory) and
// fall back to node_modules next to the config.
func (c *Config) InlineExtend(depPaths map[string]string) error {
	merged, err := resolve(c.path, c.data, depPaths, map[string]bool{c.path: true})
	if err != nil {
		return err
	}
	c.data = merged
	return nil
}

func resolve(path string, data map[string]any, depPaths map[string]string, seen map[string]bool) (map[string]any, error) {
	parents, err := extendsList(data["extends"])
	if err != nil {
		return nil, fmt.Errorf("tsconfig %s: %w", path, err)
	}

	result := map[string]any{}
	dir := filepath.Dir(path)
	for _, ref := range parents {
		basePath := resolveRef(dir, ref, depPaths)
		if seen[basePath] {
			return nil, fmt.Errorf("tsconfig %s: circular extends via %s", path, basePath)
		}

		base, err := Load(basePath)
		if err != nil {
			return nil, fmt.Errorf("tsconfig %s extends %q: %w", path, ref, err)
		}
		seen[basePath] = true
		baseData, err := resolve(base.path, base.data, depPaths, seen)
		delete(seen, basePath)
		if err != nil {
			return nil, err
		}

		rebase(baseData, filepath.Dir(basePath), dir)
		result = merge(result, baseData)
	}

	own := make(map[string]any, len(data))
	for k, v := range data {
		if k != "extends" {
			own[k] = v
		}
	}
	return merge(result, own), nil
}

func extendsList(v any) ([]string, error) {
	switch ext := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{ext}, nil
	case []any:
		out := make([]string, 0, len(ext))
		for _, item := range ext {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("\"extends\" entries must be strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("\"extends\" must be a string or an array, got %T", v)
	}
}

func resolveRef(dir, ref string, depPaths map[string]string) string {
	var path string
	switch {
	case filepath.IsAbs(ref):
		path = ref
	case strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../") || ref == "." || ref == "..":
		path = filepath.Join(dir, ref)
	default:
		name, rest := splitPackageRef(ref)
		if pkgDir, ok := depPaths[name]; ok {
			path = filepath.Join(pkgDir, rest)
		} else {
			path = filepath.Join(dir, "node_modules", name, rest)
		}
	}

	if filepath.Ext(path) != ".json" {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return filepath.Join(path, "tsconfig.json")
		}
		return path + ".json"
	}
	return filepath.Clean(path)
}

// splitPackageRef splits "@scope/pkg/tsconfig.base.json" into the package
// name and the file inside it.
func splitPackageRef(ref string) (string, string) {
	parts := strings.Split(ref, "/")
	n := 1
	if strings.HasPrefix(ref, "@") && len(parts) > 1 {
		n = 2
	}
	if len(parts) <= n {
		return ref, "tsconfig.json"
	}
	return strings.Join(parts[:n], "/"), strings.Join(parts[n:], "/")
}

// merge overlays top on base. compilerOptions are merged key by key; every
// other key is replaced.
func merge(base, top map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(top))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range top {
		if k == "compilerOptions" {
			baseOpts, _ := out[k].(map[string]any)
			topOpts, _ := v.(map[string]any)
			opts := make(map[string]any, len(baseOpts)+len(topOpts))
			for ok, ov := range baseOpts {
				opts[ok] = ov
			}
			for ok, ov := range topOpts {
				opts[ok] = ov
			}
			out[k] = opts
			continue
		}
		out[k] = v
	}
	return out
}

// rebase rewrites relative paths declared in a base config so they keep
// pointing at the same place when read from toDir.
func rebase(data map[string]any, fromDir, toDir string) {
	if fromDir == toDir {
		return
	}
	move := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		rel, err := filepath.Rel(toDir, filepath.Join(fromDir, p))
		if err != nil {
			return p
		}
		return filepath.ToSlash(rel)
	}

	if opts, ok := data["compilerOptions"].(map[string]any); ok {
		for _, key := range pathOptions {
			if s, ok := opts[key].(string); ok {
				opts[key] = move(s)
			}
		}
	}
	for _, key := range pathLists {
		items, ok := data[key].([]any)
		if !ok {
			continue
		}
		moved := make([]any, len(items))
		for i, item := range items {
			if s, ok := item.(string); ok {
				moved[i] = move(s)
			} else {
				moved[i] = item
			}
		}
		data[key] = moved
	}
}

// CompilerOptions returns the compilerOptions object, creating it if needed.
func (c *Config) CompilerOptions() map[string]any {
	opts, ok := c.data["compilerOptions"].(map[string]any)
	if !ok {
		opts = map[string]any{}
		c.data["compilerOptions"] = opts
	}
	return opts
}

// CompilerOption returns a single compiler option.
func (c *Config) CompilerOption(name string) (any, bool) {
	opts, ok := c.data["compilerOptions"].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := opts[name]
	return v, ok
}

// OutDir returns compilerOptions.outDir relative to the config directory.
func (c *Config) OutDir() (string, error) {
	v, ok := c.CompilerOption("outDir")
	s, isString := v.(string)
	if !ok || !isString || s == "" {
		return "", fmt.Errorf("tsconfig %s: compilerOptions.outDir is not set", c.path)
	}
	return normalizeDir(s), nil
}

// OutDirs lists the directories the compiler writes to: outDir and, when
// set, declarationDir.
func (c *Config) OutDirs() ([]string, error) {
	out, err := c.OutDir()
	if err != nil {
		return nil, err
	}
	dirs := []string{out}
	if v, ok := c.CompilerOption("declarationDir"); ok {
		if s, ok := v.(string); ok && s != "" && normalizeDir(s) != out {
			dirs = append(dirs, normalizeDir(s))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

func normalizeDir(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(p)), "./")
}

// Write stores the config as indented JSON.
func (c *Config) Write(path string) error {
	data, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tsconfig: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
