package engine

import (
	"path/filepath"
	"sort"

	"github.com/specialistvlad/nodebuild/internal/config"
	"github.com/specialistvlad/nodebuild/internal/manifest"
)

// baseIgnore lists the top-level source entries never copied into the build
// directory.
var baseIgnore = []string{
	".idea",
	".vscode",
	"dist",
	manifest.BuildDirname,
	manifest.BundleDirname,
	manifest.NodeModulesDirname,
	manifest.PnpmLockfileFilename,
	manifest.NodeModulesWorkspaceBundleFilename,
	manifest.OutputTarFilename,
	manifest.OutputTarUUIDFilename,
	".traces",
	"a.yaml",
}

// IgnoreSet is the immutable set of top-level names skipped by the copy step.
type IgnoreSet struct {
	names map[string]struct{}
}

// NewIgnoreSet computes the ignore set for one build: the fixed entries, the
// generated tsconfig, the declared output directories, the adapter's extra
// names and those from the build file.
func NewIgnoreSet(opts *config.Options, ad Adapter) IgnoreSet {
	names := make(map[string]struct{}, len(baseIgnore)+len(ad.OutputDirs)+len(ad.ExtraIgnore)+1)
	add := func(name string) {
		if name == "" {
			return
		}
		names[filepath.Clean(name)] = struct{}{}
	}

	for _, name := range baseIgnore {
		add(name)
	}
	add(ad.TsConfig)
	for _, dir := range ad.OutputDirs {
		add(dir)
	}
	for _, name := range ad.ExtraIgnore {
		add(name)
	}
	for _, name := range opts.ExtraIgnore {
		add(name)
	}
	return IgnoreSet{names: names}
}

// Contains reports whether a top-level entry must be skipped.
func (s IgnoreSet) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Names lists the set, sorted.
func (s IgnoreSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
