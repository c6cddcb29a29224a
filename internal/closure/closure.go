// Package closure makes the pre-built output of every transitive workspace
// dependency available before a module is built.
//
// The traversal is a depth-first walk over the package.json workspace
// dependencies. Each top-level call owns its own Visited set; the set is the
// only thing that stops a diamond from being unpacked twice and a cycle from
// recursing forever, and it is never shared between calls.
package closure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/nodebuild/internal/archive"
	"github.com/specialistvlad/nodebuild/internal/ctxlog"
	"github.com/specialistvlad/nodebuild/internal/manifest"
)

// Visited records the module directories seen by one top-level extraction.
type Visited map[string]struct{}

// NewVisited returns an empty set. Every top-level call must get a fresh one.
func NewVisited() Visited {
	return make(Visited)
}

// Has reports whether dir was already visited.
func (v Visited) Has(dir string) bool {
	_, ok := v[filepath.Clean(dir)]
	return ok
}

// Add marks dir as visited.
func (v Visited) Add(dir string) {
	v[filepath.Clean(dir)] = struct{}{}
}

// Sorted lists the visited directories.
func (v Visited) Sorted() []string {
	out := make([]string, 0, len(v))
	for dir := range v {
		out = append(out, dir)
	}
	sort.Strings(out)
	return out
}

// Extractor unpacks a module's archive into the module directory. It is a
// seam for tests; production code uses ExtractOutputTar.
type Extractor func(ctx context.Context, moduleDir string) (bool, error)

// Walker performs closure extraction with a pluggable per-module extractor.
type Walker struct {
	Extract Extractor
}

// New returns a Walker that unpacks each module's output.tar in place.
func New() *Walker {
	return &Walker{Extract: ExtractOutputTar}
}

// ExtractPeers extracts the closure of every workspace dependency of
// moduleDir, excluding moduleDir itself. A missing manifest is fatal.
func (w *Walker) ExtractPeers(ctx context.Context, moduleDir string, visited Visited) error {
	if visited == nil {
		return fmt.Errorf("closure: visited set must be provided by the caller")
	}

	pj, err := manifest.LoadDir(moduleDir)
	if err != nil {
		return fmt.Errorf("closure of %s: %w", moduleDir, err)
	}

	for _, depDir := range pj.WorkspaceDepPaths() {
		if err := w.ExtractAll(ctx, depDir, visited); err != nil {
			return err
		}
	}
	return nil
}

// ExtractAll extracts moduleDir's own archive, if it has one, then the
// closure of its workspace dependencies. Already visited modules are skipped.
func (w *Walker) ExtractAll(ctx context.Context, moduleDir string, visited Visited) error {
	if visited == nil {
		return fmt.Errorf("closure: visited set must be provided by the caller")
	}

	moduleDir = filepath.Clean(moduleDir)
	if visited.Has(moduleDir) {
		return nil
	}
	visited.Add(moduleDir)

	logger := ctxlog.FromContext(ctx)
	extracted, err := w.Extract(ctx, moduleDir)
	if err != nil {
		return fmt.Errorf("extracting output of %s: %w", moduleDir, err)
	}
	logger.Debug("Visited workspace dependency.", "dir", moduleDir, "extracted", extracted)

	return w.ExtractPeers(ctx, moduleDir, visited)
}

// ExtractOutputTar unpacks moduleDir/output.tar into moduleDir. A module
// without the archive produced nothing and is skipped.
func ExtractOutputTar(ctx context.Context, moduleDir string) (bool, error) {
	tarPath := filepath.Join(moduleDir, manifest.OutputTarFilename)
	if _, err := os.Stat(tarPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	if err := archive.Extract(tarPath, moduleDir); err != nil {
		return false, err
	}
	return true, nil
}
