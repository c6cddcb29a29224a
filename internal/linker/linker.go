// Package linker publishes externally built artifacts into a module's
// dependency lookup directory as symbolic links. Link targets are never
// owned, copied, modified or removed here.
package linker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/nodebuild/internal/ctxlog"
)

// CollisionError reports a name that is already present in the lookup
// directory.
type CollisionError struct {
	Name string
	Path string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("external dependency %q is already linked at %s", e.Name, e.Path)
}

// Link creates lookupDir/<name> -> source for every entry of deps. Names may
// be scoped ("@scope/pkg"); each scope directory is created once, before its
// first link.
func Link(ctx context.Context, lookupDir string, deps map[string]string) error {
	logger := ctxlog.FromContext(ctx)

	if err := os.MkdirAll(lookupDir, 0o755); err != nil {
		return fmt.Errorf("creating lookup directory %s: %w", lookupDir, err)
	}

	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	scopes := make(map[string]struct{})
	for _, name := range names {
		src := deps[name]
		if !filepath.IsAbs(src) {
			return fmt.Errorf("external dependency %q: source %q must be an absolute path", name, src)
		}
		if name == "" || filepath.IsAbs(name) || !filepath.IsLocal(name) {
			return fmt.Errorf("external dependency name %q is not a valid package name", name)
		}

		dst := filepath.Join(lookupDir, name)
		scope := filepath.Dir(dst)
		if _, done := scopes[scope]; !done && scope != filepath.Clean(lookupDir) {
			// Another build may have created the scope already.
			if err := os.Mkdir(scope, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
				return fmt.Errorf("creating scope directory %s: %w", scope, err)
			}
			scopes[scope] = struct{}{}
		}

		if err := os.Symlink(src, dst); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return &CollisionError{Name: name, Path: dst}
			}
			return fmt.Errorf("linking %s: %w", name, err)
		}
		logger.Debug("Linked external dependency.", "name", name, "source", src)
	}
	return nil
}
