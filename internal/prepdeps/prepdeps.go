// Package prepdeps stages the tarballs referenced by a module's lockfile
// into a local tarball store, taking them from the shared resource store.
package prepdeps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/nodebuild/internal/config"
	"github.com/specialistvlad/nodebuild/internal/ctxlog"
	"github.com/specialistvlad/nodebuild/internal/fsutil"
	"github.com/specialistvlad/nodebuild/internal/lockfile"
	"golang.org/x/sync/errgroup"
)

// maxParallel bounds concurrent link/copy operations.
const maxParallel = 8

// Entry is one distinct tarball to stage.
type Entry struct {
	TarballPath string // relative to the store
	Resource    string // absolute path in the resource store
}

// ResourcePath is where the resource store keeps the package.
func ResourcePath(resourceRoot string, pkg lockfile.Package) (string, error) {
	id, err := pkg.ResourceID()
	if err != nil {
		return "", err
	}
	return filepath.Join(resourceRoot, "http", id, "resource"), nil
}

// Plan deduplicates pkgs by tarball path. Several lockfile keys may point at
// the same tarball; the first one, in key order, wins.
func Plan(resourceRoot string, pkgs []lockfile.Package) ([]Entry, error) {
	seen := make(map[string]struct{}, len(pkgs))
	entries := make([]Entry, 0, len(pkgs))
	for _, pkg := range pkgs {
		tarball := pkg.TarballPath()
		if _, dup := seen[tarball]; dup {
			continue
		}
		seen[tarball] = struct{}{}

		resource, err := ResourcePath(resourceRoot, pkg)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{TarballPath: tarball, Resource: resource})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].TarballPath < entries[j].TarballPath })
	return entries, nil
}

// Stage hardlinks or copies every entry into storeDir. Entries have no
// ordering requirement and already staged tarballs are left alone.
func Stage(ctx context.Context, storeDir string, entries []Entry) error {
	logger := ctxlog.FromContext(ctx)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	for _, entry := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dst := filepath.Join(storeDir, filepath.FromSlash(entry.TarballPath))
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return fmt.Errorf("creating store directory for %s: %w", entry.TarballPath, err)
			}
			if err := fsutil.HardlinkOrCopy(entry.Resource, dst); err != nil {
				return fmt.Errorf("staging %s: %w", entry.TarballPath, err)
			}
			logger.Debug("Staged tarball.", "tarball", entry.TarballPath)
			return nil
		})
	}
	return g.Wait()
}

// Run stages the tarballs of the module's pnpm-lock.yaml into
// <bindir>/<tarballs-store>. The workspace install plan itself is produced
// by the package manager.
func Run(ctx context.Context, opts *config.Options) error {
	logger := ctxlog.FromContext(ctx)

	lf, err := lockfile.LoadDir(opts.CurDir)
	if err != nil {
		return err
	}
	pkgs := lf.Packages()
	if len(pkgs) == 0 {
		logger.Info("Lockfile has no packages, nothing to stage.", "lockfile", lf.Path())
		return nil
	}
	if opts.ResourceRoot == "" {
		return &config.Error{Field: "resource-root", Reason: "is required to stage lockfile tarballs"}
	}

	entries, err := Plan(opts.ResourceRoot, pkgs)
	if err != nil {
		return err
	}

	storeDir := filepath.Join(opts.BinDir, opts.TarballsStore)
	logger.Info("▶️ Staging tarballs", "count", len(entries), "packages", len(pkgs), "store", storeDir)
	if err := Stage(ctx, storeDir, entries); err != nil {
		return err
	}
	logger.Info("✅ Tarballs staged")
	return nil
}
