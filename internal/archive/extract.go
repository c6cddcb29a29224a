package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Extract unpacks the tar at archivePath into destDir. Entries that already
// exist on disk are skipped rather than reported: another build process, or
// an earlier partial run, may have unpacked the same archive already.
func Extract(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", archivePath, err)
		}

		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, hdr.FileInfo().Mode().Perm()|0o700); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeExclusive(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := checkLinkTarget(destDir, hdr); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil && !errors.Is(err, fs.ErrExist) {
				return fmt.Errorf("creating symlink %s: %w", target, err)
			}
		case tar.TypeLink:
			src, err := safeJoin(destDir, hdr.Linkname)
			if err != nil {
				return err
			}
			if err := os.Link(src, target); err != nil && !errors.Is(err, fs.ErrExist) {
				return fmt.Errorf("creating hardlink %s: %w", target, err)
			}
		}
	}
}

func writeExclusive(target string, r io.Reader, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", target, err)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(target, perm)
}

// safeJoin rejects entries that would land outside destDir.
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes %s", name, destDir)
	}
	return target, nil
}

// checkLinkTarget rejects symlinks that point outside destDir. Later entries
// under such a link would otherwise be written through it.
func checkLinkTarget(destDir string, hdr *tar.Header) error {
	if filepath.IsAbs(hdr.Linkname) {
		return fmt.Errorf("archive entry %q links to absolute path %q", hdr.Name, hdr.Linkname)
	}
	resolved := path.Join(path.Dir(hdr.Name), filepath.ToSlash(hdr.Linkname))
	if _, err := safeJoin(destDir, resolved); err != nil {
		return fmt.Errorf("archive entry %q links to %q outside %s", hdr.Name, hdr.Linkname, destDir)
	}
	return nil
}
