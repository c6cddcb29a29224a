// Package fsutil provides the idempotent file system primitives the build
// lifecycle relies on when several builds share one build tree.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// writableBits are added to every copied entry so later steps (and the tool
// itself) can overwrite files that were read-only in the source tree.
const writableBits fs.FileMode = 0o220

// Exists reports whether path exists. Broken symlinks count as existing.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// CopyIfNotExists copies the file or directory tree at src to dst unless dst
// already exists, in which case it does nothing at all: a later change to src
// is not picked up by a second call into the same destination.
//
// Symlinks inside src are followed; dangling ones are skipped. Every copied
// file and directory is made owner and group writable.
func CopyIfNotExists(src, dst string) error {
	exists, err := Exists(dst)
	if err != nil {
		return fmt.Errorf("checking destination %s: %w", dst, err)
	}
	if exists {
		return nil
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("reading source %s: %w", src, err)
	}

	if info.IsDir() {
		return copyTree(src, dst)
	}
	if info.Mode().IsRegular() {
		return copyFileWritable(src, dst)
	}
	// Sockets, devices and the like are not part of a module's sources.
	return nil
}

func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := mkdirTolerant(dst, info.Mode().Perm()|writableBits|0o100); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("listing %s: %w", src, err)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		target, err := os.Stat(srcPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && entry.Type()&fs.ModeSymlink != 0 {
				continue // dangling symlink
			}
			return fmt.Errorf("reading %s: %w", srcPath, err)
		}

		switch {
		case target.IsDir():
			if err := copyTree(srcPath, dstPath); err != nil {
				return err
			}
		case target.Mode().IsRegular():
			if err := copyFileWritable(srcPath, dstPath); err != nil {
				return err
			}
		}
	}
	return nil
}

// copyFileWritable copies content and permission bits, then adds the
// owner/group write bits.
func copyFileWritable(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", dst, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dst, err)
	}

	// OpenFile honours the umask, so set the final mode explicitly.
	mode := info.Mode().Perm() | writableBits
	if err := os.Chmod(dst, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", dst, err)
	}
	return nil
}

func mkdirTolerant(path string, perm fs.FileMode) error {
	if err := os.Mkdir(path, perm); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	return nil
}

// HardlinkOrCopy makes dst refer to the content of src, preferring a hard
// link and falling back to a plain copy (e.g. across devices). An existing
// dst is left untouched.
func HardlinkOrCopy(src, dst string) error {
	err := os.Link(src, dst)
	if err == nil || errors.Is(err, fs.ErrExist) {
		return nil
	}

	exists, statErr := Exists(dst)
	if statErr != nil {
		return statErr
	}
	if exists {
		return nil
	}
	if _, srcErr := os.Stat(src); srcErr != nil {
		return fmt.Errorf("linking %s: %w", src, srcErr)
	}
	return copyFileWritable(src, dst)
}

// AddExecBits adds owner, group and other execute permission to path.
func AddExecBits(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.Chmod(path, info.Mode().Perm()|0o111)
}

// CopyFile copies src over dst, replacing any existing content, and leaves
// dst owner/group-writable.
func CopyFile(src, dst string) error {
	return copyFileWritable(src, dst)
}
