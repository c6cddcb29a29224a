// Package archive creates and unpacks the uncompressed tar archives that
// carry a module's build output between builds.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FixedMTime is stamped on every entry so identical trees give identical
// archives regardless of when they were built.
var FixedMTime = time.Unix(0, 0).UTC()

// ErrNoOutputDirs is returned when a bundle is requested without any
// declared output directory.
var ErrNoOutputDirs = errors.New("no output directories declared: define at least one output dir")

// Entry pairs a path on disk with its name inside the archive.
type Entry struct {
	Source  string
	ArcName string
}

// ArcName strips a leading "./" from an output directory name.
func ArcName(outputDir string) string {
	return strings.TrimPrefix(outputDir, "./")
}

// Entries computes the (source, archive name) pairs for the declared output
// directories, sorted by archive name and without duplicates.
func Entries(outputDirs []string, buildDir string) []Entry {
	seen := make(map[string]struct{}, len(outputDirs))
	entries := make([]Entry, 0, len(outputDirs))
	for _, dir := range outputDirs {
		name := ArcName(dir)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		entries = append(entries, Entry{Source: filepath.Join(buildDir, dir), ArcName: name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ArcName < entries[j].ArcName })
	return entries
}

// Bundle writes the declared output directories of buildDir into an
// uncompressed tar at dest. Entries are written in lexical order with a fixed
// modification time and zeroed ownership.
func Bundle(outputDirs []string, buildDir, dest string) error {
	if len(outputDirs) == 0 {
		return ErrNoOutputDirs
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}

	// The archive is assembled next to dest and renamed into place. A failed
	// bundle leaves nothing at dest, not even an archive from an earlier run.
	f, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return fmt.Errorf("creating archive %s: %w", dest, err)
	}
	tmp := f.Name()
	if err := writeTar(f, outputDirs, buildDir); err != nil {
		f.Close()
		os.Remove(tmp)
		os.Remove(dest)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing archive %s: %w", dest, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("moving archive into place: %w", err)
	}
	return nil
}

func writeTar(w io.Writer, outputDirs []string, buildDir string) error {
	tw := tar.NewWriter(w)
	for _, e := range Entries(outputDirs, buildDir) {
		if err := addTree(tw, e.Source, e.ArcName); err != nil {
			return fmt.Errorf("archiving %s: %w", e.ArcName, err)
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}

// addTree walks root in lexical order. filepath.WalkDir already sorts the
// entries of each directory, which is what makes the output stable.
func addTree(tw *tar.Writer, root, arcRoot string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := arcRoot
		if rel != "." {
			name = filepath.ToSlash(filepath.Join(arcRoot, rel))
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		return addEntry(tw, path, name, info)
	})
}

func addEntry(tw *tar.Writer, path, name string, info fs.FileInfo) error {
	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return err
		}
		link = target
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	hdr.Name = name
	if info.IsDir() {
		hdr.Name += "/"
	}
	normalizeHeader(hdr)

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}

// normalizeHeader drops everything that differs between two machines
// building the same content.
func normalizeHeader(hdr *tar.Header) {
	hdr.ModTime = FixedMTime
	hdr.AccessTime = time.Time{}
	hdr.ChangeTime = time.Time{}
	hdr.Uid, hdr.Gid = 0, 0
	hdr.Uname, hdr.Gname = "", ""
	hdr.Devmajor, hdr.Devminor = 0, 0
	hdr.Mode &= 0o7777
	hdr.PAXRecords = nil
}
