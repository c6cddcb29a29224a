// Package lockfile reads the package entries of a resolved pnpm-lock.yaml.
package lockfile

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/nodebuild/internal/manifest"
	"gopkg.in/yaml.v3"
)

type rawLockfile struct {
	LockfileVersion any                   `yaml:"lockfileVersion"`
	Packages        map[string]rawPackage `yaml:"packages"`
}

type rawPackage struct {
	Resolution struct {
		Integrity string `yaml:"integrity"`
		Tarball   string `yaml:"tarball"`
	} `yaml:"resolution"`
}

// Package is one resolved package.
type Package struct {
	Key       string // lockfile key
	Name      string
	Version   string
	Integrity string // <algo>-<base64 digest>
	Tarball   string // resolution.tarball, may be empty
}

// Lockfile is a parsed pnpm lockfile.
type Lockfile struct {
	path     string
	packages []Package
}

// Load parses the lockfile at path.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lockfile: %w", err)
	}

	var raw rawLockfile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing lockfile %s: %w", path, err)
	}

	lf := &Lockfile{path: path, packages: make([]Package, 0, len(raw.Packages))}
	for key, pkg := range raw.Packages {
		name, version, err := ParseKey(key)
		if err != nil {
			return nil, fmt.Errorf("lockfile %s: %w", path, err)
		}
		lf.packages = append(lf.packages, Package{
			Key:       key,
			Name:      name,
			Version:   version,
			Integrity: pkg.Resolution.Integrity,
			Tarball:   pkg.Resolution.Tarball,
		})
	}
	sort.Slice(lf.packages, func(i, j int) bool { return lf.packages[i].Key < lf.packages[j].Key })
	return lf, nil
}

// LoadDir parses dir/pnpm-lock.yaml.
func LoadDir(dir string) (*Lockfile, error) {
	return Load(filepath.Join(dir, manifest.PnpmLockfileFilename))
}

// Path is the file the lockfile was read from.
func (l *Lockfile) Path() string {
	return l.path
}

// Packages lists the packages, sorted by lockfile key.
func (l *Lockfile) Packages() []Package {
	return l.packages
}

// ParseKey splits a packages key into name and version. Both the legacy
// "/name@1.0.0" and the current "name@1.0.0" forms are accepted, with an
// optional "(peer@x)" suffix.
func ParseKey(key string) (string, string, error) {
	k := strings.TrimPrefix(key, "/")
	if i := strings.Index(k, "("); i >= 0 {
		k = k[:i]
	}
	at := strings.LastIndex(k, "@")
	if at <= 0 || at == len(k)-1 {
		return "", "", fmt.Errorf("malformed package key %q", key)
	}
	return k[:at], k[at+1:], nil
}

// TarballPath is the package tarball's path inside a tarball store.
func (p Package) TarballPath() string {
	if p.Tarball != "" {
		if rest, ok := strings.CutPrefix(p.Tarball, "file:"); ok {
			return path.Clean(rest)
		}
		if u, err := url.Parse(p.Tarball); err == nil && u.Path != "" {
			return strings.TrimPrefix(path.Clean(u.Path), "/")
		}
	}
	unscoped := p.Name
	if i := strings.LastIndex(unscoped, "/"); i >= 0 {
		unscoped = unscoped[i+1:]
	}
	return fmt.Sprintf("%s/-/%s-%s.tgz", p.Name, unscoped, p.Version)
}

// ResourceID is the hex digest from the integrity field, which names the
// package in the content-addressed resource store.
func (p Package) ResourceID() (string, error) {
	algo, digest, ok := strings.Cut(p.Integrity, "-")
	if !ok || algo == "" || digest == "" {
		return "", fmt.Errorf("package %s: malformed integrity %q", p.Key, p.Integrity)
	}
	raw, err := base64.StdEncoding.DecodeString(digest)
	if err != nil {
		return "", fmt.Errorf("package %s: decoding integrity: %w", p.Key, err)
	}
	return hex.EncodeToString(raw), nil
}
