package manifest

import "path/filepath"

// File and directory names shared by the build steps and the workspace layout.
const (
	PackageJSONFilename  = "package.json"
	NodeModulesDirname   = "node_modules"
	PnpmLockfileFilename = "pnpm-lock.yaml"
	BuildDirname         = "build"
	BundleDirname        = "bundle"

	// OutputTarFilename is the conventional archive name a dependency's build
	// directory is probed for during closure extraction.
	OutputTarFilename     = "output.tar"
	OutputTarUUIDFilename = "output.tar.uuid"

	NodeModulesWorkspaceBundleFilename = "workspace_node_modules.tar"
)

// PackageJSONPath returns the manifest path inside a module directory.
func PackageJSONPath(dir string) string {
	return filepath.Join(dir, PackageJSONFilename)
}

// NodeModulesPath returns the dependency lookup directory of a module directory.
func NodeModulesPath(dir string) string {
	return filepath.Join(dir, NodeModulesDirname)
}
