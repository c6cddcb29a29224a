package engine

// ScriptResolver returns the absolute path of the JavaScript entry point to
// run. It is called after dependencies are in place under binDir.
type ScriptResolver func(binDir string) (string, error)

// Adapter describes one external tool.
type Adapter struct {
	// Name is used in log records only.
	Name string
	// Script resolves the tool's entry point.
	Script ScriptResolver
	// Args follow the script on the command line.
	Args []string
	// OutputDirs the tool must produce, relative to the build directory.
	OutputDirs []string
	// ConfigFile is named in diagnostics when an output is missing.
	ConfigFile string
	// HintMacro, when set, is suggested as the way to declare the output dir.
	HintMacro string
	// TsConfig is the tsconfig path relative to the module sources. It is
	// regenerated in the build directory with its extends chain inlined.
	TsConfig string
	// ExtraIgnore adds names to the copy ignore set.
	ExtraIgnore []string
	// SkipPackageJSON leaves package.json out of the build directory.
	SkipPackageJSON bool
	// SkipBundle opts out of the bundle step; the caller bundles instead.
	SkipBundle bool
}
