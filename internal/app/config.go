package app

import (
	"path/filepath"

	"github.com/specialistvlad/nodebuild/internal/buildfile"
	"github.com/specialistvlad/nodebuild/internal/config"
)

// Config is what the command line hands to the App.
type Config struct {
	Options   config.Options // not yet validated
	BuildFile string         // optional HCL build file

	LogFormat string
	LogLevel  string
}

// buildFileVars exposes the module paths to build file expressions.
func (c *Config) buildFileVars() buildfile.Vars {
	o := c.Options
	return buildfile.Vars{
		ModDir:     o.ModDir,
		CurDir:     filepath.Join(o.SourceRoot, o.ModDir),
		BinDir:     filepath.Join(o.BuildRoot, o.ModDir),
		SourceRoot: o.SourceRoot,
		BuildRoot:  o.BuildRoot,
	}
}
