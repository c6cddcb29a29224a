package engine

import (
	"fmt"
	"strings"
)

// BuildError is a non-zero exit of an external tool. The process exits with
// Code.
type BuildError struct {
	Command string
	Code    int
	Stdout  string
	Stderr  string
}

func (e *BuildError) Error() string {
	parts := []string{fmt.Sprintf("%s exited with code %d", e.Command, e.Code)}
	if e.Stdout != "" {
		parts = append(parts, FoldColors(e.Stdout))
	}
	if e.Stderr != "" {
		parts = append(parts, FoldColors(e.Stderr))
	}
	return strings.Join(parts, "\n")
}

// ExitCode is the exit status to propagate.
func (e *BuildError) ExitCode() int { return e.Code }

// OutputContractError reports a declared output directory that the tool did
// not produce even though it exited successfully.
type OutputContractError struct {
	Command    string
	Dir        string
	ConfigFile string
	Hint       string
}

func (e *OutputContractError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: we expected to get output directory '%s' but it is missing. ", e.Command, e.Dir)
	fmt.Fprintf(&b, "Probably, you set another output directory in %s.", e.ConfigFile)
	if e.Hint != "" {
		fmt.Fprintf(&b, " Add macro %s(output_dir) to ya.make to configure your output directory.", e.Hint)
	}
	return b.String()
}

// ExitCode is the exit status to propagate.
func (e *OutputContractError) ExitCode() int { return 1 }

// brightColors folds the bright SGR foreground codes 90-97 to 30-37, which
// the build log viewer understands.
var brightColors = func() *strings.Replacer {
	pairs := make([]string, 0, 16)
	for c := 30; c <= 37; c++ {
		pairs = append(pairs, fmt.Sprintf("\x1b[%dm", c+60), fmt.Sprintf("\x1b[%dm", c))
	}
	return strings.NewReplacer(pairs...)
}()

// FoldColors replaces bright foreground colours with their basic variants.
func FoldColors(s string) string {
	return brightColors.Replace(s)
}
