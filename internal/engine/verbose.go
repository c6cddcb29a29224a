package engine

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	exportStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	dirStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	stdoutStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	stderrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

var shellEscaper = strings.NewReplacer(`"`, `\"`, `$`, `\$`)

// printInvocation writes a shell snippet that reproduces cmd.
func printInvocation(w io.Writer, cmd Command, withEnv bool) {
	fmt.Fprintln(w)
	if withEnv {
		for _, pair := range EnvList(cmd.Env) {
			key, value, _ := strings.Cut(pair, "=")
			fmt.Fprintf(w, "%s %s=\"%s\"\n", exportStyle.Render("export"), key, shellEscaper.Replace(value))
		}
	}
	fmt.Fprintf(w, "cd %s && %s\n\n", dirStyle.Render(cmd.Dir), commandStyle.Render(strings.Join(cmd.Args, " ")))
}

// printOutput echoes the captured streams of a finished process.
func printOutput(w io.Writer, res Result) {
	if res.Stdout != "" {
		fmt.Fprintf(w, "exec stdout:\n%s\n", stdoutStyle.Render(res.Stdout))
	}
	if res.Stderr != "" {
		fmt.Fprintf(w, "exec stderr:\n%s\n", stderrStyle.Render(res.Stderr))
	}
}
