package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Command is one external process invocation.
type Command struct {
	Args []string // Args[0] is the executable
	Env  map[string]string
	Dir  string
}

// Result holds the outcome of a completed process.
type Result struct {
	Code   int
	Stdout string
	Stderr string
}

// Runner runs a command to completion. A non-zero exit is reported in Result,
// not as an error; errors mean the process could not be run at all.
type Runner func(ctx context.Context, cmd Command) (Result, error)

// ExecRunner runs cmd as a child process with exactly cmd.Env as its
// environment, buffering both output streams.
func ExecRunner(ctx context.Context, cmd Command) (Result, error) {
	if len(cmd.Args) == 0 {
		return Result{}, fmt.Errorf("empty command")
	}

	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Dir = cmd.Dir
	c.Env = EnvList(cmd.Env)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Code = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("running %s: %w", cmd.Args[0], err)
	}
	return res, nil
}
