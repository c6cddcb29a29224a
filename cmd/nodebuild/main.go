package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/specialistvlad/nodebuild/internal/app"
	"github.com/specialistvlad/nodebuild/internal/cli"
)

// exitCoder is implemented by errors that carry a process exit status, such
// as a failed tool run.
type exitCoder interface {
	ExitCode() int
}

// main is the entrypoint for the nodebuild application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	// The real main function handles errors and exit codes.
	err := run(os.Stdout, os.Stderr, os.Args[1:])
	os.Exit(exitCode(err, os.Stderr))
}

// exitCode reports err on errW and maps it to the process exit status.
func exitCode(err error, errW io.Writer) int {
	if err == nil {
		return 0
	}

	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintln(errW, exitErr.Message)
		return exitErr.Code
	}

	fmt.Fprintln(errW, err)
	var coder exitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW, errW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	nodebuild, err := app.NewApp(errW, appConfig, nil)
	if err != nil {
		return err
	}
	return nodebuild.Run(context.Background())
}
