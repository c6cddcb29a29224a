package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/nodebuild/internal/app"
	"github.com/specialistvlad/nodebuild/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// listFlag collects every occurrence of a repeatable flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

var commandHelp = []struct{ name, help string }{
	{config.CommandPrepareDeps, "stage the tarballs referenced by pnpm-lock.yaml"},
	{config.CommandBuildPackage, "install node_modules and pack them"},
	{config.CommandBuildTsc, "build with the TypeScript compiler"},
	{config.CommandBuildTsProto, "generate TypeScript from .proto with ts-proto, then build with tsc"},
	{config.CommandBuildNext, "build with Next.js"},
	{config.CommandBuildVite, "build with Vite"},
	{config.CommandBuildWebpack, "build with webpack"},
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("nodebuild", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
nodebuild - builds one module of a JavaScript/TypeScript workspace.

Usage:
  nodebuild [options] COMMAND [command options]

Commands:
`)
		for _, c := range commandHelp {
			fmt.Fprintf(output, "  %-16s %s\n", c.name, c.help)
		}
		fmt.Fprint(output, "\nOptions:\n")
		flagSet.PrintDefaults()
	}

	var opts config.Options
	flagSet.StringVar(&opts.SourceRoot, "source-root", "", "Absolute path to the workspace source root.")
	flagSet.StringVar(&opts.BuildRoot, "build-root", "", "Absolute path to the build root.")
	flagSet.StringVar(&opts.ModDir, "moddir", "", "Module path relative to the roots.")
	flagSet.StringVar(&opts.NodejsBin, "nodejs-bin", "", "Path to the node executable.")
	flagSet.StringVar(&opts.PmScript, "pm-script", "", "Path to the package manager script used for `install`.")
	flagSet.StringVar(&opts.PmType, "pm-type", config.PmTypePnpm, "Package manager type: 'pnpm' or 'npm'.")
	flagSet.BoolVar(&opts.Bundle, "bundle", true, "Bundle the result into a tar archive.")
	flagSet.BoolVar(&opts.Verbose, "verbose", false, "Print the tool environment, command line and output to stderr.")
	flagSet.BoolVar(&opts.LocalCLI, "local-cli", false, "Run locally rather than on the build farm. Implies -verbose.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	buildFileFlag := flagSet.String("build-config", "", "Optional HCL build file.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Global arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No command provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	opts.Command = flagSet.Arg(0)

	cmdSet, ok := commandFlags(opts.Command, &opts, output)
	if !ok {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", opts.Command)}
	}
	if err := cmdSet.Parse(flagSet.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if cmdSet.NArg() > 0 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected arguments: %s", strings.Join(cmdSet.Args(), " "))}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	cfg := &app.Config{
		Options:   opts,
		BuildFile: *buildFileFlag,
		LogFormat: logFormat,
		LogLevel:  logLevel,
	}
	slog.Debug("CLI parser finished successfully.", "command", opts.Command)
	return cfg, false, nil
}

// commandFlags returns the flag set of one command, bound to opts.
func commandFlags(command string, opts *config.Options, output io.Writer) (*flag.FlagSet, bool) {
	fs := flag.NewFlagSet("nodebuild "+command, flag.ContinueOnError)
	fs.SetOutput(output)

	builder := func() {
		fs.StringVar(&opts.OutputFile, "output-file", "", "Absolute path of the output archive.")
		fs.StringVar(&opts.VcsInfo, "vcs-info", "", "VCS info JSON file, relative to the build directory.")
		fs.Var((*listFlag)(&opts.TsConfigs), "tsconfigs", "tsconfig file; repeatable (only build-tsc uses more than one).")
		fs.Var((*listFlag)(&opts.Env), "env", "KEY=VALUE passed to the tool; repeatable.")
	}
	bundler := func() {
		builder()
		fs.Var((*listFlag)(&opts.OutputDirs), "output-dirs", "Output directory of the bundler; repeatable.")
		fs.StringVar(&opts.BundlerConfigPath, "bundler-config-path", "", "Path to the bundler config file.")
	}

	switch command {
	case config.CommandPrepareDeps:
		fs.StringVar(&opts.ResourceRoot, "resource-root", "", "Root of the shared resource store.")
		fs.StringVar(&opts.TarballsStore, "tarballs-store", "", "Tarballs store, relative to the build directory.")
	case config.CommandBuildPackage:
	case config.CommandBuildTsc:
		builder()
	case config.CommandBuildTsProto:
		builder()
		fs.StringVar(&opts.ProtocBin, "protoc-bin", "", "Path to the protoc binary.")
		fs.Var((*listFlag)(&opts.ProtoPaths), "proto-paths", "protoc include path; repeatable.")
		fs.Var((*listFlag)(&opts.ProtoSrcs), "proto-srcs", ".proto source; repeatable.")
		fs.Var((*listFlag)(&opts.TsProtoOpt), "ts-proto-opt", "KEY=VALUE option for ts-proto; repeatable.")
	case config.CommandBuildNext:
		bundler()
		fs.StringVar(&opts.TsNextCommand, "ts-next-command", "build", "next command to run.")
	case config.CommandBuildVite, config.CommandBuildWebpack:
		bundler()
	default:
		return nil, false
	}
	return fs, true
}
