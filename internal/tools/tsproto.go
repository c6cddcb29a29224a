package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/nodebuild/internal/config"
	"github.com/specialistvlad/nodebuild/internal/ctxlog"
	"github.com/specialistvlad/nodebuild/internal/engine"
	"github.com/specialistvlad/nodebuild/internal/fsutil"
	"github.com/specialistvlad/nodebuild/internal/manifest"
)

// DefaultTsProtoOpt is passed to the ts-proto plugin unless overridden.
var DefaultTsProtoOpt = map[string]string{
	"esModuleInterop": "true",
	"forceLong":       "string",
	"outputServices":  "generic-definitions",
	"useExactTypes":   "false",
	"useOptionals":    "messages",
}

// TsProto generates TypeScript sources from .proto files into src/generated.
type TsProto struct {
	Engine *engine.Engine
}

// Generate copies src into the build directory, creates the output
// directory and runs protoc with the ts-proto plugin.
func (g *TsProto) Generate(ctx context.Context) error {
	opts := g.Engine.Opts
	logger := ctxlog.FromContext(ctx)
	logger.Info("▶️ Generating TypeScript from proto", "srcs", len(opts.ProtoSrcs))

	// src must land before src/generated exists, or the copy step skips it.
	curSrc := filepath.Join(opts.CurDir, "src")
	if ok, err := fsutil.Exists(curSrc); err != nil {
		return err
	} else if ok {
		if err := fsutil.CopyIfNotExists(curSrc, filepath.Join(opts.BinDir, "src")); err != nil {
			return err
		}
	}

	outDir := g.OutDir()
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", outDir, err)
	}

	args, err := g.Args()
	if err != nil {
		return err
	}
	cmd := engine.Command{
		Args: append([]string{opts.ProtocBin}, args...),
		Env:  map[string]string{"PATH": filepath.Dir(opts.NodejsBin)},
		Dir:  opts.BinDir,
	}
	return g.Engine.Exec(ctx, cmd, false)
}

// OutDir is where generated sources are written.
func (g *TsProto) OutDir() string {
	return filepath.Join(g.Engine.Opts.BinDir, "src", "generated")
}

// Args builds the protoc argument list.
func (g *TsProto) Args() ([]string, error) {
	opts := g.Engine.Opts
	plugin, err := manifest.ResolveBin(opts.BinDir, "ts-proto", "protoc-gen-ts_proto")
	if err != nil {
		return nil, err
	}
	tsProtoOpt, err := MergeTsProtoOpt(opts.TsProtoOpt)
	if err != nil {
		return nil, err
	}

	args := []string{
		"--plugin", plugin,
		"--ts_proto_opt", tsProtoOpt,
		"--ts_proto_out", g.OutDir(),
	}
	for _, p := range opts.ProtoPaths {
		args = append(args, "-I="+p)
	}
	return append(args, opts.ProtoSrcs...), nil
}

// MergeTsProtoOpt applies user KEY=VALUE overrides to the defaults and
// renders them as the comma separated plugin option, sorted by key.
func MergeTsProtoOpt(user []string) (string, error) {
	merged := make(map[string]string, len(DefaultTsProtoOpt)+len(user))
	for k, v := range DefaultTsProtoOpt {
		merged[k] = v
	}
	for _, opt := range user {
		key, value, err := config.ParseKeyValue(opt)
		if err != nil {
			return "", &config.Error{Field: "ts-proto-opt", Reason: err.Error()}
		}
		merged[key] = value
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+merged[k])
	}
	return strings.Join(pairs, ","), nil
}
