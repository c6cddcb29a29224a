package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/nodebuild/internal/config"
	"github.com/specialistvlad/nodebuild/internal/manifest"
)

// vcsInfoPrefix prefixes every variable derived from the VCS info file.
const vcsInfoPrefix = "VCS_INFO_"

// Environment assembles the tool environment. Later sources override earlier
// ones: VCS info, then MODDIR, PATH and NODE_PATH, then the user's KEY=VALUE
// pairs.
func Environment(opts *config.Options) (map[string]string, error) {
	env := make(map[string]string)

	if opts.VcsInfo != "" {
		vcs, err := readVcsInfo(filepath.Join(opts.BinDir, opts.VcsInfo))
		if err != nil {
			return nil, err
		}
		for k, v := range vcs {
			env[k] = v
		}
	}

	env["MODDIR"] = opts.ModDir
	env["PATH"] = filepath.Dir(opts.NodejsBin)
	env["NODE_PATH"] = manifest.NodeModulesPath(opts.BinDir)

	for _, pair := range opts.Env {
		key, value, err := config.ParseKeyValue(pair)
		if err != nil {
			return nil, &config.Error{Field: "env", Reason: err.Error()}
		}
		env[key] = value
	}
	return env, nil
}

// VcsInfoVar converts a VCS info field name into its variable name.
func VcsInfoVar(field string) string {
	return vcsInfoPrefix + strings.ReplaceAll(strings.ToUpper(field), "-", "_")
}

func readVcsInfo(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vcs info: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("parsing vcs info %s: %w", path, err)
	}

	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[VcsInfoVar(k)] = vcsValue(v)
	}
	return out, nil
}

func vcsValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	case json.Number, bool:
		return fmt.Sprint(val)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	}
}

// EnvList renders env as sorted KEY=VALUE pairs.
func EnvList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
