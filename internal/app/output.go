package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/nodebuild/internal/ctxlog"
	"github.com/specialistvlad/nodebuild/internal/fsutil"
	"github.com/specialistvlad/nodebuild/internal/manifest"
)

// markerTimeLayout is ISO-8601 with microseconds and no zone; the time is
// always UTC.
const markerTimeLayout = "2006-01-02T15:04:05.000000"

// postProcess writes the side artifacts of a real output archive: the
// <output>.uuid marker and the legacy bindir/output.tar copy read by
// dependent modules. The node_modules bundle gets neither.
func (a *App) postProcess(ctx context.Context) error {
	output := a.opts.OutputFile
	if output == "" {
		output = a.opts.NodeModulesBundle
	}

	info, err := os.Stat(output)
	if err != nil {
		if os.IsNotExist(err) {
			ctxlog.FromContext(ctx).Debug("No output archive produced.", "path", output)
			return nil
		}
		return err
	}
	if !info.Mode().IsRegular() || output == a.opts.NodeModulesBundle {
		return nil
	}

	if err := WriteUUIDMarker(output); err != nil {
		return err
	}

	legacy := filepath.Join(a.opts.BinDir, manifest.OutputTarFilename)
	if filepath.Clean(output) == legacy {
		return nil
	}
	if err := os.Remove(legacy); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replacing %s: %w", legacy, err)
	}
	ctxlog.FromContext(ctx).Debug("Linking legacy output archive.", "path", legacy)
	return fsutil.HardlinkOrCopy(output, legacy)
}

// WriteUUIDMarker writes "<name>: <uuid> - <timestamp>" to output + ".uuid"
// using a time-based UUID.
func WriteUUIDMarker(output string) error {
	id, err := uuid.NewUUID()
	if err != nil {
		return fmt.Errorf("generating build uuid: %w", err)
	}
	line := fmt.Sprintf("%s: %s - %s",
		filepath.Base(output),
		strings.ReplaceAll(id.String(), "-", ""),
		time.Now().UTC().Format(markerTimeLayout))

	if err := os.WriteFile(output+".uuid", []byte(line), 0o644); err != nil {
		return fmt.Errorf("writing uuid marker: %w", err)
	}
	return nil
}
