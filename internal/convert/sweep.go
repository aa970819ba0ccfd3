package convert

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/your-org/ytmerge/internal/observability"
)

// Sweep removes scratch files older than maxAge. Files left behind by a
// process that died mid-job are only reclaimed here.
func (o *Orchestrator) Sweep(now time.Time, maxAge time.Duration) (int, error) {
	removed := 0
	err := afero.Walk(o.fs, o.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() || now.Sub(info.ModTime()) < maxAge {
			return nil
		}
		if err := o.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("sweep scratch file", "path", path, "error", err)
			return nil
		}
		removed++
		return nil
	})
	observability.ScratchFilesSwept.Add(float64(removed))
	return removed, err
}

// RunSweeper sweeps immediately and then every interval until ctx ends.
func (o *Orchestrator) RunSweeper(ctx context.Context, interval, maxAge time.Duration) {
	sweep := func() {
		n, err := o.Sweep(time.Now(), maxAge)
		if err != nil {
			slog.Warn("sweep scratch dir", "dir", o.dir, "error", err)
			return
		}
		if n > 0 {
			slog.Info("swept stale scratch files", "dir", o.dir, "removed", n)
		}
	}

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
