package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
)

// Orchestrator owns the scratch directory. Every job gets a key-derived path
// that is removed on every exit path of WithMergedFile.
type Orchestrator struct {
	fs  afero.Fs
	dir string
	tc  Transcoder
}

// NewOrchestrator returns an orchestrator writing under dir. fs must be the
// filesystem the transcoder writes to (afero.NewOsFs for ffmpeg).
func NewOrchestrator(fs afero.Fs, dir string, tc Transcoder) *Orchestrator {
	return &Orchestrator{fs: fs, dir: dir, tc: tc}
}

// ScratchPath returns the job path for a cache key.
func (o *Orchestrator) ScratchPath(key string) string {
	return filepath.Join(o.dir, filepath.FromSlash(key))
}

// WithMergedFile merges videoURL and audioURL into the scratch file for key,
// hands the file to use, and deletes it afterwards whatever happened,
// including panics in use.
func (o *Orchestrator) WithMergedFile(ctx context.Context, key, videoURL, audioURL string, use func(ctx context.Context, path string) error) error {
	path := o.ScratchPath(key)
	if err := o.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create scratch dir: %w", ErrTranscode, err)
	}
	defer o.release(path)

	if err := o.tc.Merge(ctx, videoURL, audioURL, path); err != nil {
		return err
	}
	return use(ctx, path)
}

func (o *Orchestrator) release(path string) {
	err := o.fs.Remove(path)
	switch {
	case err == nil:
		slog.Debug("released scratch file", "path", path)
	case errors.Is(err, fs.ErrNotExist):
	default:
		slog.Error("remove scratch file", "path", path, "error", err)
	}
}
