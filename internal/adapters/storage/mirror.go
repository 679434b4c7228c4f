package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chizu-dev/chizu/internal/ports/output"
)

// Mirror copies source vector files from an object storage backend into
// the local ingestion spool. Files already mirrored (including ones moved
// aside as .done or .failed after ingestion) are not fetched again.
type Mirror struct {
	storage  output.ObjectStorage
	spoolDir string
	logger   *slog.Logger
}

// NewMirror creates a new mirror.
func NewMirror(storage output.ObjectStorage, spoolDir string, logger *slog.Logger) *Mirror {
	return &Mirror{
		storage:  storage,
		spoolDir: spoolDir,
		logger:   logger,
	}
}

// Sync fetches every remote source file not yet present in the spool and
// returns how many files were downloaded.
func (m *Mirror) Sync(ctx context.Context) (int, error) {
	objects, err := m.storage.List(ctx)
	if err != nil {
		return 0, err
	}

	downloaded := 0
	for _, obj := range objects {
		name := filepath.Base(obj.Key)
		dest := filepath.Join(m.spoolDir, name)

		if m.alreadyMirrored(dest) {
			continue
		}

		m.logger.Info("mirroring source file", "key", obj.Key, "size", obj.Size)
		if err := m.storage.Download(ctx, obj.Key, dest); err != nil {
			m.logger.Error("mirror download failed", "key", obj.Key, "error", err)
			continue
		}
		downloaded++
	}

	return downloaded, nil
}

// alreadyMirrored reports whether the file, or its post-ingestion rename,
// exists in the spool.
func (m *Mirror) alreadyMirrored(dest string) bool {
	for _, candidate := range []string{dest, dest + ".done", dest + ".failed"} {
		if _, err := os.Stat(candidate); err == nil {
			return true
		}
	}
	return false
}
