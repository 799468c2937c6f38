package main

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/orienta/orienta/internal/api"
	"github.com/orienta/orienta/internal/backup"
)

// ImportSnapshot loads a backup file into a store that holds no users and
// no questions, for moving data between drivers. It reports whether data
// was imported; a missing file or a populated store is skipped.
func ImportSnapshot(store api.Store, path string, logger *zap.Logger) (bool, error) {
	if path == "" {
		return false, nil
	}
	if len(store.ListUsers()) > 0 || len(store.ListQuestions()) > 0 {
		logger.Info("store already populated, snapshot import skipped", zap.String("path", path))
		return false, nil
	}
	snap, err := backup.ReadSnapshotFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("snapshot to import not found", zap.String("path", path))
			return false, nil
		}
		return false, fmt.Errorf("load snapshot: %w", err)
	}
	logger.Info("first run detected, importing snapshot", zap.String("path", path), zap.Time("taken_at", snap.TakenAt))
	if err := store.Restore(snap); err != nil {
		return false, fmt.Errorf("import snapshot: %w", err)
	}
	logger.Info("snapshot import completed",
		zap.Int("users", len(snap.Users)),
		zap.Int("submissions", len(snap.Submissions)))
	return true, nil
}
