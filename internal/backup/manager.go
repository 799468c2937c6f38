// Package backup writes gzip-compressed JSON snapshots of the portal data to
// a directory and runs them on the schedule an admin configures.
package backup

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/orienta/orienta/internal/models"
	"github.com/orienta/orienta/internal/services"
)

const (
	filePrefix = "backup-"
	fileSuffix = ".json.gz"
	stampFmt   = "20060102-150405"
)

var idPattern = regexp.MustCompile(`^backup-\d{8}-\d{6}(-\d+)?$`)

// ErrNotFound is returned when no snapshot file matches an id.
var ErrNotFound = errors.New("backup not found")

// Source is the data set that gets snapshotted and restored.
type Source interface {
	Snapshot() (*services.Snapshot, error)
	Restore(snap *services.Snapshot) error
}

// Manager owns the snapshot files in one directory.
type Manager struct {
	dir    string
	src    Source
	logger *zap.Logger
	now    func() time.Time

	mu sync.Mutex
}

func NewManager(dir string, src Source, logger *zap.Logger) (*Manager, error) {
	if dir == "" {
		return nil, errors.New("backup dir is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{dir: dir, src: src, logger: logger, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (m *Manager) Dir() string { return m.dir }

// Create writes a new snapshot file. When the source cannot be read no
// file is written.
func (m *Manager) Create(ctx context.Context) (*models.BackupFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, err := m.src.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("read backup source: %w", err)
	}
	at := m.now()
	snap.TakenAt = at
	id := filePrefix + at.Format(stampFmt)
	for n := 2; m.exists(id); n++ {
		id = fmt.Sprintf("%s%s-%d", filePrefix, at.Format(stampFmt), n)
	}
	path := filepath.Join(m.dir, id+fileSuffix)
	if err := writeSnapshot(path, snap); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}
	m.logger.Info("backup written", zap.String("id", id), zap.Int64("size", info.Size()))
	return &models.BackupFile{ID: id, Timestamp: at, Filename: id + fileSuffix, Size: info.Size()}, nil
}

func (m *Manager) exists(id string) bool {
	_, err := os.Stat(filepath.Join(m.dir, id+fileSuffix))
	return err == nil
}

func writeSnapshot(path string, snap *services.Snapshot) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".backup-*")
	if err != nil {
		return fmt.Errorf("create temp backup: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	zw := gzip.NewWriter(tmp)
	if err = json.NewEncoder(zw).Encode(snap); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode backup: %w", err)
	}
	if err = zw.Close(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("compress backup: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close backup: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename backup: %w", err)
	}
	return nil
}

// ReadSnapshotFile decodes one snapshot file.
func ReadSnapshotFile(path string) (*services.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open gzip %s: %w", filepath.Base(path), err)
	}
	defer zr.Close()
	var snap services.Snapshot
	if err := json.NewDecoder(zr).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &snap, nil
}

// List returns the snapshot files, newest first.
func (m *Manager) List() ([]models.BackupFile, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}
	out := []models.BackupFile{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		id := strings.TrimSuffix(name, fileSuffix)
		if !idPattern.MatchString(id) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		ts, err := time.Parse(stampFmt, id[len(filePrefix):len(filePrefix)+len(stampFmt)])
		if err != nil {
			ts = info.ModTime().UTC()
		}
		out = append(out, models.BackupFile{ID: id, Timestamp: ts, Filename: name, Size: info.Size()})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return sequence(out[i].ID) > sequence(out[j].ID)
	})
	return out, nil
}

// sequence is the same-second counter of an id: 1 for the first backup,
// then the "-N" suffix.
func sequence(id string) int {
	rest := strings.TrimPrefix(id, filePrefix)
	if len(rest) <= len(stampFmt)+1 {
		return 1
	}
	n, err := strconv.Atoi(rest[len(stampFmt)+1:])
	if err != nil {
		return 1
	}
	return n
}

// Restore replaces the source data with snapshot id.
func (m *Manager) Restore(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !idPattern.MatchString(id) {
		return ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, err := ReadSnapshotFile(filepath.Join(m.dir, id+fileSuffix))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	if err := m.src.Restore(snap); err != nil {
		return fmt.Errorf("restore %s: %w", id, err)
	}
	m.logger.Info("backup restored", zap.String("id", id), zap.Time("taken_at", snap.TakenAt))
	return nil
}

// Prune deletes all but the newest keep files and returns the removed ids.
func (m *Manager) Prune(keep int) ([]string, error) {
	if keep < 1 {
		keep = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	files, err := m.List()
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, f := range files[min(keep, len(files)):] {
		if err := os.Remove(filepath.Join(m.dir, f.Filename)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", f.Filename, err)
		}
		removed = append(removed, f.ID)
	}
	if len(removed) > 0 {
		m.logger.Info("old backups pruned", zap.Strings("ids", removed), zap.Int("kept", keep))
	}
	return removed, nil
}
