package services

import (
	"context"
	"strings"
	"time"

	"github.com/orienta/orienta/internal/models"
	"github.com/orienta/orienta/internal/validation"
)

type BackupStore interface {
	GetBackupConfig() (*models.BackupConfig, error)
	SaveBackupConfig(cfg *models.BackupConfig) error
	AddAudit(e AuditEntry) error
}

// BackupRunner produces and restores snapshot files.
type BackupRunner interface {
	Create(ctx context.Context) (*models.BackupFile, error)
	List() ([]models.BackupFile, error)
	Restore(ctx context.Context, id string) error
	Prune(keep int) ([]string, error)
}

type BackupService struct {
	store    BackupStore
	runner   BackupRunner
	now      func() time.Time
	onChange []func(models.BackupConfig)
}

func NewBackupService(store BackupStore, runner BackupRunner) *BackupService {
	return &BackupService{
		store:  store,
		runner: runner,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// OnConfigChange registers fn to run after the schedule config changes.
func (s *BackupService) OnConfigChange(fn func(models.BackupConfig)) {
	s.onChange = append(s.onChange, fn)
}

func (s *BackupService) notify(cfg models.BackupConfig) {
	for _, fn := range s.onChange {
		fn(cfg)
	}
}

func requireAdmin(actor Actor) error {
	if actor.Role != models.RoleAdmin {
		return NewForbiddenError("admin only")
	}
	return nil
}

// Config returns the stored schedule, or the default one.
func (s *BackupService) Config() (models.BackupConfig, error) {
	cfg, err := s.store.GetBackupConfig()
	if err != nil {
		return models.BackupConfig{}, err
	}
	if cfg == nil {
		return models.DefaultBackupConfig(), nil
	}
	return *cfg, nil
}

func (s *BackupService) UpdateConfig(actor Actor, in models.BackupConfig) (models.BackupConfig, error) {
	if err := requireAdmin(actor); err != nil {
		return models.BackupConfig{}, err
	}
	cfg, err := validation.BackupConfig(in)
	if err != nil {
		return models.BackupConfig{}, NewInvalidError(err.Error())
	}
	if err := s.store.SaveBackupConfig(&cfg); err != nil {
		return models.BackupConfig{}, err
	}
	s.audit(actor, "backup.config.update", string(cfg.Frequency)+" "+cfg.ExecutionTime)
	s.notify(cfg)
	return cfg, nil
}

func (s *BackupService) Files(actor Actor) ([]models.BackupFile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	files, err := s.runner.List()
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []models.BackupFile{}
	}
	return files, nil
}

// CreateManual writes a snapshot now and prunes to the retention count.
func (s *BackupService) CreateManual(ctx context.Context, actor Actor) (*models.BackupFile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	f, err := s.Run(ctx)
	if err != nil {
		return nil, err
	}
	s.audit(actor, "backup.manual", f.ID)
	return f, nil
}

// Run creates a snapshot and applies retention. The scheduler calls it
// directly.
func (s *BackupService) Run(ctx context.Context) (*models.BackupFile, error) {
	f, err := s.runner.Create(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := s.Config()
	if err != nil {
		return f, err
	}
	if _, err := s.runner.Prune(cfg.RetentionCount); err != nil {
		return f, err
	}
	return f, nil
}

// Restore replaces all stored data with the snapshot id.
func (s *BackupService) Restore(ctx context.Context, actor Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return NewInvalidError("backup id required")
	}
	files, err := s.runner.List()
	if err != nil {
		return err
	}
	found := false
	for _, f := range files {
		if f.ID == id {
			found = true
			break
		}
	}
	if !found {
		return NewNotFoundError("backup not found")
	}
	if err := s.runner.Restore(ctx, id); err != nil {
		return err
	}
	s.audit(actor, "backup.restore", id)
	if cfg, err := s.Config(); err == nil {
		s.notify(cfg)
	}
	return nil
}

func (s *BackupService) audit(actor Actor, action, target string) {
	_ = s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor.ID, Action: action, Target: target})
}
