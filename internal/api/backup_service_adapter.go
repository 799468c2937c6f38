package api

import (
	"github.com/orienta/orienta/internal/models"
	"github.com/orienta/orienta/internal/services"
)

type backupStoreAdapter struct {
	store Store
}

func newBackupStoreAdapter(store Store) services.BackupStore {
	return &backupStoreAdapter{store: store}
}

func (a *backupStoreAdapter) GetBackupConfig() (*models.BackupConfig, error) {
	return a.store.GetBackupConfig(), nil
}

func (a *backupStoreAdapter) SaveBackupConfig(cfg *models.BackupConfig) error {
	if cfg == nil {
		return services.NewInvalidError("backup config required")
	}
	return a.store.SaveBackupConfig(cfg)
}

func (a *backupStoreAdapter) AddAudit(e services.AuditEntry) error {
	return a.store.AddAudit(e)
}

type statsStoreAdapter struct {
	store Store
}

func newStatsStoreAdapter(store Store) services.StatsStore {
	return &statsStoreAdapter{store: store}
}

func (a *statsStoreAdapter) ListUsers() ([]*services.User, error) {
	return a.store.ListUsers(), nil
}

func (a *statsStoreAdapter) ListQuestions() ([]*models.Question, error) {
	return a.store.ListQuestions(), nil
}

func (a *statsStoreAdapter) ListSubmissions() ([]*services.Submission, error) {
	return a.store.ListSubmissions(), nil
}

var (
	_ services.BackupStore = (*backupStoreAdapter)(nil)
	_ services.StatsStore  = (*statsStoreAdapter)(nil)
)
