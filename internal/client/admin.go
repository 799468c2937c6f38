package client

import (
	"context"
	"net/url"

	"github.com/orienta/orienta/internal/httpclient"
	"github.com/orienta/orienta/internal/models"
	"github.com/orienta/orienta/internal/validation"
)

const adminPrefix = "/api/v1/admin"

// BackupService drives the backup admin screen. Create and restore act on
// the server; callers re-read Files afterwards.
type BackupService struct {
	http *httpclient.Client
}

func NewBackupService(c *httpclient.Client) *BackupService {
	return &BackupService{http: c}
}

func (s *BackupService) Config(ctx context.Context, token string) (*models.BackupConfig, error) {
	var cfg models.BackupConfig
	if err := s.http.Get(ctx, adminPrefix+"/backup", nil, &cfg, httpclient.WithBearer(token)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpdateConfig validates cfg locally and only then sends it. A rejected
// config returns validation.FieldErrors without any request.
func (s *BackupService) UpdateConfig(ctx context.Context, token string, cfg models.BackupConfig) (*models.BackupConfig, error) {
	normalized, err := validation.BackupConfig(cfg)
	if err != nil {
		return nil, err
	}
	var out models.BackupConfig
	if err := s.http.Post(ctx, adminPrefix+"/backup", normalized, &out, httpclient.WithBearer(token)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BackupService) Files(ctx context.Context, token string) ([]models.BackupFile, error) {
	var out []models.BackupFile
	if err := s.http.Get(ctx, adminPrefix+"/backup/files", nil, &out, httpclient.WithBearer(token)); err != nil {
		return nil, err
	}
	return out, nil
}

// Restore asks the server to restore backup id. Completion is assumed when
// the request returns.
func (s *BackupService) Restore(ctx context.Context, token, id string) error {
	return s.http.Post(ctx, adminPrefix+"/backup/files", models.RestoreRequest{ID: id}, nil, httpclient.WithBearer(token))
}

// CreateManual triggers a backup now and returns the file it produced.
func (s *BackupService) CreateManual(ctx context.Context, token string) (*models.BackupFile, error) {
	var out models.BackupFile
	if err := s.http.Post(ctx, adminPrefix+"/backup/manual", nil, &out, httpclient.WithBearer(token)); err != nil {
		return nil, err
	}
	return &out, nil
}

type StatsService struct {
	http *httpclient.Client
}

func NewStatsService(c *httpclient.Client) *StatsService {
	return &StatsService{http: c}
}

func (s *StatsService) Summary(ctx context.Context, token string) (*models.Stats, error) {
	var out models.Stats
	if err := s.http.Get(ctx, adminPrefix+"/stats", nil, &out, httpclient.WithBearer(token)); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportCSV returns the long-format submissions CSV.
func (s *StatsService) ExportCSV(ctx context.Context, token string) ([]byte, error) {
	return s.http.Raw(ctx, adminPrefix+"/stats/export", nil, httpclient.WithBearer(token))
}

const catalogPrefix = "/api/v1/catalog"

type CatalogService struct {
	http *httpclient.Client
}

func NewCatalogService(c *httpclient.Client) *CatalogService {
	return &CatalogService{http: c}
}

func (s *CatalogService) Careers(ctx context.Context) ([]models.Career, error) {
	var out []models.Career
	if err := s.http.Get(ctx, catalogPrefix+"/careers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CatalogService) CreateCareer(ctx context.Context, token string, c models.Career) (*models.Career, error) {
	var out models.Career
	if err := s.http.Post(ctx, catalogPrefix+"/careers", c, &out, httpclient.WithBearer(token)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CatalogService) DeleteCareer(ctx context.Context, token, id string) error {
	return s.http.Delete(ctx, catalogPrefix+"/careers/"+url.PathEscape(id), httpclient.WithBearer(token))
}

func (s *CatalogService) Universities(ctx context.Context) ([]models.University, error) {
	var out []models.University
	if err := s.http.Get(ctx, catalogPrefix+"/universities", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CatalogService) CreateUniversity(ctx context.Context, token string, u models.University) (*models.University, error) {
	var out models.University
	if err := s.http.Post(ctx, catalogPrefix+"/universities", u, &out, httpclient.WithBearer(token)); err != nil {
		return nil, err
	}
	return &out, nil
}
