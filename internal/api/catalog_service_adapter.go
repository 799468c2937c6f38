package api

import (
	"github.com/orienta/orienta/internal/models"
	"github.com/orienta/orienta/internal/services"
)

type catalogStoreAdapter struct {
	store Store
}

func newCatalogStoreAdapter(store Store) services.CatalogStore {
	return &catalogStoreAdapter{store: store}
}

func (a *catalogStoreAdapter) ListCareers() ([]*models.Career, error) {
	return a.store.ListCareers(), nil
}

func (a *catalogStoreAdapter) GetCareer(id string) (*models.Career, error) {
	return a.store.GetCareer(id), nil
}

func (a *catalogStoreAdapter) AddCareer(c *models.Career) error {
	if c == nil {
		return services.NewInvalidError("career required")
	}
	return a.store.AddCareer(c)
}

func (a *catalogStoreAdapter) DeleteCareer(id string) error {
	ok, err := a.store.DeleteCareer(id)
	if err != nil {
		return err
	}
	if !ok {
		return services.NewNotFoundError("career not found")
	}
	return nil
}

func (a *catalogStoreAdapter) ListUniversities() ([]*models.University, error) {
	return a.store.ListUniversities(), nil
}

func (a *catalogStoreAdapter) GetUniversity(id string) (*models.University, error) {
	return a.store.GetUniversity(id), nil
}

func (a *catalogStoreAdapter) AddUniversity(u *models.University) error {
	if u == nil {
		return services.NewInvalidError("university required")
	}
	return a.store.AddUniversity(u)
}

var _ services.CatalogStore = (*catalogStoreAdapter)(nil)
