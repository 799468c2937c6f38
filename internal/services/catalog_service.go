package services

import (
	"net/url"
	"sort"
	"strings"

	"github.com/orienta/orienta/internal/models"
)

type CatalogStore interface {
	ListCareers() ([]*models.Career, error)
	GetCareer(id string) (*models.Career, error)
	AddCareer(c *models.Career) error
	DeleteCareer(id string) error
	ListUniversities() ([]*models.University, error)
	GetUniversity(id string) (*models.University, error)
	AddUniversity(u *models.University) error
}

type CatalogService struct {
	store CatalogStore
	idGen func(prefix string, n int) string
}

func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{
		store: store,
		idGen: func(prefix string, n int) string { return prefix + shortID(n) },
	}
}

func canEditCatalog(role string) bool {
	return role == models.RoleAdmin || role == models.RoleInstitution
}

func checkLink(link string) error {
	if link == "" {
		return nil
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return NewInvalidError("link must be an http(s) URL")
	}
	return nil
}

func (s *CatalogService) Careers() ([]*models.Career, error) {
	cs, err := s.store.ListCareers()
	if err != nil {
		return nil, err
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })
	return cs, nil
}

func (s *CatalogService) CreateCareer(actor Actor, in models.Career) (*models.Career, error) {
	if !canEditCatalog(actor.Role) {
		return nil, NewForbiddenError("forbidden")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Dimension = strings.TrimSpace(in.Dimension)
	if in.Name == "" || in.Dimension == "" {
		return nil, NewInvalidError("name and dimension required")
	}
	if err := checkLink(in.Link); err != nil {
		return nil, err
	}
	if in.UniversityID != "" {
		u, err := s.store.GetUniversity(in.UniversityID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, NewInvalidError("unknown university")
		}
	}
	in.ID = s.idGen("c", 8)
	if err := s.store.AddCareer(&in); err != nil {
		return nil, err
	}
	return &in, nil
}

// DeleteCareer is admin only.
func (s *CatalogService) DeleteCareer(actor Actor, id string) error {
	if actor.Role != models.RoleAdmin {
		return NewForbiddenError("forbidden")
	}
	c, err := s.store.GetCareer(id)
	if err != nil {
		return err
	}
	if c == nil {
		return NewNotFoundError("career not found")
	}
	return s.store.DeleteCareer(id)
}

func (s *CatalogService) Universities() ([]*models.University, error) {
	us, err := s.store.ListUniversities()
	if err != nil {
		return nil, err
	}
	sort.Slice(us, func(i, j int) bool { return us[i].Name < us[j].Name })
	return us, nil
}

func (s *CatalogService) CreateUniversity(actor Actor, in models.University) (*models.University, error) {
	if !canEditCatalog(actor.Role) {
		return nil, NewForbiddenError("forbidden")
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, NewInvalidError("name required")
	}
	if err := checkLink(in.Link); err != nil {
		return nil, err
	}
	existing, err := s.store.ListUniversities()
	if err != nil {
		return nil, err
	}
	for _, u := range existing {
		if strings.EqualFold(u.Name, in.Name) {
			return nil, NewConflictError("university exists")
		}
	}
	in.ID = s.idGen("un", 8)
	if err := s.store.AddUniversity(&in); err != nil {
		return nil, err
	}
	return &in, nil
}
