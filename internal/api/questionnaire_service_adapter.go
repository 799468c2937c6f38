package api

import (
	"github.com/orienta/orienta/internal/models"
	"github.com/orienta/orienta/internal/services"
)

type questionnaireStoreAdapter struct {
	store Store
}

func newQuestionnaireStoreAdapter(store Store) services.QuestionnaireStore {
	return &questionnaireStoreAdapter{store: store}
}

func (a *questionnaireStoreAdapter) ListQuestions() ([]*models.Question, error) {
	return a.store.ListQuestions(), nil
}

func (a *questionnaireStoreAdapter) ListCareers() ([]*models.Career, error) {
	return a.store.ListCareers(), nil
}

func (a *questionnaireStoreAdapter) GetUniversity(id string) (*models.University, error) {
	return a.store.GetUniversity(id), nil
}

func (a *questionnaireStoreAdapter) GetUser(id string) (*services.User, error) {
	return a.store.GetUser(id), nil
}

func (a *questionnaireStoreAdapter) AddSubmission(s *services.Submission) error {
	if s == nil {
		return services.NewInvalidError("submission required")
	}
	return a.store.AddSubmission(s)
}

func (a *questionnaireStoreAdapter) LatestSubmission(studentID string) (*services.Submission, error) {
	return a.store.LatestSubmission(studentID), nil
}

var _ services.QuestionnaireStore = (*questionnaireStoreAdapter)(nil)
