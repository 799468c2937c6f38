package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/orienta/orienta/internal/httpclient"
	"github.com/orienta/orienta/internal/models"
)

type QuestionnaireService struct {
	http *httpclient.Client
}

func NewQuestionnaireService(c *httpclient.Client) *QuestionnaireService {
	return &QuestionnaireService{http: c}
}

func (s *QuestionnaireService) Questions(ctx context.Context) ([]models.Question, error) {
	var qs []models.Question
	if err := s.http.Get(ctx, "/questions", nil, &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

// Submit posts the answers once. token may be empty for anonymous students.
func (s *QuestionnaireService) Submit(ctx context.Context, token, studentID string, answers []models.Answer) (*models.SubmitAnswersResult, error) {
	var res models.SubmitAnswersResult
	req := models.SubmitAnswersRequest{StudentID: studentID, Answers: answers}
	if err := s.http.Post(ctx, "/answers", req, &res, httpclient.WithBearer(token)); err != nil {
		return nil, err
	}
	return &res, nil
}

// AnswerSheet is the in-progress questionnaire. It lives only in memory.
type AnswerSheet struct {
	mu        sync.Mutex
	questions []models.Question
	index     map[string]struct{}
	values    map[string]int
}

func NewAnswerSheet(questions []models.Question) *AnswerSheet {
	idx := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		idx[q.ID] = struct{}{}
	}
	return &AnswerSheet{questions: questions, index: idx, values: map[string]int{}}
}

// Set records (or replaces) the answer for questionID.
func (a *AnswerSheet) Set(questionID string, value int) error {
	if _, ok := a.index[questionID]; !ok {
		return fmt.Errorf("unknown question %q", questionID)
	}
	if value < models.MinAnswerValue || value > models.MaxAnswerValue {
		return fmt.Errorf("answer for %q must be between %d and %d", questionID, models.MinAnswerValue, models.MaxAnswerValue)
	}
	a.mu.Lock()
	a.values[questionID] = value
	a.mu.Unlock()
	return nil
}

func (a *AnswerSheet) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.values)
}

// Missing lists unanswered questions in questionnaire order.
func (a *AnswerSheet) Missing() []models.Question {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.Question
	for _, q := range a.questions {
		if _, ok := a.values[q.ID]; !ok {
			out = append(out, q)
		}
	}
	return out
}

// Payload converts the answers into a list ordered like the questionnaire.
func (a *AnswerSheet) Payload() []models.Answer {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.Answer, 0, len(a.values))
	for _, q := range a.questions {
		if v, ok := a.values[q.ID]; ok {
			out = append(out, models.Answer{QuestionID: q.ID, Value: v})
		}
	}
	return out
}

type ResultsService struct {
	http *httpclient.Client
}

func NewResultsService(c *httpclient.Client) *ResultsService {
	return &ResultsService{http: c}
}

func (s *ResultsService) Recommendations(ctx context.Context, token, studentID string) ([]models.Recommendation, error) {
	var out []models.Recommendation
	q := url.Values{}
	if studentID != "" {
		q.Set("studentId", studentID)
	}
	if err := s.http.Get(ctx, "/recommendations", q, &out, httpclient.WithBearer(token)); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ResultsService) Aptitudes(ctx context.Context, token, studentID string) ([]models.Aptitude, error) {
	var out []models.Aptitude
	if err := s.http.Get(ctx, "/students/"+url.PathEscape(studentID)+"/aptitudes", nil, &out, httpclient.WithBearer(token)); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ResultsService) LastCareer(ctx context.Context, token, studentID string) (*models.LastCareer, error) {
	var out models.LastCareer
	if err := s.http.Get(ctx, "/students/"+url.PathEscape(studentID)+"/lastCareer", nil, &out, httpclient.WithBearer(token)); err != nil {
		return nil, err
	}
	return &out, nil
}

// Dashboard is what the student results page shows.
type Dashboard struct {
	Aptitudes  []models.Aptitude
	LastCareer *models.LastCareer
}

// Dashboard fetches aptitudes and the last career concurrently.
func (s *ResultsService) Dashboard(ctx context.Context, token, studentID string) (*Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		apt, err := s.Aptitudes(gctx, token, studentID)
		d.Aptitudes = apt
		return err
	})
	g.Go(func() error {
		lc, err := s.LastCareer(gctx, token, studentID)
		d.LastCareer = lc
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}
