package services

import (
	"sort"
	"strings"
	"time"

	"github.com/orienta/orienta/internal/models"
)

// topDimensions is how many of a student's strongest dimensions feed
// recommendations.
const topDimensions = 3

type QuestionnaireStore interface {
	ListQuestions() ([]*models.Question, error)
	ListCareers() ([]*models.Career, error)
	GetUniversity(id string) (*models.University, error)
	GetUser(id string) (*User, error)
	AddSubmission(s *Submission) error
	LatestSubmission(studentID string) (*Submission, error)
}

type QuestionnaireService struct {
	store QuestionnaireStore
	now   func() time.Time
	idGen func(prefix string, n int) string
}

func NewQuestionnaireService(store QuestionnaireStore) *QuestionnaireService {
	return &QuestionnaireService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func(prefix string, n int) string { return prefix + shortID(n) },
	}
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) canReadStudent(studentID string) bool {
	return a.ID == studentID || a.Role == models.RoleAdmin || a.Role == models.RoleInstitution
}

func (s *QuestionnaireService) Questions() ([]*models.Question, error) {
	qs, err := s.store.ListQuestions()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
	return qs, nil
}

// Submit scores a full answer set and stores the submission with its
// aptitudes and recommendations.
func (s *QuestionnaireService) Submit(actor Actor, req models.SubmitAnswersRequest) (*models.SubmitAnswersResult, error) {
	studentID := strings.TrimSpace(req.StudentID)
	if studentID == "" {
		studentID = actor.ID
	}
	if actor.ID != studentID && actor.Role != models.RoleAdmin {
		return nil, NewForbiddenError("cannot submit answers for another student")
	}
	student, err := s.store.GetUser(studentID)
	if err != nil {
		return nil, err
	}
	if student == nil || !student.Active {
		return nil, NewNotFoundError("student not found")
	}
	if len(req.Answers) == 0 {
		return nil, NewInvalidError("answers required")
	}
	questions, err := s.store.ListQuestions()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	seen := make(map[string]bool, len(req.Answers))
	for _, a := range req.Answers {
		if _, ok := byID[a.QuestionID]; !ok {
			return nil, NewInvalidError("unknown question " + a.QuestionID)
		}
		if seen[a.QuestionID] {
			return nil, NewInvalidError("duplicate answer for " + a.QuestionID)
		}
		seen[a.QuestionID] = true
		if a.Value < models.MinAnswerValue || a.Value > models.MaxAnswerValue {
			return nil, NewInvalidError("answer value must be between 1 and 5")
		}
	}

	records, byDim := scoreAnswers(byID, req.Answers)
	aptitudes := rankAptitudes(byDim)
	recs, err := s.recommend(aptitudes)
	if err != nil {
		return nil, err
	}
	sub := &Submission{
		ID:              s.idGen("s", 10),
		StudentID:       studentID,
		Answers:         records,
		Aptitudes:       aptitudes,
		Recommendations: recs,
		SubmittedAt:     s.now(),
	}
	if err := s.store.AddSubmission(sub); err != nil {
		return nil, err
	}
	return &models.SubmitAnswersResult{
		SubmissionID:    sub.ID,
		Count:           len(records),
		Aptitudes:       aptitudes,
		Recommendations: recs,
	}, nil
}

// rankAptitudes orders dimensions by score, best first, ties by name.
func rankAptitudes(byDim map[string][]int) []models.Aptitude {
	out := make([]models.Aptitude, 0, len(byDim))
	for dim, values := range byDim {
		out = append(out, models.Aptitude{Dimension: dim, Score: AptitudeScore(values, models.MaxAnswerValue)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Dimension < out[j].Dimension
	})
	return out
}

func (s *QuestionnaireService) recommend(aptitudes []models.Aptitude) ([]models.Recommendation, error) {
	careers, err := s.store.ListCareers()
	if err != nil {
		return nil, err
	}
	byDim := map[string][]*models.Career{}
	for _, c := range careers {
		byDim[c.Dimension] = append(byDim[c.Dimension], c)
	}
	universities := map[string]*models.University{}
	var recs []models.Recommendation
	used := 0
	for _, apt := range aptitudes {
		if used == topDimensions {
			break
		}
		cs := byDim[apt.Dimension]
		if len(cs) == 0 {
			continue
		}
		used++
		sort.Slice(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })
		for _, c := range cs {
			u, ok := universities[c.UniversityID]
			if !ok && c.UniversityID != "" {
				if u, err = s.store.GetUniversity(c.UniversityID); err != nil {
					return nil, err
				}
				universities[c.UniversityID] = u
			}
			rec := models.Recommendation{
				ID:        c.ID,
				Career:    c.Name,
				Link:      c.Link,
				Dimension: apt.Dimension,
				Score:     apt.Score,
			}
			if u != nil {
				rec.University = u.Name
				if rec.Link == "" {
					rec.Link = u.Link
				}
			}
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (s *QuestionnaireService) latest(actor Actor, studentID string) (*Submission, error) {
	if strings.TrimSpace(studentID) == "" {
		studentID = actor.ID
	}
	if !actor.canReadStudent(studentID) {
		return nil, NewForbiddenError("forbidden")
	}
	return s.store.LatestSubmission(studentID)
}

// Recommendations returns the recommendations of the latest submission,
// empty when the student has not submitted yet.
func (s *QuestionnaireService) Recommendations(actor Actor, studentID string) ([]models.Recommendation, error) {
	sub, err := s.latest(actor, studentID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return []models.Recommendation{}, nil
	}
	return sub.Recommendations, nil
}

func (s *QuestionnaireService) Aptitudes(actor Actor, studentID string) ([]models.Aptitude, error) {
	sub, err := s.latest(actor, studentID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return []models.Aptitude{}, nil
	}
	return sub.Aptitudes, nil
}

// LastCareer is the top recommendation of the latest submission.
func (s *QuestionnaireService) LastCareer(actor Actor, studentID string) (*models.LastCareer, error) {
	sub, err := s.latest(actor, studentID)
	if err != nil {
		return nil, err
	}
	if sub == nil || len(sub.Recommendations) == 0 {
		return nil, NewNotFoundError("no career recommended yet")
	}
	top := sub.Recommendations[0]
	return &models.LastCareer{
		StudentID:   sub.StudentID,
		Career:      top.Career,
		University:  top.University,
		Link:        top.Link,
		SubmittedAt: sub.SubmittedAt,
	}, nil
}
