package services

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strconv"
	"time"

	"github.com/orienta/orienta/internal/models"
)

const topCareersLimit = 10

type StatsStore interface {
	ListUsers() ([]*User, error)
	ListQuestions() ([]*models.Question, error)
	ListSubmissions() ([]*Submission, error)
}

type StatsService struct {
	store StatsStore
}

func NewStatsService(store StatsStore) *StatsService {
	return &StatsService{store: store}
}

func (s *StatsService) Summary(actor Actor) (*models.Stats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers()
	if err != nil {
		return nil, err
	}
	questions, err := s.store.ListQuestions()
	if err != nil {
		return nil, err
	}
	subs, err := s.store.ListSubmissions()
	if err != nil {
		return nil, err
	}
	out := &models.Stats{Users: len(users), Submissions: len(subs)}
	for _, u := range users {
		if u.Role == models.RoleStudent {
			out.Students++
		}
	}
	out.AptitudeAverages = averageAptitudes(subs)
	out.Reliability = reliability(questions, subs)
	out.TopCareers = topCareers(latestPerStudent(subs))
	return out, nil
}

func averageAptitudes(subs []*Submission) []models.Aptitude {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, sub := range subs {
		for _, a := range sub.Aptitudes {
			sums[a.Dimension] += a.Score
			counts[a.Dimension]++
		}
	}
	out := make([]models.Aptitude, 0, len(sums))
	for dim, sum := range sums {
		out = append(out, models.Aptitude{Dimension: dim, Score: sum / float64(counts[dim])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dimension < out[j].Dimension })
	return out
}

// reliability computes alpha per dimension over the submissions that
// answered every item of that dimension.
func reliability(questions []*models.Question, subs []*Submission) []models.Reliability {
	items := map[string][]string{}
	for _, q := range questions {
		items[q.Dimension] = append(items[q.Dimension], q.ID)
	}
	dims := make([]string, 0, len(items))
	for dim := range items {
		sort.Strings(items[dim])
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	out := make([]models.Reliability, 0, len(dims))
	for _, dim := range dims {
		var rows [][]float64
		for _, sub := range subs {
			scores := map[string]int{}
			for _, a := range sub.Answers {
				scores[a.QuestionID] = a.ScoreValue
			}
			row := make([]float64, 0, len(items[dim]))
			for _, id := range items[dim] {
				v, ok := scores[id]
				if !ok {
					break
				}
				row = append(row, float64(v))
			}
			if len(row) == len(items[dim]) {
				rows = append(rows, row)
			}
		}
		out = append(out, models.Reliability{Dimension: dim, Alpha: CronbachAlpha(rows), N: len(rows)})
	}
	return out
}

func latestPerStudent(subs []*Submission) []*Submission {
	latest := map[string]*Submission{}
	for _, sub := range subs {
		if cur, ok := latest[sub.StudentID]; !ok || sub.SubmittedAt.After(cur.SubmittedAt) {
			latest[sub.StudentID] = sub
		}
	}
	out := make([]*Submission, 0, len(latest))
	for _, sub := range latest {
		out = append(out, sub)
	}
	return out
}

func topCareers(subs []*Submission) []models.CareerCount {
	counts := map[string]int{}
	for _, sub := range subs {
		if len(sub.Recommendations) > 0 {
			counts[sub.Recommendations[0].Career]++
		}
	}
	out := make([]models.CareerCount, 0, len(counts))
	for career, n := range counts {
		out = append(out, models.CareerCount{Career: career, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Career < out[j].Career
	})
	if len(out) > topCareersLimit {
		out = out[:topCareersLimit]
	}
	return out
}

// ExportCSV renders every answer of every submission as one long-format row.
func (s *StatsService) ExportCSV(actor Actor) ([]byte, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	subs, err := s.store.ListSubmissions()
	if err != nil {
		return nil, err
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].SubmittedAt.Equal(subs[j].SubmittedAt) {
			return subs[i].SubmittedAt.Before(subs[j].SubmittedAt)
		}
		return subs[i].ID < subs[j].ID
	})
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"student_id", "submission_id", "question_id", "dimension", "raw_value", "score_value", "submitted_at"})
	for _, sub := range subs {
		at := sub.SubmittedAt.UTC().Format(time.RFC3339)
		for _, a := range sub.Answers {
			rec := []string{
				sub.StudentID,
				sub.ID,
				a.QuestionID,
				a.Dimension,
				strconv.Itoa(a.RawValue),
				strconv.Itoa(a.ScoreValue),
				at,
			}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
