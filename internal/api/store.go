package api

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/orienta/orienta/internal/models"
	"github.com/orienta/orienta/internal/services"
)

type memoryStore struct {
	mu           sync.RWMutex
	users        map[string]*services.User
	resets       map[string]*services.ResetToken
	questions    map[string]*models.Question
	careers      map[string]*models.Career
	universities map[string]*models.University
	submissions  []*services.Submission
	backupCfg    *models.BackupConfig
	audit        []services.AuditEntry
}

// NewMemoryStore returns an empty Store that lives only as long as the process.
func NewMemoryStore() Store {
	return newMemoryStore()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:        map[string]*services.User{},
		resets:       map[string]*services.ResetToken{},
		questions:    map[string]*models.Question{},
		careers:      map[string]*models.Career{},
		universities: map[string]*models.University{},
	}
}

func cloneUser(u *services.User) *services.User {
	if u == nil {
		return nil
	}
	c := *u
	c.PassHash = append([]byte(nil), u.PassHash...)
	return &c
}

func (s *memoryStore) AddUser(u *services.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return services.NewConflictError("already exists")
	}
	for _, other := range s.users {
		if strings.EqualFold(other.Email, u.Email) {
			return services.NewConflictError("already exists")
		}
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *memoryStore) UpdateUser(u *services.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return false, nil
	}
	s.users[u.ID] = cloneUser(u)
	return true, nil
}

func (s *memoryStore) GetUser(id string) *services.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.users[id])
}

func (s *memoryStore) FindUserByEmail(email string) *services.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u)
		}
	}
	return nil
}

func (s *memoryStore) FindUserByGoogleSub(sub string) *services.User {
	if sub == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.GoogleSub == sub {
			return cloneUser(u)
		}
	}
	return nil
}

func (s *memoryStore) ListUsers() []*services.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*services.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *memoryStore) AddResetToken(t *services.ResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *t
	s.resets[t.Hash] = &c
	return nil
}

func (s *memoryStore) GetResetToken(hash string) *services.ResetToken {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.resets[hash]; ok {
		c := *t
		return &c
	}
	return nil
}

func (s *memoryStore) DeleteResetToken(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resets, hash)
	return nil
}

func (s *memoryStore) AddQuestion(q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *q
	s.questions[q.ID] = &c
	return nil
}

func (s *memoryStore) ListQuestions() []*models.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Question, 0, len(s.questions))
	for _, q := range s.questions {
		c := *q
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryStore) AddCareer(c *models.Career) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.careers[c.ID] = &cp
	return nil
}

func (s *memoryStore) GetCareer(id string) *models.Career {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.careers[id]; ok {
		cp := *c
		return &cp
	}
	return nil
}

func (s *memoryStore) ListCareers() []*models.Career {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Career, 0, len(s.careers))
	for _, c := range s.careers {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryStore) DeleteCareer(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.careers[id]; !ok {
		return false, nil
	}
	delete(s.careers, id)
	return true, nil
}

func (s *memoryStore) AddUniversity(u *models.University) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *u
	s.universities[u.ID] = &c
	return nil
}

func (s *memoryStore) GetUniversity(id string) *models.University {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.universities[id]; ok {
		c := *u
		return &c
	}
	return nil
}

func (s *memoryStore) ListUniversities() []*models.University {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.University, 0, len(s.universities))
	for _, u := range s.universities {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryStore) AddSubmission(sub *services.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, sub)
	return nil
}

func (s *memoryStore) LatestSubmission(studentID string) *services.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *services.Submission
	for _, sub := range s.submissions {
		if sub.StudentID == studentID && (latest == nil || !sub.SubmittedAt.Before(latest.SubmittedAt)) {
			latest = sub
		}
	}
	return latest
}

func (s *memoryStore) ListSubmissions() []*services.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*services.Submission(nil), s.submissions...)
}

func (s *memoryStore) GetBackupConfig() *models.BackupConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.backupCfg == nil {
		return nil
	}
	c := *s.backupCfg
	return &c
}

func (s *memoryStore) SaveBackupConfig(cfg *models.BackupConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cfg
	s.backupCfg = &c
	return nil
}

func (s *memoryStore) AddAudit(e services.AuditEntry) error {
	s.mu.Lock()
	s.audit = append(s.audit, e)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) ListAudit() []services.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]services.AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}

// Snapshot copies everything except pending reset tokens.
func (s *memoryStore) Snapshot() (*services.Snapshot, error) {
	snap := &services.Snapshot{
		Version:      services.SnapshotVersion,
		TakenAt:      time.Now().UTC(),
		Users:        s.ListUsers(),
		Questions:    s.ListQuestions(),
		Careers:      s.ListCareers(),
		Universities: s.ListUniversities(),
		Submissions:  s.ListSubmissions(),
		BackupConfig: s.GetBackupConfig(),
		Audit:        s.ListAudit(),
	}
	return snap, nil
}

func (s *memoryStore) Restore(snap *services.Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	if snap.Version != services.SnapshotVersion {
		return errors.New("unsupported snapshot version")
	}
	fresh := newMemoryStore()
	for _, u := range snap.Users {
		fresh.users[u.ID] = cloneUser(u)
	}
	for _, q := range snap.Questions {
		c := *q
		fresh.questions[q.ID] = &c
	}
	for _, c := range snap.Careers {
		cp := *c
		fresh.careers[c.ID] = &cp
	}
	for _, u := range snap.Universities {
		c := *u
		fresh.universities[u.ID] = &c
	}
	fresh.submissions = append(fresh.submissions, snap.Submissions...)
	if snap.BackupConfig != nil {
		c := *snap.BackupConfig
		fresh.backupCfg = &c
	}
	fresh.audit = append(fresh.audit, snap.Audit...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = fresh.users
	s.resets = fresh.resets
	s.questions = fresh.questions
	s.careers = fresh.careers
	s.universities = fresh.universities
	s.submissions = fresh.submissions
	s.backupCfg = fresh.backupCfg
	s.audit = fresh.audit
	return nil
}
