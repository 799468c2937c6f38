package api

import (
	"github.com/orienta/orienta/internal/models"
	"github.com/orienta/orienta/internal/services"
)

// Store is the persistence surface behind the router. Lookups return nil
// when nothing matches and the SQL implementation logs their errors. Writes
// return theirs.
type Store interface {
	AddUser(u *services.User) error
	UpdateUser(u *services.User) (bool, error)
	GetUser(id string) *services.User
	FindUserByEmail(email string) *services.User
	FindUserByGoogleSub(sub string) *services.User
	ListUsers() []*services.User

	AddResetToken(t *services.ResetToken) error
	GetResetToken(hash string) *services.ResetToken
	DeleteResetToken(hash string) error

	AddQuestion(q *models.Question) error
	ListQuestions() []*models.Question

	AddCareer(c *models.Career) error
	GetCareer(id string) *models.Career
	ListCareers() []*models.Career
	DeleteCareer(id string) (bool, error)

	AddUniversity(u *models.University) error
	GetUniversity(id string) *models.University
	ListUniversities() []*models.University

	AddSubmission(s *services.Submission) error
	LatestSubmission(studentID string) *services.Submission
	ListSubmissions() []*services.Submission

	GetBackupConfig() *models.BackupConfig
	SaveBackupConfig(cfg *models.BackupConfig) error

	AddAudit(e services.AuditEntry) error
	ListAudit() []services.AuditEntry

	Snapshot() (*services.Snapshot, error)
	Restore(snap *services.Snapshot) error
}

var _ Store = (*memoryStore)(nil)
