package services

import (
	"time"

	"github.com/orienta/orienta/internal/models"
)

// User is the stored account, including secrets that never leave the server.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	PassHash  []byte    `json:"pass_hash,omitempty"`
	GoogleSub string    `json:"google_sub,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Public strips the secrets.
func (u *User) Public() models.User {
	return models.User{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, Active: u.Active}
}

// ResetToken is a pending password reset. Only the SHA-256 of the token
// handed to the user is stored.
type ResetToken struct {
	Hash      string    `json:"hash"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AnswerRecord is one scored answer of a submission.
type AnswerRecord struct {
	QuestionID string `json:"question_id"`
	Dimension  string `json:"dimension"`
	RawValue   int    `json:"raw_value"`
	ScoreValue int    `json:"score_value"`
}

// Submission is one completed questionnaire with its derived results.
type Submission struct {
	ID              string                  `json:"id"`
	StudentID       string                  `json:"student_id"`
	Answers         []AnswerRecord          `json:"answers"`
	Aptitudes       []models.Aptitude       `json:"aptitudes"`
	Recommendations []models.Recommendation `json:"recommendations"`
	SubmittedAt     time.Time               `json:"submitted_at"`
}

type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Note   string    `json:"note,omitempty"`
}

// Snapshot is the full data set written to, and restored from, a backup.
type Snapshot struct {
	Version      int                  `json:"version"`
	TakenAt      time.Time            `json:"taken_at"`
	Users        []*User              `json:"users"`
	Questions    []*models.Question   `json:"questions"`
	Careers      []*models.Career     `json:"careers"`
	Universities []*models.University `json:"universities"`
	Submissions  []*Submission        `json:"submissions"`
	BackupConfig *models.BackupConfig `json:"backup_config,omitempty"`
	Audit        []AuditEntry         `json:"audit,omitempty"`
}

// SnapshotVersion is written into every Snapshot.
const SnapshotVersion = 1
