package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/orienta/orienta/internal/api"
	"github.com/orienta/orienta/internal/models"
	"github.com/orienta/orienta/internal/services"
)

// Fixed-width UTC layout so timestamps sort lexically in both databases.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// Supported driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore persists the portal in SQLite or PostgreSQL. Statements use
// $N placeholders, which both drivers accept when numbered in order.
type SQLStore struct {
	db      *sql.DB
	driver  string
	logger  *zap.Logger
	timeout time.Duration
}

var _ api.Store = (*SQLStore)(nil)

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database dsn is required")
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One writer at a time avoids SQLITE_BUSY under concurrent requests.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// EnsureSQLiteDir creates the parent directory of a file-backed SQLite dsn.
func EnsureSQLiteDir(dsn string) error {
	name, _, _ := strings.Cut(dsn, "?")
	name = strings.TrimPrefix(name, "file:")
	if name == "" || strings.HasPrefix(name, ":memory:") {
		return nil
	}
	dir := filepath.Dir(name)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite dir: %w", err)
	}
	return nil
}

func NewSQLStore(db *sql.DB, driver string, logger *zap.Logger) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if driver == DriverSQLite {
		for _, stmt := range []string{
			"PRAGMA foreign_keys = ON",
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		} {
			if _, err := db.Exec(stmt); err != nil {
				return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
			}
		}
	}
	return &SQLStore{db: db, driver: driver, logger: logger.Named("store"), timeout: 5 * time.Second}, nil
}

func (s *SQLStore) logErr(op string, err error) {
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error("sql store", zap.String("op", op), zap.String("driver", s.driver), zap.Error(err))
	}
}

// writeErr logs a failed write and returns it. Unique-key violations
// become conflict errors.
func (s *SQLStore) writeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return services.NewConflictError("already exists")
	}
	s.logErr(op, err)
	return fmt.Errorf("%s: %w", op, err)
}

func (s *SQLStore) affected(op string, res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, s.writeErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, s.writeErr(op, err)
	}
	return n > 0, nil
}

func isUniqueViolation(err error) bool {
	var lite sqlite3.Error
	if errors.As(err, &lite) {
		return lite.ExtendedCode == sqlite3.ErrConstraintUnique || lite.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func (s *SQLStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func formatTime(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- Users ---

const userCols = `id, email, name, role, pass_hash, google_sub, active, created_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanUser(r rowScanner) (*services.User, error) {
	var u services.User
	var hash, created string
	var active int
	if err := r.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &hash, &u.GoogleSub, &active, &created); err != nil {
		return nil, err
	}
	if hash != "" {
		u.PassHash = []byte(hash)
	}
	u.Active = active != 0
	u.CreatedAt = parseTime(created)
	return &u, nil
}

func insertUser(ctx context.Context, q queryer, u *services.User) error {
	_, err := q.ExecContext(ctx, `INSERT INTO users (`+userCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, strings.ToLower(u.Email), u.Name, u.Role, string(u.PassHash), u.GoogleSub, boolToInt(u.Active), formatTime(u.CreatedAt))
	return err
}

func (s *SQLStore) AddUser(u *services.User) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.writeErr("AddUser", insertUser(ctx, s.db, u))
}

func (s *SQLStore) UpdateUser(u *services.User) (bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	res, err := s.db.ExecContext(ctx, `UPDATE users SET email = $1, name = $2, role = $3, pass_hash = $4, google_sub = $5, active = $6 WHERE id = $7`,
		strings.ToLower(u.Email), u.Name, u.Role, string(u.PassHash), u.GoogleSub, boolToInt(u.Active), u.ID)
	return s.affected("UpdateUser", res, err)
}

func (s *SQLStore) getUserWhere(op, where, arg string) *services.User {
	ctx, cancel := s.ctx()
	defer cancel()
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE `+where, arg))
	if err != nil {
		s.logErr(op, err)
		return nil
	}
	return u
}

func (s *SQLStore) GetUser(id string) *services.User {
	return s.getUserWhere("GetUser", "id = $1", id)
}

func (s *SQLStore) FindUserByEmail(email string) *services.User {
	return s.getUserWhere("FindUserByEmail", "email = $1", strings.ToLower(strings.TrimSpace(email)))
}

func (s *SQLStore) FindUserByGoogleSub(sub string) *services.User {
	if sub == "" {
		return nil
	}
	return s.getUserWhere("FindUserByGoogleSub", "google_sub = $1", sub)
}

func listUsers(ctx context.Context, q queryer) ([]*services.User, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+userCols+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*services.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListUsers() []*services.User {
	ctx, cancel := s.ctx()
	defer cancel()
	out, err := listUsers(ctx, s.db)
	s.logErr("ListUsers", err)
	return out
}

// --- Password resets ---

func (s *SQLStore) AddResetToken(t *services.ResetToken) error {
	ctx, cancel := s.ctx()
	defer cancel()
	_, err := s.db.ExecContext(ctx, `INSERT INTO reset_tokens (hash, user_id, expires_at) VALUES ($1, $2, $3)
      ON CONFLICT (hash) DO UPDATE SET user_id = excluded.user_id, expires_at = excluded.expires_at`,
		t.Hash, t.UserID, formatTime(t.ExpiresAt))
	return s.writeErr("AddResetToken", err)
}

func (s *SQLStore) GetResetToken(hash string) *services.ResetToken {
	ctx, cancel := s.ctx()
	defer cancel()
	var t services.ResetToken
	var exp string
	err := s.db.QueryRowContext(ctx, `SELECT hash, user_id, expires_at FROM reset_tokens WHERE hash = $1`, hash).
		Scan(&t.Hash, &t.UserID, &exp)
	if err != nil {
		s.logErr("GetResetToken", err)
		return nil
	}
	t.ExpiresAt = parseTime(exp)
	return &t
}

func (s *SQLStore) DeleteResetToken(hash string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	_, err := s.db.ExecContext(ctx, `DELETE FROM reset_tokens WHERE hash = $1`, hash)
	return s.writeErr("DeleteResetToken", err)
}

// --- Questionnaire ---

func insertQuestion(ctx context.Context, q queryer, qu *models.Question) error {
	_, err := q.ExecContext(ctx, `INSERT INTO questions (id, text, dimension, reverse) VALUES ($1, $2, $3, $4)
      ON CONFLICT (id) DO UPDATE SET text = excluded.text, dimension = excluded.dimension, reverse = excluded.reverse`,
		qu.ID, qu.Text, qu.Dimension, boolToInt(qu.Reverse))
	return err
}

func (s *SQLStore) AddQuestion(q *models.Question) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.writeErr("AddQuestion", insertQuestion(ctx, s.db, q))
}

func listQuestions(ctx context.Context, q queryer) ([]*models.Question, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, text, dimension, reverse FROM questions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*models.Question{}
	for rows.Next() {
		var qu models.Question
		var rev int
		if err := rows.Scan(&qu.ID, &qu.Text, &qu.Dimension, &rev); err != nil {
			return nil, err
		}
		qu.Reverse = rev != 0
		out = append(out, &qu)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListQuestions() []*models.Question {
	ctx, cancel := s.ctx()
	defer cancel()
	out, err := listQuestions(ctx, s.db)
	s.logErr("ListQuestions", err)
	return out
}

// --- Catalog ---

func insertCareer(ctx context.Context, q queryer, c *models.Career) error {
	_, err := q.ExecContext(ctx, `INSERT INTO careers (id, name, dimension, university_id, link) VALUES ($1, $2, $3, $4, $5)
      ON CONFLICT (id) DO UPDATE SET name = excluded.name, dimension = excluded.dimension,
        university_id = excluded.university_id, link = excluded.link`,
		c.ID, c.Name, c.Dimension, c.UniversityID, c.Link)
	return err
}

func (s *SQLStore) AddCareer(c *models.Career) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.writeErr("AddCareer", insertCareer(ctx, s.db, c))
}

const careerCols = `id, name, dimension, university_id, link`

func (s *SQLStore) GetCareer(id string) *models.Career {
	ctx, cancel := s.ctx()
	defer cancel()
	var c models.Career
	err := s.db.QueryRowContext(ctx, `SELECT `+careerCols+` FROM careers WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Dimension, &c.UniversityID, &c.Link)
	if err != nil {
		s.logErr("GetCareer", err)
		return nil
	}
	return &c
}

func listCareers(ctx context.Context, q queryer) ([]*models.Career, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+careerCols+` FROM careers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*models.Career{}
	for rows.Next() {
		var c models.Career
		if err := rows.Scan(&c.ID, &c.Name, &c.Dimension, &c.UniversityID, &c.Link); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListCareers() []*models.Career {
	ctx, cancel := s.ctx()
	defer cancel()
	out, err := listCareers(ctx, s.db)
	s.logErr("ListCareers", err)
	return out
}

func (s *SQLStore) DeleteCareer(id string) (bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	res, err := s.db.ExecContext(ctx, `DELETE FROM careers WHERE id = $1`, id)
	return s.affected("DeleteCareer", res, err)
}

func insertUniversity(ctx context.Context, q queryer, u *models.University) error {
	_, err := q.ExecContext(ctx, `INSERT INTO universities (id, name, city, link) VALUES ($1, $2, $3, $4)
      ON CONFLICT (id) DO UPDATE SET name = excluded.name, city = excluded.city, link = excluded.link`,
		u.ID, u.Name, u.City, u.Link)
	return err
}

func (s *SQLStore) AddUniversity(u *models.University) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.writeErr("AddUniversity", insertUniversity(ctx, s.db, u))
}

func (s *SQLStore) GetUniversity(id string) *models.University {
	ctx, cancel := s.ctx()
	defer cancel()
	var u models.University
	err := s.db.QueryRowContext(ctx, `SELECT id, name, city, link FROM universities WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.City, &u.Link)
	if err != nil {
		s.logErr("GetUniversity", err)
		return nil
	}
	return &u
}

func listUniversities(ctx context.Context, q queryer) ([]*models.University, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, city, link FROM universities ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*models.University{}
	for rows.Next() {
		var u models.University
		if err := rows.Scan(&u.ID, &u.Name, &u.City, &u.Link); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListUniversities() []*models.University {
	ctx, cancel := s.ctx()
	defer cancel()
	out, err := listUniversities(ctx, s.db)
	s.logErr("ListUniversities", err)
	return out
}

// --- Submissions ---

const submissionCols = `id, student_id, submitted_at, answers, aptitudes, recommendations`

func insertSubmission(ctx context.Context, q queryer, sub *services.Submission) error {
	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	apts, err := json.Marshal(sub.Aptitudes)
	if err != nil {
		return fmt.Errorf("encode aptitudes: %w", err)
	}
	recs, err := json.Marshal(sub.Recommendations)
	if err != nil {
		return fmt.Errorf("encode recommendations: %w", err)
	}
	_, err = q.ExecContext(ctx, `INSERT INTO submissions (`+submissionCols+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.ID, sub.StudentID, formatTime(sub.SubmittedAt), string(answers), string(apts), string(recs))
	return err
}

func scanSubmission(r rowScanner) (*services.Submission, error) {
	var sub services.Submission
	var at, answers, apts, recs string
	if err := r.Scan(&sub.ID, &sub.StudentID, &at, &answers, &apts, &recs); err != nil {
		return nil, err
	}
	sub.SubmittedAt = parseTime(at)
	if err := json.Unmarshal([]byte(answers), &sub.Answers); err != nil {
		return nil, fmt.Errorf("decode answers of %s: %w", sub.ID, err)
	}
	if err := json.Unmarshal([]byte(apts), &sub.Aptitudes); err != nil {
		return nil, fmt.Errorf("decode aptitudes of %s: %w", sub.ID, err)
	}
	if err := json.Unmarshal([]byte(recs), &sub.Recommendations); err != nil {
		return nil, fmt.Errorf("decode recommendations of %s: %w", sub.ID, err)
	}
	return &sub, nil
}

func (s *SQLStore) AddSubmission(sub *services.Submission) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.writeErr("AddSubmission", insertSubmission(ctx, s.db, sub))
}

func (s *SQLStore) LatestSubmission(studentID string) *services.Submission {
	ctx, cancel := s.ctx()
	defer cancel()
	sub, err := scanSubmission(s.db.QueryRowContext(ctx,
		`SELECT `+submissionCols+` FROM submissions WHERE student_id = $1 ORDER BY submitted_at DESC, id DESC LIMIT 1`, studentID))
	if err != nil {
		s.logErr("LatestSubmission", err)
		return nil
	}
	return sub
}

func listSubmissions(ctx context.Context, q queryer) ([]*services.Submission, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+submissionCols+` FROM submissions ORDER BY submitted_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*services.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListSubmissions() []*services.Submission {
	ctx, cancel := s.ctx()
	defer cancel()
	out, err := listSubmissions(ctx, s.db)
	s.logErr("ListSubmissions", err)
	return out
}

// --- Backup config and audit ---

func saveBackupConfig(ctx context.Context, q queryer, cfg *models.BackupConfig) error {
	_, err := q.ExecContext(ctx, `INSERT INTO backup_config (id, frequency, execution_time, retention_count) VALUES (1, $1, $2, $3)
      ON CONFLICT (id) DO UPDATE SET frequency = excluded.frequency, execution_time = excluded.execution_time,
        retention_count = excluded.retention_count`,
		string(cfg.Frequency), cfg.ExecutionTime, cfg.RetentionCount)
	return err
}

func getBackupConfig(ctx context.Context, q queryer) (*models.BackupConfig, error) {
	var cfg models.BackupConfig
	var freq string
	err := q.QueryRowContext(ctx, `SELECT frequency, execution_time, retention_count FROM backup_config WHERE id = 1`).
		Scan(&freq, &cfg.ExecutionTime, &cfg.RetentionCount)
	if err != nil {
		return nil, err
	}
	cfg.Frequency = models.BackupFrequency(freq)
	return &cfg, nil
}

func (s *SQLStore) GetBackupConfig() *models.BackupConfig {
	ctx, cancel := s.ctx()
	defer cancel()
	cfg, err := getBackupConfig(ctx, s.db)
	if err != nil {
		s.logErr("GetBackupConfig", err)
		return nil
	}
	return cfg
}

func (s *SQLStore) SaveBackupConfig(cfg *models.BackupConfig) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.writeErr("SaveBackupConfig", saveBackupConfig(ctx, s.db, cfg))
}

func insertAudit(ctx context.Context, q queryer, e services.AuditEntry) error {
	_, err := q.ExecContext(ctx, `INSERT INTO audit_log (id, at, actor, action, target, note) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), formatTime(e.Time), e.Actor, e.Action, e.Target, e.Note)
	return err
}

func (s *SQLStore) AddAudit(e services.AuditEntry) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.writeErr("AddAudit", insertAudit(ctx, s.db, e))
}

func listAudit(ctx context.Context, q queryer) ([]services.AuditEntry, error) {
	rows, err := q.QueryContext(ctx, `SELECT at, actor, action, target, note FROM audit_log ORDER BY at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []services.AuditEntry{}
	for rows.Next() {
		var e services.AuditEntry
		var at string
		if err := rows.Scan(&at, &e.Actor, &e.Action, &e.Target, &e.Note); err != nil {
			return nil, err
		}
		e.Time = parseTime(at)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListAudit() []services.AuditEntry {
	ctx, cancel := s.ctx()
	defer cancel()
	out, err := listAudit(ctx, s.db)
	s.logErr("ListAudit", err)
	return out
}

// --- Snapshots ---

// Snapshot reads every table inside one transaction. Reset tokens are not
// included.
func (s *SQLStore) Snapshot() (*services.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*s.timeout)
	defer cancel()
	snap, err := s.snapshot(ctx)
	if err != nil {
		s.logErr("Snapshot", err)
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return snap, nil
}

func (s *SQLStore) snapshot(ctx context.Context) (_ *services.Snapshot, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) && err == nil {
			err = rerr
		}
	}()
	snap := &services.Snapshot{Version: services.SnapshotVersion}
	if snap.Users, err = listUsers(ctx, tx); err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	if snap.Questions, err = listQuestions(ctx, tx); err != nil {
		return nil, fmt.Errorf("questions: %w", err)
	}
	if snap.Careers, err = listCareers(ctx, tx); err != nil {
		return nil, fmt.Errorf("careers: %w", err)
	}
	if snap.Universities, err = listUniversities(ctx, tx); err != nil {
		return nil, fmt.Errorf("universities: %w", err)
	}
	if snap.Submissions, err = listSubmissions(ctx, tx); err != nil {
		return nil, fmt.Errorf("submissions: %w", err)
	}
	cfg, err := getBackupConfig(ctx, tx)
	switch {
	case err == nil:
		snap.BackupConfig = cfg
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("backup config: %w", err)
	}
	if snap.Audit, err = listAudit(ctx, tx); err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	return snap, nil
}

// Restore replaces every table with the snapshot contents in a single
// transaction; on error nothing changes. Pending reset tokens are dropped.
func (s *SQLStore) Restore(snap *services.Snapshot) (err error) {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	if snap.Version != services.SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 4*s.timeout)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin restore: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, table := range []string{"reset_tokens", "users", "questions", "careers", "universities", "submissions", "backup_config", "audit_log"} {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for _, u := range snap.Users {
		if err = insertUser(ctx, tx, u); err != nil {
			return fmt.Errorf("restore user %s: %w", u.ID, err)
		}
	}
	for _, q := range snap.Questions {
		if err = insertQuestion(ctx, tx, q); err != nil {
			return fmt.Errorf("restore question %s: %w", q.ID, err)
		}
	}
	for _, u := range snap.Universities {
		if err = insertUniversity(ctx, tx, u); err != nil {
			return fmt.Errorf("restore university %s: %w", u.ID, err)
		}
	}
	for _, c := range snap.Careers {
		if err = insertCareer(ctx, tx, c); err != nil {
			return fmt.Errorf("restore career %s: %w", c.ID, err)
		}
	}
	for _, sub := range snap.Submissions {
		if err = insertSubmission(ctx, tx, sub); err != nil {
			return fmt.Errorf("restore submission %s: %w", sub.ID, err)
		}
	}
	if snap.BackupConfig != nil {
		if err = saveBackupConfig(ctx, tx, snap.BackupConfig); err != nil {
			return fmt.Errorf("restore backup config: %w", err)
		}
	}
	for _, e := range snap.Audit {
		if err = insertAudit(ctx, tx, e); err != nil {
			return fmt.Errorf("restore audit: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit restore: %w", err)
	}
	return nil
}
