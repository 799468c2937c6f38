package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orienta/orienta/internal/models"
	"github.com/orienta/orienta/internal/services"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()
	conn, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "orienta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, RunMigrations(ctx, conn, "", nil))
	// Migrations are re-run on every start.
	require.NoError(t, RunMigrations(ctx, conn, "", nil))
	st, err := NewSQLStore(conn, DriverSQLite, nil)
	require.NoError(t, err)
	return st
}

var t0 = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x")
	assert.Error(t, err)
	_, err = Open(context.Background(), DriverSQLite, " ")
	assert.Error(t, err)
}

func TestSQLStoreUsers(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.AddUser(&services.User{ID: "u2", Email: "Bea@Example.com", Name: "Bea", Role: models.RoleStudent, PassHash: []byte("$2a$hash"), Active: true, CreatedAt: t0.Add(time.Minute)}))
	require.NoError(t, st.AddUser(&services.User{ID: "u1", Email: "al@example.com", Name: "Al", Role: models.RoleAdmin, GoogleSub: "g-1", Active: true, CreatedAt: t0}))

	got := st.FindUserByEmail(" bea@example.COM ")
	require.NotNil(t, got)
	assert.Equal(t, "u2", got.ID)
	assert.Equal(t, []byte("$2a$hash"), got.PassHash)
	assert.True(t, got.Active)
	assert.True(t, got.CreatedAt.Equal(t0.Add(time.Minute)))

	assert.Equal(t, "u1", st.FindUserByGoogleSub("g-1").ID)
	assert.Nil(t, st.FindUserByGoogleSub(""))
	assert.Nil(t, st.GetUser("missing"))

	got.Active = false
	got.Name = "Beatriz"
	ok, err := st.UpdateUser(got)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.UpdateUser(&services.User{ID: "nobody", Email: "x@y.z"})
	require.NoError(t, err)
	assert.False(t, ok)
	again := st.GetUser("u2")
	assert.False(t, again.Active)
	assert.Equal(t, "Beatriz", again.Name)

	users := st.ListUsers()
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].ID, "ordered by creation time")
	assert.Nil(t, users[0].PassHash)
}

func TestSQLStoreResetTokens(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.AddResetToken(&services.ResetToken{Hash: "h1", UserID: "u1", ExpiresAt: t0}))
	tok := st.GetResetToken("h1")
	require.NotNil(t, tok)
	assert.Equal(t, "u1", tok.UserID)
	assert.True(t, tok.ExpiresAt.Equal(t0))

	require.NoError(t, st.DeleteResetToken("h1"))
	assert.Nil(t, st.GetResetToken("h1"))
}

func TestSQLStoreCatalogAndQuestions(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.AddQuestion(&models.Question{ID: "q2", Text: "B", Dimension: "Arts", Reverse: true}))
	require.NoError(t, st.AddQuestion(&models.Question{ID: "q1", Text: "A", Dimension: "Health"}))
	qs := st.ListQuestions()
	require.Len(t, qs, 2)
	assert.Equal(t, "q1", qs[0].ID)
	assert.True(t, qs[1].Reverse)

	require.NoError(t, st.AddUniversity(&models.University{ID: "un1", Name: "North", City: "Lima", Link: "https://north.example"}))
	require.NoError(t, st.AddCareer(&models.Career{ID: "c1", Name: "Medicine", Dimension: "Health", UniversityID: "un1"}))
	assert.Equal(t, "North", st.GetUniversity("un1").Name)
	assert.Equal(t, "Medicine", st.GetCareer("c1").Name)
	assert.Len(t, st.ListUniversities(), 1)
	assert.Len(t, st.ListCareers(), 1)

	ok, err := st.DeleteCareer("c1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.DeleteCareer("c1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, st.GetCareer("c1"))
	assert.Empty(t, st.ListCareers())
}

func TestSQLStoreSubmissions(t *testing.T) {
	st := newTestStore(t)
	older := &services.Submission{
		ID: "s1", StudentID: "u1", SubmittedAt: t0,
		Answers:   []services.AnswerRecord{{QuestionID: "q1", Dimension: "Health", RawValue: 2, ScoreValue: 2}},
		Aptitudes: []models.Aptitude{{Dimension: "Health", Score: 25}},
	}
	newer := &services.Submission{
		ID: "s2", StudentID: "u1", SubmittedAt: t0.Add(time.Hour),
		Answers:         []services.AnswerRecord{{QuestionID: "q1", Dimension: "Health", RawValue: 5, ScoreValue: 5}},
		Aptitudes:       []models.Aptitude{{Dimension: "Health", Score: 100}},
		Recommendations: []models.Recommendation{{ID: "c1", Career: "Medicine", University: "North"}},
	}
	require.NoError(t, st.AddSubmission(newer))
	require.NoError(t, st.AddSubmission(older))

	latest := st.LatestSubmission("u1")
	require.NotNil(t, latest)
	assert.Equal(t, "s2", latest.ID)
	assert.Equal(t, "Medicine", latest.Recommendations[0].Career)
	assert.Nil(t, st.LatestSubmission("u9"))

	all := st.ListSubmissions()
	require.Len(t, all, 2)
	assert.Equal(t, "s1", all[0].ID)
}

func TestSQLStoreBackupConfigAndAudit(t *testing.T) {
	st := newTestStore(t)
	assert.Nil(t, st.GetBackupConfig())
	require.NoError(t, st.SaveBackupConfig(&models.BackupConfig{Frequency: models.FrequencyDaily, ExecutionTime: "02:00:00", RetentionCount: 7}))
	require.NoError(t, st.SaveBackupConfig(&models.BackupConfig{Frequency: models.FrequencyWeekly, ExecutionTime: "03:30:00", RetentionCount: 2}))
	cfg := st.GetBackupConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, models.FrequencyWeekly, cfg.Frequency)
	assert.Equal(t, 2, cfg.RetentionCount)

	require.NoError(t, st.AddAudit(services.AuditEntry{Time: t0.Add(time.Second), Actor: "a", Action: "backup.restore", Target: "b1"}))
	require.NoError(t, st.AddAudit(services.AuditEntry{Time: t0, Actor: "a", Action: "backup.config"}))
	audit := st.ListAudit()
	require.Len(t, audit, 2)
	assert.Equal(t, "backup.config", audit[0].Action)
}

func TestSQLStoreSnapshotRestore(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.AddUser(&services.User{ID: "u1", Email: "al@example.com", Role: models.RoleStudent, PassHash: []byte("h"), Active: true, CreatedAt: t0}))
	require.NoError(t, st.AddQuestion(&models.Question{ID: "q1", Text: "A", Dimension: "Health"}))
	require.NoError(t, st.AddUniversity(&models.University{ID: "un1", Name: "North"}))
	require.NoError(t, st.AddCareer(&models.Career{ID: "c1", Name: "Medicine", Dimension: "Health", UniversityID: "un1"}))
	require.NoError(t, st.AddSubmission(&services.Submission{ID: "s1", StudentID: "u1", SubmittedAt: t0,
		Answers: []services.AnswerRecord{}, Aptitudes: []models.Aptitude{}, Recommendations: []models.Recommendation{}}))
	require.NoError(t, st.SaveBackupConfig(&models.BackupConfig{Frequency: models.FrequencyMonthly, ExecutionTime: "01:00:00", RetentionCount: 3}))
	require.NoError(t, st.AddAudit(services.AuditEntry{Time: t0, Actor: "u1", Action: "x"}))
	require.NoError(t, st.AddResetToken(&services.ResetToken{Hash: "h", UserID: "u1", ExpiresAt: t0}))

	before, err := st.Snapshot()
	require.NoError(t, err)
	require.Len(t, before.Users, 1)
	require.NotNil(t, before.BackupConfig)

	require.NoError(t, st.AddCareer(&models.Career{ID: "c2", Name: "Law", Dimension: "Social"}))
	require.NoError(t, st.AddUser(&services.User{ID: "u2", Email: "new@example.com", Role: models.RoleStudent, CreatedAt: t0}))
	require.NoError(t, st.Restore(before))

	after, err := st.Snapshot()
	require.NoError(t, err)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("snapshot changed across restore (-before +after):\n%s", diff)
	}
	assert.Nil(t, st.GetResetToken("h"), "pending resets are dropped")
}

func TestSQLStoreRestoreRejectsBadSnapshots(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.AddCareer(&models.Career{ID: "c1", Name: "Medicine", Dimension: "Health"}))

	assert.Error(t, st.Restore(nil))
	assert.Error(t, st.Restore(&services.Snapshot{Version: 99}))
	// Duplicate ids fail mid-restore and roll back.
	dup := &services.Snapshot{Version: services.SnapshotVersion, Users: []*services.User{
		{ID: "u1", Email: "a@example.com", Role: models.RoleStudent, CreatedAt: t0},
		{ID: "u1", Email: "b@example.com", Role: models.RoleStudent, CreatedAt: t0},
	}}
	assert.Error(t, st.Restore(dup))
	assert.NotNil(t, st.GetCareer("c1"))
}

func TestEnsureSQLiteDir(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, EnsureSQLiteDir("file:"+filepath.Join(base, "a", "b.db")+"?_busy_timeout=5000"))
	assert.DirExists(t, filepath.Join(base, "a"))
	require.NoError(t, EnsureSQLiteDir(":memory:"))
}
