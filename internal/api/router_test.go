package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orienta/orienta/internal/api"
	"github.com/orienta/orienta/internal/backup"
	"github.com/orienta/orienta/internal/client"
	"github.com/orienta/orienta/internal/httpclient"
	"github.com/orienta/orienta/internal/middleware"
	"github.com/orienta/orienta/internal/models"
	"github.com/orienta/orienta/internal/query"
	"github.com/orienta/orienta/internal/services"
	"github.com/orienta/orienta/internal/session"
	"github.com/orienta/orienta/internal/validation"
)

type harness struct {
	srv    *httptest.Server
	router *api.Router
	store  api.Store

	mu     sync.Mutex
	resets map[string]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: api.NewMemoryStore(), resets: map[string]string{}}
	_, err := api.Seed(h.store)
	require.NoError(t, err)
	mgr, err := backup.NewManager(t.TempDir(), h.store, nil)
	require.NoError(t, err)
	h.router = api.NewRouter(api.Options{
		Store:   h.store,
		Auth:    middleware.NewAuthenticator("router-test-secret"),
		Backups: mgr,
		Version: api.VersionInfo{Commit: "abc123"},
		OnResetToken: func(u *services.User, token string) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.resets[u.Email] = token
		},
	})
	_, _, err = h.router.AuthService().EnsureAdmin("admin@example.com", "Admin", "admin-pass")
	require.NoError(t, err)
	h.srv = httptest.NewServer(h.router.Handler())
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) resetToken(email string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resets[email]
}

func (h *harness) http(t *testing.T) *httpclient.Client {
	t.Helper()
	hc, err := httpclient.New(h.srv.URL)
	require.NoError(t, err)
	return hc
}

func (h *harness) portal(t *testing.T) *client.Portal {
	t.Helper()
	return client.NewPortal(h.http(t), session.New(&session.MemoryStorage{}, nil), query.New(query.WithRules(query.DefaultRules())))
}

func (h *harness) signedIn(t *testing.T, email, role string) *client.Portal {
	t.Helper()
	p := h.portal(t)
	_, err := p.Register(context.Background(), client.SignupRequest{Email: email, Name: email, Password: "secret1", Role: role})
	require.NoError(t, err)
	return p
}

func (h *harness) admin(t *testing.T) *client.Portal {
	t.Helper()
	p := h.portal(t)
	u, err := p.Login(context.Background(), "admin@example.com", "admin-pass")
	require.NoError(t, err)
	require.NotNil(t, u)
	return p
}

func fullSheet(t *testing.T, p *client.Portal, value int) *client.AnswerSheet {
	t.Helper()
	qs, err := p.Questions(context.Background())
	require.NoError(t, err)
	sheet := client.NewAnswerSheet(qs)
	for _, q := range qs {
		require.NoError(t, sheet.Set(q.ID, value))
	}
	return sheet
}

func TestHealthVersionAndNotFound(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, true, health["ok"])
	assert.Equal(t, "abc123", health["commit"])
	assert.Equal(t, "no-store, no-cache, must-revalidate, max-age=0", resp.Header.Get("Cache-Control"))

	var v api.VersionInfo
	require.NoError(t, h.http(t).Get(context.Background(), "/version", nil, &v))
	assert.Equal(t, "abc123", v.Commit)

	err = h.http(t).Get(context.Background(), "/nowhere", nil, nil)
	assert.Equal(t, http.StatusNotFound, httpclient.StatusOf(err))
}

func TestQuestionnaireAndResults(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.signedIn(t, "ana@example.com", models.RoleStudent)

	_, err := p.LastCareer(ctx)
	assert.Equal(t, http.StatusNotFound, httpclient.StatusOf(err))
	recs, err := p.Recommendations(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)

	res, err := p.SubmitAnswers(ctx, fullSheet(t, p, 5))
	require.NoError(t, err)
	assert.Equal(t, 12, res.Count)
	require.NotEmpty(t, res.Recommendations)

	// The submit mutation invalidated the cached empty list.
	recs, err = p.Recommendations(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(res.Recommendations, recs); diff != "" {
		t.Fatalf("recommendations differ from submit result (-submit +get):\n%s", diff)
	}
	apts, err := p.Aptitudes(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Aptitudes, apts)

	lc, err := p.LastCareer(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Recommendations[0].Career, lc.Career)
	assert.Equal(t, res.Recommendations[0].University, lc.University)
}

func TestSubmitRejectsOutOfRangeAnswers(t *testing.T) {
	h := newHarness(t)
	p := h.signedIn(t, "leo@example.com", models.RoleStudent)
	u := p.Session.User()
	body := models.SubmitAnswersRequest{StudentID: u.ID, Answers: []models.Answer{{QuestionID: "q01", Value: 9}}}
	err := h.http(t).Post(context.Background(), "/answers", body, nil, httpclient.WithBearer(p.Session.Token()))
	assert.Equal(t, http.StatusBadRequest, httpclient.StatusOf(err))

	err = h.http(t).Post(context.Background(), "/answers", body, nil)
	assert.Equal(t, http.StatusUnauthorized, httpclient.StatusOf(err))
}

func TestResultVisibilityByRole(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ana := h.signedIn(t, "ana@example.com", models.RoleStudent)
	_, err := ana.SubmitAnswers(ctx, fullSheet(t, ana, 4))
	require.NoError(t, err)
	anaID := ana.Session.User().ID

	bob := h.signedIn(t, "bob@example.com", models.RoleStudent)
	_, err = bob.Results.Aptitudes(ctx, bob.Session.Token(), anaID)
	assert.Equal(t, http.StatusForbidden, httpclient.StatusOf(err))

	school := h.signedIn(t, "school@example.com", models.RoleInstitution)
	apts, err := school.Results.Aptitudes(ctx, school.Session.Token(), anaID)
	require.NoError(t, err)
	assert.NotEmpty(t, apts)

	_, err = h.portal(t).Register(ctx, client.SignupRequest{Email: "evil@example.com", Password: "secret1", Role: models.RoleAdmin})
	assert.Equal(t, http.StatusForbidden, httpclient.StatusOf(err), "admins cannot self-register")
}

func TestCatalogRoles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	student := h.signedIn(t, "ana@example.com", models.RoleStudent)
	_, err := student.CreateUniversity(ctx, models.University{Name: "Student U"})
	assert.Equal(t, http.StatusForbidden, httpclient.StatusOf(err))

	school := h.signedIn(t, "school@example.com", models.RoleInstitution)
	uni, err := school.CreateUniversity(ctx, models.University{Name: "Coastal University", City: "Piura", Link: "https://coastal.example"})
	require.NoError(t, err)
	career, err := school.CreateCareer(ctx, models.Career{Name: "Marine Biology", Dimension: "Science", UniversityID: uni.ID})
	require.NoError(t, err)

	_, err = school.CreateUniversity(ctx, models.University{Name: "coastal university"})
	assert.Equal(t, http.StatusConflict, httpclient.StatusOf(err))

	assert.Equal(t, http.StatusForbidden, httpclient.StatusOf(school.DeleteCareer(ctx, career.ID)))
	require.NoError(t, h.admin(t).DeleteCareer(ctx, career.ID))

	careers, err := h.portal(t).Careers(ctx)
	require.NoError(t, err)
	for _, c := range careers {
		assert.NotEqual(t, career.ID, c.ID)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.signedIn(t, "ana@example.com", models.RoleStudent)
	require.NoError(t, p.Logout(ctx))

	require.NoError(t, p.Auth.ForgotPassword(ctx, "nobody@example.com"))
	assert.Empty(t, h.resetToken("nobody@example.com"))

	require.NoError(t, p.Auth.ForgotPassword(ctx, "ana@example.com"))
	token := h.resetToken("ana@example.com")
	require.NotEmpty(t, token)

	ok, err := p.Auth.ValidateResetToken(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, p.Auth.ResetPassword(ctx, token, "brand-new"))
	ok, err = p.Auth.ValidateResetToken(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok, "reset tokens are single use")

	u, err := p.Login(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Nil(t, u, "old password no longer works")
	u, err = p.Login(ctx, "ana@example.com", "brand-new")
	require.NoError(t, err)
	require.NotNil(t, u)

	require.NoError(t, p.ChangePassword(ctx, "brand-new", "changed-again"))
	u, err = h.portal(t).Login(ctx, "ana@example.com", "changed-again")
	require.NoError(t, err)
	assert.NotNil(t, u)
}

func TestDeactivatedAccountCannotSignIn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.signedIn(t, "ana@example.com", models.RoleStudent)
	require.NoError(t, p.Deactivate(ctx))
	assert.False(t, p.Session.Authenticated())

	u, err := p.Login(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Nil(t, u)

	audit := h.store.ListAudit()
	require.NotEmpty(t, audit)
	assert.Equal(t, "auth.deactivate", audit[len(audit)-1].Action)
}

func TestBackupAdministration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	student := h.signedIn(t, "ana@example.com", models.RoleStudent)
	_, err := student.BackupConfig(ctx)
	assert.Equal(t, http.StatusForbidden, httpclient.StatusOf(err))

	admin := h.admin(t)
	cfg, err := admin.BackupConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultBackupConfig(), *cfg)

	_, err = admin.UpdateBackupConfig(ctx, models.BackupConfig{Frequency: "Hourly", ExecutionTime: "02:00", RetentionCount: 3})
	var fe validation.FieldErrors
	require.ErrorAs(t, err, &fe, "rejected before any request")
	assert.Contains(t, fe, "frequency")

	bad := models.BackupConfig{Frequency: "Hourly", ExecutionTime: "02:00", RetentionCount: 3}
	err = h.http(t).Post(ctx, "/api/v1/admin/backup", bad, nil, httpclient.WithBearer(admin.Session.Token()))
	assert.Equal(t, http.StatusBadRequest, httpclient.StatusOf(err))
	saved, err := admin.UpdateBackupConfig(ctx, models.BackupConfig{Frequency: models.FrequencyMonthly, ExecutionTime: "4:05", RetentionCount: 3})
	require.NoError(t, err)
	assert.Equal(t, "04:05:00", saved.ExecutionTime)

	f, err := admin.CreateBackup(ctx)
	require.NoError(t, err)
	files, err := admin.BackupFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, f.ID, files[0].ID)

	_, err = admin.CreateCareer(ctx, models.Career{Name: "Astronomy", Dimension: "Science", UniversityID: "un-tec"})
	require.NoError(t, err)
	require.NoError(t, admin.RestoreBackup(ctx, f.ID))
	careers, err := admin.Careers(ctx)
	require.NoError(t, err)
	for _, c := range careers {
		assert.NotEqual(t, "Astronomy", c.Name, "restore brings the catalog back")
	}

	err = admin.RestoreBackup(ctx, "backup-19990101-000000")
	assert.Equal(t, http.StatusNotFound, httpclient.StatusOf(err))

	stats, err := admin.StatsSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Users)
	csv, err := admin.Stats.ExportCSV(ctx, admin.Session.Token())
	require.NoError(t, err)
	assert.Contains(t, string(csv), "student_id,submission_id")
}
