package client

import (
	"context"

	"github.com/orienta/orienta/internal/httpclient"
	"github.com/orienta/orienta/internal/models"
	"github.com/orienta/orienta/internal/query"
	"github.com/orienta/orienta/internal/session"
)

// Portal is what the front end talks to: feature services behind the query
// cache, with the bearer token taken from the session holder.
type Portal struct {
	Auth          *AuthService
	Questionnaire *QuestionnaireService
	Results       *ResultsService
	Backup        *BackupService
	Catalog       *CatalogService
	Stats         *StatsService

	Session *session.Holder
	Cache   *query.Cache
}

func NewPortal(c *httpclient.Client, holder *session.Holder, cache *query.Cache) *Portal {
	if cache == nil {
		cache = query.New()
	}
	return &Portal{
		Auth:          NewAuthService(c),
		Questionnaire: NewQuestionnaireService(c),
		Results:       NewResultsService(c),
		Backup:        NewBackupService(c),
		Catalog:       NewCatalogService(c),
		Stats:         NewStatsService(c),
		Session:       holder,
		Cache:         cache,
	}
}

func (p *Portal) token() string { return p.Session.Token() }

func (p *Portal) currentUser() (*models.User, error) {
	u := p.Session.User()
	if u == nil {
		return nil, ErrNotSignedIn
	}
	return u, nil
}

// Login verifies the credentials and stores the session. It returns nil
// without error for a wrong email/password pair.
func (p *Portal) Login(ctx context.Context, email, password string) (*models.User, error) {
	u, token, err := p.Auth.Login(ctx, email, password)
	if err != nil || u == nil {
		return nil, err
	}
	if err := p.Session.Login(*u, token); err != nil {
		return nil, err
	}
	p.Cache.Invalidate("*")
	return u, nil
}

// Register creates an account and signs it in.
func (p *Portal) Register(ctx context.Context, req SignupRequest) (*models.User, error) {
	res, err := p.Auth.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := p.Session.Login(res.User, res.Token); err != nil {
		return nil, err
	}
	p.Cache.Invalidate("*")
	return &res.User, nil
}

// GoogleLogin signs in with a Google ID token, registering on first use
// when register is set.
func (p *Portal) GoogleLogin(ctx context.Context, idToken string, register bool) (*models.User, error) {
	var (
		res *models.AuthResult
		err error
	)
	if register {
		res, err = p.Auth.RegisterGoogle(ctx, idToken, models.RoleStudent)
	} else {
		res, err = p.Auth.Google(ctx, idToken)
	}
	if err != nil {
		return nil, err
	}
	if err := p.Session.Login(res.User, res.Token); err != nil {
		return nil, err
	}
	p.Cache.Invalidate("*")
	return &res.User, nil
}

// Logout forgets the session and every cached read.
func (p *Portal) Logout(ctx context.Context) error {
	_, err := query.Mutate(ctx, p.Cache, query.MutationLogout, func(context.Context) (struct{}, error) {
		return struct{}{}, p.Session.Logout()
	})
	return err
}

// Me refreshes the signed-in user from the server.
func (p *Portal) Me(ctx context.Context) (*models.User, error) {
	if _, err := p.currentUser(); err != nil {
		return nil, err
	}
	return query.Get(ctx, p.Cache, query.KeyMe, func(ctx context.Context) (*models.User, error) {
		return p.Auth.Me(ctx, p.token())
	})
}

// Deactivate disables the account and ends the session.
func (p *Portal) Deactivate(ctx context.Context) error {
	if _, err := p.currentUser(); err != nil {
		return err
	}
	_, err := query.Mutate(ctx, p.Cache, query.MutationDeactivate, func(ctx context.Context) (struct{}, error) {
		if err := p.Auth.Deactivate(ctx, p.token()); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, p.Session.Logout()
	})
	return err
}

func (p *Portal) ChangePassword(ctx context.Context, current, next string) error {
	_, err := query.Mutate(ctx, p.Cache, query.MutationPasswordChange, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.Auth.ChangePassword(ctx, p.token(), current, next)
	})
	return err
}

func (p *Portal) Questions(ctx context.Context) ([]models.Question, error) {
	return query.Get(ctx, p.Cache, query.KeyQuestions, p.Questionnaire.Questions)
}

// SubmitAnswers posts the sheet for the signed-in student.
func (p *Portal) SubmitAnswers(ctx context.Context, sheet *AnswerSheet) (*models.SubmitAnswersResult, error) {
	u, err := p.currentUser()
	if err != nil {
		return nil, err
	}
	return query.Mutate(ctx, p.Cache, query.MutationAnswersSubmit, func(ctx context.Context) (*models.SubmitAnswersResult, error) {
		return p.Questionnaire.Submit(ctx, p.token(), u.ID, sheet.Payload())
	})
}

func (p *Portal) Recommendations(ctx context.Context) ([]models.Recommendation, error) {
	u, err := p.currentUser()
	if err != nil {
		return nil, err
	}
	return query.Get(ctx, p.Cache, query.KeyRecommendations(u.ID), func(ctx context.Context) ([]models.Recommendation, error) {
		return p.Results.Recommendations(ctx, p.token(), u.ID)
	})
}

func (p *Portal) Aptitudes(ctx context.Context) ([]models.Aptitude, error) {
	u, err := p.currentUser()
	if err != nil {
		return nil, err
	}
	return query.Get(ctx, p.Cache, query.KeyAptitudes(u.ID), func(ctx context.Context) ([]models.Aptitude, error) {
		return p.Results.Aptitudes(ctx, p.token(), u.ID)
	})
}

func (p *Portal) LastCareer(ctx context.Context) (*models.LastCareer, error) {
	u, err := p.currentUser()
	if err != nil {
		return nil, err
	}
	return query.Get(ctx, p.Cache, query.KeyLastCareer(u.ID), func(ctx context.Context) (*models.LastCareer, error) {
		return p.Results.LastCareer(ctx, p.token(), u.ID)
	})
}

func (p *Portal) BackupConfig(ctx context.Context) (*models.BackupConfig, error) {
	return query.Get(ctx, p.Cache, query.KeyBackupConfig, func(ctx context.Context) (*models.BackupConfig, error) {
		return p.Backup.Config(ctx, p.token())
	})
}

func (p *Portal) UpdateBackupConfig(ctx context.Context, cfg models.BackupConfig) (*models.BackupConfig, error) {
	return query.Mutate(ctx, p.Cache, query.MutationBackupConfigUpdate, func(ctx context.Context) (*models.BackupConfig, error) {
		return p.Backup.UpdateConfig(ctx, p.token(), cfg)
	})
}

func (p *Portal) BackupFiles(ctx context.Context) ([]models.BackupFile, error) {
	return query.Get(ctx, p.Cache, query.KeyBackupFiles, func(ctx context.Context) ([]models.BackupFile, error) {
		return p.Backup.Files(ctx, p.token())
	})
}

func (p *Portal) CreateBackup(ctx context.Context) (*models.BackupFile, error) {
	return query.Mutate(ctx, p.Cache, query.MutationBackupManual, func(ctx context.Context) (*models.BackupFile, error) {
		return p.Backup.CreateManual(ctx, p.token())
	})
}

func (p *Portal) RestoreBackup(ctx context.Context, id string) error {
	_, err := query.Mutate(ctx, p.Cache, query.MutationBackupRestore, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.Backup.Restore(ctx, p.token(), id)
	})
	return err
}

func (p *Portal) Careers(ctx context.Context) ([]models.Career, error) {
	return query.Get(ctx, p.Cache, query.KeyCareers, p.Catalog.Careers)
}

func (p *Portal) Universities(ctx context.Context) ([]models.University, error) {
	return query.Get(ctx, p.Cache, query.KeyUniversities, p.Catalog.Universities)
}

func (p *Portal) CreateCareer(ctx context.Context, c models.Career) (*models.Career, error) {
	return query.Mutate(ctx, p.Cache, query.MutationCatalogWrite, func(ctx context.Context) (*models.Career, error) {
		return p.Catalog.CreateCareer(ctx, p.token(), c)
	})
}

func (p *Portal) DeleteCareer(ctx context.Context, id string) error {
	_, err := query.Mutate(ctx, p.Cache, query.MutationCatalogWrite, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.Catalog.DeleteCareer(ctx, p.token(), id)
	})
	return err
}

func (p *Portal) CreateUniversity(ctx context.Context, u models.University) (*models.University, error) {
	return query.Mutate(ctx, p.Cache, query.MutationCatalogWrite, func(ctx context.Context) (*models.University, error) {
		return p.Catalog.CreateUniversity(ctx, p.token(), u)
	})
}

func (p *Portal) StatsSummary(ctx context.Context) (*models.Stats, error) {
	return query.Get(ctx, p.Cache, query.KeyStats, func(ctx context.Context) (*models.Stats, error) {
		return p.Stats.Summary(ctx, p.token())
	})
}
