package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/orienta/orienta/internal/middleware"
	"github.com/orienta/orienta/internal/models"
	"github.com/orienta/orienta/internal/services"
	"github.com/orienta/orienta/internal/utils"
)

const maxBodyBytes = 1 << 20

// VersionInfo is reported by /health and /version.
type VersionInfo struct {
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type Options struct {
	Store   Store
	Auth    *middleware.Authenticator
	Backups services.BackupRunner
	Google  services.GoogleVerifier
	Logger  *zap.Logger
	Version VersionInfo

	TokenTTL    time.Duration
	CORSOrigins []string
	// OnResetToken receives every issued password-reset token. Without it
	// tokens are only logged.
	OnResetToken func(u *services.User, token string)
}

type Router struct {
	store         Store
	authn         *middleware.Authenticator
	auth          *services.AuthService
	questionnaire *services.QuestionnaireService
	catalog       *services.CatalogService
	backup        *services.BackupService
	stats         *services.StatsService
	logger        *zap.Logger
	version       VersionInfo
	corsOrigins   []string
	onResetToken  func(u *services.User, token string)
}

func NewRouter(opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}
	rt := &Router{
		store:         store,
		authn:         opts.Auth,
		auth:          services.NewAuthService(newAuthStoreAdapter(store), opts.Auth.SignToken).WithTokenTTL(opts.TokenTTL),
		questionnaire: services.NewQuestionnaireService(newQuestionnaireStoreAdapter(store)),
		catalog:       services.NewCatalogService(newCatalogStoreAdapter(store)),
		backup:        services.NewBackupService(newBackupStoreAdapter(store), opts.Backups),
		stats:         services.NewStatsService(newStatsStoreAdapter(store)),
		logger:        logger,
		version:       opts.Version,
		corsOrigins:   opts.CORSOrigins,
		onResetToken:  opts.OnResetToken,
	}
	if opts.Google != nil {
		rt.auth.WithGoogle(opts.Google)
	}
	return rt
}

// AuthService exposes the account workflows to main for admin seeding.
func (rt *Router) AuthService() *services.AuthService { return rt.auth }

// BackupService exposes the backup workflows to the scheduler.
func (rt *Router) BackupService() *services.BackupService { return rt.backup }

// Handler builds the full middleware chain around the routes.
func (rt *Router) Handler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt.writeError(w, r, services.NewNotFoundError(utils.T(middleware.LocaleFromContext(r.Context()), "error.not_found")))
	})
	r.HandleFunc("/health", rt.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/version", rt.handleVersion).Methods(http.MethodGet)
	rt.registerPortal(r)
	rt.registerAuth(r.PathPrefix("/api/v1/auth").Subrouter())
	rt.registerCatalog(r.PathPrefix("/api/v1/catalog").Subrouter())
	rt.registerAdmin(r.PathPrefix("/api/v1/admin").Subrouter())

	var h http.Handler = r
	h = rt.authn.WithAuth(h)
	h = middleware.LocaleMiddleware(h)
	h = middleware.NoStore(h)
	h = middleware.SecureHeaders(h)
	h = middleware.CORS(rt.corsOrigins)(h)
	h = middleware.RequestLogger(rt.logger)(h)
	return h
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"name":       "Orienta API",
		"locale":     locale,
		"msg":        utils.T(locale, "health.ok"),
		"commit":     rt.version.Commit,
		"build_time": rt.version.BuildTime,
	})
}

func (rt *Router) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.version)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func (rt *Router) writeMessage(w http.ResponseWriter, r *http.Request, status int, key string) {
	writeJSON(w, status, map[string]any{"ok": true, "message": utils.T(middleware.LocaleFromContext(r.Context()), key)})
}

var statusByCode = map[services.ErrorCode]int{
	services.ErrorInvalid:         http.StatusBadRequest,
	services.ErrorUnauthorized:    http.StatusUnauthorized,
	services.ErrorForbidden:       http.StatusForbidden,
	services.ErrorNotFound:        http.StatusNotFound,
	services.ErrorConflict:        http.StatusConflict,
	services.ErrorTooManyRequests: http.StatusTooManyRequests,
	services.ErrorBadGateway:      http.StatusBadGateway,
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if se, ok := services.AsServiceError(err); ok {
		status, known := statusByCode[se.Code]
		if !known {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": se.Message, "code": string(se.Code)})
		return
	}
	rt.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	msg := utils.T(middleware.LocaleFromContext(r.Context()), "error.internal")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg, "code": "internal"})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return services.NewInvalidError("invalid JSON body")
	}
	return nil
}

func actorFrom(r *http.Request) services.Actor {
	c, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return services.Actor{}
	}
	return services.Actor{ID: c.UID, Role: c.Role}
}

func publicUsers(us []*services.User) []models.User {
	out := make([]models.User, 0, len(us))
	for _, u := range us {
		out = append(out, u.Public())
	}
	return out
}
