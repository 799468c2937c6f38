package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/orienta/orienta/internal/models"
	"github.com/orienta/orienta/internal/services"
)

type credentials struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type googleBody struct {
	IDToken string `json:"idToken"`
	Role    string `json:"role"`
}

func (rt *Router) registerAuth(r *mux.Router) {
	r.HandleFunc("/login", rt.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/register", rt.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/register/google", rt.handleRegisterGoogle).Methods(http.MethodPost)
	r.HandleFunc("/google", rt.handleGoogle).Methods(http.MethodPost)
	r.HandleFunc("/password/forgot", rt.handleForgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/password/reset", rt.handleResetPassword).Methods(http.MethodPost)
	r.HandleFunc("/password/validate", rt.handleValidateResetToken).Methods(http.MethodGet)

	r.Handle("/me", authed(rt.handleMe)).Methods(http.MethodGet)
	r.Handle("/deactivate", authed(rt.handleDeactivate)).Methods(http.MethodPost)
	r.Handle("/password/change", authed(rt.handleChangePassword)).Methods(http.MethodPost)
}

func authResult(res *services.AuthResult) models.AuthResult {
	return models.AuthResult{Token: res.Token, User: res.User.Public()}
}

func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	res, err := rt.auth.Login(req.Email, req.Password)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResult(res))
}

func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	res, err := rt.auth.Register(req.Email, req.Name, req.Password, req.Role)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.logger.Info("account registered", zap.String("uid", res.User.ID), zap.String("role", res.User.Role))
	writeJSON(w, http.StatusCreated, authResult(res))
}

func (rt *Router) handleRegisterGoogle(w http.ResponseWriter, r *http.Request) {
	var req googleBody
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	res, err := rt.auth.RegisterGoogle(r.Context(), req.IDToken, req.Role)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResult(res))
}

func (rt *Router) handleGoogle(w http.ResponseWriter, r *http.Request) {
	var req googleBody
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	res, err := rt.auth.GoogleLogin(r.Context(), req.IDToken)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResult(res))
}

func (rt *Router) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := rt.auth.Me(actorFrom(r).ID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Public())
}

func (rt *Router) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if err := rt.auth.Deactivate(actor.ID); err != nil {
		rt.writeError(w, r, err)
		return
	}
	if err := rt.store.AddAudit(services.AuditEntry{Time: nowUTC(), Actor: actor.ID, Action: "auth.deactivate", Target: actor.ID}); err != nil {
		rt.logger.Warn("audit entry not saved", zap.String("action", "auth.deactivate"), zap.Error(err))
	}
	rt.writeMessage(w, r, http.StatusOK, "account.deactivated")
}

func (rt *Router) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	token, u, err := rt.auth.ForgotPassword(req.Email)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if token != "" {
		if rt.onResetToken != nil {
			rt.onResetToken(u, token)
		} else {
			rt.logger.Info("password reset requested", zap.String("uid", u.ID), zap.String("reset_token", token))
		}
	}
	rt.writeMessage(w, r, http.StatusAccepted, "password.reset.sent")
}

func (rt *Router) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	if err := rt.auth.ResetPassword(req.Token, req.Password); err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeMessage(w, r, http.StatusOK, "password.reset.done")
}

func (rt *Router) handleValidateResetToken(w http.ResponseWriter, r *http.Request) {
	ok, err := rt.auth.ValidateResetToken(r.URL.Query().Get("token"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": ok})
}

func (rt *Router) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Current string `json:"currentPassword"`
		Next    string `json:"newPassword"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	if err := rt.auth.ChangePassword(actorFrom(r).ID, req.Current, req.Next); err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeMessage(w, r, http.StatusOK, "password.reset.done")
}

// handleLookupUsers serves GET /users?email=, returning zero or one public record.
func (rt *Router) handleLookupUsers(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		rt.writeError(w, r, services.NewInvalidError("email query parameter required"))
		return
	}
	u, err := rt.auth.LookupByEmail(email)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if u == nil {
		writeJSON(w, http.StatusOK, []models.User{})
		return
	}
	writeJSON(w, http.StatusOK, publicUsers([]*services.User{u}))
}

// handleSignup serves POST /users.
func (rt *Router) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	u, err := rt.auth.Signup(req.Email, req.Name, req.Password, req.Role)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u.Public())
}
