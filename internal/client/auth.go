// Package client wraps the portal REST API in small feature services. Every
// service goes through one shared *httpclient.Client and maps JSON payloads
// to internal/models types. Server error bodies are returned unchanged as
// *httpclient.APIError.
package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/orienta/orienta/internal/httpclient"
	"github.com/orienta/orienta/internal/models"
)

const authPrefix = "/api/v1/auth"

// AuthService covers sign-up, sign-in and account maintenance.
type AuthService struct {
	http *httpclient.Client
}

func NewAuthService(c *httpclient.Client) *AuthService {
	return &AuthService{http: c}
}

type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks the credentials on the server. A wrong pair returns
// (nil, "", nil); only transport and unexpected server failures are errors.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil, "", nil
	}
	var res models.AuthResult
	err := s.http.Post(ctx, authPrefix+"/login", loginRequest{Email: strings.TrimSpace(email), Password: password}, &res)
	if err != nil {
		switch httpclient.StatusOf(err) {
		case http.StatusUnauthorized, http.StatusNotFound:
			return nil, "", nil
		}
		return nil, "", err
	}
	u := res.User
	return &u, res.Token, nil
}

// LookupByEmail returns the public record for email, or nil.
func (s *AuthService) LookupByEmail(ctx context.Context, email string) (*models.User, error) {
	var users []models.User
	if err := s.http.Get(ctx, "/users", url.Values{"email": {email}}, &users); err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			return &users[i], nil
		}
	}
	return nil, nil
}

// Signup creates a user record and returns the created identity.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*models.User, error) {
	var u models.User
	if err := s.http.Post(ctx, "/users", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Register creates an account and opens a session for it.
func (s *AuthService) Register(ctx context.Context, req SignupRequest) (*models.AuthResult, error) {
	var res models.AuthResult
	if err := s.http.Post(ctx, authPrefix+"/register", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

type googleRequest struct {
	IDToken string `json:"idToken"`
	Role    string `json:"role,omitempty"`
}

// RegisterGoogle creates an account from a Google ID token.
func (s *AuthService) RegisterGoogle(ctx context.Context, idToken, role string) (*models.AuthResult, error) {
	var res models.AuthResult
	if err := s.http.Post(ctx, authPrefix+"/register/google", googleRequest{IDToken: idToken, Role: role}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Google signs in an existing account with a Google ID token.
func (s *AuthService) Google(ctx context.Context, idToken string) (*models.AuthResult, error) {
	var res models.AuthResult
	if err := s.http.Post(ctx, authPrefix+"/google", googleRequest{IDToken: idToken}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *AuthService) Me(ctx context.Context, token string) (*models.User, error) {
	var u models.User
	if err := s.http.Get(ctx, authPrefix+"/me", nil, &u, httpclient.WithBearer(token)); err != nil {
		return nil, err
	}
	return &u, nil
}

// Deactivate disables the account behind token.
func (s *AuthService) Deactivate(ctx context.Context, token string) error {
	return s.http.Post(ctx, authPrefix+"/deactivate", nil, nil, httpclient.WithBearer(token))
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	return s.http.Post(ctx, authPrefix+"/password/forgot", map[string]string{"email": email}, nil)
}

func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	return s.http.Post(ctx, authPrefix+"/password/reset", map[string]string{"token": resetToken, "password": newPassword}, nil)
}

func (s *AuthService) ChangePassword(ctx context.Context, token, current, next string) error {
	body := map[string]string{"currentPassword": current, "newPassword": next}
	return s.http.Post(ctx, authPrefix+"/password/change", body, nil, httpclient.WithBearer(token))
}

// ValidateResetToken reports whether a password-reset token is still usable.
func (s *AuthService) ValidateResetToken(ctx context.Context, resetToken string) (bool, error) {
	var res struct {
		Valid bool `json:"valid"`
	}
	if err := s.http.Get(ctx, authPrefix+"/password/validate", url.Values{"token": {resetToken}}, &res); err != nil {
		return false, err
	}
	return res.Valid, nil
}

// ErrNotSignedIn is returned by operations that need a session.
var ErrNotSignedIn = errors.New("not signed in")
