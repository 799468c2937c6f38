package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/orienta/orienta/internal/models"
)

const minPasswordLen = 6

type AuthStore interface {
	FindUserByEmail(email string) (*User, error)
	GetUser(id string) (*User, error)
	FindUserByGoogleSub(sub string) (*User, error)
	AddUser(u *User) error
	UpdateUser(u *User) error
	AddResetToken(t *ResetToken) error
	GetResetToken(hash string) (*ResetToken, error)
	DeleteResetToken(hash string) error
}

type TokenSigner func(uid, email, role string, ttl time.Duration) (string, error)

// GoogleIdentity is what a verified Google ID token asserts.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// GoogleVerifier checks a Google ID token.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

type AuthService struct {
	store     AuthStore
	google    GoogleVerifier
	now       func() time.Time
	idGen     func(prefix string, n int) string
	signToken TokenSigner
	tokenTTL  time.Duration
	resetTTL  time.Duration
	hashCost  int
}

type AuthResult struct {
	Token string
	User  *User
}

func NewAuthService(store AuthStore, signer TokenSigner) *AuthService {
	return &AuthService{
		store:     store,
		now:       func() time.Time { return time.Now().UTC() },
		idGen:     func(prefix string, n int) string { return prefix + shortID(n) },
		signToken: signer,
		tokenTTL:  24 * time.Hour,
		resetTTL:  time.Hour,
		hashCost:  bcrypt.DefaultCost,
	}
}

// WithTokenTTL overrides the session token lifetime.
func (s *AuthService) WithTokenTTL(ttl time.Duration) *AuthService {
	if ttl > 0 {
		s.tokenTTL = ttl
	}
	return s
}

// WithGoogle enables the Google sign-in endpoints.
func (s *AuthService) WithGoogle(v GoogleVerifier) *AuthService {
	s.google = v
	return s
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", NewInvalidError("email required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", NewInvalidError("invalid email")
	}
	return email, nil
}

func checkPassword(password string) error {
	if len(strings.TrimSpace(password)) < minPasswordLen {
		return NewInvalidError("password must have at least 6 characters")
	}
	return nil
}

func selfServiceRole(role string) (string, error) {
	switch role {
	case "", models.RoleStudent:
		return models.RoleStudent, nil
	case models.RoleInstitution:
		return models.RoleInstitution, nil
	default:
		return "", NewForbiddenError("role not allowed")
	}
}

// Signup creates an active account and returns it.
func (s *AuthService) Signup(email, name, password, role string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}
	role, err = selfServiceRole(role)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.FindUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewConflictError("email exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:        s.idGen("u", 9),
		Email:     email,
		Name:      strings.TrimSpace(name),
		Role:      role,
		PassHash:  hash,
		Active:    true,
		CreatedAt: s.now(),
	}
	if err := s.store.AddUser(u); err != nil {
		return nil, err
	}
	return u, nil
}

// Register is Signup followed by a session token.
func (s *AuthService) Register(email, name, password, role string) (*AuthResult, error) {
	u, err := s.Signup(email, name, password, role)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *AuthService) issue(u *User) (*AuthResult, error) {
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken(u.ID, u.Email, u.Role, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: u}, nil
}

func (s *AuthService) Login(email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	u, err := s.store.FindUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if u == nil || len(u.PassHash) == 0 {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(u.PassHash, []byte(password)); err != nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if !u.Active {
		return nil, NewUnauthorizedError("account deactivated")
	}
	return s.issue(u)
}

// LookupByEmail returns the account for email, or nil.
func (s *AuthService) LookupByEmail(email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, NewInvalidError("email required")
	}
	return s.store.FindUserByEmail(email)
}

func (s *AuthService) activeUser(uid string) (*User, error) {
	u, err := s.store.GetUser(uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewNotFoundError("user not found")
	}
	if !u.Active {
		return nil, NewUnauthorizedError("account deactivated")
	}
	return u, nil
}

func (s *AuthService) Me(uid string) (*User, error) {
	return s.activeUser(uid)
}

func (s *AuthService) Deactivate(uid string) error {
	u, err := s.activeUser(uid)
	if err != nil {
		return err
	}
	u.Active = false
	return s.store.UpdateUser(u)
}

func (s *AuthService) verifyGoogle(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	if s.google == nil {
		return nil, NewInvalidError("google sign-in not configured")
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, NewInvalidError("idToken required")
	}
	id, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if id.Subject == "" || !id.EmailVerified {
		return nil, NewUnauthorizedError("google account not verified")
	}
	return id, nil
}

// RegisterGoogle creates an account bound to a Google identity, or links
// the identity to an existing account with the same email.
func (s *AuthService) RegisterGoogle(ctx context.Context, idToken, role string) (*AuthResult, error) {
	id, err := s.verifyGoogle(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if u, err := s.store.FindUserByGoogleSub(id.Subject); err != nil {
		return nil, err
	} else if u != nil {
		return nil, NewConflictError("account already registered")
	}
	role, err = selfServiceRole(role)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(id.Email)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.FindUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.GoogleSub != "" {
			return nil, NewConflictError("email exists")
		}
		existing.GoogleSub = id.Subject
		if err := s.store.UpdateUser(existing); err != nil {
			return nil, err
		}
		return s.issue(existing)
	}
	u := &User{
		ID:        s.idGen("u", 9),
		Email:     email,
		Name:      id.Name,
		Role:      role,
		GoogleSub: id.Subject,
		Active:    true,
		CreatedAt: s.now(),
	}
	if err := s.store.AddUser(u); err != nil {
		return nil, err
	}
	return s.issue(u)
}

// GoogleLogin signs in an account previously registered with Google.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (*AuthResult, error) {
	id, err := s.verifyGoogle(ctx, idToken)
	if err != nil {
		return nil, err
	}
	u, err := s.store.FindUserByGoogleSub(id.Subject)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewNotFoundError("account not registered")
	}
	if !u.Active {
		return nil, NewUnauthorizedError("account deactivated")
	}
	return s.issue(u)
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ForgotPassword creates a reset token for email. Unknown or deactivated
// accounts yield "" and no error so callers cannot enumerate accounts.
func (s *AuthService) ForgotPassword(email string) (string, *User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", nil, NewInvalidError("email required")
	}
	u, err := s.store.FindUserByEmail(email)
	if err != nil {
		return "", nil, err
	}
	if u == nil || !u.Active {
		return "", nil, nil
	}
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	rt := &ResetToken{Hash: hashResetToken(token), UserID: u.ID, ExpiresAt: s.now().Add(s.resetTTL)}
	if err := s.store.AddResetToken(rt); err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *AuthService) lookupReset(token string) (*ResetToken, error) {
	if strings.TrimSpace(token) == "" {
		return nil, NewInvalidError("token required")
	}
	rt, err := s.store.GetResetToken(hashResetToken(token))
	if err != nil {
		return nil, err
	}
	if rt == nil || !s.now().Before(rt.ExpiresAt) {
		return nil, nil
	}
	return rt, nil
}

// ValidateResetToken reports whether token can still reset a password.
func (s *AuthService) ValidateResetToken(token string) (bool, error) {
	rt, err := s.lookupReset(token)
	if err != nil {
		return false, err
	}
	return rt != nil, nil
}

// ResetPassword consumes token and sets a new password.
func (s *AuthService) ResetPassword(token, password string) error {
	rt, err := s.lookupReset(token)
	if err != nil {
		return err
	}
	if rt == nil {
		return NewInvalidError("reset token invalid or expired")
	}
	if err := checkPassword(password); err != nil {
		return err
	}
	u, err := s.activeUser(rt.UserID)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return err
	}
	u.PassHash = hash
	if err := s.store.UpdateUser(u); err != nil {
		return err
	}
	return s.store.DeleteResetToken(rt.Hash)
}

func (s *AuthService) ChangePassword(uid, current, next string) error {
	u, err := s.activeUser(uid)
	if err != nil {
		return err
	}
	if len(u.PassHash) > 0 {
		if err := bcrypt.CompareHashAndPassword(u.PassHash, []byte(current)); err != nil {
			return NewUnauthorizedError("current password is incorrect")
		}
	}
	if err := checkPassword(next); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.hashCost)
	if err != nil {
		return err
	}
	u.PassHash = hash
	return s.store.UpdateUser(u)
}

// EnsureAdmin creates the configured admin account when it is missing.
func (s *AuthService) EnsureAdmin(email, name, password string) (*User, bool, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, false, err
	}
	existing, err := s.store.FindUserByEmail(email)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	if err := checkPassword(password); err != nil {
		return nil, false, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, false, err
	}
	u := &User{ID: s.idGen("u", 9), Email: email, Name: name, Role: models.RoleAdmin, PassHash: hash, Active: true, CreatedAt: s.now()}
	if err := s.store.AddUser(u); err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
