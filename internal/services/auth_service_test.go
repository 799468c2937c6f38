package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/orienta/orienta/internal/models"
)

type authStubStore struct {
	users  map[string]*User
	resets map[string]*ResetToken
}

func newAuthStubStore() *authStubStore {
	return &authStubStore{users: map[string]*User{}, resets: map[string]*ResetToken{}}
}

func (s *authStubStore) FindUserByEmail(email string) (*User, error) {
	for _, u := range s.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, nil
}

func (s *authStubStore) GetUser(id string) (*User, error) {
	if u, ok := s.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, nil
}

func (s *authStubStore) FindUserByGoogleSub(sub string) (*User, error) {
	for _, u := range s.users {
		if u.GoogleSub == sub {
			copy := *u
			return &copy, nil
		}
	}
	return nil, nil
}

func (s *authStubStore) AddUser(u *User) error {
	if _, ok := s.users[u.ID]; ok {
		return errors.New("duplicate user")
	}
	copy := *u
	s.users[u.ID] = &copy
	return nil
}

func (s *authStubStore) UpdateUser(u *User) error {
	if _, ok := s.users[u.ID]; !ok {
		return errors.New("missing user")
	}
	copy := *u
	s.users[u.ID] = &copy
	return nil
}

func (s *authStubStore) AddResetToken(t *ResetToken) error {
	copy := *t
	s.resets[t.Hash] = &copy
	return nil
}

func (s *authStubStore) GetResetToken(hash string) (*ResetToken, error) {
	if t, ok := s.resets[hash]; ok {
		copy := *t
		return &copy, nil
	}
	return nil, nil
}

func (s *authStubStore) DeleteResetToken(hash string) error {
	delete(s.resets, hash)
	return nil
}

type stubGoogle struct {
	ids map[string]*GoogleIdentity
}

func (g stubGoogle) Verify(_ context.Context, idToken string) (*GoogleIdentity, error) {
	if id, ok := g.ids[idToken]; ok {
		return id, nil
	}
	return nil, NewUnauthorizedError("invalid google token")
}

func newTestAuth(store *authStubStore) *AuthService {
	svc := NewAuthService(store, func(uid, email, role string, ttl time.Duration) (string, error) {
		return "token:" + uid + ":" + role, nil
	})
	svc.now = func() time.Time { return time.Unix(1000, 0).UTC() }
	n := 0
	svc.idGen = func(prefix string, _ int) string {
		n++
		return prefix + string(rune('0'+n))
	}
	svc.hashCost = 4
	return svc
}

func codeOf(err error) ErrorCode {
	if se, ok := AsServiceError(err); ok {
		return se.Code
	}
	return ""
}

func TestAuthRegisterAndLogin(t *testing.T) {
	store := newAuthStubStore()
	svc := newTestAuth(store)

	res, err := svc.Register("User@Example.com", "Ana", "Secret123", "")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.User.Email != "user@example.com" || res.User.Role != models.RoleStudent {
		t.Fatalf("unexpected user %+v", res.User)
	}
	if res.Token != "token:"+res.User.ID+":student" {
		t.Fatalf("unexpected token %q", res.Token)
	}

	if _, err = svc.Register("user@example.com", "Ana", "Secret123", ""); codeOf(err) != ErrorConflict {
		t.Fatalf("expected conflict on duplicate registration, got %v", err)
	}

	loginRes, err := svc.Login("user@example.com", "Secret123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if loginRes.User.ID != res.User.ID || loginRes.User.Email != res.User.Email {
		t.Fatalf("login returned a different user: %+v", loginRes.User)
	}

	if _, err := svc.Login("user@example.com", "wrong"); codeOf(err) != ErrorUnauthorized {
		t.Fatalf("expected unauthorized for wrong password, got %v", err)
	}
	if _, err := svc.Login("missing@example.com", "Secret123"); codeOf(err) != ErrorUnauthorized {
		t.Fatalf("expected unauthorized for missing user, got %v", err)
	}
}

func TestAuthValidation(t *testing.T) {
	svc := newTestAuth(newAuthStubStore())

	if _, err := svc.Register("", "", "", ""); codeOf(err) != ErrorInvalid {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Register("not-an-email", "", "Secret123", ""); codeOf(err) != ErrorInvalid {
		t.Fatalf("expected invalid email, got %v", err)
	}
	if _, err := svc.Register("a@b.co", "", "123", ""); codeOf(err) != ErrorInvalid {
		t.Fatalf("expected short password rejection, got %v", err)
	}
	if _, err := svc.Register("a@b.co", "", "Secret123", models.RoleAdmin); codeOf(err) != ErrorForbidden {
		t.Fatalf("expected admin self-signup to be forbidden, got %v", err)
	}
	for _, pw := range []string{"", "   ", "\t"} {
		if _, err := svc.Login("user@example.com", pw); codeOf(err) != ErrorUnauthorized {
			t.Fatalf("password %q: expected invalid credentials, got %v", pw, err)
		}
	}
	if _, err := svc.Login("", "Secret123"); codeOf(err) != ErrorUnauthorized {
		t.Fatalf("expected invalid credentials for blank email, got %v", err)
	}
}

func TestAuthDeactivateBlocksLogin(t *testing.T) {
	store := newAuthStubStore()
	svc := newTestAuth(store)
	u, err := svc.Signup("b@example.com", "Bo", "Secret123", models.RoleInstitution)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if err := svc.Deactivate(u.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, err := svc.Login("b@example.com", "Secret123"); codeOf(err) != ErrorUnauthorized {
		t.Fatalf("expected deactivated login to fail, got %v", err)
	}
	if _, err := svc.Me(u.ID); codeOf(err) != ErrorUnauthorized {
		t.Fatalf("expected Me to fail for deactivated user, got %v", err)
	}
	if _, err := svc.Me("nobody"); codeOf(err) != ErrorNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAuthPasswordReset(t *testing.T) {
	store := newAuthStubStore()
	svc := newTestAuth(store)
	if _, err := svc.Signup("c@example.com", "Cy", "Secret123", ""); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	token, u, err := svc.ForgotPassword("c@example.com")
	if err != nil || token == "" || u == nil {
		t.Fatalf("ForgotPassword = %q, %v, %v", token, u, err)
	}
	if none, _, err := svc.ForgotPassword("nobody@example.com"); err != nil || none != "" {
		t.Fatalf("unknown email should yield no token, got %q %v", none, err)
	}

	ok, err := svc.ValidateResetToken(token)
	if err != nil || !ok {
		t.Fatalf("expected token valid, got %v %v", ok, err)
	}
	if ok, _ := svc.ValidateResetToken("bogus"); ok {
		t.Fatalf("bogus token reported valid")
	}

	if err := svc.ResetPassword(token, "NewSecret1"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := svc.Login("c@example.com", "NewSecret1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if err := svc.ResetPassword(token, "Another1"); codeOf(err) != ErrorInvalid {
		t.Fatalf("reset token should be single use, got %v", err)
	}
}

func TestAuthResetTokenExpires(t *testing.T) {
	store := newAuthStubStore()
	svc := newTestAuth(store)
	if _, err := svc.Signup("d@example.com", "", "Secret123", ""); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	token, _, err := svc.ForgotPassword("d@example.com")
	if err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	svc.now = func() time.Time { return time.Unix(1000, 0).UTC().Add(2 * time.Hour) }
	if ok, _ := svc.ValidateResetToken(token); ok {
		t.Fatalf("expired token reported valid")
	}
}

func TestAuthChangePassword(t *testing.T) {
	store := newAuthStubStore()
	svc := newTestAuth(store)
	u, err := svc.Signup("e@example.com", "", "Secret123", "")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if err := svc.ChangePassword(u.ID, "wrong", "Other123"); codeOf(err) != ErrorUnauthorized {
		t.Fatalf("expected wrong current password to fail, got %v", err)
	}
	if err := svc.ChangePassword(u.ID, "Secret123", "Other123"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := svc.Login("e@example.com", "Other123"); err != nil {
		t.Fatalf("login after change: %v", err)
	}
}

func TestAuthGoogle(t *testing.T) {
	store := newAuthStubStore()
	svc := newTestAuth(store).WithGoogle(stubGoogle{ids: map[string]*GoogleIdentity{
		"good":       {Subject: "g-1", Email: "g@example.com", EmailVerified: true, Name: "Gee"},
		"unverified": {Subject: "g-2", Email: "h@example.com"},
	}})
	ctx := context.Background()

	if _, err := svc.GoogleLogin(ctx, "good"); codeOf(err) != ErrorNotFound {
		t.Fatalf("expected not registered, got %v", err)
	}
	res, err := svc.RegisterGoogle(ctx, "good", "")
	if err != nil {
		t.Fatalf("RegisterGoogle: %v", err)
	}
	if res.User.GoogleSub != "g-1" || res.User.Email != "g@example.com" {
		t.Fatalf("unexpected user %+v", res.User)
	}
	if _, err := svc.RegisterGoogle(ctx, "good", ""); codeOf(err) != ErrorConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	login, err := svc.GoogleLogin(ctx, "good")
	if err != nil || login.User.ID != res.User.ID {
		t.Fatalf("GoogleLogin = %+v, %v", login, err)
	}
	if _, err := svc.GoogleLogin(ctx, "unverified"); codeOf(err) != ErrorUnauthorized {
		t.Fatalf("expected unverified rejection, got %v", err)
	}
}

func TestAuthEnsureAdmin(t *testing.T) {
	store := newAuthStubStore()
	svc := newTestAuth(store)
	u, created, err := svc.EnsureAdmin("admin@example.com", "Admin", "AdminPass1")
	if err != nil || !created || u.Role != models.RoleAdmin {
		t.Fatalf("EnsureAdmin = %+v, %v, %v", u, created, err)
	}
	again, created, err := svc.EnsureAdmin("admin@example.com", "Admin", "AdminPass1")
	if err != nil || created || again.ID != u.ID {
		t.Fatalf("second EnsureAdmin = %+v, %v, %v", again, created, err)
	}
}
