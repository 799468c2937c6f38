package api

import (
	"github.com/orienta/orienta/internal/services"
)

type authStoreAdapter struct {
	store Store
}

func newAuthStoreAdapter(store Store) services.AuthStore {
	return &authStoreAdapter{store: store}
}

func (a *authStoreAdapter) FindUserByEmail(email string) (*services.User, error) {
	return a.store.FindUserByEmail(email), nil
}

func (a *authStoreAdapter) GetUser(id string) (*services.User, error) {
	return a.store.GetUser(id), nil
}

func (a *authStoreAdapter) FindUserByGoogleSub(sub string) (*services.User, error) {
	return a.store.FindUserByGoogleSub(sub), nil
}

func (a *authStoreAdapter) AddUser(u *services.User) error {
	if u == nil {
		return services.NewInvalidError("user required")
	}
	return a.store.AddUser(u)
}

func (a *authStoreAdapter) UpdateUser(u *services.User) error {
	if u == nil {
		return services.NewInvalidError("user required")
	}
	ok, err := a.store.UpdateUser(u)
	if err != nil {
		return err
	}
	if !ok {
		return services.NewNotFoundError("user not found")
	}
	return nil
}

func (a *authStoreAdapter) AddResetToken(t *services.ResetToken) error {
	if t == nil {
		return services.NewInvalidError("reset token required")
	}
	return a.store.AddResetToken(t)
}

func (a *authStoreAdapter) GetResetToken(hash string) (*services.ResetToken, error) {
	return a.store.GetResetToken(hash), nil
}

func (a *authStoreAdapter) DeleteResetToken(hash string) error {
	return a.store.DeleteResetToken(hash)
}

var _ services.AuthStore = (*authStoreAdapter)(nil)
