package services

import (
	"context"
	"errors"
	"net/url"

	"github.com/orienta/orienta/internal/httpclient"
)

const googleTokenInfoURL = "https://oauth2.googleapis.com"

// TokenInfoVerifier checks Google ID tokens against the tokeninfo endpoint.
type TokenInfoVerifier struct {
	client   *httpclient.Client
	clientID string
}

func NewTokenInfoVerifier(clientID, baseURL string, opts ...httpclient.Option) (*TokenInfoVerifier, error) {
	if baseURL == "" {
		baseURL = googleTokenInfoURL
	}
	c, err := httpclient.New(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &TokenInfoVerifier{client: c, clientID: clientID}, nil
}

type tokenInfo struct {
	Sub           string `json:"sub"`
	Aud           string `json:"aud"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
}

func (v *TokenInfoVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	var info tokenInfo
	q := url.Values{"id_token": {idToken}}
	if err := v.client.Get(ctx, "/tokeninfo", q, &info); err != nil {
		var apiErr *httpclient.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return nil, NewUnauthorizedError("invalid google token")
		}
		return nil, NewBadGatewayError("google token check failed")
	}
	if v.clientID != "" && info.Aud != v.clientID {
		return nil, NewUnauthorizedError("google token audience mismatch")
	}
	return &GoogleIdentity{
		Subject:       info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified == "true",
		Name:          info.Name,
	}, nil
}
