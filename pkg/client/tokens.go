package client

import (
	"context"
	"fmt"
	"net/http"
)

// Token endpoints, relative to the base URL
const (
	TokenPath        = "/auth/token/"
	TokenRefreshPath = "/auth/token/refresh/"
)

// TokenPair is issued by the token endpoint on login
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AccessToken is returned by the refresh endpoint. Refresh is only set
// when the server rotates refresh tokens.
type AccessToken struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// ObtainToken exchanges a username and password for a token pair. The
// pair is returned, not stored.
func (c *Client) ObtainToken(ctx context.Context, username, password string) (*TokenPair, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	var pair TokenPair
	if err := c.DoUnauthenticated(ctx, http.MethodPost, TokenPath, tokenRequest{Username: username, Password: password}, &pair); err != nil {
		return nil, err
	}
	if pair.Access == "" || pair.Refresh == "" {
		return nil, fmt.Errorf("token response is missing access or refresh token")
	}
	return &pair, nil
}

// RefreshToken exchanges a refresh token for a new access token. The
// token is returned, not stored.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (*AccessToken, error) {
	var token AccessToken
	if err := c.DoUnauthenticated(ctx, http.MethodPost, TokenRefreshPath, refreshRequest{Refresh: refresh}, &token); err != nil {
		return nil, err
	}
	if token.Access == "" {
		return nil, fmt.Errorf("refresh response is missing access token")
	}
	return &token, nil
}
