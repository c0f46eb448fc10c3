package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what a token says about itself. The signature is not
// verified, so it is only suitable for display.
type TokenInfo struct {
	TokenType string     `json:"token_type,omitempty"`
	UserID    string     `json:"user_id,omitempty"`
	ID        string     `json:"jti,omitempty"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Algorithm string     `json:"alg"`
}

// Expired reports whether the token's expiry is before now
func (i *TokenInfo) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

// Remaining returns the time until expiry, or zero when expired or unknown
func (i *TokenInfo) Remaining(now time.Time) time.Duration {
	if i.ExpiresAt == nil || i.Expired(now) {
		return 0
	}
	return i.ExpiresAt.Sub(now)
}

// InspectToken decodes the claims of a JWT without verifying it
func InspectToken(token string) (*TokenInfo, error) {
	claims := jwt.MapClaims{}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	info := &TokenInfo{Algorithm: parsed.Method.Alg()}
	if v, ok := claims["token_type"].(string); ok {
		info.TokenType = v
	}
	if v, ok := claims["jti"].(string); ok {
		info.ID = v
	}
	switch v := claims["user_id"].(type) {
	case string:
		info.UserID = v
	case float64:
		info.UserID = fmt.Sprintf("%.0f", v)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time.UTC()
		info.ExpiresAt = &t
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		t := iat.Time.UTC()
		info.IssuedAt = &t
	}
	return info, nil
}
