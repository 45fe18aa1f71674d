// Package anyauth provides clients and data types for the upstream AnyAuth
// identity API: the application-identity ServiceClient, the per-session
// UserClient, and the Token/User payloads both exchange with it.
package anyauth

import (
	"encoding/json"
	"time"

	errs "github.com/anyauth/gateway/internal/errors"
)

// Token is an access/refresh token pair issued by the AnyAuth API.
// A Token is immutable once issued: refreshing produces a new value,
// it never mutates an existing one in place.
type Token struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	Scope        string         `json:"scope"`
	ExpiresAt    int64          `json:"expires_at"` // epoch seconds
	ExpiresIn    int64          `json:"expires_in"` // seconds
	IssuedAt     string         `json:"issued_at"`  // ISO-8601
	Meta         map[string]any `json:"meta,omitempty"`
}

// Expired reports whether the token is expired at the given instant.
// There is no clock-skew margin: a token expires exactly at ExpiresAt.
func (t *Token) Expired(now time.Time) bool {
	return now.Unix() >= t.ExpiresAt
}

// IsExpired reports whether the token is expired now.
func (t *Token) IsExpired() bool {
	return t.Expired(time.Now())
}

// ParseToken validates raw JSON against the token shape. It is called at
// every trust boundary that produces a token: upstream API responses and
// credential store reads.
func ParseToken(data []byte) (*Token, error) {
	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, errs.NewValidationError("token", err.Error())
	}

	var reasons []string
	if token.AccessToken == "" {
		reasons = append(reasons, "access_token is required")
	}
	if token.RefreshToken == "" {
		reasons = append(reasons, "refresh_token is required")
	}
	if token.TokenType == "" {
		reasons = append(reasons, "token_type is required")
	}
	if token.ExpiresAt <= 0 {
		reasons = append(reasons, "expires_at must be a positive epoch timestamp")
	}
	if token.IssuedAt == "" {
		reasons = append(reasons, "issued_at is required")
	}
	if len(reasons) > 0 {
		return nil, errs.NewValidationError("token", reasons...)
	}

	return &token, nil
}
