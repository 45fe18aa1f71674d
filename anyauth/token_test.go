package anyauth_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anyauth/gateway/anyauth"
	errs "github.com/anyauth/gateway/internal/errors"
)

func tokenJSON(t *testing.T, access, refresh string, expiresAt int64) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"scope":         "openid",
		"expires_at":    expiresAt,
		"expires_in":    3600,
		"issued_at":     time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)
	return data
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		expiresAt int64
		expired   bool
	}{
		{name: "future expiry", expiresAt: now.Unix() + 3600, expired: false},
		{name: "past expiry", expiresAt: now.Unix() - 10, expired: true},
		{name: "expires exactly now", expiresAt: now.Unix(), expired: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			token := anyauth.Token{ExpiresAt: tc.expiresAt}
			require.Equal(t, tc.expired, token.Expired(now))
		})
	}
}

func TestParseToken(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		token, err := anyauth.ParseToken(tokenJSON(t, "access-1", "refresh-1", 1893456000))
		require.NoError(t, err)
		require.Equal(t, "access-1", token.AccessToken)
		require.Equal(t, "refresh-1", token.RefreshToken)
		require.Equal(t, "bearer", token.TokenType)
		require.Equal(t, int64(1893456000), token.ExpiresAt)
	})

	t.Run("missing fields reported together", func(t *testing.T) {
		_, err := anyauth.ParseToken([]byte(`{"token_type":"bearer","expires_at":1893456000,"issued_at":"2026-01-01T00:00:00Z"}`))
		require.Error(t, err)

		var validationErr *errs.ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.Contains(t, err.Error(), "access_token")
		require.Contains(t, err.Error(), "refresh_token")
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := anyauth.ParseToken([]byte(`{not json`))
		var validationErr *errs.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})
}

func TestParseUser(t *testing.T) {
	t.Run("valid user", func(t *testing.T) {
		user, err := anyauth.ParseUser(userJSON(t, "user-1", "alice1", "a@x.com"))
		require.NoError(t, err)
		require.Equal(t, "user-1", user.ID)
		require.Equal(t, "alice1", user.Username)
		require.Equal(t, "a@x.com", user.Email)
	})

	t.Run("missing id and invalid email", func(t *testing.T) {
		_, err := anyauth.ParseUser([]byte(`{"username":"alice1","email":"not-an-email-at-all"}`))
		var validationErr *errs.ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.Contains(t, err.Error(), "id is required")
	})
}

func userJSON(t *testing.T, id, username, email string) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"id":             id,
		"username":       username,
		"email":          email,
		"email_verified": true,
		"phone_verified": false,
		"disabled":       false,
		"metadata":       map[string]any{},
		"created_at":     1700000000,
		"updated_at":     1700000000,
	})
	require.NoError(t, err)
	return data
}

func TestUserCreateValidate(t *testing.T) {
	valid := anyauth.UserCreate{
		Username: "alice1",
		Email:    "a@x.com",
		Password: "longenough1",
	}

	t.Run("valid payload", func(t *testing.T) {
		payload := valid
		require.NoError(t, payload.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*anyauth.UserCreate)
		reason string
	}{
		{
			name:   "username too short",
			mutate: func(uc *anyauth.UserCreate) { uc.Username = "al" },
			reason: "username must be between",
		},
		{
			name:   "username with invalid characters",
			mutate: func(uc *anyauth.UserCreate) { uc.Username = "alice!one" },
			reason: "alphanumeric",
		},
		{
			name:   "invalid email",
			mutate: func(uc *anyauth.UserCreate) { uc.Email = "nope" },
			reason: "email",
		},
		{
			name:   "password too short",
			mutate: func(uc *anyauth.UserCreate) { uc.Password = "short" },
			reason: "password must be between",
		},
		{
			name:   "password too long",
			mutate: func(uc *anyauth.UserCreate) { uc.Password = fmt.Sprintf("%065d", 1) },
			reason: "password must be between",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payload := valid
			tc.mutate(&payload)

			err := payload.Validate()
			var validationErr *errs.ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.Contains(t, err.Error(), tc.reason)
		})
	}
}
