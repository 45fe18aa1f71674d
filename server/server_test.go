package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/anyauth/gateway/anyauth"
	"github.com/anyauth/gateway/credstore"
	"github.com/anyauth/gateway/google"
	"github.com/anyauth/gateway/internal/config"
	"github.com/anyauth/gateway/registration"
	"github.com/anyauth/gateway/server"
)

type fakeOAuth struct {
	consentURL  string
	token       *oauth2.Token
	exchangeErr error
	verifyErr   error
	profile     *google.Profile
	profileErr  error
}

func (f *fakeOAuth) AuthCodeURL(_ context.Context, state string) (string, error) {
	return f.consentURL + "?state=" + state, nil
}

func (f *fakeOAuth) Exchange(_ context.Context, _ string) (*oauth2.Token, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.token, nil
}

func (f *fakeOAuth) VerifyIDToken(_ context.Context, _ string) error {
	return f.verifyErr
}

func (f *fakeOAuth) FetchProfile(_ context.Context, _ string) (*google.Profile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profile, nil
}

type fixture struct {
	server *server.Server
	store  *credstore.FileStore
	oauth  *fakeOAuth
}

func tokenBody(t *testing.T, access, refresh string, expiresAt int64) []byte {
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

func userBody(t *testing.T, id string) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"id":             id,
		"username":       "alice1",
		"email":          "alice@example.com",
		"email_verified": true,
		"metadata":       map[string]any{},
		"created_at":     1700000000,
		"updated_at":     1700000000,
	})
	require.NoError(t, err)
	return data
}

func testConfig(env string) config.Config {
	return config.EnvVars{
		Port:                "3000",
		AppName:             "AnyAuth Gateway",
		Env:                 env,
		SessionCookieMaxAge: 7 * 24 * time.Hour,
	}
}

func setupFixture(t *testing.T, env string, upstream http.Handler) *fixture {
	t.Helper()

	upstreamServer := httptest.NewServer(upstream)
	t.Cleanup(upstreamServer.Close)

	store, err := credstore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	service := anyauth.NewServiceClient(upstreamServer.URL, "gateway-app", "service-secret-1")
	users := anyauth.NewUserClient(upstreamServer.URL, store)

	bridge, err := registration.New(service, store)
	require.NoError(t, err)

	oauth := &fakeOAuth{
		consentURL: "https://accounts.google.example/consent",
		token: (&oauth2.Token{AccessToken: "provider-access-1"}).
			WithExtra(map[string]interface{}{"id_token": "raw-id-token"}),
		profile: &google.Profile{
			ID:            "109876543210",
			Email:         "alice@example.com",
			VerifiedEmail: true,
			Name:          "Alice Example",
			GivenName:     "Alice",
			Picture:       "https://lh3.example.com/photo.jpg",
		},
	}

	gateway, err := server.New(testConfig(env), service, users, bridge, oauth, nil, zerolog.Nop())
	require.NoError(t, err)

	return &fixture{server: gateway, store: store, oauth: oauth}
}

func TestMeWithoutCookie(t *testing.T) {
	f := setupFixture(t, "development", http.NewServeMux())

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeUnknownSession(t *testing.T) {
	f := setupFixture(t, "development", http.NewServeMux())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "usr_unknown"})

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer user-access-1", r.Header.Get("Authorization"))
		_, _ = w.Write(userBody(t, "user-1"))
	})
	f := setupFixture(t, "development", mux)

	token, err := anyauth.ParseToken(tokenBody(t, "user-access-1", "user-refresh-1", time.Now().Unix()+3600))
	require.NoError(t, err)
	require.NoError(t, f.store.Put(context.Background(), "usr_sess1", token))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "usr_sess1"})

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var user anyauth.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	require.Equal(t, "user-1", user.ID)
	require.Equal(t, "alice1", user.Username)
}

func TestMeUpstreamFailureIsGenericInProduction(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "secret upstream detail", http.StatusInternalServerError)
	})
	f := setupFixture(t, "production", mux)

	token, err := anyauth.ParseToken(tokenBody(t, "user-access-1", "user-refresh-1", time.Now().Unix()+3600))
	require.NoError(t, err)
	require.NoError(t, f.store.Put(context.Background(), "usr_sess1", token))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "usr_sess1"})

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "secret upstream detail")
}

func TestAuthStatus(t *testing.T) {
	f := setupFixture(t, "development", http.NewServeMux())

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "OK", body["status"])
}

func TestHealthz(t *testing.T) {
	f := setupFixture(t, "development", http.NewServeMux())

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGoogleLoginRedirectsWithState(t *testing.T) {
	f := setupFixture(t, "development", http.NewServeMux())

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))

	require.Equal(t, http.StatusFound, rec.Code)

	var stateCookie *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "oauth_state" {
			stateCookie = cookie
		}
	}
	require.NotNil(t, stateCookie, "login must pin the state in a cookie")
	require.NotEmpty(t, stateCookie.Value)

	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "https://accounts.google.example/consent"))
	require.Contains(t, location, "state="+stateCookie.Value)
}

func TestGoogleCallbackCreatesSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", func(w http.ResponseWriter, r *http.Request) {
		var payload anyauth.UserCreate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "alice", payload.Username)
		require.Equal(t, "alice@example.com", payload.Email)
		_, _ = w.Write(tokenBody(t, "user-access-1", "user-refresh-1", time.Now().Unix()+3600))
	})
	f := setupFixture(t, "development", mux)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code-1&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-1"})

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "window.opener")

	var sessionCookie, userCookie *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		switch cookie.Name {
		case "session_id":
			sessionCookie = cookie
		case "user":
			userCookie = cookie
		}
	}

	require.NotNil(t, sessionCookie)
	require.True(t, strings.HasPrefix(sessionCookie.Value, "usr_"))
	require.True(t, sessionCookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, sessionCookie.SameSite)
	require.Equal(t, int((7 * 24 * time.Hour).Seconds()), sessionCookie.MaxAge)
	require.False(t, sessionCookie.Secure, "secure only in production")

	require.NotNil(t, userCookie, "profile cookie is set for display purposes")
	require.True(t, userCookie.HttpOnly)

	persisted, err := f.store.Get(context.Background(), sessionCookie.Value)
	require.NoError(t, err)
	require.NotNil(t, persisted)
	require.Equal(t, "user-access-1", persisted.AccessToken)
}

func TestGoogleCallbackRejectsStateMismatch(t *testing.T) {
	f := setupFixture(t, "development", http.NewServeMux())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code-1&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "different-state"})

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGoogleCallbackMissingCode(t *testing.T) {
	f := setupFixture(t, "development", http.NewServeMux())

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
