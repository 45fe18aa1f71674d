package server

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/anyauth/gateway/google"
)

const (
	// sessionCookieName carries only the opaque session id, never a token.
	sessionCookieName = "session_id"
	// userCookieName carries the provider profile for display purposes
	// only. It is never used for authorization decisions.
	userCookieName = "user"
	// oauthStateCookieName tracks the state parameter across the redirect
	// round-trip to Google.
	oauthStateCookieName = "oauth_state"

	stateCookieMaxAge = 300 // long enough for the consent round-trip
)

// generateRandomString creates a random base64url string
func generateRandomString(length int) string {
	b := make([]byte, length)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetSessionCookieMaxAge().Seconds()),
	})
}

func (s *Server) setUserCookie(w http.ResponseWriter, profile *google.Profile) {
	payload, err := json.Marshal(profile)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     userCookieName,
		Value:    url.QueryEscape(string(payload)),
		Path:     "/",
		HttpOnly: true,
	})
}

func (s *Server) setStateCookie(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   stateCookieMaxAge,
	})
}

func (s *Server) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
