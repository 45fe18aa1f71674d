package server

import (
	"encoding/json"
	"net/http"
)

// MeHandler resolves the session cookie into a currently-valid user token
// and returns the upstream identity profile fetched with it. A missing
// cookie and an unresolvable session are both a 401; the two cases are not
// distinguished for the caller.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			s.unauthorized(w)
			return
		}

		token, err := s.users.Resolve(ctx, cookie.Value)
		if err != nil {
			s.httpError(w, r, http.StatusInternalServerError, err)
			return
		}
		if token == nil {
			s.unauthorized(w)
			return
		}

		user, err := s.users.Me(ctx, token)
		if err != nil {
			s.httpError(w, r, http.StatusInternalServerError, err)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(user)
	}
}

// HealthzHandler is a plain liveness probe.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
