package server

import (
	"net/http"
)

const genericAuthErrorMessage = "An error occurred during authentication"

// httpError writes the error with environment-dependent verbosity: the
// generic message in production, the underlying error otherwise.
func (s *Server) httpError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.logger.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")

	message := genericAuthErrorMessage
	if !s.config.IsProduction() {
		message = err.Error()
	}
	http.Error(w, message, status)
}

// unauthorized writes a 401 with a fixed message regardless of environment.
func (s *Server) unauthorized(w http.ResponseWriter) {
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
