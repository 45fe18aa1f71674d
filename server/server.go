package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/anyauth/gateway/anyauth"
	"github.com/anyauth/gateway/google"
	"github.com/anyauth/gateway/internal/config"
	"github.com/anyauth/gateway/registration"
)

// OAuthProvider is the slice of the Google client the server needs for the
// login redirect and the callback exchange.
type OAuthProvider interface {
	AuthCodeURL(ctx context.Context, state string) (string, error)
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	VerifyIDToken(ctx context.Context, rawIDToken string) error
	FetchProfile(ctx context.Context, accessToken string) (*google.Profile, error)
}

// Server exposes the gateway's inbound HTTP surface: the session-backed
// /me endpoint, the Google login/callback pair, and operational routes.
type Server struct {
	env     string
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	service *anyauth.ServiceClient
	users   *anyauth.UserClient
	bridge  *registration.Bridge
	oauth   OAuthProvider
	metrics http.Handler
	logger  zerolog.Logger
}

func New(
	cfg config.Config,
	service *anyauth.ServiceClient,
	users *anyauth.UserClient,
	bridge *registration.Bridge,
	oauth OAuthProvider,
	metricsHandler http.Handler,
	logger zerolog.Logger,
) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("[Server New] service client is required")
	}
	if users == nil {
		return nil, fmt.Errorf("[Server New] user client is required")
	}
	if bridge == nil {
		return nil, fmt.Errorf("[Server New] registration bridge is required")
	}
	if oauth == nil {
		return nil, fmt.Errorf("[Server New] oauth provider is required")
	}

	s := &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		config:  cfg,
		service: service,
		users:   users,
		bridge:  bridge,
		oauth:   oauth,
		metrics: metricsHandler,
		logger:  logger,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.config.IsProduction() {
		return // Skip route logging outside development
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	s.logger.Info().Msgf("[%-19s] %s", displayMethod, path)
}
