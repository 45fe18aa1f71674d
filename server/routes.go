package server

func (s *Server) initRoutes() {
	standard := []func(handlerFunc) handlerFunc{
		s.RequestIDMiddleware,
		s.LoggingMiddleware,
		s.RecoverMiddleware,
	}

	s.RegisterRouteFunc("GET "+RouteMe, ChainMiddleware(s.MeHandler(), standard...))

	s.RegisterRouteFunc("GET "+RouteGoogleLogin, ChainMiddleware(s.GoogleLoginHandler(), standard...))
	s.RegisterRouteFunc("GET "+RouteGoogleCallback, ChainMiddleware(s.GoogleCallbackHandler(), standard...))
	s.RegisterRouteFunc("GET "+RouteAuthStatus, ChainMiddleware(s.AuthStatusHandler(), standard...))

	s.RegisterRouteFunc("GET "+RouteHealthz, s.HealthzHandler())
	if s.metrics != nil {
		s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics)
	}
}
