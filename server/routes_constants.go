package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Session-backed user routes
	RouteMe = "/me"

	// Google OAuth bridge routes
	RouteGoogleLogin    = "/auth/google/login"
	RouteGoogleCallback = "/auth/google/callback"

	// Auth plumbing
	RouteAuthStatus = "/auth/status"

	// Operational routes
	RouteHealthz = "/healthz"
	RouteMetrics = "/metrics"
)
