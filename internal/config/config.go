package config

import "time"

type Config interface {
	EnvConfig
	UpstreamConfig
	OAuthConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	IsProduction() bool
}

// UpstreamConfig describes the AnyAuth identity API and the service
// account used for application-identity calls.
type UpstreamConfig interface {
	GetAnyAuthBaseURL() string
	GetServiceUsername() string
	GetServicePassword() string
}

type OAuthConfig interface {
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetOAuthRedirectURL() string
}

type SessionConfig interface {
	GetCacheDir() string
	GetRedisAddr() string
	GetSessionCookieMaxAge() time.Duration
}

type mainConfig struct {
	EnvVars
}

func New() (Config, error) {
	vars, err := LoadEnvVars()
	if err != nil {
		return nil, err
	}
	return mainConfig{EnvVars: vars}, nil
}
