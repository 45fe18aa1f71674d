package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const productionEnv = "production"

// EnvVars holds the raw environment-variable values for the gateway.
type EnvVars struct {
	Port                string        `env:"PORT" envDefault:"3000"`
	AppName             string        `env:"APP_NAME" envDefault:"AnyAuth Gateway"`
	Env                 string        `env:"NODE_ENV" envDefault:"development"`
	AnyAuthBaseURL      string        `env:"ANY_AUTH_BASE_URL" envDefault:"http://127.0.0.1:8000"`
	ServiceUsername     string        `env:"APPLICATION_USERNAME"`
	ServicePassword     string        `env:"APPLICATION_PASSWORD"`
	GoogleClientID      string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret  string        `env:"GOOGLE_CLIENT_SECRET"`
	OAuthRedirectURL    string        `env:"OAUTH_REDIRECT_URL" envDefault:"http://localhost:3000/auth/google/callback"`
	CacheDir            string        `env:"CACHE_DIR" envDefault:".cache"`
	RedisAddr           string        `env:"REDIS_ADDR"`
	SessionCookieMaxAge time.Duration `env:"SESSION_COOKIE_MAX_AGE" envDefault:"168h"`
}

var _ Config = mainConfig{}

// LoadEnvVars parses the environment into an EnvVars value.
func LoadEnvVars() (EnvVars, error) {
	var vars EnvVars
	if err := env.Parse(&vars); err != nil {
		return EnvVars{}, fmt.Errorf("[LoadEnvVars] parse env: %w", err)
	}
	return vars, nil
}

func (e EnvVars) GetPort() string {
	port := e.Port
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return e.Env
}

func (e EnvVars) IsProduction() bool {
	return strings.EqualFold(e.Env, productionEnv)
}

func (e EnvVars) GetAnyAuthBaseURL() string {
	return strings.TrimRight(e.AnyAuthBaseURL, "/")
}

func (e EnvVars) GetServiceUsername() string {
	return e.ServiceUsername
}

func (e EnvVars) GetServicePassword() string {
	return e.ServicePassword
}

func (e EnvVars) GetGoogleClientID() string {
	return e.GoogleClientID
}

func (e EnvVars) GetGoogleClientSecret() string {
	return e.GoogleClientSecret
}

func (e EnvVars) GetOAuthRedirectURL() string {
	return e.OAuthRedirectURL
}

func (e EnvVars) GetCacheDir() string {
	return e.CacheDir
}

func (e EnvVars) GetRedisAddr() string {
	return e.RedisAddr
}

func (e EnvVars) GetSessionCookieMaxAge() time.Duration {
	return e.SessionCookieMaxAge
}
