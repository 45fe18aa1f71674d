package anyauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	errs "github.com/anyauth/gateway/internal/errors"
	"github.com/anyauth/gateway/internal/metrics"
	"github.com/anyauth/gateway/internal/utils"
)

// AnyAuth API endpoints.
const (
	routeToken        = "/token"
	routeRefreshToken = "/refresh-token"
	routeRegister     = "/register"
	routeMe           = "/me"
)

const defaultRequestTimeout = 15 * time.Second

const (
	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeJSON = "application/json"
)

// APIError is a non-2xx response from the AnyAuth API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anyauth api returned %d: %s", e.StatusCode, e.Body)
}

// identityState is the service identity owned by a ServiceClient: the
// current token, the bearer credential attached to outgoing requests, and
// the profile validated at authentication time. It is an explicit struct
// guarded by the client mutex rather than ambient global state.
type identityState struct {
	token  *Token
	user   *User
	bearer string
}

// ServiceClient maintains exactly one application-identity bearer token for
// all service-to-service calls to the AnyAuth API.
type ServiceClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     zerolog.Logger
	metrics    *metrics.Metrics

	mu    sync.RWMutex
	state identityState
}

// ServiceClientOption configures a ServiceClient.
type ServiceClientOption func(*ServiceClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ServiceClientOption {
	return func(c *ServiceClient) { c.httpClient = client }
}

// WithLogger sets a structured logger.
func WithLogger(logger zerolog.Logger) ServiceClientOption {
	return func(c *ServiceClient) { c.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) ServiceClientOption {
	return func(c *ServiceClient) { c.metrics = m }
}

// NewServiceClient creates a client for the AnyAuth API authenticated with
// the application service account. Callers must invoke Authenticate before
// issuing authenticated requests.
func NewServiceClient(baseURL, username, password string, options ...ServiceClientOption) *ServiceClient {
	c := &ServiceClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     zerolog.Nop(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Authenticate performs the password-grant token request for the service
// account, then validates the issued token with a mandatory /me self-check.
// A syntactically valid token that the introspection endpoint rejects is an
// authentication failure, not a token to be silently accepted.
func (c *ServiceClient) Authenticate(ctx context.Context) error {
	var missing []string
	if c.username == "" {
		missing = append(missing, "APPLICATION_USERNAME")
	}
	if c.password == "" {
		missing = append(missing, "APPLICATION_PASSWORD")
	}
	if len(missing) > 0 {
		return errs.Wrapf(errs.ErrMissingConfig, "[ServiceClient Authenticate] %s", strings.Join(missing, ", "))
	}

	form := url.Values{
		"grant_type": {"password"},
		"username":   {c.username},
		"password":   {c.password},
	}
	body, err := c.postForm(ctx, routeToken, form)
	if err != nil {
		return fmt.Errorf("[ServiceClient Authenticate] password grant: %v: %w", err, errs.ErrServiceAuth)
	}

	token, err := ParseToken(body)
	if err != nil {
		return errs.Wrapf(err, "[ServiceClient Authenticate] token response")
	}
	c.setToken(token)

	c.logger.Info().Msg("service token issued, validating via /me self-check")
	user, err := c.Me(ctx)
	if err != nil {
		return fmt.Errorf("[ServiceClient Authenticate] /me self-check: %v: %w", err, errs.ErrServiceAuth)
	}

	c.mu.Lock()
	c.state.user = user
	c.mu.Unlock()

	c.logger.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Str("full_name", utils.Value(user.FullName)).
		Msg("service identity authenticated")
	return nil
}

// RefreshToken performs a refresh-grant request using the stored refresh
// token and replaces the service identity token. The prior state is left
// untouched when the refresh fails.
func (c *ServiceClient) RefreshToken(ctx context.Context) error {
	c.mu.RLock()
	var refreshToken string
	if c.state.token != nil {
		refreshToken = c.state.token.RefreshToken
	}
	c.mu.RUnlock()

	if refreshToken == "" {
		return errs.Wrapf(errs.ErrNotAuthenticated, "[ServiceClient RefreshToken]")
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	body, err := c.postForm(ctx, routeRefreshToken, form)
	if err != nil {
		return errs.Wrapf(err, "[ServiceClient RefreshToken]")
	}

	token, err := ParseToken(body)
	if err != nil {
		return errs.Wrapf(err, "[ServiceClient RefreshToken] token response")
	}
	c.setToken(token)

	c.logger.Info().Msg("service token refreshed")
	return nil
}

// RegisterUser validates the registration payload, POSTs it to the
// registration endpoint and returns the token issued for the new user.
// It does not touch the client's own service identity token.
func (c *ServiceClient) RegisterUser(ctx context.Context, userData UserCreate) (*Token, error) {
	if userData.Metadata == nil {
		userData.Metadata = map[string]any{}
	}
	if err := userData.Validate(); err != nil {
		return nil, errs.Wrapf(err, "[ServiceClient RegisterUser]")
	}

	payload, err := json.Marshal(userData)
	if err != nil {
		return nil, errs.Wrapf(err, "[ServiceClient RegisterUser] marshal payload")
	}

	c.logger.Info().Str("username", userData.Username).Msg("registering user")
	body, err := c.do(ctx, apiRequest{
		method:      http.MethodPost,
		path:        routeRegister,
		body:        payload,
		contentType: contentTypeJSON,
	})
	if err != nil {
		return nil, errs.Wrapf(err, "[ServiceClient RegisterUser]")
	}

	token, err := ParseToken(body)
	if err != nil {
		return nil, errs.Wrapf(err, "[ServiceClient RegisterUser] token response")
	}
	return token, nil
}

// Me fetches the identity profile for the service token.
func (c *ServiceClient) Me(ctx context.Context) (*User, error) {
	body, err := c.do(ctx, apiRequest{method: http.MethodGet, path: routeMe})
	if err != nil {
		return nil, errs.Wrapf(err, "[ServiceClient Me]")
	}
	return ParseUser(body)
}

// Token returns the current service identity token.
func (c *ServiceClient) Token() *Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.token
}

// User returns the profile validated at authentication time.
func (c *ServiceClient) User() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.user
}

func (c *ServiceClient) setToken(token *Token) {
	c.mu.Lock()
	c.state.token = token
	c.state.bearer = token.AccessToken
	c.mu.Unlock()
}

// apiRequest is a resendable request passed through the retry decorator.
type apiRequest struct {
	method      string
	path        string
	body        []byte
	contentType string
	retried     bool
}

// do sends an authenticated request. On a 401 for a request that has not
// been retried yet it refreshes the service token once, reattaches the
// bearer credential and resends the exact original request. A second 401,
// or any other status, propagates unchanged.
func (c *ServiceClient) do(ctx context.Context, req apiRequest) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, bytes.NewReader(req.body))
	if err != nil {
		return nil, errs.Wrapf(err, "[ServiceClient do] build request")
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	c.mu.RLock()
	bearer := c.state.bearer
	c.mu.RUnlock()
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errs.Wrapf(err, "[ServiceClient do] %s %s", req.method, req.path)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrapf(err, "[ServiceClient do] read response")
	}

	if resp.StatusCode == http.StatusUnauthorized && !req.retried {
		c.logger.Info().Str("path", req.path).Msg("access token rejected, refreshing and retrying once")
		c.metrics.IncServiceAuthRetries()
		if err := c.RefreshToken(ctx); err != nil {
			return nil, errs.Wrapf(err, "[ServiceClient do] refresh after 401")
		}
		req.retried = true
		return c.do(ctx, req)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// postForm sends a form-encoded grant request outside the retry decorator.
// Grant requests are never retried on 401.
func (c *ServiceClient) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errs.Wrapf(err, "[ServiceClient postForm] build request")
	}
	req.Header.Set("Content-Type", contentTypeForm)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrapf(err, "[ServiceClient postForm] POST %s", path)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrapf(err, "[ServiceClient postForm] read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
