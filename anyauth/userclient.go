package anyauth

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	errs "github.com/anyauth/gateway/internal/errors"
	"github.com/anyauth/gateway/internal/metrics"
)

// TokenStore is the durable session id to token map the UserClient resolves
// against. Implementations live in the credstore package.
type TokenStore interface {
	// Get returns the token for a session id, or nil when the session is
	// unknown or the stored value is corrupt.
	Get(ctx context.Context, sessionID string) (*Token, error)
	// Put serializes and durably persists the token under the session id,
	// overwriting any prior value.
	Put(ctx context.Context, sessionID string, token *Token) error
}

// UserClient resolves a currently-usable token for an end-user session.
// It holds no session state of its own: every Resolve is a pure function of
// the credential store content plus the network, with a lazy refresh when
// the stored token has expired. Unlike the ServiceClient it never installs
// a default Authorization header; callers attach the returned token to
// their own outbound requests.
type UserClient struct {
	baseURL    string
	store      TokenStore
	httpClient *http.Client
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	nowTime    func() time.Time

	// refreshGroup collapses concurrent refreshes for the same session id
	// into a single refresh-grant call. Without it two handlers observing
	// the same expired token would both hit the refresh endpoint and one
	// grant could invalidate the other's refresh token.
	refreshGroup singleflight.Group
}

// UserClientOption configures a UserClient.
type UserClientOption func(*UserClient)

// WithUserHTTPClient sets a custom HTTP client.
func WithUserHTTPClient(client *http.Client) UserClientOption {
	return func(c *UserClient) { c.httpClient = client }
}

// WithUserLogger sets a structured logger.
func WithUserLogger(logger zerolog.Logger) UserClientOption {
	return func(c *UserClient) { c.logger = logger }
}

// WithUserMetrics sets the metrics collector.
func WithUserMetrics(m *metrics.Metrics) UserClientOption {
	return func(c *UserClient) { c.metrics = m }
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) UserClientOption {
	return func(c *UserClient) { c.nowTime = nowFunc }
}

// NewUserClient creates a resolver backed by the given credential store.
func NewUserClient(baseURL string, store TokenStore, options ...UserClientOption) *UserClient {
	c := &UserClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		store:      store,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     zerolog.Nop(),
		nowTime:    time.Now,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Resolve returns a currently-valid token for the session, or nil when the
// session is unknown or its token could not be refreshed. Callers must
// treat nil as unauthenticated; a missing session and a dead one are not
// distinguished.
func (c *UserClient) Resolve(ctx context.Context, sessionID string) (*Token, error) {
	token, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return nil, errs.Wrapf(err, "[UserClient Resolve]")
	}
	if token == nil {
		c.metrics.IncStoreLookup(metrics.ResultMiss)
		c.logger.Info().Str("session_id", sessionID).Msg("no token in credential store")
		return nil, nil
	}
	c.metrics.IncStoreLookup(metrics.ResultHit)

	if !token.Expired(c.nowTime()) {
		return token, nil
	}

	refreshed, err, _ := c.refreshGroup.Do(sessionID, func() (interface{}, error) {
		return c.refresh(ctx, sessionID, token.RefreshToken)
	})
	if err != nil {
		// The stale token stays in the store; the session reads as
		// unauthenticated from here on.
		c.metrics.IncUserRefresh(metrics.ResultFailure)
		c.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to refresh user token")
		return nil, nil
	}

	c.metrics.IncUserRefresh(metrics.ResultSuccess)
	return refreshed.(*Token), nil
}

// Me fetches the identity profile for an explicitly supplied user token.
func (c *UserClient) Me(ctx context.Context, token *Token) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+routeMe, nil)
	if err != nil {
		return nil, errs.Wrapf(err, "[UserClient Me] build request")
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrapf(err, "[UserClient Me] GET %s", routeMe)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrapf(err, "[UserClient Me] read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return ParseUser(body)
}

// refresh performs the refresh-grant request and persists the replacement
// token under the same session id.
func (c *UserClient) refresh(ctx context.Context, sessionID, refreshToken string) (*Token, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+routeRefreshToken, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errs.Wrapf(err, "[UserClient refresh] build request")
	}
	req.Header.Set("Content-Type", contentTypeForm)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrapf(err, "[UserClient refresh] POST %s", routeRefreshToken)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrapf(err, "[UserClient refresh] read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errs.Wrapf(errs.ErrRefreshFailed, "[UserClient refresh] status %d: %s", resp.StatusCode, string(body))
	}

	token, err := ParseToken(body)
	if err != nil {
		return nil, errs.Wrapf(err, "[UserClient refresh] token response")
	}

	if err := c.store.Put(ctx, sessionID, token); err != nil {
		return nil, errs.Wrapf(err, "[UserClient refresh] persist refreshed token")
	}

	c.logger.Info().Str("session_id", sessionID).Msg("user token refreshed")
	return token, nil
}
