// Package google bridges the gateway to Google's OAuth2/OIDC endpoints:
// building consent URLs, exchanging authorization codes, verifying ID
// tokens and fetching the userinfo profile.
package google

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	errs "github.com/anyauth/gateway/internal/errors"
)

const (
	issuerURL   = "https://accounts.google.com"
	userInfoURL = "https://www.googleapis.com/oauth2/v1/userinfo?alt=json"
)

var defaultScopes = []string{oidc.ScopeOpenID, "email", "profile"}

// Client wraps the Google OAuth2 configuration and OIDC verifier. The
// OIDC provider is discovered lazily on first use and cached.
type Client struct {
	clientID     string
	clientSecret string
	redirectURL  string
	userInfoURL  string
	httpClient   *http.Client

	mu       sync.Mutex
	provider *oidc.Provider
	oauth    *oauth2.Config
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client for userinfo requests.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// WithUserInfoURL overrides the userinfo endpoint (primarily for testing).
func WithUserInfoURL(url string) ClientOption {
	return func(c *Client) { c.userInfoURL = url }
}

// New creates a Google OAuth client.
func New(clientID, clientSecret, redirectURL string, options ...ClientOption) *Client {
	c := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		userInfoURL:  userInfoURL,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// AuthCodeURL returns the Google consent page URL carrying the given state.
func (c *Client) AuthCodeURL(ctx context.Context, state string) (string, error) {
	cfg, _, err := c.ensureProvider(ctx)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Exchange swaps an authorization code for the raw provider token.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	cfg, _, err := c.ensureProvider(ctx)
	if err != nil {
		return nil, err
	}
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, errs.Wrapf(err, "[google Exchange] code exchange")
	}
	return token, nil
}

// VerifyIDToken verifies the signature and claims of the raw ID token that
// accompanies the access token.
func (c *Client) VerifyIDToken(ctx context.Context, rawIDToken string) error {
	_, provider, err := c.ensureProvider(ctx)
	if err != nil {
		return err
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: c.clientID})
	if _, err := verifier.Verify(ctx, rawIDToken); err != nil {
		return errs.Wrapf(err, "[google VerifyIDToken]")
	}
	return nil
}

// FetchProfile fetches and validates the userinfo profile for the given
// provider access token.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, errs.Wrapf(err, "[google FetchProfile] build request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrapf(err, "[google FetchProfile] userinfo request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrapf(err, "[google FetchProfile] read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errs.Wrapf(errs.ErrInternal, "[google FetchProfile] userinfo status %d: %s", resp.StatusCode, string(body))
	}
	return ParseProfile(body)
}

func (c *Client) ensureProvider(ctx context.Context) (*oauth2.Config, *oidc.Provider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.provider != nil {
		return c.oauth, c.provider, nil
	}

	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, nil, errs.Wrapf(err, "[google ensureProvider] discover %s", issuerURL)
	}

	c.provider = provider
	c.oauth = &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  c.redirectURL,
		Scopes:       defaultScopes,
	}
	return c.oauth, c.provider, nil
}
