package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/twitch"
)

// ErrUserNotFound is returned when Helix has no user matching the lookup.
var ErrUserNotFound = errors.New("twitch user not found")

// Endpoints are the Twitch URLs the client talks to.
type Endpoints struct {
	AuthURL     string
	TokenURL    string
	ValidateURL string
	HelixURL    string
}

// DefaultEndpoints point at production Twitch.
var DefaultEndpoints = Endpoints{
	AuthURL:     twitch.Endpoint.AuthURL,
	TokenURL:    twitch.Endpoint.TokenURL,
	ValidateURL: "https://id.twitch.tv/oauth2/validate",
	HelixURL:    "https://api.twitch.tv/helix",
}

// Grant is the result of an authorization-code exchange.
type Grant struct {
	AccessToken  string
	RefreshToken string
	Scopes       []string
	Expiry       time.Time
}

// Validation is the identity behind an access token.
type Validation struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	UserID    string   `json:"user_id"`
	Scopes    []string `json:"scopes"`
	ExpiresIn int      `json:"expires_in"`
}

// User is a Helix user profile.
type User struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
}

// Option configures a Client.
type Option func(*clientConfig)

// clientConfig holds configuration for NewClient.
type clientConfig struct {
	endpoints     Endpoints
	baseTransport http.RoundTripper
	timeout       time.Duration
}

// WithEndpoints overrides the Twitch URLs, e.g. for tests or a mock server.
func WithEndpoints(e Endpoints) Option {
	return func(c *clientConfig) {
		c.endpoints = e
	}
}

// WithTransport sets a custom base transport for outgoing requests.
// If not provided, http.DefaultTransport is used.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *clientConfig) {
		c.baseTransport = transport
	}
}

// WithTimeout bounds every request made by the client.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// Client talks to Twitch on behalf of one role.
type Client struct {
	clientID   string
	endpoints  Endpoints
	httpClient *http.Client

	accessToken atomic.Pointer[string]
}

// NewClient creates a Client for the registered application clientID.
func NewClient(clientID string, opts ...Option) (*Client, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client id cannot be empty")
	}

	cfg := &clientConfig{
		endpoints:     DefaultEndpoints,
		baseTransport: http.DefaultTransport,
		timeout:       30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		clientID:  clientID,
		endpoints: cfg.endpoints,
		httpClient: &http.Client{
			Timeout:   cfg.timeout,
			Transport: cfg.baseTransport,
		},
	}, nil
}

// SetAccessToken replaces the live bearer token. An empty token signs out.
func (c *Client) SetAccessToken(token string) {
	c.accessToken.Store(&token)
}

// AccessToken returns the live bearer token, or "" when signed out.
func (c *Client) AccessToken() string {
	if p := c.accessToken.Load(); p != nil {
		return *p
	}
	return ""
}

func (c *Client) oauthConfig(clientSecret, redirectURI string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.endpoints.AuthURL,
			TokenURL:  c.endpoints.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthCodeURL builds the provider URL the user is sent to for authorization.
// scope is space-separated.
func (c *Client) AuthCodeURL(state, redirectURI, scope string) string {
	return c.oauthConfig("", redirectURI, strings.Fields(scope)).AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code, clientSecret, redirectURI string) (*Grant, error) {
	if code == "" {
		return nil, fmt.Errorf("authorization code cannot be empty")
	}

	// oauth2 picks up a custom HTTP client via context
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.oauthConfig(clientSecret, redirectURI, nil).Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	return &Grant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Scopes:       scopesFromExtra(tok.Extra("scope")),
		Expiry:       tok.Expiry,
	}, nil
}

// scopesFromExtra reads the granted scopes. Twitch sends a JSON array;
// standard providers send a space-separated string.
func scopesFromExtra(v any) []string {
	switch s := v.(type) {
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok && str != "" {
				out = append(out, str)
			}
		}
		return out
	case []string:
		return s
	case string:
		return strings.Fields(s)
	default:
		return nil
	}
}

// ValidateToken resolves the identity behind accessToken.
func (c *Client) ValidateToken(ctx context.Context, accessToken string) (*Validation, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token cannot be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.ValidateURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+accessToken)

	var v Validation
	if err := c.do(req, &v); err != nil {
		return nil, fmt.Errorf("validating token: %w", err)
	}
	return &v, nil
}

// GetUser looks up a user by id using accessToken.
// Returns ErrUserNotFound if Helix has no user with that id.
func (c *Client) GetUser(ctx context.Context, accessToken, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id cannot be empty")
	}

	users, err := c.users(ctx, accessToken, url.Values{"id": {userID}})
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == userID {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

// Me returns the profile of the user behind the live bearer token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	token := c.AccessToken()
	if token == "" {
		return nil, fmt.Errorf("not signed in")
	}

	users, err := c.users(ctx, token, nil)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	return &users[0], nil
}

func (c *Client) users(ctx context.Context, accessToken string, query url.Values) ([]User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(c.endpoints.HelixURL, "/")+"/users", nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = query.Encode()
	req.Header.Set("Client-Id", c.clientID)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var body struct {
		Data []User `json:"data"`
	}
	if err := c.do(req, &body); err != nil {
		return nil, fmt.Errorf("looking up users: %w", err)
	}
	return body.Data, nil
}

// do sends req and decodes a 200 JSON response into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("twitch responded %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
