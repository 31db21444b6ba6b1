// Package erp is the REST client for the Olmed ERP: the auth flows
// feeding the token store, the relay endpoint webhook handlers forward
// verified payloads to, and the ping used by the health checker.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/olmedhq/erp-gateway/internal/domain"
)

const defaultExpiresIn = 3600 // seconds, when the ERP omits expiresIn

type Client struct {
	http     *http.Client
	baseURL  string
	host     string
	username string
	password string
	logger   *slog.Logger
}

func NewClient(baseURL, username, password string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse erp base url: %w", err)
	}

	return &Client{
		http:     &http.Client{Timeout: timeout},
		baseURL:  baseURL,
		host:     u.Hostname(),
		username: username,
		password: password,
		logger:   logger.With("component", "erp_client"),
	}, nil
}

// Host returns the ERP hostname; the executor injects the shared token
// only into requests targeting it.
func (c *Client) Host() string {
	return c.host
}

type authResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

// Login exchanges the configured credentials for a fresh token.
func (c *Client) Login(ctx context.Context) (domain.TokenInfo, error) {
	creds, _ := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(creds))
	if err != nil {
		return domain.TokenInfo{}, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doAuth(req, "login")
}

// Refresh exchanges a still-valid token for a new one.
func (c *Client) Refresh(ctx context.Context, current string) (domain.TokenInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/refresh", nil)
	if err != nil {
		return domain.TokenInfo{}, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+current)

	return c.doAuth(req, "refresh")
}

// Logout invalidates the session server-side.
func (c *Client) Logout(ctx context.Context, current string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/logout", nil)
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+current)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("logout request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("logout: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) doAuth(req *http.Request, flow string) (domain.TokenInfo, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.TokenInfo{}, fmt.Errorf("%s request: %w", flow, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return domain.TokenInfo{}, fmt.Errorf("%s: unexpected status %d", flow, resp.StatusCode)
	}

	var body authResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.TokenInfo{}, fmt.Errorf("%s: decode response: %w", flow, err)
	}
	if body.Token == "" {
		return domain.TokenInfo{}, fmt.Errorf("%s: response carries no token", flow)
	}
	if body.ExpiresIn <= 0 {
		body.ExpiresIn = defaultExpiresIn
	}

	now := time.Now().UTC()
	return domain.TokenInfo{
		Token:     body.Token,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}

// Forward relays a verified webhook payload to an ERP endpoint and
// returns the upstream status plus response body.
func (c *Client) Forward(ctx context.Context, path string, payload []byte, bearer string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("build forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("forward request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read forward response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// Ping checks ERP reachability for the readiness probe. Any HTTP
// response counts as reachable; only transport failures and 5xx do not.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("ping: erp returned %d", resp.StatusCode)
	}
	return nil
}
