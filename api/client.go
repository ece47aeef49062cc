// Package api wraps every outbound call to the marketplace backend with
// bearer-token authentication and a single-flight refresh-on-401 protocol:
// however many requests fail with an expired token at once, exactly one
// refresh round-trip is made and every failed request is replayed once with
// the new token.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"gomeals.io/market/models"
	"gomeals.io/market/store"
)

const (
	// CredentialsKey is the fixed store key for the persisted token pair.
	CredentialsKey = "market:credentials"

	// IdentityKey is the fixed store key for the persisted user identity.
	// The client deletes it together with the credentials when a session
	// ends; the auth service owns its contents.
	IdentityKey = "market:user"

	refreshPath = "/auth/refresh-token"
)

var (
	// ErrSessionExpired signals an unrecoverable authentication failure: the
	// refresh failed, or a request was rejected again right after a
	// successful refresh. The session has been cleared.
	ErrSessionExpired = errors.New("api: session expired")

	// ErrNoRefreshToken means a refresh was needed but no refresh token is
	// stored; the backend is not called in that case.
	ErrNoRefreshToken = errors.New("api: no refresh token available")
)

// LogoutFunc is the navigation capability invoked when the session becomes
// unrecoverable, moving the user to an unauthenticated entry point.
type LogoutFunc func()

// errorPayload is the backend's machine-readable failure body.
type errorPayload struct {
	Message string `json:"message"`
}

type Client struct {
	baseURL string
	http    *http.Client
	store   store.Store
	refresh singleflight.Group
	logout  LogoutFunc
	timeout time.Duration
	logger  *zap.Logger
}

func NewClient(baseURL string, kv store.Store, logout LogoutFunc, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		store:   kv,
		logout:  logout,
		timeout: timeout,
		logger:  logger,
	}
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out, "GET request failed")
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, "application/json", raw, out, "POST request failed")
}

func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, "application/x-www-form-urlencoded",
		[]byte(form.Encode()), out, "POST request failed")
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, "", nil, nil, "DELETE request failed")
}

// TokenPair reads the persisted credential pair. The pair is read from the
// store on every request, never cached in memory, so a concurrently refreshed
// token is always picked up.
func (c *Client) TokenPair(ctx context.Context) (*models.TokenPair, error) {
	raw, err := c.store.Get(ctx, CredentialsKey)
	if err != nil {
		return nil, err
	}
	pair := new(models.TokenPair)
	if err = json.Unmarshal(raw, pair); err != nil {
		// Corrupt credentials are treated as absence.
		c.logger.Warn("Corrupt stored credentials, treating as logged out", zap.Error(err))
		return nil, store.ErrNotFound
	}
	return pair, nil
}

// SaveTokenPair persists a credential pair wholesale.
func (c *Client) SaveTokenPair(ctx context.Context, pair *models.TokenPair) error {
	raw, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err = c.store.Set(ctx, CredentialsKey, raw); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}
	return nil
}

// ClearSession deletes all locally held credential and identity state and
// signals the logout capability.
func (c *Client) ClearSession(ctx context.Context) {
	if err := c.store.Delete(ctx, CredentialsKey); err != nil {
		c.logger.Warn("Failed to delete stored credentials", zap.Error(err))
	}
	if err := c.store.Delete(ctx, IdentityKey); err != nil {
		c.logger.Warn("Failed to delete stored identity", zap.Error(err))
	}
	if c.logout != nil {
		c.logout()
	}
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, out any, fallback string) error {
	status, respBody, err := c.send(ctx, method, path, contentType, body, c.accessToken(ctx))
	if err != nil {
		return fmt.Errorf("%s: %w", fallback, err)
	}

	if status == http.StatusUnauthorized {
		// At most one retry per request: refresh, then replay once.
		token, err := c.refreshToken(ctx)
		if err != nil {
			return err
		}

		status, respBody, err = c.send(ctx, method, path, contentType, body, token)
		if err != nil {
			return fmt.Errorf("%s: %w", fallback, err)
		}
		if status == http.StatusUnauthorized {
			// A second rejection right after a successful refresh is a hard
			// authentication failure, not cause for another refresh.
			c.logger.Warn("Request rejected again after refresh, ending session",
				zap.String("method", method), zap.String("path", path))
			c.ClearSession(ctx)
			return ErrSessionExpired
		}
	}

	if status < 200 || status > 299 {
		return errors.New(backendMessage(respBody, fallback))
	}

	if out != nil && len(respBody) > 0 {
		if err = json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%s: failed to decode response: %w", fallback, err)
		}
	}

	return nil
}

// send issues one HTTP round-trip and returns the status and drained body.
func (c *Client) send(ctx context.Context, method, path, contentType string, body []byte, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, respBody, nil
}

// accessToken returns the currently stored access token, or "" when logged out.
func (c *Client) accessToken(ctx context.Context) string {
	pair, err := c.TokenPair(ctx)
	if err != nil {
		return ""
	}
	return pair.AccessToken()
}

// refreshToken obtains a fresh access token, collapsing concurrent callers
// into a single backend round-trip. Any failure clears the session exactly
// once per refresh flight and is reported to every waiting caller.
func (c *Client) refreshToken(ctx context.Context) (string, error) {
	v, err, _ := c.refresh.Do("refresh", func() (any, error) {
		token, err := c.performRefresh()
		if err != nil {
			c.logger.Warn("Token refresh failed, ending session", zap.Error(err))
			c.ClearSession(ctx)
			return nil, err
		}
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// performRefresh calls the backend's refresh endpoint with the stored refresh
// token and persists the full returned pair. It runs detached from any single
// caller's context so one cancelled request cannot fail the shared flight,
// and under its own deadline so a hung refresh fails every waiter instead of
// leaving them pending forever.
func (c *Client) performRefresh() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	pair, err := c.TokenPair(ctx)
	if err != nil || pair.RefreshToken() == "" {
		return "", ErrNoRefreshToken
	}

	body, err := json.Marshal(map[string]string{"refresh_token": pair.RefreshToken()})
	if err != nil {
		return "", fmt.Errorf("failed to encode refresh request: %w", err)
	}

	status, respBody, err := c.send(ctx, http.MethodPost, refreshPath, "application/json", body, "")
	if err != nil {
		return "", fmt.Errorf("refresh request failed: %w", err)
	}
	if status < 200 || status > 299 {
		return "", fmt.Errorf("refresh rejected: %s", backendMessage(respBody, "refresh request failed"))
	}

	newPair := new(models.TokenPair)
	if err = json.Unmarshal(respBody, newPair); err != nil {
		return "", fmt.Errorf("failed to decode refresh response: %w", err)
	}

	if err = c.SaveTokenPair(ctx, newPair); err != nil {
		return "", err
	}

	c.logger.Info("Access token refreshed")

	return newPair.AccessToken(), nil
}

// backendMessage extracts the backend's human-readable message from a failure
// body, falling back to the per-operation generic message.
func backendMessage(body []byte, fallback string) string {
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return fallback
}
