package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/medika-client/internal/config"
	"github.com/spec-kit/medika-client/pkg/util"
)

// TokenSource supplies the current bearer token, usually the Credentials
// store.
type TokenSource interface {
	Token() string
}

// Client is the REST client for the backend API. Collaborator screens use
// Get/Post; the session core uses Login, Refresh and ChangePassword. A 401
// on any collaborator call invokes the unauthorized hook (forced logout)
// before the error is returned.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenSource
	onUnauthorized func()
	logger         *zap.Logger
}

// NewClient builds a client for the configured backend.
func NewClient(cfg config.APIConfig, tokens TokenSource, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout()},
		tokens:  tokens,
		logger:  logger,
	}
}

// SetUnauthorizedHandler installs the forced-logout hook fired on any 401
// from a collaborator call. Set once at wiring time.
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.onUnauthorized = fn
}

// Login exchanges credentials for a session token via POST /api/login. A
// 401 means bad credentials; there is no session to force out yet.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out TokenResponse
	status, err := c.do(ctx, http.MethodPost, "/api/login", LoginRequest{
		Username: username,
		Password: password,
	}, &out, false)
	if err != nil {
		return "", err
	}
	switch status {
	case http.StatusOK:
		return out.Token, nil
	case http.StatusUnauthorized:
		return "", util.NewBadCredentials()
	default:
		return "", util.NewUnexpectedStatus(status)
	}
}

// Refresh requests a fresh token via GET /api/refresh with the current
// bearer. Failures are returned as-is; the session manager treats any of
// them as fatal to the session.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	var out TokenResponse
	status, err := c.do(ctx, http.MethodGet, "/api/refresh", nil, &out, true)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", util.NewUnexpectedStatus(status)
	}
	return out.Token, nil
}

// ChangePassword rotates the password via POST /api/password-change and
// returns the newly issued token, which the caller replays through the
// session manager's Renew. A 401 means the old password was wrong; the
// session itself stays valid, so no forced logout.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) (string, error) {
	var out TokenResponse
	status, err := c.do(ctx, http.MethodPost, "/api/password-change", PasswordChangeRequest{
		OldPassword: oldPassword,
		NewPassword: newPassword,
	}, &out, true)
	if err != nil {
		return "", err
	}
	switch status {
	case http.StatusOK:
		return out.Token, nil
	case http.StatusUnauthorized:
		return "", util.NewBadCredentials()
	default:
		return "", util.NewUnexpectedStatus(status)
	}
}

// Get performs a bearer-authenticated collaborator call, decoding the JSON
// response into out. A 401 triggers forced logout.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.collaborate(ctx, http.MethodGet, path, nil, out)
}

// Post performs a bearer-authenticated collaborator call with a JSON body.
// A 401 triggers forced logout.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.collaborate(ctx, http.MethodPost, path, body, out)
}

func (c *Client) collaborate(ctx context.Context, method, path string, body, out any) error {
	status, err := c.do(ctx, method, path, body, out, true)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusUnauthorized:
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return util.NewUnauthorized("session rejected by server")
	case status >= http.StatusOK && status < http.StatusMultipleChoices:
		return nil
	default:
		return util.NewUnexpectedStatus(status)
	}
}

// do issues one request and decodes a 2xx JSON body into out. It returns
// the status code so callers apply their own taxonomy; only transport and
// decode failures become errors here.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, util.NewDecodeError(err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, util.NewNetworkError(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.tokens.Token())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return 0, util.NewNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, util.NewDecodeError(err)
		}
	}
	return resp.StatusCode, nil
}
