// Package identity talks to a GoTrue-compatible identity provider over its REST API.
package identity

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

	"github.com/muhammadahmed9211/clinic-saas/internal/models"
	"github.com/muhammadahmed9211/clinic-saas/internal/security"
)

type Config struct {
	URL        string
	AnonKey    string
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	now        func() time.Time
}

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("identity provider url is required")
	}
	if cfg.AnonKey == "" {
		return nil, errors.New("identity provider anon key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		anonKey:    cfg.AnonKey,
		httpClient: httpClient,
		now:        time.Now,
	}, nil
}

// Error is a rejection reported by the provider.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// tokenResponse covers both the token endpoint and signup, which returns a bare
// user when email confirmation is pending.
type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

type errorResponse struct {
	Msg              string `json:"msg"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorCode        string `json:"error_code"`
}

// SignUp creates an account. The returned session is nil when the provider
// requires email confirmation before the first sign-in.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata models.UserMetadata) (*models.User, *models.Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     metadata,
	}

	raw, err := c.do(ctx, http.MethodPost, "/auth/v1/signup", nil, "", body)
	if err != nil {
		return nil, nil, err
	}

	var tok tokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, nil, fmt.Errorf("decode signup response: %w", err)
	}
	if tok.AccessToken == "" {
		var user models.User
		if err := json.Unmarshal(raw, &user); err != nil {
			return nil, nil, fmt.Errorf("decode signup user: %w", err)
		}
		return &user, nil, nil
	}

	session := c.sessionFrom(tok)
	return &session.User, session, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	return c.token(ctx, "password", map[string]any{"email": email, "password": password})
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	return c.token(ctx, "refresh_token", map[string]any{"refresh_token": refreshToken})
}

// SignOut revokes the refresh tokens issued to the session owning accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, accessToken, nil)
	return err
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*models.User, error) {
	raw, err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, accessToken, nil)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

// UserUpdate carries the fields PUT /user accepts. Empty fields are left unchanged.
type UserUpdate struct {
	Email    string               `json:"email,omitempty"`
	Password string               `json:"password,omitempty"`
	Data     *models.UserMetadata `json:"data,omitempty"`
}

func (c *Client) UpdateUser(ctx context.Context, accessToken string, update UserUpdate) (*models.User, error) {
	raw, err := c.do(ctx, http.MethodPut, "/auth/v1/user", nil, accessToken, update)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

// Recover sends a password reset email that links back to redirectTo.
func (c *Client) Recover(ctx context.Context, email, redirectTo string) error {
	var query url.Values
	if redirectTo != "" {
		query = url.Values{"redirect_to": {redirectTo}}
	}
	_, err := c.do(ctx, http.MethodPost, "/auth/v1/recover", query, "", map[string]any{"email": email})
	return err
}

func (c *Client) token(ctx context.Context, grantType string, body map[string]any) (*models.Session, error) {
	raw, err := c.do(ctx, http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {grantType}}, "", body)
	if err != nil {
		return nil, err
	}

	var tok tokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, &Error{Status: http.StatusOK, Message: "provider returned no access token"}
	}
	return c.sessionFrom(tok), nil
}

func (c *Client) sessionFrom(tok tokenResponse) *models.Session {
	session := &models.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if tok.User != nil {
		session.User = *tok.User
	}

	switch {
	case tok.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(tok.ExpiresAt, 0)
	case tok.ExpiresIn > 0:
		session.ExpiresAt = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	default:
		if exp, err := security.TokenExpiry(tok.AccessToken); err == nil {
			session.ExpiresAt = exp
		}
	}
	return session
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, accessToken string, body any) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	bearer := accessToken
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read identity provider response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, decodeError(resp.StatusCode, raw)
	}
	return raw, nil
}

func decodeError(status int, raw []byte) *Error {
	e := &Error{Status: status}

	var payload errorResponse
	if err := json.Unmarshal(raw, &payload); err == nil {
		for _, candidate := range []string{payload.Msg, payload.ErrorDescription, payload.Message, payload.Error} {
			if candidate != "" {
				e.Message = candidate
				break
			}
		}
		e.Code = payload.ErrorCode
		if e.Code == "" && payload.Error != "" && payload.Error != e.Message {
			e.Code = payload.Error
		}
	}

	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
