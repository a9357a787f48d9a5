// Package apiclient talks to the questionnaire JSON API. The session lives in
// the client's cookie jar.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"questionnaire-app/backend/apperr"
	"questionnaire-app/backend/handlers"
	"questionnaire-app/backend/middleware"
	"questionnaire-app/backend/models"
	"questionnaire-app/backend/questionnaire"
	"questionnaire-app/backend/respond"
)

// Error is a failed API call. It unwraps to the apperr sentinel matching the
// envelope code, so callers can use errors.Is.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return apperr.FromCode(e.Code) }

type Client struct {
	base *url.URL
	http *http.Client

	mu     sync.Mutex
	primed bool
}

type Option func(*Client)

// WithHTTPClient uses hc for every call. A cookie jar is added when hc has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	c := &Client{base: base, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

func (c *Client) RequestOTP(ctx context.Context, req handlers.RequestOTPRequest) (*handlers.RequestOTPResponse, error) {
	var out handlers.RequestOTPResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/request-otp", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (*handlers.VerifyOTPResponse, error) {
	var out handlers.VerifyOTPResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/verify-otp", handlers.VerifyOTPRequest{Phone: phone, Code: code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns nil when the client has no session.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out *models.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func (c *Client) GetOrCreate(ctx context.Context) (*models.QuestionnaireResponse, error) {
	var out *models.QuestionnaireResponse
	if err := c.do(ctx, http.MethodGet, "/api/questionnaire", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id string) (*models.QuestionnaireResponse, error) {
	var out *models.QuestionnaireResponse
	if err := c.do(ctx, http.MethodGet, "/api/questionnaire/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, id string, p questionnaire.UpdateParams) (*models.QuestionnaireResponse, error) {
	var out *models.QuestionnaireResponse
	if err := c.do(ctx, http.MethodPatch, "/api/questionnaire/"+url.PathEscape(id), p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListAll(ctx context.Context) ([]models.QuestionnaireResponse, error) {
	var out []models.QuestionnaireResponse
	if err := c.do(ctx, http.MethodGet, "/api/admin/questionnaires", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Summary(ctx context.Context) (*questionnaire.Summary, error) {
	var out questionnaire.Summary
	if err := c.do(ctx, http.MethodGet, "/api/admin/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if method != http.MethodGet {
		if err := c.primeCSRF(ctx); err != nil {
			return err
		}
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.csrfToken(); token != "" {
		req.Header.Set(middleware.CSRFHeaderName, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var env respond.ErrorBody
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil || env.Code == "" {
			env.Code = apperr.Code(statusError(resp.StatusCode))
			env.Message = http.StatusText(resp.StatusCode)
		}
		return &Error{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// primeCSRF fetches the token cookie once so the first mutating call can
// echo it. Servers without CSRF protection simply never set it.
func (c *Client) primeCSRF(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.primed || c.csrfToken() != "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String()+"/api/auth/me", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch csrf token: %w", err)
	}
	resp.Body.Close()
	c.primed = true
	return nil
}

func (c *Client) csrfToken() string {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == middleware.CSRFCookieName {
			return ck.Value
		}
	}
	return ""
}

// statusError maps a bare status to a sentinel for responses without an envelope.
func statusError(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return apperr.ErrUnauthorized
	case http.StatusForbidden:
		return apperr.ErrForbidden
	case http.StatusNotFound:
		return apperr.ErrNotFound
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return apperr.ErrInvalidInput
	case http.StatusTooManyRequests:
		return apperr.ErrRateLimited
	case http.StatusNotImplemented:
		return apperr.ErrNotImplemented
	default:
		return apperr.ErrInternal
	}
}
