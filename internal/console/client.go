// Package console is the admin client for the enquiry API. It backs the
// enquiries command line tool.
package console

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"enquirydesk/internal/domain"
	"enquirydesk/internal/services"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx answer from the API
type APIError struct {
	StatusCode int      `json:"-"`
	Message    string   `json:"error"`
	Code       string   `json:"code"`
	Fields     []string `json:"fields,omitempty"`
	RequestID  string   `json:"id,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if len(e.Fields) > 0 {
		msg += " (" + strings.Join(e.Fields, ", ") + ")"
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, msg)
}

// ListOptions selects a page of the admin list
type ListOptions struct {
	Filter domain.Filter
	Skip   int
	Limit  int
}

// Page is one page of the admin list
type Page struct {
	Enquiries []*domain.Enquiry `json:"enquiries"`
	Total     int               `json:"total"`
	Stats     domain.Stats      `json:"stats"`
	Warning   string            `json:"warning,omitempty"`
}

type enquiryEnvelope struct {
	Enquiry *domain.Enquiry `json:"enquiry"`
}

// Client talks to the admin endpoints. Requests are never retried; failures
// are returned to the caller as they happen.
type Client struct {
	http   *resty.Client
	token  string
	logger *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithToken sets the session token sent with every admin request
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithTimeout overrides the per-request timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for the API rooted at baseURL, e.g.
// http://localhost:8000/api/v1
func NewClient(baseURL string, opts ...ClientOption) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(defaultTimeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	c := &Client{http: httpClient, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current session token
func (c *Client) Token() string {
	return c.token
}

// Login exchanges credentials for a session token and keeps it for later calls
func (c *Client) Login(ctx context.Context, username, password string) (*services.LoginResult, error) {
	var result services.LoginResult
	_, err := c.do(ctx, http.MethodPost, "/auth/login", func(r *resty.Request) {
		r.SetBody(map[string]string{"username": username, "password": password}).
			SetResult(&result)
	}, false)
	if err != nil {
		return nil, err
	}
	c.token = result.AccessToken
	return &result, nil
}

// Me returns the admin the session belongs to
func (c *Client) Me(ctx context.Context) (*services.AdminView, error) {
	var view services.AdminView
	if _, err := c.do(ctx, http.MethodGet, "/auth/me", func(r *resty.Request) {
		r.SetResult(&view)
	}, true); err != nil {
		return nil, err
	}
	return &view, nil
}

// List fetches one page of enquiries matching opts
func (c *Client) List(ctx context.Context, opts ListOptions) (*Page, error) {
	var page Page
	_, err := c.do(ctx, http.MethodGet, "/enquiries", func(r *resty.Request) {
		r.SetQueryParams(listParams(opts)).SetResult(&page)
	}, true)
	if err != nil {
		return nil, err
	}
	if page.Warning != "" {
		c.logger.Warn("partial enquiry list", zap.String("warning", page.Warning))
	}
	return &page, nil
}

// Get fetches a single enquiry
func (c *Client) Get(ctx context.Context, id string) (*domain.Enquiry, error) {
	var env enquiryEnvelope
	if _, err := c.do(ctx, http.MethodGet, "/enquiries/{id}", func(r *resty.Request) {
		r.SetPathParam("id", id).SetResult(&env)
	}, true); err != nil {
		return nil, err
	}
	return env.Enquiry, nil
}

// UpdateStatus moves an enquiry to status and returns the stored record
func (c *Client) UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.Enquiry, error) {
	return c.Update(ctx, id, map[string]any{"status": status})
}

// Update sends a partial update
func (c *Client) Update(ctx context.Context, id string, patch map[string]any) (*domain.Enquiry, error) {
	var env enquiryEnvelope
	if _, err := c.do(ctx, http.MethodPatch, "/enquiries/{id}", func(r *resty.Request) {
		r.SetPathParam("id", id).SetBody(patch).SetResult(&env)
	}, true); err != nil {
		return nil, err
	}
	return env.Enquiry, nil
}

// Delete removes an enquiry
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/enquiries/{id}", func(r *resty.Request) {
		r.SetPathParam("id", id)
	}, true)
	return err
}

// Export downloads the spreadsheet of enquiries matching filter into w
func (c *Client) Export(ctx context.Context, filter domain.Filter, w io.Writer) (int64, error) {
	resp, err := c.do(ctx, http.MethodGet, "/enquiries/export", func(r *resty.Request) {
		r.SetQueryParams(listParams(ListOptions{Filter: filter})).
			SetHeader("Accept", "*/*")
	}, true)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(resp.Body())
	return int64(n), err
}

// do runs a request and turns transport failures and error bodies into errors
func (c *Client) do(ctx context.Context, method, path string, build func(*resty.Request), authed bool) (*resty.Response, error) {
	var apiErr APIError
	req := c.http.R().SetContext(ctx).SetError(&apiErr)
	if authed {
		if c.token == "" {
			return nil, &APIError{StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "not logged in"}
		}
		req.SetAuthToken(c.token)
	}
	build(req)

	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Error("enquiry API call failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to call enquiry API: %w", err)
	}
	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		c.logger.Debug("enquiry API returned error",
			zap.Int("status_code", apiErr.StatusCode),
			zap.String("code", apiErr.Code),
			zap.String("request_id", apiErr.RequestID))
		return nil, &apiErr
	}
	return resp, nil
}

func listParams(opts ListOptions) map[string]string {
	params := map[string]string{}
	if s := strings.TrimSpace(opts.Filter.Search); s != "" {
		params["search"] = s
	}
	if s := opts.Filter.Status; s != "" && s != domain.FilterAll {
		params["status"] = s
	}
	if t := opts.Filter.Type; t != "" && t != domain.FilterAll {
		params["type"] = t
	}
	if opts.Skip > 0 {
		params["skip"] = strconv.Itoa(opts.Skip)
	}
	if opts.Limit > 0 {
		params["limit"] = strconv.Itoa(opts.Limit)
	}
	return params
}
