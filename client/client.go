// Package client talks to the DemoHub API on behalf of an admin session.
//
// A Client keeps the access token in a TokenStore and the refresh token in its
// cookie jar. When a request is rejected with 401 the client refreshes the
// access token once and replays the request. Concurrent rejections share a
// single refresh call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/demohub/demohub-backend/models"
)

const (
	DefaultTimeout = 10 * time.Second

	loginPath   = "/api/admin/login"
	logoutPath  = "/api/admin/logout"
	refreshPath = "/api/admin/refresh"
	mePath      = "/api/admin/me"

	maxResponseSize = 10 << 20
)

// Request is one API call. A request is replayed at most once after a
// token refresh.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is sent as JSON when not nil.
	Body any

	retried bool
}

// Pagination mirrors the pagination block of list responses.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Pagination *Pagination     `json:"pagination"`
	Error      *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

// refreshCall is a refresh in flight. Waiters block on done, then read
// token and err.
type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

type Client struct {
	baseURL          *url.URL
	http             *http.Client
	tokens           TokenStore
	onSessionExpired func()
	logger           zerolog.Logger

	mu         sync.Mutex
	token      string
	principal  *models.AdminProfile
	refreshing *refreshCall
	// refreshErr is the outcome of the last completed refresh.
	refreshErr error

	bootstrapping atomic.Bool
	refreshCount  atomic.Int64
}

type Option func(*Client)

func WithTokenStore(store TokenStore) Option {
	return func(c *Client) {
		c.tokens = store
	}
}

// WithHTTPClient replaces the transport client. It should carry a cookie jar
// or refreshes will fail.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// WithOnSessionExpired registers the hook called when the session cannot be
// recovered and the user has to log in again.
func WithOnSessionExpired(fn func()) Option {
	return func(c *Client) {
		c.onSessionExpired = fn
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		tokens:  NewMemoryTokenStore(""),
		logger:  log.With().Str("component", "client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.http = &http.Client{Jar: jar, Timeout: DefaultTimeout}
	}

	token, err := c.tokens.Load()
	if err != nil {
		return nil, fmt.Errorf("load access token: %w", err)
	}
	c.token = token

	return c, nil
}

// Bootstrap restores the session from the stored token. Without a token it
// settles as unauthenticated right away. A token the server rejects is
// cleared, while other failures keep it for the next attempt.
func (c *Client) Bootstrap(ctx context.Context) error {
	c.bootstrapping.Store(true)
	defer c.bootstrapping.Store(false)

	if c.AccessToken() == "" {
		return nil
	}

	if _, err := c.Me(ctx); err != nil {
		if IsUnauthorized(err) {
			c.clearSession()
			return nil
		}
		c.setPrincipal(nil)
		return err
	}
	return nil
}

func (c *Client) Bootstrapping() bool {
	return c.bootstrapping.Load()
}

// Login starts a session. The refresh token arrives as a cookie.
func (c *Client) Login(ctx context.Context, email, password string) (*models.AdminProfile, error) {
	var out struct {
		AccessToken string              `json:"accessToken"`
		Admin       models.AdminProfile `json:"admin"`
	}
	req := &Request{Method: http.MethodPost, Path: loginPath, Body: map[string]string{"email": email, "password": password}}
	if err := c.Do(ctx, req, &out); err != nil {
		return nil, err
	}

	if err := c.storeToken(out.AccessToken); err != nil {
		return nil, err
	}
	c.setPrincipal(&out.Admin)
	return &out.Admin, nil
}

// Logout ends the session locally even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.Do(ctx, &Request{Method: http.MethodPost, Path: logoutPath}, nil)
	c.clearSession()
	return err
}

// Me fetches the current admin and records it as the principal.
func (c *Client) Me(ctx context.Context) (*models.AdminProfile, error) {
	var admin models.AdminProfile
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: mePath}, &admin); err != nil {
		return nil, err
	}
	c.setPrincipal(&admin)
	return &admin, nil
}

func (c *Client) Principal() *models.AdminProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.principal
}

func (c *Client) IsAuthenticated() bool {
	return c.Principal() != nil
}

func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// RefreshCount reports how many refresh calls this client has made.
func (c *Client) RefreshCount() int64 {
	return c.refreshCount.Load()
}

// ListProjects returns one page of published projects.
func (c *Client) ListProjects(ctx context.Context, page, limit int, technology string) ([]models.ProjectView, *Pagination, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if technology != "" {
		q.Set("technology", technology)
	}

	env, err := c.exchange(ctx, &Request{Method: http.MethodGet, Path: "/api/projects", Query: q})
	if err != nil {
		return nil, nil, err
	}
	var projects []models.ProjectView
	if err := json.Unmarshal(env.Data, &projects); err != nil {
		return nil, nil, fmt.Errorf("decode projects: %w", err)
	}
	return projects, env.Pagination, nil
}

// AdminProjects returns every project, drafts included.
func (c *Client) AdminProjects(ctx context.Context) ([]models.ProjectView, error) {
	var projects []models.ProjectView
	err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/api/admin/projects"}, &projects)
	return projects, err
}

// Do sends req and decodes the data of a successful response into out,
// which may be nil.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	env, err := c.exchange(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.Path, err)
	}
	return nil
}

func (c *Client) exchange(ctx context.Context, req *Request) (*envelope, error) {
	token := c.AccessToken()

	env, err := c.send(ctx, req, token)
	if err == nil || req.retried || !IsUnauthorized(err) {
		return env, err
	}

	// A 401 from the session endpoints themselves cannot be fixed by
	// refreshing.
	if req.Path == loginPath || req.Path == refreshPath {
		c.expire()
		return nil, err
	}

	fresh, err := c.refreshAfter(ctx, token)
	if err != nil {
		return nil, err
	}

	replay := *req
	replay.retried = true
	return c.send(ctx, &replay, fresh)
}

// refreshAfter returns an access token newer than stale. It joins a refresh
// already in flight and otherwise starts one, unless the token changed since
// stale was read: then the current token is used, or the session is over.
// After a failed refresh no new one starts until a token is stored again.
func (c *Client) refreshAfter(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	call := c.refreshing
	if call == nil {
		if c.token != stale || c.refreshErr != nil {
			token, err := c.token, c.refreshErr
			c.mu.Unlock()
			if token == "" {
				if err == nil {
					err = ErrSessionExpired
				}
				return "", err
			}
			return token, nil
		}
		call = &refreshCall{done: make(chan struct{})}
		c.refreshing = call
		go c.runRefresh(context.WithoutCancel(ctx), call)
	}
	c.mu.Unlock()

	select {
	case <-call.done:
		return call.token, call.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Client) runRefresh(ctx context.Context, call *refreshCall) {
	c.refreshCount.Add(1)

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	token, err := c.postRefresh(ctx)
	if err == nil {
		err = c.tokens.Save(token)
	}

	c.mu.Lock()
	if err == nil {
		c.token = token
	} else {
		c.token = ""
		c.principal = nil
	}
	c.refreshing = nil
	c.refreshErr = err
	c.mu.Unlock()

	call.token, call.err = token, err
	close(call.done)

	if err != nil {
		c.logger.Warn().Err(err).Msg("token refresh failed, session expired")
		if clearErr := c.tokens.Clear(); clearErr != nil {
			c.logger.Error().Err(clearErr).Msg("failed to clear stored token")
		}
		c.fireExpired()
	}
}

func (c *Client) postRefresh(ctx context.Context) (string, error) {
	env, err := c.send(ctx, &Request{Method: http.MethodPost, Path: refreshPath, retried: true}, "")
	if err != nil {
		return "", err
	}
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	if out.AccessToken == "" {
		return "", ErrNoAccessToken
	}
	return out.AccessToken, nil
}

func (c *Client) send(ctx context.Context, req *Request, token string) (*envelope, error) {
	u := c.baseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", req.Method, req.Path, err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", req.Method, req.Path, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &Error{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if decodeErr == nil && env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return nil, apiErr
	}
	if decodeErr != nil && len(raw) > 0 {
		return nil, fmt.Errorf("decode %s %s: %w", req.Method, req.Path, decodeErr)
	}
	return &env, nil
}

func (c *Client) storeToken(token string) error {
	if token == "" {
		return ErrNoAccessToken
	}
	if err := c.tokens.Save(token); err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	c.mu.Lock()
	c.token = token
	c.refreshErr = nil
	c.mu.Unlock()
	return nil
}

func (c *Client) setPrincipal(p *models.AdminProfile) {
	c.mu.Lock()
	c.principal = p
	c.mu.Unlock()
}

func (c *Client) clearSession() {
	c.mu.Lock()
	c.token = ""
	c.principal = nil
	c.mu.Unlock()
	if err := c.tokens.Clear(); err != nil {
		c.logger.Error().Err(err).Msg("failed to clear stored token")
	}
}

func (c *Client) expire() {
	c.clearSession()
	c.fireExpired()
}

func (c *Client) fireExpired() {
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}
