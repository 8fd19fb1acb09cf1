// Package client provides an HTTP client for the blog application's API:
// the testing reset hook, user seeding, login, and blog creation.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/wondertwin-ai/blogcheck/internal/failure"
)

// Default API paths exposed by the blog application.
const (
	PathReset  = "/api/testing/reset"
	PathUsers  = "/api/users"
	PathLogin  = "/api/login"
	PathBlogs  = "/api/blogs"
	PathHealth = "/admin/health"
)

// User is a user seeded through the API.
type User struct {
	Name     string `json:"name" yaml:"name"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// Blog is a blog post as sent to and returned from the API.
type Blog struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Title  string `json:"title" yaml:"title"`
	Author string `json:"author" yaml:"author"`
	URL    string `json:"url" yaml:"url"`
	Likes  int    `json:"likes" yaml:"likes"`
}

// Session is the result of a successful login.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Client talks to a single blog application instance.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the application at baseURL with a 10-second timeout.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, errors.Wrapf(err, "parsing base url %q", baseURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the application root without a trailing slash.
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.base.String(), "/")
}

// Endpoint resolves an API path against the base URL. Relative ("api/blogs")
// and absolute ("/api/blogs") spellings name the same resource.
func (c *Client) Endpoint(path string) string {
	ref := &url.URL{Path: "/" + strings.TrimLeft(path, "/")}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		ref.Path = "/" + strings.TrimLeft(path[:i], "/")
		ref.RawQuery = path[i+1:]
	}
	// Keep any path prefix the base URL carries (e.g. http://host/app/).
	ref.Path = strings.TrimRight(c.base.Path, "/") + ref.Path
	return c.base.ResolveReference(ref).String()
}

// Reset issues the testing reset signal, emptying users and blogs.
func (c *Client) Reset(ctx context.Context) error {
	_, err := c.do(ctx, "reset", http.MethodPost, PathReset, "", nil)
	return err
}

// CreateUser seeds a user. Duplicate usernames are reported as environment
// errors carrying the collaborator's status; nothing is deduplicated here.
func (c *Client) CreateUser(ctx context.Context, u User) error {
	_, err := c.do(ctx, "seed user "+u.Username, http.MethodPost, PathUsers, "", u)
	return err
}

// Login authenticates and returns the session token.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	body, err := c.LoginRaw(ctx, username, password)
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, &failure.EnvironmentError{Op: "login", Endpoint: c.Endpoint(PathLogin), Err: errors.Wrap(err, "decoding login response")}
	}
	if s.Token == "" {
		return nil, &failure.EnvironmentError{Op: "login", Endpoint: c.Endpoint(PathLogin), Err: errors.New("login response has no token")}
	}
	return &s, nil
}

// LoginRaw performs a login and returns the raw JSON response body, for
// callers that capture fields out of it. A credential mismatch is an
// AuthenticationError.
func (c *Client) LoginRaw(ctx context.Context, username, password string) ([]byte, error) {
	body, err := c.do(ctx, "login", http.MethodPost, PathLogin, "", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		var env *failure.EnvironmentError
		if errors.As(err, &env) && (env.Status == http.StatusUnauthorized || env.Status == http.StatusForbidden) {
			return nil, &failure.AuthenticationError{Username: username, Status: env.Status}
		}
		return nil, err
	}
	return body, nil
}

// CreateBlog creates a blog post owned by the holder of token.
func (c *Client) CreateBlog(ctx context.Context, token string, b Blog) (*Blog, error) {
	body, err := c.do(ctx, "seed blog "+b.Title, http.MethodPost, PathBlogs, token, b)
	if err != nil {
		return nil, err
	}
	var created Blog
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, &failure.EnvironmentError{Op: "seed blog", Endpoint: c.Endpoint(PathBlogs), Err: errors.Wrap(err, "decoding blog")}
	}
	return &created, nil
}

// ListBlogs returns all blog posts as the API orders them.
func (c *Client) ListBlogs(ctx context.Context) ([]Blog, error) {
	body, err := c.do(ctx, "list blogs", http.MethodGet, PathBlogs, "", nil)
	if err != nil {
		return nil, err
	}
	var blogs []Blog
	if err := json.Unmarshal(body, &blogs); err != nil {
		return nil, &failure.EnvironmentError{Op: "list blogs", Endpoint: c.Endpoint(PathBlogs), Err: errors.Wrap(err, "decoding blogs")}
	}
	return blogs, nil
}

// Health checks the application. Returns (ok, response body or error message).
// Applications without the twin's admin health endpoint are checked through the
// blog list instead.
func (c *Client) Health(ctx context.Context) (bool, string) {
	body, err := c.do(ctx, "health", http.MethodGet, PathHealth, "", nil)
	var env *failure.EnvironmentError
	if errors.As(err, &env) && env.Status == http.StatusNotFound {
		if _, err := c.do(ctx, "health", http.MethodGet, PathBlogs, "", nil); err != nil {
			return false, err.Error()
		}
		return true, "ok (" + PathBlogs + " answered)"
	}
	if err != nil {
		return false, err.Error()
	}
	return true, strings.TrimSpace(string(body))
}

// do performs a JSON request and returns the body of a 2xx response. Every
// other outcome is an EnvironmentError.
func (c *Client) do(ctx context.Context, op, method, path, token string, payload any) ([]byte, error) {
	endpoint := c.Endpoint(path)

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &failure.EnvironmentError{Op: op, Endpoint: endpoint, Err: errors.Wrap(err, "encoding body")}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, &failure.EnvironmentError{Op: op, Endpoint: endpoint, Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &failure.EnvironmentError{Op: op, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &failure.EnvironmentError{Op: op, Endpoint: endpoint, Status: resp.StatusCode, Err: errors.Wrap(err, "reading body")}
	}
	c.logger.Debug("api request",
		"op", op,
		"method", method,
		"url", endpoint,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var cause error
		if msg := strings.TrimSpace(string(body)); msg != "" {
			cause = errors.New(msg)
		}
		return nil, &failure.EnvironmentError{Op: op, Endpoint: endpoint, Status: resp.StatusCode, Err: cause}
	}
	return body, nil
}
