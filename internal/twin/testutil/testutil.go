// Package testutil holds HTTP helpers for testing the twin's handlers.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// TwinClient issues JSON requests against a test server and fails the test
// on transport errors.
type TwinClient struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
}

// NewTwinClient creates a client for srv. Redirects are not followed so
// tests can assert on them.
func NewTwinClient(t *testing.T, srv *httptest.Server) *TwinClient {
	t.Helper()
	c := srv.Client()
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return &TwinClient{t: t, srv: srv, client: c}
}

// Response is a fully-read HTTP response.
type Response struct {
	t          *testing.T
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Get issues a GET request.
func (c *TwinClient) Get(path string) *Response {
	return c.DoWithHeaders(http.MethodGet, path, nil, nil)
}

// Post issues a POST with a JSON body.
func (c *TwinClient) Post(path string, body any) *Response {
	return c.DoWithHeaders(http.MethodPost, path, body, nil)
}

// DoWithHeaders issues a request with a JSON body (when non-nil) and extra
// headers.
func (c *TwinClient) DoWithHeaders(method, path string, body any, headers map[string]string) *Response {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, r)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(req)
}

// PostForm submits a urlencoded form, optionally with cookies.
func (c *TwinClient) PostForm(path string, form url.Values, cookies ...*http.Cookie) *Response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.srv.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	return c.do(req)
}

// GetWithCookies issues a GET carrying cookies.
func (c *TwinClient) GetWithCookies(path string, cookies ...*http.Cookie) *Response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.srv.URL+path, nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	return c.do(req)
}

func (c *TwinClient) do(req *http.Request) *Response {
	c.t.Helper()
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("read body: %v", err)
	}
	return &Response{t: c.t, StatusCode: resp.StatusCode, Header: resp.Header, Body: data}
}

// AssertStatus fails the test unless the status matches.
func (r *Response) AssertStatus(want int) *Response {
	r.t.Helper()
	if r.StatusCode != want {
		r.t.Fatalf("expected status %d, got %d: %s", want, r.StatusCode, r.Body)
	}
	return r
}

// AssertBodyContains fails the test unless the body contains substr.
func (r *Response) AssertBodyContains(substr string) *Response {
	r.t.Helper()
	if !strings.Contains(string(r.Body), substr) {
		r.t.Errorf("expected body to contain %q, got: %s", substr, r.Body)
	}
	return r
}

// AssertBodyNotContains fails the test if the body contains substr.
func (r *Response) AssertBodyNotContains(substr string) *Response {
	r.t.Helper()
	if strings.Contains(string(r.Body), substr) {
		r.t.Errorf("expected body not to contain %q", substr)
	}
	return r
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) {
	r.t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		r.t.Fatalf("decode %s: %v", r.Body, err)
	}
}

// Cookie returns the named cookie set by the response, or nil.
func (r *Response) Cookie(name string) *http.Cookie {
	for _, c := range (&http.Response{Header: r.Header}).Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
