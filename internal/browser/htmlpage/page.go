// Package htmlpage is an in-process browser driver for server-rendered
// pages. It fetches and parses HTML, keeps cookies per page, submits forms,
// and interprets two declarative attributes in place of scripts:
//
//	data-toggle="id1 id2"  clicking flips the hidden attribute on each id
//	data-confirm="text"    clicking raises a confirm dialog first
//
// It does not run JavaScript or compute layout.
package htmlpage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/wondertwin-ai/blogcheck/internal/browser"
)

// Driver opens pages against one base URL.
type Driver struct {
	base    *url.URL
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithTimeout bounds each HTTP exchange, including redirects.
func WithTimeout(d time.Duration) Option {
	return func(dr *Driver) { dr.timeout = d }
}

// WithLogger sets the logger for navigation tracing.
func WithLogger(l *slog.Logger) Option {
	return func(dr *Driver) { dr.logger = l }
}

// New creates a Driver for the application at baseURL.
func New(baseURL string, opts ...Option) (*Driver, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing base url %q", baseURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}
	d := &Driver{
		base:    u,
		timeout: 10 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// NewPage opens a page with an empty cookie jar.
func (d *Driver) NewPage(ctx context.Context) (browser.Page, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating cookie jar")
	}
	return &Page{
		driver: d,
		client: &http.Client{Jar: jar, Timeout: d.timeout},
	}, nil
}

// Close is a no-op; pages hold no shared resources.
func (d *Driver) Close() error { return nil }

// Page is a single browsing context.
type Page struct {
	driver *Driver
	client *http.Client

	mu     sync.Mutex
	url    *url.URL
	doc    *html.Node
	status int
	dialog browser.DialogHandler
}

var _ browser.Page = (*Page)(nil)

// Goto loads path, resolved against the driver's base URL.
func (p *Page) Goto(ctx context.Context, path string) error {
	ref, err := url.Parse(path)
	if err != nil {
		return errors.Wrapf(err, "goto %q", path)
	}
	target := p.driver.base.ResolveReference(ref)

	p.mu.Lock()
	defer p.mu.Unlock()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return errors.Wrapf(err, "goto %s", target)
	}
	return p.load(req)
}

// Reload fetches the current URL again.
func (p *Page) Reload(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.url == nil {
		return errors.New("reload: no page loaded")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url.String(), nil)
	if err != nil {
		return errors.Wrapf(err, "reload %s", p.url)
	}
	return p.load(req)
}

// load performs req, follows redirects, and replaces the document. Error
// statuses still render, as in a browser. Callers hold p.mu.
func (p *Page) load(req *http.Request) error {
	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.Method, req.URL)
	}
	defer resp.Body.Close()

	doc, err := html.Parse(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return errors.Wrapf(err, "parsing %s", resp.Request.URL)
	}
	p.doc = doc
	p.url = resp.Request.URL
	p.status = resp.StatusCode
	p.driver.logger.Debug("page loaded",
		"method", req.Method,
		"url", p.url.String(),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return nil
}

// URL returns the current document's URL, or "" before the first load.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.url == nil {
		return ""
	}
	return p.url.String()
}

// Status returns the HTTP status of the current document.
func (p *Page) Status() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Query observes loc in the current document.
func (p *Page) Query(ctx context.Context, loc browser.Locator) (browser.Observation, error) {
	if err := ctx.Err(); err != nil {
		return browser.Observation{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	obs, _ := observe(p.doc, loc)
	return obs, nil
}

// target resolves loc to the single visible element an action applies to.
// Callers hold p.mu.
func (p *Page) target(loc browser.Locator) (*html.Node, error) {
	if p.doc == nil {
		return nil, errors.New("no page loaded")
	}
	obs, n := observe(p.doc, loc)
	switch {
	case obs.Ambiguous(loc):
		return nil, errors.Errorf("strict mode violation: %s resolved to %d elements", loc, obs.Count)
	case n == nil:
		return nil, errors.Errorf("%s: %s", loc, obs)
	case !obs.Visible:
		return nil, errors.Errorf("%s: element is not visible", loc)
	}
	return n, nil
}

// Fill sets the value of an input or textarea.
func (p *Page) Fill(ctx context.Context, loc browser.Locator, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.target(loc)
	if err != nil {
		return errors.WithMessage(err, "fill")
	}
	switch {
	case isElement(n, "textarea"):
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
	case isElement(n, "input") && fillable(inputType(n)):
		setAttr(n, "value", value)
	default:
		return errors.Errorf("fill: %s is a <%s>, not a text control", loc, n.Data)
	}
	return nil
}

func fillable(typ string) bool {
	switch typ {
	case "submit", "button", "reset", "image", "checkbox", "radio", "file", "hidden":
		return false
	}
	return true
}

// OnceDialog registers h for the next dialog. A later call replaces an
// unused handler.
func (p *Page) OnceDialog(h browser.DialogHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialog = h
}

// Click activates the element loc resolves to.
func (p *Page) Click(ctx context.Context, loc browser.Locator) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.target(loc)
	if err != nil {
		return errors.WithMessage(err, "click")
	}

	if msg, ok := attr(n, "data-confirm"); ok && !p.confirm(msg) {
		return nil
	}

	if ids, ok := attr(n, "data-toggle"); ok {
		for _, id := range strings.Fields(ids) {
			el := byID(p.doc, id)
			if el == nil {
				return errors.Errorf("click %s: data-toggle names missing element #%s", loc, id)
			}
			if _, hidden := attr(el, "hidden"); hidden {
				removeAttr(el, "hidden")
			} else {
				setAttr(el, "hidden", "")
			}
		}
		return nil
	}

	if submitter(n) {
		if form := closest(n, "form"); form != nil {
			req, err := p.formRequest(ctx, form, n)
			if err != nil {
				return errors.WithMessage(err, "click "+loc.String())
			}
			return p.load(req)
		}
		return nil
	}

	if a := closest(n, "a"); a != nil {
		if href, ok := attr(a, "href"); ok {
			ref, err := url.Parse(href)
			if err != nil {
				return errors.Wrapf(err, "click %s: bad href", loc)
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url.ResolveReference(ref).String(), nil)
			if err != nil {
				return errors.Wrapf(err, "click %s", loc)
			}
			return p.load(req)
		}
	}
	return nil
}

// confirm consumes the registered dialog handler. Callers hold p.mu.
func (p *Page) confirm(message string) bool {
	h := p.dialog
	p.dialog = nil
	accepted := h != nil && h(message)
	p.driver.logger.Debug("dialog", "message", message, "accepted", accepted)
	return accepted
}

// submitter reports whether clicking n submits its form.
func submitter(n *html.Node) bool {
	switch n.Data {
	case "button":
		return strings.ToLower(attrOr(n, "type", "submit")) == "submit"
	case "input":
		t := inputType(n)
		return t == "submit" || t == "image"
	}
	return false
}

// formRequest builds the request submitting form via the clicked button.
func (p *Page) formRequest(ctx context.Context, form, button *html.Node) (*http.Request, error) {
	method := strings.ToUpper(attrOr(form, "method", http.MethodGet))
	if v, ok := attr(button, "formmethod"); ok {
		method = strings.ToUpper(v)
	}
	action := attrOr(form, "action", "")
	if v, ok := attr(button, "formaction"); ok {
		action = v
	}
	ref, err := url.Parse(action)
	if err != nil {
		return nil, errors.Wrapf(err, "form action %q", action)
	}
	target := p.url.ResolveReference(ref)

	values := formValues(form, button)
	if method != http.MethodPost {
		target.RawQuery = values.Encode()
		return http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

// formValues collects the successful controls of form in document order.
func formValues(form, button *html.Node) url.Values {
	values := url.Values{}
	for _, n := range elements(form) {
		name, ok := attr(n, "name")
		if !ok || name == "" {
			continue
		}
		if _, disabled := attr(n, "disabled"); disabled {
			continue
		}
		switch n.Data {
		case "input":
			switch inputType(n) {
			case "submit", "button", "reset", "image", "file":
				if n == button {
					values.Add(name, attrOr(n, "value", ""))
				}
			case "checkbox", "radio":
				if _, checked := attr(n, "checked"); checked {
					values.Add(name, attrOr(n, "value", "on"))
				}
			default:
				values.Add(name, attrOr(n, "value", ""))
			}
		case "textarea":
			values.Add(name, valueOf(n))
		case "select":
			if v, ok := selectedOption(n); ok {
				values.Add(name, v)
			}
		case "button":
			if n == button {
				values.Add(name, attrOr(n, "value", ""))
			}
		}
	}
	return values
}

func selectedOption(sel *html.Node) (string, bool) {
	var first *html.Node
	for _, o := range elements(sel) {
		if !isElement(o, "option") {
			continue
		}
		if first == nil {
			first = o
		}
		if _, ok := attr(o, "selected"); ok {
			return optionValue(o), true
		}
	}
	if first == nil {
		return "", false
	}
	return optionValue(first), true
}

func optionValue(o *html.Node) string {
	if v, ok := attr(o, "value"); ok {
		return v
	}
	return textContent(o)
}

// String describes the page for logs.
func (p *Page) String() string {
	return fmt.Sprintf("htmlpage(%s)", p.URL())
}

// Close drops the document and cookies.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc = nil
	p.client.CloseIdleConnections()
	return nil
}
