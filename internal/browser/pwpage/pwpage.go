// Package pwpage drives a real browser through Playwright. Each page runs in
// its own browser context, so cookies and storage never leak between
// scenarios.
package pwpage

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/playwright-community/playwright-go"

	"github.com/wondertwin-ai/blogcheck/internal/browser"
)

// Options configures the browser launch.
type Options struct {
	BaseURL  string
	Browser  string // chromium, firefox or webkit
	Headless bool
	// Install downloads the browser binaries before launch.
	Install bool
}

// Driver owns a Playwright process and one launched browser.
type Driver struct {
	opts    Options
	pw      *playwright.Playwright
	browser playwright.Browser
}

// Launch starts Playwright and the requested browser.
func Launch(opts Options) (*Driver, error) {
	if opts.Browser == "" {
		opts.Browser = "chromium"
	}
	if opts.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{opts.Browser}}); err != nil {
			return nil, errors.Wrap(err, "installing playwright browsers")
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, errors.Wrap(err, "starting playwright")
	}

	var bt playwright.BrowserType
	switch strings.ToLower(opts.Browser) {
	case "chromium", "chrome":
		bt = pw.Chromium
	case "firefox":
		bt = pw.Firefox
	case "webkit":
		bt = pw.WebKit
	default:
		pw.Stop()
		return nil, errors.Errorf("unknown browser %q (expected chromium, firefox or webkit)", opts.Browser)
	}

	b, err := bt.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, errors.Wrapf(err, "launching %s", opts.Browser)
	}
	return &Driver{opts: opts, pw: pw, browser: b}, nil
}

// NewPage opens a page in a fresh browser context.
func (d *Driver) NewPage(ctx context.Context) (browser.Page, error) {
	bctx, err := d.browser.NewContext(playwright.BrowserNewContextOptions{
		BaseURL: playwright.String(d.opts.BaseURL),
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating browser context")
	}
	pg, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, errors.Wrap(err, "opening page")
	}

	p := &Page{ctx: bctx, page: pg}
	// A single permanent listener hands each dialog to the pending one-shot
	// handler; Playwright would otherwise auto-dismiss it.
	pg.OnDialog(p.handleDialog)
	return p, nil
}

// Close shuts the browser and the Playwright process down.
func (d *Driver) Close() error {
	var errs []string
	if err := d.browser.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := d.pw.Stop(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return errors.Errorf("closing playwright: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Page adapts a Playwright page to browser.Page.
type Page struct {
	ctx  playwright.BrowserContext
	page playwright.Page

	mu     sync.Mutex
	dialog browser.DialogHandler
}

var _ browser.Page = (*Page)(nil)

func (p *Page) handleDialog(d playwright.Dialog) {
	p.mu.Lock()
	h := p.dialog
	p.dialog = nil
	p.mu.Unlock()

	if h != nil && h(d.Message()) {
		d.Accept()
		return
	}
	d.Dismiss()
}

// OnceDialog registers h for the next dialog.
func (p *Page) OnceDialog(h browser.DialogHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialog = h
}

// Goto navigates relative to the context's base URL.
func (p *Page) Goto(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.page.Goto(path); err != nil {
		return errors.Wrapf(err, "goto %s", path)
	}
	return nil
}

// Reload reloads the current page.
func (p *Page) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.page.Reload(); err != nil {
		return errors.Wrap(err, "reload")
	}
	return nil
}

// locator maps loc onto Playwright's locator API.
func (p *Page) locator(loc browser.Locator) (playwright.Locator, error) {
	var l playwright.Locator
	switch loc.Strategy() {
	case browser.StrategyTestID:
		l = p.page.GetByTestId(loc.TestID)
	case browser.StrategyRole:
		opts := playwright.PageGetByRoleOptions{}
		if loc.Name != "" {
			opts.Name = loc.Name
			opts.Exact = playwright.Bool(loc.Exact)
		}
		l = p.page.GetByRole(playwright.AriaRole(strings.ToLower(loc.Role)), opts)
	case browser.StrategyPlaceholder:
		l = p.page.GetByPlaceholder(loc.Placeholder, playwright.PageGetByPlaceholderOptions{
			Exact: playwright.Bool(loc.Exact),
		})
	case browser.StrategyText:
		l = p.page.GetByText(loc.Text, playwright.PageGetByTextOptions{
			Exact: playwright.Bool(loc.Exact),
		})
	default:
		return nil, errors.Errorf("cannot resolve %s", loc)
	}
	if k, ok := loc.Index(); ok {
		l = l.Nth(k)
	}
	return l, nil
}

// Query counts matches and inspects the target without waiting.
func (p *Page) Query(ctx context.Context, loc browser.Locator) (browser.Observation, error) {
	if err := ctx.Err(); err != nil {
		return browser.Observation{}, err
	}
	l, err := p.locator(loc)
	if err != nil {
		return browser.Observation{}, err
	}

	// count without the ordinal, as the other drivers do
	all := loc
	all.Ordinal = nil
	base, err := p.locator(all)
	if err != nil {
		return browser.Observation{}, err
	}
	n, err := base.Count()
	if err != nil {
		return browser.Observation{}, errors.Wrapf(err, "counting %s", loc)
	}
	obs := browser.Observation{Count: n}

	idx, _ := loc.Index()
	if idx >= n {
		return obs, nil
	}
	target := l
	if _, ok := loc.Index(); !ok {
		target = l.First()
	}
	obs.Attached = true
	if obs.Visible, err = target.IsVisible(); err != nil {
		return obs, errors.Wrapf(err, "inspecting %s", loc)
	}
	if obs.Text, err = target.TextContent(); err != nil {
		return obs, errors.Wrapf(err, "reading %s", loc)
	}
	obs.Text = browser.NormalizeSpace(obs.Text)
	return obs, nil
}

// Fill types value into the target, replacing its contents.
func (p *Page) Fill(ctx context.Context, loc browser.Locator, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l, err := p.locator(loc)
	if err != nil {
		return err
	}
	if err := l.Fill(value); err != nil {
		return errors.Wrapf(err, "fill %s", loc)
	}
	return nil
}

// Click clicks the target.
func (p *Page) Click(ctx context.Context, loc browser.Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l, err := p.locator(loc)
	if err != nil {
		return err
	}
	if err := l.Click(); err != nil {
		return errors.Wrapf(err, "click %s", loc)
	}
	return nil
}

// Close closes the page's browser context.
func (p *Page) Close() error {
	return p.ctx.Close()
}
