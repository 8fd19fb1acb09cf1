package htmlpage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/wondertwin-ai/blogcheck/internal/browser"
	"github.com/wondertwin-ai/blogcheck/internal/twin/bloglist"
	"github.com/wondertwin-ai/blogcheck/internal/twin/twincore"
)

const fixture = `<!DOCTYPE html>
<html>
<head><title>fixture</title><script>var hidden = "log in to application";</script></head>
<body>
<h2>log in to application</h2>
<div>
  <span id="greeting">Matti Luukkainen logged in</span>
  <button type="button">logout</button>
</div>
<input type="hidden" name="csrf" value="x" data-testid="csrf">
<div id="closed"><button type="button" data-toggle="closed open">create new blog</button></div>
<div id="open" hidden>
  <form method="post" action="/submit">
    <input name="title" placeholder="Type title here">
    <textarea name="notes" placeholder="Notes"></textarea>
    <button type="submit" name="op" value="save">create</button>
  </form>
  <button type="button" data-toggle="closed open">cancel</button>
</div>
<ul>
  <li><span>first</span><button type="button">view</button></li>
  <li><span>second</span><button type="button">view</button></li>
  <li style="display: none"><span>third</span><button type="button">view</button></li>
</ul>
<form method="post" action="/delete"><button data-confirm="Remove it?">remove</button></form>
</body>
</html>`

type fixtureServer struct {
	mu        sync.Mutex
	submitted url.Values
	deletes   int
}

func (f *fixtureServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.URL.Path {
	case "/submit":
		r.ParseForm()
		f.submitted = r.PostForm
		http.Redirect(w, r, "/done", http.StatusSeeOther)
	case "/delete":
		f.deletes++
		http.Redirect(w, r, "/done", http.StatusSeeOther)
	case "/done":
		io.WriteString(w, `<html><body><p>saved</p></body></html>`)
	default:
		io.WriteString(w, fixture)
	}
}

func (f *fixtureServer) state() (url.Values, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted, f.deletes
}

func openFixture(t *testing.T) (*Page, *fixtureServer) {
	t.Helper()
	fs := &fixtureServer{}
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)

	d, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, err := d.NewPage(context.Background())
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if err := p.Goto(context.Background(), "/"); err != nil {
		t.Fatalf("Goto: %v", err)
	}
	return p.(*Page), fs
}

func query(t *testing.T, p *Page, loc browser.Locator) browser.Observation {
	t.Helper()
	obs, err := p.Query(context.Background(), loc)
	if err != nil {
		t.Fatalf("Query %s: %v", loc, err)
	}
	return obs
}

func TestTextQueryPicksInnermostVisibleElement(t *testing.T) {
	p, _ := openFixture(t)

	obs := query(t, p, browser.ByText("log in to application"))
	if obs.Count != 1 || !obs.Visible {
		t.Errorf("script text must not match: %+v", obs)
	}
	obs = query(t, p, browser.ByText("matti luukkainen logged in"))
	if obs.Count != 1 || obs.Text != "Matti Luukkainen logged in" {
		t.Errorf("expected the span only, got %+v", obs)
	}
}

func TestVisibilityRules(t *testing.T) {
	p, _ := openFixture(t)

	if obs := query(t, p, browser.ByTestID("csrf")); obs.Count != 1 || obs.Visible {
		t.Errorf("hidden input should be attached but not visible: %+v", obs)
	}
	if obs := query(t, p, browser.ByPlaceholder("Type title here")); obs.Visible {
		t.Errorf("input inside [hidden] should not be visible: %+v", obs)
	}
	if obs := query(t, p, browser.ByText("third")); obs.Count != 1 || obs.Visible {
		t.Errorf("display:none should hide: %+v", obs)
	}
}

func TestRoleQueryExcludesHidden(t *testing.T) {
	p, _ := openFixture(t)

	obs := query(t, p, browser.ByRole("button", "view"))
	if obs.Count != 2 {
		t.Errorf("expected the two visible view buttons, got %d", obs.Count)
	}
	if !obs.Ambiguous(browser.ByRole("button", "view")) {
		t.Error("expected strict-mode ambiguity without an ordinal")
	}
	if obs := query(t, p, browser.ByRole("button", "view").Nth(1)); !obs.Attached || !obs.Visible {
		t.Errorf("nth(1) should resolve: %+v", obs)
	}
	if obs := query(t, p, browser.ByRole("button", "view").Nth(2)); obs.Attached {
		t.Errorf("nth(2) is hidden and must not resolve: %+v", obs)
	}
	// "create" is a substring of "create new blog"; the form button is hidden
	if obs := query(t, p, browser.ByRole("button", "create")); obs.Count != 1 || obs.Text != "create new blog" {
		t.Errorf("unexpected create match %+v", obs)
	}
	if obs := query(t, p, browser.ByRole("button", "create").WithExact(true)); obs.Count != 0 {
		t.Errorf("exact match should find only the hidden button: %+v", obs)
	}
}

func TestClickRejectsAmbiguousLocator(t *testing.T) {
	p, _ := openFixture(t)
	err := p.Click(context.Background(), browser.ByRole("button", "view"))
	if err == nil || !strings.Contains(err.Error(), "strict mode violation") {
		t.Fatalf("expected strict mode violation, got %v", err)
	}
}

func TestToggleFillAndSubmit(t *testing.T) {
	p, fs := openFixture(t)
	ctx := context.Background()

	if err := p.Fill(ctx, browser.ByPlaceholder("Type title here"), "x"); err == nil {
		t.Fatal("filling a hidden input should fail")
	}
	if err := p.Click(ctx, browser.ByRole("button", "create new blog")); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if obs := query(t, p, browser.ByText("create new blog")); obs.Visible {
		t.Error("toggle should hide the opener")
	}
	if err := p.Fill(ctx, browser.ByPlaceholder("Type title here"), "New Blog"); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if err := p.Fill(ctx, browser.ByPlaceholder("Notes"), "multi\nline"); err != nil {
		t.Fatalf("fill textarea: %v", err)
	}
	if err := p.Click(ctx, browser.ByRole("button", "create")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	submitted, _ := fs.state()
	if submitted.Get("title") != "New Blog" || submitted.Get("op") != "save" {
		t.Errorf("unexpected form values %v", submitted)
	}
	if !strings.HasSuffix(p.URL(), "/done") {
		t.Errorf("expected redirect to /done, at %s", p.URL())
	}
	if obs := query(t, p, browser.ByText("saved")); !obs.Visible {
		t.Error("redirect target not rendered")
	}
}

func TestConfirmDismissedWithoutHandler(t *testing.T) {
	p, fs := openFixture(t)
	if err := p.Click(context.Background(), browser.ByRole("button", "remove")); err != nil {
		t.Fatalf("click: %v", err)
	}
	if _, deletes := fs.state(); deletes != 0 {
		t.Error("unhandled dialog must be dismissed")
	}
}

func TestConfirmHandlerIsOneShot(t *testing.T) {
	p, fs := openFixture(t)
	ctx := context.Background()

	var seen string
	p.OnceDialog(func(msg string) bool {
		seen = msg
		return true
	})
	if err := p.Click(ctx, browser.ByRole("button", "remove")); err != nil {
		t.Fatalf("click: %v", err)
	}
	if _, deletes := fs.state(); seen != "Remove it?" || deletes != 1 {
		t.Fatalf("dialog %q, deletes %d", seen, deletes)
	}

	if err := p.Goto(ctx, "/"); err != nil {
		t.Fatal(err)
	}
	if err := p.Click(ctx, browser.ByRole("button", "remove")); err != nil {
		t.Fatalf("second click: %v", err)
	}
	if _, deletes := fs.state(); deletes != 1 {
		t.Error("handler should have been consumed by the first dialog")
	}
}

// --- against the blog list twin ---

func openTwin(t *testing.T) (*bloglist.Server, browser.Page) {
	t.Helper()
	srv, err := bloglist.New(&twincore.Config{Name: "htmlpage-test", Secret: "test"}, nil)
	if err != nil {
		t.Fatalf("bloglist.New: %v", err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	if _, err := srv.Store.CreateUser("Matti Luukkainen", "mluukkai", "salainen"); err != nil {
		t.Fatal(err)
	}
	d, err := New(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	p, err := d.NewPage(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	if err := p.Goto(context.Background(), "/"); err != nil {
		t.Fatal(err)
	}
	return srv, p
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestTwinLoginLikeAndRemove(t *testing.T) {
	srv, p := openTwin(t)
	ctx := context.Background()

	if obs, _ := p.Query(ctx, browser.ByRole("button", "")); obs.Count != 1 {
		t.Errorf("logged-out page should have one button, got %d", obs.Count)
	}

	must(t, p.Fill(ctx, browser.ByTestID("username"), "mluukkai"))
	must(t, p.Fill(ctx, browser.ByTestID("password"), "salainen"))
	must(t, p.Click(ctx, browser.ByRole("button", "login")))
	if obs, _ := p.Query(ctx, browser.ByText("Matti Luukkainen logged in")); !obs.Visible {
		t.Fatalf("login did not succeed: %+v", obs)
	}

	must(t, p.Click(ctx, browser.ByRole("button", "create new blog")))
	must(t, p.Fill(ctx, browser.ByPlaceholder("Type title here"), "New Blog"))
	must(t, p.Fill(ctx, browser.ByPlaceholder("Type author here"), "Matti Luukkainen"))
	must(t, p.Fill(ctx, browser.ByPlaceholder("Type url here"), "https://www.google.com/"))
	must(t, p.Click(ctx, browser.ByRole("button", "create")))

	if obs, _ := p.Query(ctx, browser.ByText("New Blog Matti Luukkainen")); obs.Count != 1 || !obs.Visible {
		t.Fatalf("created blog not listed: %+v", obs)
	}
	if obs, _ := p.Query(ctx, browser.ByText("likes: 0")); obs.Visible {
		t.Error("details should start collapsed")
	}

	must(t, p.Click(ctx, browser.ByRole("button", "view")))
	if obs, _ := p.Query(ctx, browser.ByText("likes: 0")); !obs.Visible {
		t.Fatalf("view did not expand: %+v", obs)
	}
	must(t, p.Click(ctx, browser.ByRole("button", "like")))
	if obs, _ := p.Query(ctx, browser.ByText("likes: 1")); !obs.Visible {
		t.Fatalf("like not reflected: %+v", obs)
	}

	p.OnceDialog(func(msg string) bool {
		if msg != "Remove blog New Blog by Matti Luukkainen" {
			t.Errorf("unexpected dialog %q", msg)
		}
		return true
	})
	must(t, p.Click(ctx, browser.ByRole("button", "remove")))
	if obs, _ := p.Query(ctx, browser.ByText("New Blog Matti Luukkainen")); obs.Count != 0 {
		t.Errorf("blog still listed: %+v", obs)
	}
	if n := srv.Store.Blogs.Count(); n != 0 {
		t.Errorf("expected store empty, %d blogs left", n)
	}
}

func TestTwinWrongPassword(t *testing.T) {
	_, p := openTwin(t)
	ctx := context.Background()

	must(t, p.Fill(ctx, browser.ByTestID("username"), "mluukkais"))
	must(t, p.Fill(ctx, browser.ByTestID("password"), "salainen"))
	must(t, p.Click(ctx, browser.ByRole("button", "login")))

	if obs, _ := p.Query(ctx, browser.ByText("Matti Luukkainen logged in")); obs.Count != 0 {
		t.Errorf("greeting shown after failed login: %+v", obs)
	}
	if obs, _ := p.Query(ctx, browser.ByText("wrong username or password")); !obs.Visible {
		t.Errorf("expected error notification: %+v", obs)
	}
}
