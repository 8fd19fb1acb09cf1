package api

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wondertwin-ai/blogcheck/internal/twin/bloglist/store"
)

const sessionCookie = "bloglist_session"

// The page works without JavaScript for the in-process HTML driver, which
// interprets data-toggle and data-confirm itself; the script gives a real
// browser the same behaviour.
var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Blog list</title>
<script>
document.addEventListener('click', function (e) {
  var t = e.target.closest('[data-toggle]');
  if (t) {
    e.preventDefault();
    t.getAttribute('data-toggle').split(' ').forEach(function (id) {
      var el = document.getElementById(id);
      if (el) { el.hidden = !el.hidden; }
    });
    return;
  }
  var c = e.target.closest('[data-confirm]');
  if (c && !window.confirm(c.getAttribute('data-confirm'))) { e.preventDefault(); }
});
</script>
</head>
<body>
{{if .Error}}<div class="error">{{.Error}}</div>{{end}}
{{if .Notice}}<div class="notice">{{.Notice}}</div>{{end}}
{{if not .User}}
<h2>log in to application</h2>
<form method="post" action="/ui/login">
  <div>username <input type="text" name="username" data-testid="username"></div>
  <div>password <input type="password" name="password" data-testid="password"></div>
  <button type="submit">login</button>
</form>
{{else}}
<h2>blogs</h2>
<div><span>{{.User.Name}} logged in</span>
  <form method="post" action="/ui/logout"><button type="submit">logout</button></form>
</div>
<div id="blogform-closed"><button type="button" data-toggle="blogform-closed blogform-open">create new blog</button></div>
<div id="blogform-open" hidden>
  <h2>create new</h2>
  <form method="post" action="/ui/blogs">
    <div>title: <input type="text" name="title" placeholder="Type title here"></div>
    <div>author: <input type="text" name="author" placeholder="Type author here"></div>
    <div>url: <input type="text" name="url" placeholder="Type url here"></div>
    <button type="submit">create</button>
  </form>
  <button type="button" data-toggle="blogform-closed blogform-open">cancel</button>
</div>
{{range .Blogs}}
<div class="blog" data-testid="blog">
  <span class="blog-heading">{{.Title}} {{.Author}}</span>
  <span id="{{.ID}}-view"{{if .Open}} hidden{{end}}><button type="button" data-toggle="{{.ID}}-view {{.ID}}-details">view</button></span>
  <div id="{{.ID}}-details"{{if not .Open}} hidden{{end}}>
    <button type="button" data-toggle="{{.ID}}-view {{.ID}}-details">hide</button>
    <div><a href="{{.URL}}">{{.URL}}</a></div>
    <div><span class="likes">likes: {{.Likes}}</span>
      <form method="post" action="/ui/blogs/{{.ID}}/like"><button type="submit">like</button></form>
    </div>
    <div>{{.Owner}}</div>
    {{if .Removable}}<form method="post" action="/ui/blogs/{{.ID}}/delete"><button type="submit" data-confirm="Remove blog {{.Title}} by {{.Author}}">remove</button></form>{{end}}
  </div>
</div>
{{end}}
{{end}}
</body>
</html>
`))

type blogView struct {
	ID        string
	Title     string
	Author    string
	URL       string
	Likes     int
	Owner     string
	Open      bool
	Removable bool
}

type pageView struct {
	User   *store.User
	Error  string
	Notice string
	Blogs  []blogView
}

// sessionUser returns the user behind the session cookie, if valid.
func (h *Handler) sessionUser(r *http.Request) (store.User, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return store.User{}, false
	}
	return h.userForToken(c.Value)
}

// redirectHome sends the browser back to / with an optional query.
func redirectHome(w http.ResponseWriter, r *http.Request, q url.Values) {
	target := "/"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Index renders the single-page UI.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := pageView{Error: q.Get("error"), Notice: q.Get("notice")}

	if u, ok := h.sessionUser(r); ok {
		view.User = &u
		open := q.Get("open")
		for _, b := range h.store.BlogsByLikes() {
			owner := ""
			if o, ok := h.store.Users.Get(b.UserID); ok {
				owner = o.Name
			}
			view.Blogs = append(view.Blogs, blogView{
				ID:        b.ID,
				Title:     b.Title,
				Author:    b.Author,
				URL:       b.URL,
				Likes:     b.Likes,
				Owner:     owner,
				Open:      b.ID == open,
				Removable: b.UserID == u.ID,
			})
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, view); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// UILogin handles the login form.
func (h *Handler) UILogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectHome(w, r, url.Values{"error": {"invalid form"}})
		return
	}
	u, ok := h.store.Authenticate(r.PostFormValue("username"), r.PostFormValue("password"))
	if !ok {
		redirectHome(w, r, url.Values{"error": {"wrong username or password"}})
		return
	}
	token, err := h.tokens.Issue(u)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	redirectHome(w, r, nil)
}

// UILogout clears the session.
func (h *Handler) UILogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	redirectHome(w, r, nil)
}

// UICreateBlog handles the create form.
func (h *Handler) UICreateBlog(w http.ResponseWriter, r *http.Request) {
	u, ok := h.sessionUser(r)
	if !ok {
		redirectHome(w, r, url.Values{"error": {"log in first"}})
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectHome(w, r, url.Values{"error": {"invalid form"}})
		return
	}
	title := r.PostFormValue("title")
	author := r.PostFormValue("author")
	link := r.PostFormValue("url")
	if strings.TrimSpace(title) == "" || strings.TrimSpace(link) == "" {
		redirectHome(w, r, url.Values{"error": {"title and url are required"}})
		return
	}
	b := h.store.CreateBlog(u.ID, title, author, link, 0)
	redirectHome(w, r, url.Values{"notice": {fmt.Sprintf("a new blog %s by %s added", b.Title, b.Author)}})
}

// UILike adds one like and keeps the blog expanded.
func (h *Handler) UILike(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessionUser(r); !ok {
		redirectHome(w, r, url.Values{"error": {"log in first"}})
		return
	}
	id := chi.URLParam(r, "id")
	if _, ok := h.store.Like(id); !ok {
		redirectHome(w, r, url.Values{"error": {"blog not found"}})
		return
	}
	redirectHome(w, r, url.Values{"open": {id}})
}

// UIDelete removes a blog owned by the session user.
func (h *Handler) UIDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := h.sessionUser(r)
	if !ok {
		redirectHome(w, r, url.Values{"error": {"log in first"}})
		return
	}
	id := chi.URLParam(r, "id")
	b, ok := h.store.Blogs.Get(id)
	if !ok {
		redirectHome(w, r, url.Values{"error": {"blog not found"}})
		return
	}
	if b.UserID != u.ID {
		redirectHome(w, r, url.Values{"error": {"only the creator can remove a blog"}})
		return
	}
	h.store.Blogs.Delete(id)
	redirectHome(w, r, url.Values{"notice": {fmt.Sprintf("removed %s by %s", b.Title, b.Author)}})
}
