package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wondertwin-ai/blogcheck/internal/twin/bloglist/store"
	"github.com/wondertwin-ai/blogcheck/internal/twin/twincore"
)

type userJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type blogJSON struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Author string    `json:"author"`
	URL    string    `json:"url"`
	Likes  int       `json:"likes"`
	User   *userJSON `json:"user,omitempty"`
}

func toUserJSON(u store.User) userJSON {
	return userJSON{ID: u.ID, Name: u.Name, Username: u.Username}
}

func (h *Handler) toBlogJSON(b store.Blog) blogJSON {
	out := blogJSON{ID: b.ID, Title: b.Title, Author: b.Author, URL: b.URL, Likes: b.Likes}
	if u, ok := h.store.Users.Get(b.UserID); ok {
		uj := toUserJSON(u)
		out.User = &uj
	}
	return out
}

// CreateUser handles POST /api/users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		twincore.Error(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if len(req.Username) < 3 {
		twincore.Error(w, http.StatusBadRequest, "username must be at least 3 characters long")
		return
	}
	if len(req.Password) < 3 {
		twincore.Error(w, http.StatusBadRequest, "password must be at least 3 characters long")
		return
	}

	u, err := h.store.CreateUser(req.Name, req.Username, req.Password)
	if errors.Is(err, store.ErrUsernameTaken) {
		twincore.Error(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		twincore.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	twincore.JSON(w, http.StatusCreated, toUserJSON(u))
}

// ListUsers handles GET /api/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users := h.store.Users.List()
	out := make([]userJSON, 0, len(users))
	for _, u := range users {
		out = append(out, toUserJSON(u))
	}
	twincore.JSON(w, http.StatusOK, out)
}

// Login handles POST /api/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		twincore.Error(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	u, ok := h.store.Authenticate(req.Username, req.Password)
	if !ok {
		twincore.Error(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	token, err := h.tokens.Issue(u)
	if err != nil {
		twincore.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]string{
		"token":    token,
		"username": u.Username,
		"name":     u.Name,
	})
}

// ListBlogs handles GET /api/blogs. Blogs are ordered by likes, descending.
func (h *Handler) ListBlogs(w http.ResponseWriter, r *http.Request) {
	blogs := h.store.BlogsByLikes()
	out := make([]blogJSON, 0, len(blogs))
	for _, b := range blogs {
		out = append(out, h.toBlogJSON(b))
	}
	twincore.JSON(w, http.StatusOK, out)
}

// GetBlog handles GET /api/blogs/{id}.
func (h *Handler) GetBlog(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store.Blogs.Get(chi.URLParam(r, "id"))
	if !ok {
		twincore.Error(w, http.StatusNotFound, "blog not found")
		return
	}
	twincore.JSON(w, http.StatusOK, h.toBlogJSON(b))
}

type blogRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
	Likes  *int   `json:"likes"`
}

// CreateBlog handles POST /api/blogs.
func (h *Handler) CreateBlog(w http.ResponseWriter, r *http.Request) {
	var req blogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		twincore.Error(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.URL) == "" {
		twincore.Error(w, http.StatusBadRequest, "title and url are required")
		return
	}
	likes := 0
	if req.Likes != nil {
		if *req.Likes < 0 {
			twincore.Error(w, http.StatusBadRequest, "likes must not be negative")
			return
		}
		likes = *req.Likes
	}
	b := h.store.CreateBlog(userFrom(r.Context()).ID, req.Title, req.Author, req.URL, likes)
	twincore.JSON(w, http.StatusCreated, h.toBlogJSON(b))
}

// UpdateBlog handles PUT /api/blogs/{id}. Any authenticated user may update
// likes; other fields are owner-only.
func (h *Handler) UpdateBlog(w http.ResponseWriter, r *http.Request) {
	var req blogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		twincore.Error(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	caller := userFrom(r.Context())
	id := chi.URLParam(r, "id")

	existing, ok := h.store.Blogs.Get(id)
	if !ok {
		twincore.Error(w, http.StatusNotFound, "blog not found")
		return
	}
	editsContent := req.Title != "" || req.Author != "" || req.URL != ""
	if editsContent && existing.UserID != caller.ID {
		twincore.Error(w, http.StatusForbidden, "only the creator can edit a blog")
		return
	}
	if req.Likes != nil && *req.Likes < 0 {
		twincore.Error(w, http.StatusBadRequest, "likes must not be negative")
		return
	}

	b, _ := h.store.Blogs.Update(id, func(b *store.Blog) {
		if req.Title != "" {
			b.Title = req.Title
		}
		if req.Author != "" {
			b.Author = req.Author
		}
		if req.URL != "" {
			b.URL = req.URL
		}
		if req.Likes != nil {
			b.Likes = *req.Likes
		}
	})
	twincore.JSON(w, http.StatusOK, h.toBlogJSON(b))
}

// DeleteBlog handles DELETE /api/blogs/{id}. Only the creator may delete.
func (h *Handler) DeleteBlog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b, ok := h.store.Blogs.Get(id)
	if !ok {
		twincore.Error(w, http.StatusNotFound, "blog not found")
		return
	}
	if b.UserID != userFrom(r.Context()).ID {
		twincore.Error(w, http.StatusForbidden, "only the creator can delete a blog")
		return
	}
	h.store.Blogs.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}
