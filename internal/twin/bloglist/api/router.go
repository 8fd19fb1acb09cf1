// Package api implements the blog list application's JSON API and its
// server-rendered UI for the twin.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wondertwin-ai/blogcheck/internal/twin/bloglist/store"
	"github.com/wondertwin-ai/blogcheck/internal/twin/twincore"
)

// Handler holds all API and UI handler state.
type Handler struct {
	store  *store.MemoryStore
	mw     *twincore.Middleware
	tokens *TokenManager
}

// NewHandler creates a Handler.
func NewHandler(s *store.MemoryStore, mw *twincore.Middleware, tokens *TokenManager) *Handler {
	return &Handler{store: s, mw: mw, tokens: tokens}
}

// Routes mounts the JSON API and the UI.
func (h *Handler) Routes(r chi.Router) {
	// Full paths rather than a mounted /api subrouter, so the control plane
	// can register /api/testing/reset on the same router.
	r.Group(func(r chi.Router) {
		r.Use(h.mw.FaultInjection)

		r.Post("/api/users", h.CreateUser)
		r.Get("/api/users", h.ListUsers)
		r.Post("/api/login", h.Login)

		r.Get("/api/blogs", h.ListBlogs)
		r.Get("/api/blogs/{id}", h.GetBlog)
		r.With(h.requireToken).Post("/api/blogs", h.CreateBlog)
		r.With(h.requireToken).Put("/api/blogs/{id}", h.UpdateBlog)
		r.With(h.requireToken).Delete("/api/blogs/{id}", h.DeleteBlog)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.mw.FaultInjection)
		r.Get("/", h.Index)
		r.Post("/ui/login", h.UILogin)
		r.Post("/ui/logout", h.UILogout)
		r.Post("/ui/blogs", h.UICreateBlog)
		r.Post("/ui/blogs/{id}/like", h.UILike)
		r.Post("/ui/blogs/{id}/delete", h.UIDelete)
	})
}

type ctxKey struct{}

// userFrom returns the authenticated user placed in ctx by requireToken.
func userFrom(ctx context.Context) store.User {
	u, _ := ctx.Value(ctxKey{}).(store.User)
	return u
}

// requireToken authenticates "Authorization: Bearer <token>".
func (h *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			twincore.Error(w, http.StatusUnauthorized, "token missing or invalid")
			return
		}
		u, ok := h.userForToken(token)
		if !ok {
			twincore.Error(w, http.StatusUnauthorized, "token invalid")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u)))
	})
}

func (h *Handler) userForToken(token string) (store.User, bool) {
	id, err := h.tokens.Verify(token)
	if err != nil {
		return store.User{}, false
	}
	return h.store.Users.Get(id)
}
