// Package store holds the blog list twin's users and blogs in memory.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/wondertwin-ai/blogcheck/internal/twin/store"
)

// ErrUsernameTaken is returned when creating a user whose username exists.
var ErrUsernameTaken = errors.New("expected `username` to be unique")

// User is a registered user. The password is kept only as a salted hash.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Blog is a blog post owned by the user who created it.
type Blog struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	Likes     int       `json:"likes"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MemoryStore is the twin's full state.
type MemoryStore struct {
	Users *store.Table[User]
	Blogs *store.Table[Blog]
}

// New creates an empty store.
func New() *MemoryStore {
	return &MemoryStore{
		Users: store.New[User]("user"),
		Blogs: store.New[Blog]("blog"),
	}
}

func hashPassword(username, password string) string {
	sum := sha256.Sum256([]byte(username + "\x00" + password))
	return hex.EncodeToString(sum[:])
}

// CreateUser registers a user; usernames are unique.
func (s *MemoryStore) CreateUser(name, username, password string) (User, error) {
	if _, taken := s.UserByUsername(username); taken {
		return User{}, ErrUsernameTaken
	}
	return s.Users.Insert(func(id string) User {
		return User{
			ID:           id,
			Name:         name,
			Username:     username,
			PasswordHash: hashPassword(username, password),
			CreatedAt:    time.Now().UTC(),
		}
	}), nil
}

// UserByUsername looks a user up by username.
func (s *MemoryStore) UserByUsername(username string) (User, bool) {
	return s.Users.Find(func(u User) bool { return u.Username == username })
}

// Authenticate returns the user when username and password match.
func (s *MemoryStore) Authenticate(username, password string) (User, bool) {
	u, ok := s.UserByUsername(username)
	if !ok || u.PasswordHash != hashPassword(username, password) {
		return User{}, false
	}
	return u, true
}

// CreateBlog stores a blog owned by userID.
func (s *MemoryStore) CreateBlog(userID, title, author, url string, likes int) Blog {
	return s.Blogs.Insert(func(id string) Blog {
		return Blog{
			ID:        id,
			Title:     strings.TrimSpace(title),
			Author:    strings.TrimSpace(author),
			URL:       strings.TrimSpace(url),
			Likes:     likes,
			UserID:    userID,
			CreatedAt: time.Now().UTC(),
		}
	})
}

// Like increments a blog's likes by one.
func (s *MemoryStore) Like(id string) (Blog, bool) {
	return s.Blogs.Update(id, func(b *Blog) { b.Likes++ })
}

// BlogsByLikes returns all blogs, most liked first. Equal like counts keep
// insertion order.
func (s *MemoryStore) BlogsByLikes() []Blog {
	blogs := s.Blogs.List()
	sort.SliceStable(blogs, func(i, j int) bool { return blogs[i].Likes > blogs[j].Likes })
	return blogs
}

type stateSnapshot struct {
	Users []User `json:"users"`
	Blogs []Blog `json:"blogs"`
}

// Snapshot returns the full state as a JSON-serializable value.
func (s *MemoryStore) Snapshot() any {
	return stateSnapshot{
		Users: s.Users.List(),
		Blogs: s.Blogs.List(),
	}
}

// Reset empties all users and blogs.
func (s *MemoryStore) Reset() {
	s.Users.Reset()
	s.Blogs.Reset()
}
