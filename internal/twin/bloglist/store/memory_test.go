package store

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	s := New()
	if _, err := s.CreateUser("Matti Luukkainen", "mluukkai", "salainen"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := s.CreateUser("Someone Else", "mluukkai", "other")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if n := s.Users.Count(); n != 1 {
		t.Errorf("expected 1 user, got %d", n)
	}
}

func TestAuthenticate(t *testing.T) {
	s := New()
	want, _ := s.CreateUser("Matti Luukkainen", "mluukkai", "salainen")

	got, ok := s.Authenticate("mluukkai", "salainen")
	if !ok {
		t.Fatal("expected correct credentials to authenticate")
	}
	if got.ID != want.ID {
		t.Errorf("authenticated %s, want %s", got.ID, want.ID)
	}
	if got.PasswordHash == "salainen" {
		t.Error("password stored in clear text")
	}

	for _, tc := range []struct{ user, pass string }{
		{"mluukkai", "wrong"},
		{"nobody", "salainen"},
		{"", ""},
	} {
		if _, ok := s.Authenticate(tc.user, tc.pass); ok {
			t.Errorf("Authenticate(%q, %q) succeeded", tc.user, tc.pass)
		}
	}
}

func TestBlogsByLikesIsStableDescending(t *testing.T) {
	s := New()
	u, _ := s.CreateUser("Matti Luukkainen", "mluukkai", "salainen")
	s.CreateBlog(u.ID, "first", "a", "http://a", 99)
	s.CreateBlog(u.ID, "second", "b", "http://b", 2099)
	s.CreateBlog(u.ID, "third", "c", "http://c", 100)
	s.CreateBlog(u.ID, "tie", "d", "http://d", 99)

	var titles []string
	for _, b := range s.BlogsByLikes() {
		titles = append(titles, b.Title)
	}
	want := []string{"second", "third", "first", "tie"}
	if diff := cmp.Diff(want, titles); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestLike(t *testing.T) {
	s := New()
	u, _ := s.CreateUser("Matti Luukkainen", "mluukkai", "salainen")
	b := s.CreateBlog(u.ID, " Title ", " Author ", " http://x ", 0)
	if b.Title != "Title" || b.Author != "Author" || b.URL != "http://x" {
		t.Errorf("fields not trimmed: %+v", b)
	}

	liked, ok := s.Like(b.ID)
	if !ok || liked.Likes != 1 {
		t.Fatalf("Like = %+v, %v", liked, ok)
	}
	if _, ok := s.Like("blog_999999"); ok {
		t.Error("liking an unknown blog succeeded")
	}
}

func TestResetClearsEverything(t *testing.T) {
	s := New()
	u, _ := s.CreateUser("Matti Luukkainen", "mluukkai", "salainen")
	s.CreateBlog(u.ID, "t", "a", "http://x", 1)
	s.Reset()

	if s.Users.Count() != 0 || s.Blogs.Count() != 0 {
		t.Fatalf("state survived reset: %+v", s.Snapshot())
	}
	again, err := s.CreateUser("Matti Luukkainen", "mluukkai", "salainen")
	if err != nil {
		t.Fatalf("recreate after reset: %v", err)
	}
	if again.ID == u.ID {
		t.Errorf("recreated user reused id %s", u.ID)
	}
}

func TestLoadSeed(t *testing.T) {
	s := New()
	err := s.LoadSeed([]byte(`
users:
  - name: Matti Luukkainen
    username: mluukkai
    password: salainen
blogs:
  - title: Go Proverbs
    author: Rob Pike
    url: https://go-proverbs.github.io
    likes: 3
    owner: mluukkai
`))
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	if _, ok := s.Authenticate("mluukkai", "salainen"); !ok {
		t.Error("seeded user cannot log in")
	}
	blogs := s.BlogsByLikes()
	if len(blogs) != 1 || blogs[0].Likes != 3 {
		t.Fatalf("unexpected blogs %+v", blogs)
	}
}

func TestLoadSeedUnknownOwner(t *testing.T) {
	s := New()
	err := s.LoadSeed([]byte(`
blogs:
  - title: Orphan
    url: http://x
    owner: ghost
`))
	if err == nil {
		t.Fatal("expected error for unknown owner")
	}
}
