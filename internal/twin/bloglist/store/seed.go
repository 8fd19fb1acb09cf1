package store

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Seed is the startup fixture format accepted by the twin's --seed flag.
//
//	users:
//	  - name: Matti Luukkainen
//	    username: mluukkai
//	    password: salainen
//	blogs:
//	  - title: Go Proverbs
//	    author: Rob Pike
//	    url: https://go-proverbs.github.io
//	    likes: 3
//	    owner: mluukkai
type Seed struct {
	Users []SeedUser `yaml:"users"`
	Blogs []SeedBlog `yaml:"blogs"`
}

type SeedUser struct {
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type SeedBlog struct {
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
	URL    string `yaml:"url"`
	Likes  int    `yaml:"likes"`
	Owner  string `yaml:"owner"`
}

// LoadSeed parses a YAML seed document and inserts its users, then its
// blogs. Every blog owner must be one of the seeded (or existing) users.
func (s *MemoryStore) LoadSeed(data []byte) error {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parsing seed: %w", err)
	}
	for _, u := range seed.Users {
		if _, err := s.CreateUser(u.Name, u.Username, u.Password); err != nil {
			return fmt.Errorf("seeding user %q: %w", u.Username, err)
		}
	}
	for i, b := range seed.Blogs {
		owner, ok := s.UserByUsername(b.Owner)
		if !ok {
			return fmt.Errorf("seeding blog %d (%q): unknown owner %q", i, b.Title, b.Owner)
		}
		if b.Likes < 0 {
			return fmt.Errorf("seeding blog %d (%q): likes must not be negative", i, b.Title)
		}
		s.CreateBlog(owner.ID, b.Title, b.Author, b.URL, b.Likes)
	}
	return nil
}
