// Package bloglist assembles the blog list twin: the application's JSON API
// and UI on top of the shared twin server and control plane.
package bloglist

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/wondertwin-ai/blogcheck/internal/twin/admin"
	"github.com/wondertwin-ai/blogcheck/internal/twin/bloglist/api"
	"github.com/wondertwin-ai/blogcheck/internal/twin/bloglist/store"
	"github.com/wondertwin-ai/blogcheck/internal/twin/twincore"
)

// DefaultPort matches the port the blog list frontend proxies to.
const DefaultPort = 3003

// Server is a fully wired twin.
type Server struct {
	*twincore.Twin
	Store *store.MemoryStore
}

// New wires the store, token manager, API/UI routes and control plane. When
// cfg.SeedFile is set its contents are loaded before New returns.
func New(cfg *twincore.Config, logger *slog.Logger) (*Server, error) {
	twin := twincore.New(cfg, logger)
	mem := store.New()

	tokens, err := api.NewTokenManager(cfg.Secret)
	if err != nil {
		return nil, err
	}

	api.NewHandler(mem, twin.Middleware(), tokens).Routes(twin.Router)
	admin.NewHandler(mem, twin.Middleware()).Routes(twin.Router)

	if cfg.SeedFile != "" {
		data, err := os.ReadFile(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("reading seed file: %w", err)
		}
		if err := mem.LoadSeed(data); err != nil {
			return nil, err
		}
		twin.Logger.Info("loaded seed data", "file", cfg.SeedFile)
	}

	return &Server{Twin: twin, Store: mem}, nil
}
