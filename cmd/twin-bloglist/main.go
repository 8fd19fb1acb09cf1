// twin-bloglist simulates the blog list application: its REST API under /api,
// the testing reset hook, and a server-rendered UI at / that the blogcheck
// scenarios drive.
//
// Default port: 3003
package main

import (
	"context"
	"log"
	"os"

	"github.com/wondertwin-ai/blogcheck/internal/twin/bloglist"
	"github.com/wondertwin-ai/blogcheck/internal/twin/twincore"
)

func main() {
	cfg, err := twincore.ParseFlags("twin-bloglist", os.Args[1:])
	if err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	srv, err := bloglist.New(cfg, nil)
	if err != nil {
		log.Fatalf("failed to initialize twin: %v", err)
	}

	srv.Logger.Info("twin-bloglist ready",
		"port", cfg.Port,
		"reset_endpoint", "/api/testing/reset",
	)

	if err := srv.Serve(context.Background()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
