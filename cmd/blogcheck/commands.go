package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/wondertwin-ai/blogcheck/internal/client"
	"github.com/wondertwin-ai/blogcheck/internal/config"
	"github.com/wondertwin-ai/blogcheck/internal/journal"
	"github.com/wondertwin-ai/blogcheck/internal/mcp"
	"github.com/wondertwin-ai/blogcheck/internal/report"
	"github.com/wondertwin-ai/blogcheck/internal/scenario"
	"github.com/wondertwin-ai/blogcheck/internal/suite"
	"github.com/wondertwin-ai/blogcheck/internal/twin/bloglist"
	"github.com/wondertwin-ai/blogcheck/internal/twin/twincore"
)

func colorFor(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && report.ColorEnabled(f)
}

// ---------------------------------------------------------------------------
// blogcheck run
// ---------------------------------------------------------------------------

func (e *env) cmdRun(ctx context.Context, paths []string, filter string) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	logger := e.logger(cfg)

	if len(paths) == 0 {
		paths = cfg.Suites
	}
	scenarios, err := suite.Load(paths)
	if err != nil {
		return err
	}
	scenarios = suite.Filter(scenarios, filter)
	if len(scenarios) == 0 {
		return errors.Errorf("no scenarios match %q", filter)
	}

	clients, err := newClients(cfg, logger)
	if err != nil {
		return err
	}
	pool, closeDrivers, err := newPool(cfg, clients, logger)
	if err != nil {
		return err
	}
	defer closeDrivers()

	fmt.Fprintf(e.stdout, "Running %d scenario(s) against %d target(s) with the %s driver\n",
		len(scenarios), len(clients), cfg.Driver)

	pr := report.NewPrinter(e.stdout, colorFor(e.stdout))
	pool.OnResult = pr.Scenario

	start := time.Now()
	results := pool.Run(ctx, scenarios)
	pr.Summary(results)

	if cfg.Journal != "" {
		if err := record(cfg.Journal, start, results); err != nil {
			logger.Warn("journal not updated", "dir", cfg.Journal, "error", err)
		}
	}

	if scenario.Summarize(results).Failed > 0 {
		return errFailed
	}
	return nil
}

func record(dir string, start time.Time, results []*scenario.Result) error {
	j, err := journal.Open(dir)
	if err != nil {
		return err
	}
	runID := journal.NewRunID(start)
	now := time.Now()
	for _, res := range results {
		if err := j.Append(journal.RecordFor(runID, res, now)); err != nil {
			j.Close()
			return err
		}
	}
	return j.Close()
}

// ---------------------------------------------------------------------------
// blogcheck status / reset / seed-user / login
// ---------------------------------------------------------------------------

func (e *env) clients() ([]*client.Client, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	return newClients(cfg, e.logger(cfg))
}

func (e *env) cmdStatus(ctx context.Context) error {
	clients, err := e.clients()
	if err != nil {
		return err
	}

	fmt.Fprintln(e.stdout)
	fmt.Fprintf(e.stdout, "  %-40s %s\n", "TARGET", "HEALTH")
	fmt.Fprintf(e.stdout, "  %-40s %s\n", "------", "------")
	down := 0
	for _, c := range clients {
		health := "healthy"
		if ok, detail := c.Health(ctx); !ok {
			health = "unreachable: " + detail
			down++
		}
		fmt.Fprintf(e.stdout, "  %-40s %s\n", c.BaseURL(), health)
	}
	fmt.Fprintln(e.stdout)

	if down > 0 {
		return errFailed
	}
	return nil
}

func (e *env) cmdReset(ctx context.Context) error {
	clients, err := e.clients()
	if err != nil {
		return err
	}

	failed := false
	for _, c := range clients {
		if err := c.Reset(ctx); err != nil {
			fmt.Fprintf(e.stdout, "  %-40s FAILED: %v\n", c.BaseURL(), err)
			failed = true
			continue
		}
		fmt.Fprintf(e.stdout, "  %-40s reset\n", c.BaseURL())
	}
	if failed {
		return errFailed
	}
	return nil
}

// cmdSeedUser and cmdLogin act on the first target only.
func (e *env) cmdSeedUser(ctx context.Context, u client.User) error {
	clients, err := e.clients()
	if err != nil {
		return err
	}
	c := clients[0]
	if err := c.CreateUser(ctx, u); err != nil {
		return errors.WithMessagef(err, "seeding user %s", u.Username)
	}
	fmt.Fprintf(e.stdout, "Created user %s on %s\n", u.Username, c.BaseURL())
	return nil
}

func (e *env) cmdLogin(ctx context.Context, username, password string) error {
	clients, err := e.clients()
	if err != nil {
		return err
	}
	sess, err := clients[0].Login(ctx, username, password)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, sess.Token)
	return nil
}

// ---------------------------------------------------------------------------
// blogcheck history
// ---------------------------------------------------------------------------

func (e *env) cmdHistory(limit, keep int) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Journal == "" {
		return errors.New("the run journal is disabled (journal is empty in the config)")
	}

	j, err := journal.Open(cfg.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	if keep > 0 {
		if err := j.Compact(keep); err != nil {
			return err
		}
	}
	records, err := j.Tail(limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(e.stdout, "No runs recorded.")
		return nil
	}

	for _, r := range records {
		verdict := "PASS"
		if !r.Passed {
			verdict = "FAIL"
			if r.Kind != "" {
				verdict += " [" + r.Kind + "]"
			}
		}
		fmt.Fprintf(e.stdout, "%s  %-20s  %-6dms  %s\n",
			r.At.Local().Format("2006-01-02 15:04:05"), verdict, r.DurationMS, r.Scenario)
	}
	return nil
}

// ---------------------------------------------------------------------------
// blogcheck init
// ---------------------------------------------------------------------------

func (e *env) cmdInit(force bool) error {
	path := e.configPath
	if path == "" {
		path = config.DefaultConfigFile
	}
	if _, err := os.Stat(path); err == nil && !force {
		return errors.Errorf("%s already exists (use --force to overwrite)", path)
	}
	cfg := config.Default()
	if len(e.targets) > 0 {
		cfg.Targets = e.targets
	}
	if e.driver != "" {
		cfg.Driver = e.driver
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "Wrote %s\n", path)
	return nil
}

// ---------------------------------------------------------------------------
// blogcheck twin
// ---------------------------------------------------------------------------

func (e *env) cmdTwin(ctx context.Context, port int, secret, seed string, latency time.Duration) error {
	cfg := &twincore.Config{
		Name:     "twin-bloglist",
		Port:     port,
		Latency:  latency,
		Secret:   secret,
		SeedFile: seed,
		Verbose:  e.verbose,
	}
	srv, err := bloglist.New(cfg, nil)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// ---------------------------------------------------------------------------
// blogcheck mcp
// ---------------------------------------------------------------------------

func (e *env) cmdMCP(ctx context.Context) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	// stdout carries the protocol
	logger := slog.New(slog.NewTextHandler(e.stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if cfg.Verbose {
		logger = e.logger(cfg)
	}

	clients, err := newClients(cfg, logger)
	if err != nil {
		return err
	}
	pool, closeDrivers, err := newPool(cfg, clients, logger)
	if err != nil {
		return err
	}
	defer closeDrivers()

	srv, err := mcp.NewServer(clients, pool,
		mcp.WithIO(os.Stdin, e.stdout),
		mcp.WithLogger(logger),
		mcp.WithSuites(cfg.Suites),
		mcp.WithVersion(version),
	)
	if err != nil {
		return err
	}
	logger.Info("blogcheck mcp ready", "targets", cfg.Targets)
	err = srv.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
