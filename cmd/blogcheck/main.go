// blogcheck runs end-to-end scenarios against the blog list application.
//
// Usage:
//
//	blogcheck run [paths...]         Run suites (default: built-in blog list suite)
//	blogcheck status                 Health check every target
//	blogcheck reset                  Empty the store of every target
//	blogcheck seed-user <u> <p>      Create a user through the API
//	blogcheck login <u> <p>          Log in through the API and print the token
//	blogcheck history                Show recent results from the run journal
//	blogcheck init                   Write a default blogcheck.yaml
//	blogcheck twin                   Serve the blog list twin
//	blogcheck mcp                    Serve the MCP stdio interface
//	blogcheck version
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/wondertwin-ai/blogcheck/internal/browser"
	"github.com/wondertwin-ai/blogcheck/internal/browser/htmlpage"
	"github.com/wondertwin-ai/blogcheck/internal/browser/pwpage"
	"github.com/wondertwin-ai/blogcheck/internal/client"
	"github.com/wondertwin-ai/blogcheck/internal/config"
	"github.com/wondertwin-ai/blogcheck/internal/scenario"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// errFailed signals a completed command whose outcome was negative, such as
// a failed scenario. The message has already been printed.
var errFailed = errors.New("failed")

// env carries what every command needs.
type env struct {
	stdout, stderr io.Writer

	configPath string
	targets    []string
	driver     string
	headed     bool
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses args and executes one command, returning the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	e := &env{stdout: stdout, stderr: stderr}

	app := kingpin.New("blogcheck", "End-to-end checks for the blog list application.")
	app.Version(version)
	app.Flag("config", "Config file (default: $BLOGCHECK_CONFIG or ./blogcheck.yaml).").Short('c').StringVar(&e.configPath)
	app.Flag("target", "Application base URL; repeat for parallel targets. Overrides the config.").Short('t').StringsVar(&e.targets)
	app.Flag("driver", "Browser driver.").EnumVar(&e.driver, config.DriverHTML, config.DriverPlaywright)
	app.Flag("headed", "Show the browser (playwright driver).").BoolVar(&e.headed)
	app.Flag("verbose", "Debug logging.").Short('v').BoolVar(&e.verbose)

	runCmd := app.Command("run", "Run scenario suites against every target.").Default()
	runPaths := runCmd.Arg("paths", "Suite files or directories.").Strings()
	runFilter := runCmd.Flag("filter", "Only run scenarios whose name contains this text.").Short('f').String()

	statusCmd := app.Command("status", "Health check every target.")

	resetCmd := app.Command("reset", "Empty the users and blogs of every target.")

	seedCmd := app.Command("seed-user", "Create a user through the users API.")
	seedUsername := seedCmd.Arg("username", "Username.").Required().String()
	seedPassword := seedCmd.Arg("password", "Password.").Required().String()
	seedName := seedCmd.Flag("name", "Display name.").String()

	loginCmd := app.Command("login", "Log in through the login API and print the session token.")
	loginUsername := loginCmd.Arg("username", "Username.").Required().String()
	loginPassword := loginCmd.Arg("password", "Password.").Required().String()

	historyCmd := app.Command("history", "Show recent results from the run journal.")
	historyLimit := historyCmd.Flag("limit", "Number of records to show.").Short('n').Default("20").Int()
	historyKeep := historyCmd.Flag("keep", "Compact the journal to the newest N records first.").Int()

	initCmd := app.Command("init", "Write a default config file.")
	initForce := initCmd.Flag("force", "Overwrite an existing file.").Bool()

	twinCmd := app.Command("twin", "Serve the blog list twin.")
	twinPort := twinCmd.Flag("port", "HTTP listen port.").Default("3003").Envar("PORT").Int()
	twinSecret := twinCmd.Flag("secret", "Session signing secret (default: random per process).").String()
	twinSeed := twinCmd.Flag("seed", "YAML file of users and blogs to load at startup.").String()
	twinLatency := twinCmd.Flag("latency", "Simulated latency per request.").Default("0s").Duration()

	mcpCmd := app.Command("mcp", "Serve blogcheck tools over MCP on stdio.")

	cmd, err := app.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "blogcheck: %v, try --help\n", err)
		return 2
	}

	switch cmd {
	case runCmd.FullCommand():
		err = e.cmdRun(ctx, *runPaths, *runFilter)
	case statusCmd.FullCommand():
		err = e.cmdStatus(ctx)
	case resetCmd.FullCommand():
		err = e.cmdReset(ctx)
	case seedCmd.FullCommand():
		err = e.cmdSeedUser(ctx, client.User{Name: *seedName, Username: *seedUsername, Password: *seedPassword})
	case loginCmd.FullCommand():
		err = e.cmdLogin(ctx, *loginUsername, *loginPassword)
	case historyCmd.FullCommand():
		err = e.cmdHistory(*historyLimit, *historyKeep)
	case initCmd.FullCommand():
		err = e.cmdInit(*initForce)
	case twinCmd.FullCommand():
		err = e.cmdTwin(ctx, *twinPort, *twinSecret, *twinSeed, *twinLatency)
	case mcpCmd.FullCommand():
		err = e.cmdMCP(ctx)
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errFailed):
		return 1
	default:
		fmt.Fprintf(stderr, "blogcheck: %v\n", err)
		return 1
	}
}

// loadConfig reads the config and applies command-line overrides.
func (e *env) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return nil, err
	}
	if len(e.targets) > 0 {
		cfg.Targets = e.targets
	}
	if e.driver != "" {
		cfg.Driver = e.driver
	}
	if e.headed {
		cfg.Browser.Headless = false
	}
	if e.verbose {
		cfg.Verbose = true
	}
	return cfg, cfg.Validate()
}

func (e *env) logger(cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(e.stderr, &slog.HandlerOptions{Level: level}))
}

func newClients(cfg *config.Config, logger *slog.Logger) ([]*client.Client, error) {
	clients := make([]*client.Client, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		c, err := client.New(t,
			client.WithHTTPClient(&http.Client{Timeout: cfg.Timeouts.HTTP}),
			client.WithLogger(logger.With("target", t)),
		)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, nil
}

func newDriver(cfg *config.Config, target string, logger *slog.Logger) (browser.Driver, error) {
	if cfg.Driver == config.DriverPlaywright {
		d, err := pwpage.Launch(pwpage.Options{
			BaseURL:  target,
			Browser:  cfg.Browser.Name,
			Headless: cfg.Browser.Headless,
			Install:  cfg.Browser.Install,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	d, err := htmlpage.New(target, htmlpage.WithTimeout(cfg.Timeouts.HTTP), htmlpage.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return d, nil
}

// newPool builds one runner per target. The returned closer shuts the
// drivers down.
func newPool(cfg *config.Config, clients []*client.Client, logger *slog.Logger) (*scenario.Pool, func(), error) {
	var drivers []browser.Driver
	closeAll := func() {
		for _, d := range drivers {
			if err := d.Close(); err != nil {
				logger.Warn("closing driver", "error", err)
			}
		}
	}

	runners := make([]*scenario.Runner, 0, len(clients))
	for _, c := range clients {
		d, err := newDriver(cfg, c.BaseURL(), logger)
		if err != nil {
			closeAll()
			return nil, nil, errors.WithMessagef(err, "starting %s driver for %s", cfg.Driver, c.BaseURL())
		}
		drivers = append(drivers, d)
		runners = append(runners, scenario.NewRunner(c, d,
			scenario.WithTiming(cfg.Timing()),
			scenario.WithStepTimeout(cfg.Timeouts.Step),
			scenario.WithLogger(logger.With("target", c.BaseURL())),
		))
	}
	return scenario.NewPool(runners...), closeAll, nil
}
