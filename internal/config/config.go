// Package config loads the blogcheck configuration file, blogcheck.yaml,
// and applies environment overrides.
package config

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/wondertwin-ai/blogcheck/internal/browser"
)

// DefaultConfigFile is looked up in the working directory when no path is
// given.
const DefaultConfigFile = "blogcheck.yaml"

// Environment variables that override the file.
const (
	EnvConfig   = "BLOGCHECK_CONFIG"
	EnvTarget   = "BLOGCHECK_TARGET" // comma-separated base URLs
	EnvDriver   = "BLOGCHECK_DRIVER"
	EnvHeadless = "HEADLESS" // "false" shows the browser
)

// Drivers.
const (
	DriverHTML       = "html"
	DriverPlaywright = "playwright"
)

// Browser configures the Playwright driver.
type Browser struct {
	Name     string `yaml:"name" json:"name"`
	Headless bool   `yaml:"headless" json:"headless"`
	Install  bool   `yaml:"install,omitempty" json:"install,omitempty"`
}

// Timeouts bounds waits and requests.
type Timeouts struct {
	Action time.Duration `yaml:"action" json:"action"`
	Assert time.Duration `yaml:"assert" json:"assert"`
	Poll   time.Duration `yaml:"poll" json:"poll"`
	HTTP   time.Duration `yaml:"http" json:"http"`
	Step   time.Duration `yaml:"step" json:"step"`
}

// Config represents the contents of blogcheck.yaml.
type Config struct {
	// Targets lists application base URLs. Each must have its own store;
	// scenarios run in parallel across them.
	Targets  []string `yaml:"targets" json:"targets"`
	Driver   string   `yaml:"driver" json:"driver"`
	Browser  Browser  `yaml:"browser" json:"browser"`
	Timeouts Timeouts `yaml:"timeouts" json:"timeouts"`
	// Suites are files or directories; empty runs the built-in suite.
	Suites []string `yaml:"suites,omitempty" json:"suites,omitempty"`
	// Journal is the run history directory; empty disables it.
	Journal string `yaml:"journal,omitempty" json:"journal,omitempty"`
	Verbose bool   `yaml:"verbose,omitempty" json:"verbose,omitempty"`

	// Path is where the config was read from, "" for defaults.
	Path string `yaml:"-" json:"-"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	t := browser.DefaultTiming()
	return &Config{
		Targets: []string{"http://localhost:3003"},
		Driver:  DriverHTML,
		Browser: Browser{Name: "chromium", Headless: true},
		Timeouts: Timeouts{
			Action: t.Action,
			Assert: t.Assert,
			Poll:   t.Poll,
			HTTP:   10 * time.Second,
			Step:   30 * time.Second,
		},
		Journal: filepath.Join(".blogcheck", "journal"),
	}
}

// Load resolves the config path (explicit, then $BLOGCHECK_CONFIG, then
// ./blogcheck.yaml), reads it, and applies environment overrides. Only the
// implicit default file may be missing.
func Load(explicit string) (*Config, error) {
	path, required := explicit, true
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path, required = DefaultConfigFile, false
	}

	cfg, err := LoadFrom(path, strings.EqualFold(filepath.Ext(path), ".json"))
	switch {
	case err == nil:
	case !required && os.IsNotExist(errors.Cause(err)):
		cfg = Default()
	default:
		return nil, err
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads a YAML or JSON config file over the defaults.
func LoadFrom(path string, isJSON bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}

	cfg := Default()
	if isJSON {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	cfg.Path = path
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvTarget); v != "" {
		var targets []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				targets = append(targets, t)
			}
		}
		c.Targets = targets
	}
	if v := os.Getenv(EnvDriver); v != "" {
		c.Driver = strings.ToLower(v)
	}
	switch strings.ToLower(os.Getenv(EnvHeadless)) {
	case "false", "0", "no":
		c.Browser.Headless = false
	case "true", "1", "yes":
		c.Browser.Headless = true
	}
}

// Validate rejects configs the runner cannot use.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return errors.New("config: at least one target is required")
	}
	seen := make(map[string]bool)
	for _, t := range c.Targets {
		u, err := url.Parse(t)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Errorf("config: target %q must be an absolute URL", t)
		}
		key := strings.TrimRight(t, "/")
		if seen[key] {
			return errors.Errorf("config: target %q listed twice; targets must not share a store", t)
		}
		seen[key] = true
	}
	switch c.Driver {
	case DriverHTML, DriverPlaywright:
	default:
		return errors.Errorf("config: unknown driver %q (expected %s or %s)", c.Driver, DriverHTML, DriverPlaywright)
	}
	for name, d := range map[string]time.Duration{
		"action": c.Timeouts.Action,
		"assert": c.Timeouts.Assert,
		"poll":   c.Timeouts.Poll,
		"http":   c.Timeouts.HTTP,
		"step":   c.Timeouts.Step,
	} {
		if d <= 0 {
			return errors.Errorf("config: timeouts.%s must be positive", name)
		}
	}
	return nil
}

// Timing returns the browser waits.
func (c *Config) Timing() browser.Timing {
	return browser.Timing{Action: c.Timeouts.Action, Assert: c.Timeouts.Assert, Poll: c.Timeouts.Poll}
}

// Save writes the config as YAML, creating parent directories.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "creating config dir")
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	return os.WriteFile(path, data, 0o644)
}
