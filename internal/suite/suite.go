// Package suite embeds the built-in blog list suite.
package suite

import (
	_ "embed"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/wondertwin-ai/blogcheck/internal/scenario"
)

// FileName is the name the built-in suite is reported under.
const FileName = "bloglist.yaml"

//go:embed bloglist.yaml
var bloglistYAML []byte

// Source returns the raw YAML of the built-in suite.
func Source() []byte {
	return append([]byte(nil), bloglistYAML...)
}

// Builtin parses the built-in suite.
func Builtin() (*scenario.Suite, error) {
	return scenario.ParseSuite(bloglistYAML, FileName)
}

// Scenarios returns the built-in suite flattened into runnable scenarios.
func Scenarios() ([]*scenario.Scenario, error) {
	s, err := Builtin()
	if err != nil {
		return nil, err
	}
	return scenario.Flatten(s), nil
}

// Load returns the scenarios of every suite under paths (files or
// directories), or the built-in suite when paths is empty.
func Load(paths []string) ([]*scenario.Scenario, error) {
	if len(paths) == 0 {
		return Scenarios()
	}
	var out []*scenario.Scenario
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.Wrapf(err, "suite path %s", p)
		}
		var suites []*scenario.Suite
		if info.IsDir() {
			if suites, err = scenario.LoadDir(p); err != nil {
				return nil, err
			}
			if len(suites) == 0 {
				return nil, errors.Errorf("no suites in %s", p)
			}
		} else {
			s, err := scenario.LoadSuite(p)
			if err != nil {
				return nil, err
			}
			suites = append(suites, s)
		}
		for _, s := range suites {
			out = append(out, scenario.Flatten(s)...)
		}
	}
	return out, nil
}

// Filter keeps scenarios whose qualified name contains pattern,
// case-insensitively. An empty pattern keeps everything.
func Filter(scenarios []*scenario.Scenario, pattern string) []*scenario.Scenario {
	if pattern == "" {
		return scenarios
	}
	pattern = strings.ToLower(pattern)
	var out []*scenario.Scenario
	for _, s := range scenarios {
		if strings.Contains(strings.ToLower(s.Name), pattern) {
			out = append(out, s)
		}
	}
	return out
}
