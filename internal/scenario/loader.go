package scenario

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// NameSeparator joins group and scenario names in qualified names.
const NameSeparator = " > "

// LoadSuite parses and validates a YAML or JSON suite file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading suite %s", path)
	}
	return ParseSuite(data, path)
}

// ParseSuite decodes a suite, choosing the format from name's extension.
func ParseSuite(data []byte, name string) (*Suite, error) {
	var s Suite
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil {
			return nil, errors.Wrapf(err, "parsing suite %s", name)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, errors.Wrapf(err, "parsing suite %s", name)
		}
	default:
		return nil, errors.Errorf("suite %s: unsupported extension %q (want .yaml, .yml or .json)", name, ext)
	}
	if err := s.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "suite %s", name)
	}
	return &s, nil
}

// LoadDir loads every suite file in dir, sorted by file name.
func LoadDir(dir string) ([]*Suite, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading suite directory %s", dir)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var suites []*Suite
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		s, err := LoadSuite(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		suites = append(suites, s)
	}
	return suites, nil
}

// Validate checks names, actions and locators throughout the suite.
func (s *Suite) Validate() error {
	return s.validate(nil)
}

func (s *Suite) validate(path []string) error {
	if s.Name == "" {
		if len(path) == 0 {
			return errors.New("name is required")
		}
		return errors.Errorf("%s: group name is required", strings.Join(path, NameSeparator))
	}
	path = append(path, s.Name)
	where := strings.Join(path, NameSeparator)

	if len(s.Scenarios) == 0 && len(s.Groups) == 0 {
		return errors.Errorf("%s: at least one scenario or group is required", where)
	}
	if s.Fixture != nil {
		if err := validateSetup(s.Fixture.Setup); err != nil {
			return errors.WithMessagef(err, "%s: before_each", where)
		}
		if err := validateSteps(s.Fixture.Steps); err != nil {
			return errors.WithMessagef(err, "%s: before_each", where)
		}
	}

	seen := make(map[string]bool)
	for i := range s.Scenarios {
		sc := &s.Scenarios[i]
		if sc.Name == "" {
			return errors.Errorf("%s: scenario %d: name is required", where, i+1)
		}
		if seen[sc.Name] {
			return errors.Errorf("%s: duplicate scenario %q", where, sc.Name)
		}
		seen[sc.Name] = true
		if err := sc.Validate(); err != nil {
			return errors.WithMessage(err, where)
		}
	}
	for i := range s.Groups {
		if err := s.Groups[i].validate(path); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the scenario's own setup and steps. A scenario may have
// no steps of its own when a fixture supplies them.
func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return errors.New("scenario name is required")
	}
	if err := validateSetup(sc.Setup); err != nil {
		return errors.WithMessagef(err, "scenario %q", sc.Name)
	}
	if err := validateSteps(sc.Steps); err != nil {
		return errors.WithMessagef(err, "scenario %q", sc.Name)
	}
	return nil
}

func validateSetup(s *Setup) error {
	if s == nil {
		return nil
	}
	for i, u := range s.Users {
		if u.Username == "" {
			return errors.Errorf("setup user %d: username is required", i+1)
		}
	}
	for i, l := range s.Logins {
		if l.Username == "" {
			return errors.Errorf("setup login %d: username is required", i+1)
		}
		for name, p := range l.Capture {
			if !strings.HasPrefix(p, "$") {
				return errors.Errorf("setup login %d: capture %q: JSONPath must start with $", i+1, name)
			}
		}
	}
	for i, b := range s.Blogs {
		if b.Title == "" {
			return errors.Errorf("setup blog %d: title is required", i+1)
		}
		if b.Likes < 0 {
			return errors.Errorf("setup blog %q: likes must not be negative", b.Title)
		}
	}
	return nil
}

func validateSteps(steps []Step) error {
	for i, st := range steps {
		n := i + 1
		if !st.Action.known() {
			return errors.Errorf("step %d: unknown action %q", n, st.Action)
		}
		if st.Action.needsLocator() {
			if st.Locator == nil {
				return errors.Errorf("step %d (%s): locator is required", n, st.Action)
			}
			if err := st.Locator.Validate(); err != nil {
				return errors.WithMessagef(err, "step %d (%s)", n, st.Action)
			}
		} else if st.Locator != nil {
			return errors.Errorf("step %d (%s): takes no locator", n, st.Action)
		}
		if st.Action == ActionLogin && st.Username == "" {
			return errors.Errorf("step %d (login): username is required", n)
		}
	}
	return nil
}

// Flatten expands the suite into runnable scenarios. Each scenario's name
// is qualified by its groups, its setup merges the fixtures above it (outer
// first), and fixture steps run before its own.
func Flatten(s *Suite) []*Scenario {
	var out []*Scenario
	flatten(s, nil, nil, nil, &out)
	return out
}

func flatten(s *Suite, names []string, setup *Setup, steps []Step, out *[]*Scenario) {
	names = append(names[:len(names):len(names)], s.Name)
	if s.Fixture != nil {
		setup = mergeSetup(setup, s.Fixture.Setup)
		steps = append(steps[:len(steps):len(steps)], s.Fixture.Steps...)
	}

	for _, sc := range s.Scenarios {
		run := &Scenario{
			Name:        strings.Join(append(names[:len(names):len(names)], sc.Name), NameSeparator),
			Description: sc.Description,
			Setup:       mergeSetup(setup, sc.Setup),
			Variables:   sc.Variables,
			Steps:       append(steps[:len(steps):len(steps)], sc.Steps...),
		}
		*out = append(*out, run)
	}
	for i := range s.Groups {
		flatten(&s.Groups[i], names, setup, steps, out)
	}
}

// mergeSetup layers inner over outer: seeds accumulate, an explicit Reset
// or a Visit in inner wins.
func mergeSetup(outer, inner *Setup) *Setup {
	if outer == nil && inner == nil {
		return nil
	}
	m := &Setup{}
	for _, s := range []*Setup{outer, inner} {
		if s == nil {
			continue
		}
		if s.Reset != nil {
			r := *s.Reset
			m.Reset = &r
		}
		m.Users = append(m.Users, s.Users...)
		m.Logins = append(m.Logins, s.Logins...)
		m.Blogs = append(m.Blogs, s.Blogs...)
		if s.Visit != "" {
			m.Visit = s.Visit
		}
	}
	return m
}
