// Package browser defines how scenarios address and observe elements on the
// page under test, independent of the driver that renders it.
package browser

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Strategy is the query a Locator resolves with.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyTestID
	StrategyRole
	StrategyPlaceholder
	StrategyText
)

func (s Strategy) String() string {
	switch s {
	case StrategyTestID:
		return "testid"
	case StrategyRole:
		return "role"
	case StrategyPlaceholder:
		return "placeholder"
	case StrategyText:
		return "text"
	default:
		return "none"
	}
}

// Locator addresses elements by test id, accessible role and name,
// placeholder, or visible text. When several are set the first in that order
// wins.
//
// Name and text match case-insensitively as substrings after whitespace
// normalization unless Exact is set. Without an ordinal, actions require the
// locator to resolve to exactly one element.
type Locator struct {
	TestID      string `yaml:"testid,omitempty" json:"testid,omitempty"`
	Role        string `yaml:"role,omitempty" json:"role,omitempty"`
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Placeholder string `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	Text        string `yaml:"text,omitempty" json:"text,omitempty"`
	Exact       bool   `yaml:"exact,omitempty" json:"exact,omitempty"`
	// Ordinal selects the k-th match (0-based) in document order.
	Ordinal *int `yaml:"nth,omitempty" json:"nth,omitempty"`
}

// ByTestID locates the element carrying data-testid=id.
func ByTestID(id string) Locator { return Locator{TestID: id} }

// ByRole locates elements by ARIA role and, when name is non-empty,
// accessible name.
func ByRole(role, name string) Locator { return Locator{Role: role, Name: name} }

// ByPlaceholder locates inputs by placeholder text.
func ByPlaceholder(text string) Locator { return Locator{Placeholder: text} }

// ByText locates the smallest elements containing text.
func ByText(text string) Locator { return Locator{Text: text} }

// Nth returns a copy narrowed to the k-th match.
func (l Locator) Nth(k int) Locator {
	l.Ordinal = &k
	return l
}

// First returns a copy narrowed to the first match.
func (l Locator) First() Locator { return l.Nth(0) }

// WithExact returns a copy with exact matching on or off.
func (l Locator) WithExact(exact bool) Locator {
	l.Exact = exact
	return l
}

// Index reports the ordinal, if one is set.
func (l Locator) Index() (int, bool) {
	if l.Ordinal == nil {
		return 0, false
	}
	return *l.Ordinal, true
}

// Strategy reports the query the locator resolves with.
func (l Locator) Strategy() Strategy {
	switch {
	case l.TestID != "":
		return StrategyTestID
	case l.Role != "":
		return StrategyRole
	case l.Placeholder != "":
		return StrategyPlaceholder
	case l.Text != "":
		return StrategyText
	default:
		return StrategyNone
	}
}

// IsZero reports whether no query field is set.
func (l Locator) IsZero() bool { return l.Strategy() == StrategyNone }

// Validate rejects locators that cannot resolve anything.
func (l Locator) Validate() error {
	if l.IsZero() {
		return fmt.Errorf("locator needs one of testid, role, placeholder or text")
	}
	if k, ok := l.Index(); ok && k < 0 {
		return fmt.Errorf("locator %s: nth must not be negative", l)
	}
	return nil
}

// String renders the locator the way Playwright prints it, e.g.
// getByRole('button', { name: 'view' }).nth(1).
func (l Locator) String() string {
	var b strings.Builder
	switch l.Strategy() {
	case StrategyTestID:
		fmt.Fprintf(&b, "getByTestId(%s)", quote(l.TestID))
	case StrategyRole:
		fmt.Fprintf(&b, "getByRole(%s", quote(l.Role))
		switch {
		case l.Name != "" && l.Exact:
			fmt.Fprintf(&b, ", { name: %s, exact: true }", quote(l.Name))
		case l.Name != "":
			fmt.Fprintf(&b, ", { name: %s }", quote(l.Name))
		}
		b.WriteString(")")
	case StrategyPlaceholder:
		fmt.Fprintf(&b, "getByPlaceholder(%s%s)", quote(l.Placeholder), exactOpt(l.Exact))
	case StrategyText:
		fmt.Fprintf(&b, "getByText(%s%s)", quote(l.Text), exactOpt(l.Exact))
	default:
		return "<empty locator>"
	}
	if k, ok := l.Index(); ok {
		if k == 0 {
			b.WriteString(".first()")
		} else {
			fmt.Fprintf(&b, ".nth(%d)", k)
		}
	}
	return b.String()
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func exactOpt(exact bool) string {
	if exact {
		return ", { exact: true }"
	}
	return ""
}

// locatorDoc is the decoded form; first: true is shorthand for nth: 0.
type locatorDoc struct {
	TestID      string `yaml:"testid" json:"testid"`
	Role        string `yaml:"role" json:"role"`
	Name        string `yaml:"name" json:"name"`
	Placeholder string `yaml:"placeholder" json:"placeholder"`
	Text        string `yaml:"text" json:"text"`
	Exact       bool   `yaml:"exact" json:"exact"`
	Nth         *int   `yaml:"nth" json:"nth"`
	First       bool   `yaml:"first" json:"first"`
}

func (d locatorDoc) locator() (Locator, error) {
	l := Locator{
		TestID:      d.TestID,
		Role:        d.Role,
		Name:        d.Name,
		Placeholder: d.Placeholder,
		Text:        d.Text,
		Exact:       d.Exact,
		Ordinal:     d.Nth,
	}
	if d.First {
		if d.Nth != nil && *d.Nth != 0 {
			return Locator{}, fmt.Errorf("locator sets both first and nth: %d", *d.Nth)
		}
		l = l.First()
	}
	return l, nil
}

// UnmarshalYAML accepts the scenario file form, including first: true.
func (l *Locator) UnmarshalYAML(value *yaml.Node) error {
	var d locatorDoc
	if err := value.Decode(&d); err != nil {
		return err
	}
	out, err := d.locator()
	if err != nil {
		return err
	}
	*l = out
	return nil
}

// UnmarshalJSON accepts the scenario file form, including "first": true.
func (l *Locator) UnmarshalJSON(data []byte) error {
	var d locatorDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	out, err := d.locator()
	if err != nil {
		return err
	}
	*l = out
	return nil
}

// NormalizeSpace collapses runs of whitespace to single spaces and trims.
func NormalizeSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// MatchText reports whether haystack matches needle under Playwright's text
// rules: whitespace-normalized, then case-insensitive substring, or full
// case-sensitive equality when exact.
func MatchText(haystack, needle string, exact bool) bool {
	h, n := NormalizeSpace(haystack), NormalizeSpace(needle)
	if exact {
		return h == n
	}
	return strings.Contains(strings.ToLower(h), strings.ToLower(n))
}
