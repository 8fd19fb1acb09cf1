// Package scenario runs browser-driven end-to-end scenarios against the blog
// application: it resets and seeds state through the API, then drives a page
// through UI steps and asserts on what the page shows.
package scenario

import (
	"github.com/wondertwin-ai/blogcheck/internal/browser"
	"github.com/wondertwin-ai/blogcheck/internal/client"
)

// Suite is a named group of scenarios. Groups nest; each group's Fixture
// runs before every scenario below it, outer groups first.
type Suite struct {
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Fixture     *Fixture   `yaml:"before_each,omitempty" json:"before_each,omitempty"`
	Scenarios   []Scenario `yaml:"scenarios,omitempty" json:"scenarios,omitempty"`
	Groups      []Suite    `yaml:"groups,omitempty" json:"groups,omitempty"`
}

// Fixture is shared setup: API seeding followed by UI steps.
type Fixture struct {
	Setup *Setup `yaml:"setup,omitempty" json:"setup,omitempty"`
	Steps []Step `yaml:"steps,omitempty" json:"steps,omitempty"`
}

// Scenario is a single runnable test case.
type Scenario struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Setup       *Setup            `yaml:"setup,omitempty" json:"setup,omitempty"`
	Variables   map[string]string `yaml:"variables,omitempty" json:"variables,omitempty"`
	Steps       []Step            `yaml:"steps" json:"steps"`
}

// Setup prepares collaborator state through the API before any UI step.
type Setup struct {
	// Reset defaults to true. Set it to false only for scenarios that build
	// on state they create themselves.
	Reset  *bool         `yaml:"reset,omitempty" json:"reset,omitempty"`
	Users  []client.User `yaml:"users,omitempty" json:"users,omitempty"`
	Logins []APILogin    `yaml:"logins,omitempty" json:"logins,omitempty"`
	Blogs  []SeedBlog    `yaml:"blogs,omitempty" json:"blogs,omitempty"`
	// Visit is the path opened once seeding is done.
	Visit string `yaml:"visit,omitempty" json:"visit,omitempty"`
}

// ResetEnabled reports whether the scenario starts from an empty store.
func (s *Setup) ResetEnabled() bool {
	return s == nil || s.Reset == nil || *s.Reset
}

// APILogin authenticates through the API and stores the token in the
// variable named by As ("token" when empty). Capture maps further variables
// to JSONPath expressions over the login response.
type APILogin struct {
	Username string            `yaml:"username" json:"username"`
	Password string            `yaml:"password" json:"password"`
	As       string            `yaml:"as,omitempty" json:"as,omitempty"`
	Capture  map[string]string `yaml:"capture,omitempty" json:"capture,omitempty"`
}

func (l APILogin) variable() string {
	if l.As == "" {
		return "token"
	}
	return l.As
}

// SeedBlog is a blog created through the API. Token defaults to
// "{{token}}", the most recent API login.
type SeedBlog struct {
	client.Blog `yaml:",inline"`
	Token       string `yaml:"token,omitempty" json:"token,omitempty"`
}

// Action names a step kind.
type Action string

const (
	ActionGoto          Action = "goto"
	ActionReload        Action = "reload"
	ActionFill          Action = "fill"
	ActionClick         Action = "click"
	ActionExpectVisible Action = "expect_visible"
	ActionExpectHidden  Action = "expect_hidden"
	ActionAcceptDialog  Action = "accept_dialog"
	ActionDismissDialog Action = "dismiss_dialog"
	ActionLogin         Action = "login"
	ActionLogout        Action = "logout"
)

// needsLocator reports whether the action targets an element.
func (a Action) needsLocator() bool {
	switch a {
	case ActionFill, ActionClick, ActionExpectVisible, ActionExpectHidden:
		return true
	}
	return false
}

// asserts reports whether the action is an assertion rather than an
// interaction.
func (a Action) asserts() bool {
	return a == ActionExpectVisible || a == ActionExpectHidden
}

func (a Action) known() bool {
	switch a {
	case ActionGoto, ActionReload, ActionFill, ActionClick, ActionExpectVisible,
		ActionExpectHidden, ActionAcceptDialog, ActionDismissDialog, ActionLogin, ActionLogout:
		return true
	}
	return false
}

// Step is one UI interaction or assertion.
type Step struct {
	Name    string           `yaml:"name,omitempty" json:"name,omitempty"`
	Action  Action           `yaml:"action" json:"action"`
	Locator *browser.Locator `yaml:"locator,omitempty" json:"locator,omitempty"`
	// Value is the text to fill, the path to visit, or for accept_dialog
	// the text the dialog message must contain.
	Value    string `yaml:"value,omitempty" json:"value,omitempty"`
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Title is the step's display name.
func (s Step) Title() string {
	if s.Name != "" {
		return s.Name
	}
	switch {
	case s.Locator != nil:
		return string(s.Action) + " " + s.Locator.String()
	case s.Action == ActionGoto:
		return "goto " + s.Value
	case s.Action == ActionLogin:
		return "login as " + s.Username
	}
	return string(s.Action)
}
