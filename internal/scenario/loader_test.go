package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wondertwin-ai/blogcheck/internal/browser"
	"github.com/wondertwin-ai/blogcheck/internal/client"
)

const nestedSuite = `
name: Blog app
before_each:
  setup:
    users:
      - {name: Matti Luukkainen, username: mluukkai, password: salainen}
    visit: /
scenarios:
  - name: Login form is shown
    steps:
      - action: expect_visible
        locator: {text: log in to application}
groups:
  - name: When logged in
    before_each:
      steps:
        - action: login
          username: mluukkai
          password: salainen
    scenarios:
      - name: a new blog can be created
        steps:
          - action: click
            locator: {role: button, name: create new blog}
          - action: fill
            locator: {placeholder: Type title here}
            value: New Blog
    groups:
      - name: and several blogs exist
        before_each:
          setup:
            logins:
              - {username: mluukkai, password: salainen}
            blogs:
              - {title: First, author: A, url: http://a.example, likes: 2099}
        scenarios:
          - name: they are ordered by likes
            setup:
              reset: false
            steps:
              - action: click
                locator: {role: button, name: view, first: true}
              - action: click
                locator: {role: button, name: view, nth: 1}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestLoadSuiteAndFlatten(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bloglist.yaml", nestedSuite)
	s, err := LoadSuite(path)
	if err != nil {
		t.Fatalf("LoadSuite: %v", err)
	}

	flat := Flatten(s)
	var names []string
	for _, sc := range flat {
		names = append(names, sc.Name)
	}
	wantNames := []string{
		"Blog app > Login form is shown",
		"Blog app > When logged in > a new blog can be created",
		"Blog app > When logged in > and several blogs exist > they are ordered by likes",
	}
	if diff := cmp.Diff(wantNames, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	// top-level scenario: only the outer fixture
	if got := len(flat[0].Steps); got != 1 {
		t.Errorf("first scenario has %d steps, want 1", got)
	}
	if !flat[0].Setup.ResetEnabled() || flat[0].Setup.Visit != "/" {
		t.Errorf("first scenario setup = %+v", flat[0].Setup)
	}

	// fixture steps run before the scenario's own
	created := flat[1]
	if len(created.Steps) != 3 || created.Steps[0].Action != ActionLogin {
		t.Fatalf("steps = %+v", created.Steps)
	}
	if got := created.Steps[2].Locator.Placeholder; got != "Type title here" {
		t.Errorf("last step placeholder = %q", got)
	}

	ordered := flat[2]
	if ordered.Setup.ResetEnabled() {
		t.Error("explicit reset: false should win over the default")
	}
	wantSetup := &Setup{
		Reset:  ordered.Setup.Reset,
		Users:  []client.User{{Name: "Matti Luukkainen", Username: "mluukkai", Password: "salainen"}},
		Logins: []APILogin{{Username: "mluukkai", Password: "salainen"}},
		Blogs:  []SeedBlog{{Blog: client.Blog{Title: "First", Author: "A", URL: "http://a.example", Likes: 2099}}},
		Visit:  "/",
	}
	if diff := cmp.Diff(wantSetup, ordered.Setup); diff != "" {
		t.Errorf("merged setup mismatch (-want +got):\n%s", diff)
	}
	if got := ordered.Steps[1].Locator.String(); got != "getByRole('button', { name: 'view' }).first()" {
		t.Errorf("locator = %s", got)
	}
	if got := ordered.Steps[2].Locator.String(); got != "getByRole('button', { name: 'view' }).nth(1)" {
		t.Errorf("locator = %s", got)
	}
}

func TestFlattenDoesNotShareSlices(t *testing.T) {
	s := &Suite{
		Name:    "root",
		Fixture: &Fixture{Steps: make([]Step, 1, 8)},
		Scenarios: []Scenario{
			{Name: "a", Steps: []Step{Goto("/a")}},
			{Name: "b", Steps: []Step{Goto("/b")}},
		},
	}
	s.Fixture.Steps[0] = Goto("/")
	flat := Flatten(s)
	if flat[0].Steps[1].Value != "/a" || flat[1].Steps[1].Value != "/b" {
		t.Errorf("scenario steps overwrote each other: %+v / %+v", flat[0].Steps, flat[1].Steps)
	}
}

func TestLoadSuiteJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "login.json", `{
		"name": "json suite",
		"scenarios": [{
			"name": "login",
			"setup": {"users": [{"name": "N", "username": "u", "password": "p"}], "visit": "/"},
			"steps": [
				{"action": "login", "username": "u", "password": "p"},
				{"action": "expect_visible", "locator": {"text": "N logged in", "exact": true}}
			]
		}]
	}`)
	s, err := LoadSuite(path)
	if err != nil {
		t.Fatalf("LoadSuite: %v", err)
	}
	flat := Flatten(s)
	if len(flat) != 1 || flat[0].Name != "json suite > login" {
		t.Fatalf("flat = %+v", flat)
	}
	want := browser.ByText("N logged in").WithExact(true)
	if diff := cmp.Diff(&want, flat[0].Steps[1].Locator); diff != "" {
		t.Errorf("locator mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSuiteValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing name", "scenarios: [{name: x, steps: []}]", "name is required"},
		{"empty suite", "name: s", "at least one scenario or group"},
		{"unknown action", "name: s\nscenarios: [{name: x, steps: [{action: hover}]}]", `unknown action "hover"`},
		{"missing locator", "name: s\nscenarios: [{name: x, steps: [{action: click}]}]", "locator is required"},
		{"empty locator", "name: s\nscenarios: [{name: x, steps: [{action: click, locator: {}}]}]", "locator needs one of"},
		{"locator on goto", "name: s\nscenarios: [{name: x, steps: [{action: goto, locator: {text: a}}]}]", "takes no locator"},
		{"login without username", "name: s\nscenarios: [{name: x, steps: [{action: login}]}]", "username is required"},
		{"duplicate scenario", "name: s\nscenarios: [{name: x, steps: []}, {name: x, steps: []}]", "duplicate scenario"},
		{"unnamed group", "name: s\ngroups: [{scenarios: [{name: x, steps: []}]}]", "group name is required"},
		{"negative likes", "name: s\nscenarios: [{name: x, setup: {blogs: [{title: t, likes: -1}]}, steps: []}]", "must not be negative"},
		{"unknown field", "name: s\nscenarios: [{name: x, stepz: []}]", "not found"},
		{"first with nth", "name: s\nscenarios: [{name: x, steps: [{action: click, locator: {text: a, first: true, nth: 2}}]}]", "first"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "suite.yaml", tt.content)
			_, err := LoadSuite(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadSuiteRejectsUnknownExtension(t *testing.T) {
	path := writeFile(t, t.TempDir(), "suite.toml", "name = 's'")
	if _, err := LoadSuite(path); err == nil || !strings.Contains(err.Error(), "unsupported extension") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "name: second\nscenarios: [{name: x, steps: [{action: goto, value: /}]}]")
	writeFile(t, dir, "a.json", `{"name": "first", "scenarios": [{"name": "y", "steps": [{"action": "reload"}]}]}`)
	writeFile(t, dir, "notes.txt", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755); err != nil {
		t.Fatal(err)
	}

	suites, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(suites) != 2 || suites[0].Name != "first" || suites[1].Name != "second" {
		t.Fatalf("suites = %+v", suites)
	}
}

func TestStepTitle(t *testing.T) {
	tests := []struct {
		step Step
		want string
	}{
		{Click(browser.ByRole("button", "like")), "click getByRole('button', { name: 'like' })"},
		{Goto("/"), "goto /"},
		{Login("mluukkai", "x"), "login as mluukkai"},
		{AcceptDialog(), "accept_dialog"},
		{Reload().Named("refresh"), "refresh"},
	}
	for _, tt := range tests {
		if got := tt.step.Title(); got != tt.want {
			t.Errorf("Title() = %q, want %q", got, tt.want)
		}
	}
}
