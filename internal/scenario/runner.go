package scenario

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/wondertwin-ai/blogcheck/internal/browser"
	"github.com/wondertwin-ai/blogcheck/internal/client"
	"github.com/wondertwin-ai/blogcheck/internal/failure"
)

// Locators used by the login and logout step macros.
var (
	LoginUsernameField = browser.ByTestID("username")
	LoginPasswordField = browser.ByTestID("password")
	LoginButton        = browser.ByRole("button", "login")
	LogoutButton       = browser.ByRole("button", "logout")
)

// DefaultStepTimeout bounds a single step, on top of the waits inside it.
const DefaultStepTimeout = 30 * time.Second

// StepResult records the outcome of a single step.
type StepResult struct {
	Name     string
	Action   Action
	Passed   bool
	Skipped  bool // not run because an earlier step failed
	Duration time.Duration
	Error    string // empty when passed
	Kind     failure.Kind
}

// Result records the outcome of an entire scenario.
type Result struct {
	ScenarioName string
	Target       string
	Passed       bool
	Phase        Phase // Passed or Failed once the run ends
	Steps        []StepResult
	Duration     time.Duration
	Err          error
	Kind         failure.Kind
}

// Runner executes scenarios against one application instance.
type Runner struct {
	client      *client.Client
	driver      browser.Driver
	timing      browser.Timing
	stepTimeout time.Duration
	logger      *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTiming sets the action and assertion waits.
func WithTiming(t browser.Timing) RunnerOption {
	return func(r *Runner) { r.timing = t.WithDefaults() }
}

// WithStepTimeout bounds each step as a whole.
func WithStepTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.stepTimeout = d }
}

// WithLogger sets the logger for phase and step tracing.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a Runner that seeds through c and drives pages from d.
// Both must address the same application.
func NewRunner(c *client.Client, d browser.Driver, opts ...RunnerOption) *Runner {
	r := &Runner{
		client:      c,
		driver:      d,
		timing:      browser.DefaultTiming(),
		stepTimeout: DefaultStepTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Target is the base URL of the application the runner drives.
func (r *Runner) Target() string { return r.client.BaseURL() }

// Run executes a single scenario. Every failure, including setup failures,
// is reported in the Result.
func (r *Runner) Run(ctx context.Context, s *Scenario) *Result {
	start := time.Now()
	res := &Result{ScenarioName: s.Name, Target: r.Target()}
	log := r.logger.With("scenario", s.Name)
	m := &machine{onChange: func(from, to Phase) {
		log.Debug("phase", "from", from.String(), "to", to.String())
	}}

	vars := make(map[string]string, len(s.Variables))
	for k, v := range s.Variables {
		vars[k] = v
	}

	err := r.prepare(ctx, m, s.Setup, vars)
	if err == nil {
		err = r.act(ctx, m, s, vars, res, log)
	}
	// steps never reached are skipped
	for i := len(res.Steps); i < len(s.Steps); i++ {
		res.Steps = append(res.Steps, StepResult{Name: s.Steps[i].Title(), Action: s.Steps[i].Action, Skipped: true})
	}

	if err != nil {
		m.advance(PhaseFailed)
		res.Err = err
		res.Kind = failure.KindOf(err)
		if res.Kind == failure.KindEnvironment {
			log.Warn("environment failure", "error", err)
		}
	} else if err := m.advance(PhasePassed); err != nil {
		m.advance(PhaseFailed)
		res.Err, res.Kind = err, failure.KindOther
	}
	res.Phase = m.cur
	res.Passed = m.cur == PhasePassed
	res.Duration = time.Since(start)
	log.Debug("scenario finished", "passed", res.Passed, "kind", string(res.Kind), "duration", res.Duration)
	return res
}

// prepare resets the collaborator and seeds it. Failures are environment
// errors.
func (r *Runner) prepare(ctx context.Context, m *machine, setup *Setup, vars map[string]string) error {
	if setup.ResetEnabled() {
		if err := m.advance(PhaseResetting); err != nil {
			return err
		}
		if err := r.resetState(ctx); err != nil {
			return err
		}
	}
	if err := m.advance(PhaseSeeding); err != nil {
		return err
	}
	if setup == nil {
		return nil
	}

	for _, u := range setup.Users {
		u, err := r.expandUser(u, vars)
		if err != nil {
			return setupError("seed user", err)
		}
		if err := r.seedUser(ctx, u); err != nil {
			return err
		}
	}

	for _, l := range setup.Logins {
		username, err := ExpandTemplates(l.Username, r.Target(), vars)
		if err != nil {
			return setupError("login", err)
		}
		password, err := ExpandTemplates(l.Password, r.Target(), vars)
		if err != nil {
			return setupError("login", err)
		}
		token, body, err := r.authenticate(ctx, username, password)
		if err != nil {
			var auth *failure.AuthenticationError
			if errors.As(err, &auth) {
				return &failure.EnvironmentError{Op: "login", Endpoint: r.client.Endpoint(client.PathLogin), Status: auth.Status, Err: err}
			}
			return err
		}
		vars[l.variable()] = token
		for name, path := range l.Capture {
			v, err := ExtractJSONPath(body, path)
			if err != nil {
				return setupError("capture "+name, err)
			}
			vars[name] = v
		}
	}

	for _, b := range setup.Blogs {
		tokenTmpl := b.Token
		if tokenTmpl == "" {
			tokenTmpl = "{{token}}"
		}
		token, err := ExpandTemplates(tokenTmpl, r.Target(), vars)
		if err != nil {
			return setupError("seed blog "+b.Title, err)
		}
		blog := b.Blog
		for _, f := range []*string{&blog.Title, &blog.Author, &blog.URL} {
			if *f, err = ExpandTemplates(*f, r.Target(), vars); err != nil {
				return setupError("seed blog "+b.Title, err)
			}
		}
		if _, err := r.client.CreateBlog(ctx, token, blog); err != nil {
			return err
		}
	}
	return nil
}

func setupError(op string, err error) error {
	return &failure.EnvironmentError{Op: op, Endpoint: "setup", Err: err}
}

func (r *Runner) expandUser(u client.User, vars map[string]string) (client.User, error) {
	var err error
	for _, f := range []*string{&u.Name, &u.Username, &u.Password} {
		if *f, err = ExpandTemplates(*f, r.Target(), vars); err != nil {
			return u, err
		}
	}
	return u, nil
}

// resetState empties the collaborator's users and blogs.
func (r *Runner) resetState(ctx context.Context) error {
	return r.client.Reset(ctx)
}

// seedUser creates a user. Duplicates are not filtered; the collaborator's
// rejection surfaces as an environment error.
func (r *Runner) seedUser(ctx context.Context, u client.User) error {
	return r.client.CreateUser(ctx, u)
}

// authenticate logs in through the API and returns the session token with
// the raw response for captures.
func (r *Runner) authenticate(ctx context.Context, username, password string) (string, []byte, error) {
	body, err := r.client.LoginRaw(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	token, err := ExtractJSONPath(body, "$.token")
	if err != nil {
		return "", nil, &failure.EnvironmentError{Op: "login", Endpoint: r.client.Endpoint(client.PathLogin), Err: err}
	}
	return token, body, nil
}

// act opens a fresh page, visits the setup page and runs the steps in
// order, stopping at the first failure.
func (r *Runner) act(ctx context.Context, m *machine, s *Scenario, vars map[string]string, res *Result, log *slog.Logger) error {
	page, err := r.driver.NewPage(ctx)
	if err != nil {
		return &failure.EnvironmentError{Op: "open page", Endpoint: r.Target(), Err: err}
	}
	defer page.Close()

	if s.Setup != nil && s.Setup.Visit != "" {
		if err := m.advance(PhaseActing); err != nil {
			return err
		}
		path, err := ExpandTemplates(s.Setup.Visit, r.Target(), vars)
		if err != nil {
			return setupError("visit", err)
		}
		if err := page.Goto(ctx, path); err != nil {
			return &failure.EnvironmentError{Op: "visit", Endpoint: path, Err: err}
		}
	}

	for _, st := range s.Steps {
		phase := PhaseActing
		if st.Action.asserts() {
			phase = PhaseAsserting
		}
		if err := m.advance(phase); err != nil {
			return err
		}

		start := time.Now()
		err := r.runStep(ctx, page, st, vars)
		sr := StepResult{
			Name:     st.Title(),
			Action:   st.Action,
			Passed:   err == nil,
			Duration: time.Since(start),
			Kind:     failure.KindOf(err),
		}
		if err != nil {
			sr.Error = err.Error()
		}
		res.Steps = append(res.Steps, sr)
		log.Debug("step", "step", sr.Name, "phase", phase.String(), "passed", sr.Passed, "duration", sr.Duration)
		if err != nil {
			return errors.WithMessagef(err, "step %q", sr.Name)
		}
	}
	return nil
}

// runStep runs one step under the step timeout.
func (r *Runner) runStep(ctx context.Context, page browser.Page, st Step, vars map[string]string) error {
	sctx, cancel := context.WithTimeout(ctx, r.stepTimeout)
	defer cancel()

	start := time.Now()
	err := r.perform(sctx, page, st, vars)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		target := st.Title()
		if st.Locator != nil {
			target = st.Locator.String()
		}
		return &failure.TimeoutError{Locator: target, Want: "done", Elapsed: time.Since(start), Last: err.Error()}
	}
	return err
}

// perform executes one step. Interactions wait for their target first.
func (r *Runner) perform(ctx context.Context, page browser.Page, st Step, vars map[string]string) error {
	value, err := ExpandTemplates(st.Value, r.Target(), vars)
	if err != nil {
		return err
	}

	switch st.Action {
	case ActionGoto:
		if value == "" {
			value = "/"
		}
		if err := page.Goto(ctx, value); err != nil {
			if ctx.Err() != nil {
				return err
			}
			return &failure.EnvironmentError{Op: "goto", Endpoint: value, Err: err}
		}
		return nil
	case ActionReload:
		return page.Reload(ctx)
	case ActionFill:
		return r.fill(ctx, page, *st.Locator, value)
	case ActionClick:
		return r.click(ctx, page, *st.Locator)
	case ActionExpectVisible:
		_, err := browser.ExpectVisible(ctx, page, *st.Locator, r.timing)
		return err
	case ActionExpectHidden:
		_, err := browser.ExpectHidden(ctx, page, *st.Locator, r.timing)
		return err
	case ActionAcceptDialog:
		if value == "" {
			page.OnceDialog(browser.AcceptDialog)
			return nil
		}
		page.OnceDialog(func(message string) bool {
			return browser.MatchText(message, value, false)
		})
		return nil
	case ActionDismissDialog:
		page.OnceDialog(browser.DismissDialog)
		return nil
	case ActionLogin:
		username, err := ExpandTemplates(st.Username, r.Target(), vars)
		if err != nil {
			return err
		}
		password, err := ExpandTemplates(st.Password, r.Target(), vars)
		if err != nil {
			return err
		}
		if err := r.fill(ctx, page, LoginUsernameField, username); err != nil {
			return err
		}
		if err := r.fill(ctx, page, LoginPasswordField, password); err != nil {
			return err
		}
		return r.click(ctx, page, LoginButton)
	case ActionLogout:
		return r.click(ctx, page, LogoutButton)
	default:
		return errors.Errorf("unknown action %q", st.Action)
	}
}

func (r *Runner) fill(ctx context.Context, page browser.Page, loc browser.Locator, value string) error {
	if _, err := browser.WaitActionable(ctx, page, loc, r.timing); err != nil {
		return err
	}
	return page.Fill(ctx, loc, value)
}

func (r *Runner) click(ctx context.Context, page browser.Page, loc browser.Locator) error {
	if _, err := browser.WaitActionable(ctx, page, loc, r.timing); err != nil {
		return err
	}
	return page.Click(ctx, loc)
}
