package browser

import (
	"context"
	"fmt"
	"time"
)

// Driver opens isolated pages: each page has its own cookies and storage.
type Driver interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is one browsing context. Interactions act on a single element and
// fail if the locator is ambiguous; callers wait for the target first.
type Page interface {
	// Goto navigates to path, relative to the driver's base URL.
	Goto(ctx context.Context, path string) error
	// Reload fetches the current document again.
	Reload(ctx context.Context) error
	Fill(ctx context.Context, loc Locator, value string) error
	Click(ctx context.Context, loc Locator) error
	// Query observes the locator's current state without waiting.
	Query(ctx context.Context, loc Locator) (Observation, error)
	// OnceDialog registers a handler for the next dialog only.
	OnceDialog(h DialogHandler)
	Close() error
}

// DialogHandler decides the fate of a confirm dialog: true accepts it.
// Dialogs with no registered handler are dismissed.
type DialogHandler func(message string) bool

// AcceptDialog accepts any dialog.
func AcceptDialog(string) bool { return true }

// DismissDialog dismisses any dialog.
func DismissDialog(string) bool { return false }

// Observation is the state of a locator at one instant.
type Observation struct {
	// Count is the number of matching elements, ignoring any ordinal.
	Count int
	// Attached reports whether the targeted element exists: the ordinal
	// match, or the first match when no ordinal is set.
	Attached bool
	Visible  bool
	Text     string
}

// Ambiguous reports a strict-mode violation: several matches and no ordinal.
func (o Observation) Ambiguous(loc Locator) bool {
	_, ok := loc.Index()
	return !ok && o.Count > 1
}

func (o Observation) String() string {
	switch {
	case o.Count == 0:
		return "no matching element"
	case !o.Attached:
		return fmt.Sprintf("%d matches, none at the requested position", o.Count)
	case o.Count > 1 && o.Visible:
		return fmt.Sprintf("visible %q (%d matches)", o.Text, o.Count)
	case o.Count > 1:
		return fmt.Sprintf("hidden (%d matches)", o.Count)
	case o.Visible:
		return fmt.Sprintf("visible %q", o.Text)
	default:
		return "hidden"
	}
}

// Timing bounds every wait.
type Timing struct {
	Action time.Duration `yaml:"action" json:"action"`
	Assert time.Duration `yaml:"assert" json:"assert"`
	Poll   time.Duration `yaml:"poll" json:"poll"`
}

// DefaultTiming matches Playwright's expect and action defaults closely
// enough for a local collaborator.
func DefaultTiming() Timing {
	return Timing{
		Action: 5 * time.Second,
		Assert: 5 * time.Second,
		Poll:   100 * time.Millisecond,
	}
}

// WithDefaults fills zero fields from DefaultTiming.
func (t Timing) WithDefaults() Timing {
	d := DefaultTiming()
	if t.Action <= 0 {
		t.Action = d.Action
	}
	if t.Assert <= 0 {
		t.Assert = d.Assert
	}
	if t.Poll <= 0 {
		t.Poll = d.Poll
	}
	return t
}
