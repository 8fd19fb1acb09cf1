// Package failure defines the error taxonomy shared by the API client, the
// browser drivers, and the scenario runner.
//
// Every scenario failure is one of four kinds. Environment errors mean the
// collaborator could not be set up and say nothing about product behaviour;
// the other three are product findings.
package failure

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a scenario failure.
type Kind string

const (
	KindNone           Kind = ""
	KindEnvironment    Kind = "environment"
	KindAuthentication Kind = "authentication"
	KindTimeout        Kind = "timeout"
	KindAssertion      Kind = "assertion"
	KindOther          Kind = "other"
)

// EnvironmentError reports a failed setup, reset, or seed call.
type EnvironmentError struct {
	Op       string // reset, seed user, login, seed blog, ...
	Endpoint string
	Status   int // 0 when the collaborator was unreachable
	Err      error
}

func (e *EnvironmentError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("environment: %s %s: status %d: %v", e.Op, e.Endpoint, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("environment: %s %s: status %d", e.Op, e.Endpoint, e.Status)
	default:
		return fmt.Sprintf("environment: %s %s: %v", e.Op, e.Endpoint, e.Err)
	}
}

func (e *EnvironmentError) Unwrap() error { return e.Err }

// AuthenticationError reports credentials that did not match a seeded user.
type AuthenticationError struct {
	Username string
	Status   int
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed for %q (status %d)", e.Username, e.Status)
}

// TimeoutError reports an element or state that never appeared within budget.
type TimeoutError struct {
	Locator string
	Want    string // what was awaited, e.g. "visible and unique"
	Elapsed time.Duration
	Last    string // last observed state, may be empty
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timeout after %s waiting for %s to be %s", e.Elapsed.Round(time.Millisecond), e.Locator, e.Want)
	if e.Last != "" {
		msg += " (last: " + e.Last + ")"
	}
	return msg
}

// AssertionError reports observed state diverging from the expectation.
type AssertionError struct {
	Locator  string
	Expected string
	Actual   string
	Elapsed  time.Duration
}

func (e *AssertionError) Error() string {
	if e.Elapsed > 0 {
		return fmt.Sprintf("expected %s to be %s, got %s (after %s)", e.Locator, e.Expected, e.Actual, e.Elapsed.Round(time.Millisecond))
	}
	return fmt.Sprintf("expected %s to be %s, got %s", e.Locator, e.Expected, e.Actual)
}

// KindOf classifies err. A nil error has KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		env     *EnvironmentError
		auth    *AuthenticationError
		timeout *TimeoutError
		assert  *AssertionError
	)
	switch {
	case errors.As(err, &env):
		return KindEnvironment
	case errors.As(err, &auth):
		return KindAuthentication
	case errors.As(err, &timeout):
		return KindTimeout
	case errors.As(err, &assert):
		return KindAssertion
	default:
		return KindOther
	}
}

// IsEnvironment reports whether err is an environment failure.
func IsEnvironment(err error) bool {
	return KindOf(err) == KindEnvironment
}
