package failure

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"environment", &EnvironmentError{Op: "reset", Endpoint: "/api/testing/reset", Status: 500}, KindEnvironment},
		{"wrapped environment", errors.Wrap(&EnvironmentError{Op: "reset"}, "setup"), KindEnvironment},
		{"fmt wrapped auth", fmt.Errorf("login: %w", &AuthenticationError{Username: "x", Status: 401}), KindAuthentication},
		{"timeout", &TimeoutError{Locator: "getByTestId('username')"}, KindTimeout},
		{"assertion", errors.WithMessage(&AssertionError{Locator: "x"}, "step 3"), KindAssertion},
		{"plain", errors.New("boom"), KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTimeoutErrorNamesLocatorAndElapsed(t *testing.T) {
	err := &TimeoutError{
		Locator: "getByRole('button', { name: 'login' })",
		Want:    "visible",
		Elapsed: 5*time.Second + 3*time.Millisecond,
		Last:    "0 matches",
	}
	msg := err.Error()
	for _, want := range []string{"getByRole('button', { name: 'login' })", "5.003s", "0 matches"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q does not contain %q", msg, want)
		}
	}
}

func TestEnvironmentErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &EnvironmentError{Op: "reset", Endpoint: "http://localhost:1/api/testing/reset", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("expected EnvironmentError to unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if !IsEnvironment(err) {
		t.Error("IsEnvironment() = false")
	}
}
