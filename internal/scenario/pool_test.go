package scenario

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/wondertwin-ai/blogcheck/internal/browser"
	"github.com/wondertwin-ai/blogcheck/internal/failure"
)

func loginScenarios(n int) []*Scenario {
	var out []*Scenario
	for i := 0; i < n; i++ {
		out = append(out, &Scenario{
			Name:  fmt.Sprintf("login %d", i),
			Setup: withUsers(mluukkai),
			Steps: loggedIn(),
		})
	}
	return out
}

func TestPoolRunsAcrossTargetsInInputOrder(t *testing.T) {
	_, r1 := newTarget(t)
	_, r2 := newTarget(t)

	scenarios := loginScenarios(6)
	// one failing scenario must not stop the rest
	scenarios[2].Steps = append(scenarios[2].Steps, ExpectVisible(browser.ByText("no such text")))

	pool := NewPool(r1, r2)
	var streamed int
	pool.OnResult = func(*Result) { streamed++ }

	results := pool.Run(context.Background(), scenarios)
	if len(results) != len(scenarios) {
		t.Fatalf("got %d results, want %d", len(results), len(scenarios))
	}
	targets := make(map[string]bool)
	for i, res := range results {
		if res.ScenarioName != scenarios[i].Name {
			t.Errorf("result %d is %q, want %q", i, res.ScenarioName, scenarios[i].Name)
		}
		targets[res.Target] = true
		if i == 2 {
			if res.Passed || res.Kind != failure.KindAssertion {
				t.Errorf("scenario 2: passed=%v kind=%q", res.Passed, res.Kind)
			}
			continue
		}
		if !res.Passed {
			t.Errorf("scenario %d failed: %v", i, res.Err)
		}
	}
	if streamed != len(scenarios) {
		t.Errorf("OnResult called %d times, want %d", streamed, len(scenarios))
	}
	if len(targets) == 0 || len(targets) > 2 {
		t.Errorf("results ran on %d targets", len(targets))
	}

	sum := Summarize(results)
	if sum.Total != 6 || sum.Passed != 5 || sum.Failed != 1 || sum.ByKind[failure.KindAssertion] != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestPoolCancelledBeforeStart(t *testing.T) {
	_, r := newTarget(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewPool(r).Run(ctx, loginScenarios(3))
	for i, res := range results {
		if res.Passed {
			t.Errorf("scenario %d passed after cancellation", i)
		}
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("scenario %d: err = %v, want context.Canceled", i, res.Err)
		}
	}
}

func TestPoolWithoutRunners(t *testing.T) {
	results := NewPool().Run(context.Background(), loginScenarios(2))
	for _, res := range results {
		if res.Kind != failure.KindEnvironment {
			t.Errorf("kind = %q, want environment", res.Kind)
		}
		if len(res.Steps) != 2 || !res.Steps[0].Skipped {
			t.Errorf("steps = %+v", res.Steps)
		}
	}
}
