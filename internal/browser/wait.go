package browser

import (
	"context"
	"time"

	"github.com/wondertwin-ai/blogcheck/internal/failure"
)

type condition func(loc Locator, o Observation) bool

func actionable(loc Locator, o Observation) bool {
	return !o.Ambiguous(loc) && o.Attached && o.Visible
}

func hidden(loc Locator, o Observation) bool {
	return !o.Ambiguous(loc) && (!o.Attached || !o.Visible)
}

// poll queries page every interval until cond holds or timeout elapses. It
// returns the last observation and whether cond held. Query errors and
// cancellation of ctx end the wait early.
func poll(ctx context.Context, page Page, loc Locator, timeout, interval time.Duration, cond condition) (Observation, bool, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		obs, err := page.Query(ctx, loc)
		if err != nil {
			return obs, false, err
		}
		if cond(loc, obs) {
			return obs, true, nil
		}
		select {
		case <-ctx.Done():
			return obs, false, ctx.Err()
		case <-deadline.C:
			// one last look so a state reached right at the deadline counts
			obs, err = page.Query(ctx, loc)
			if err != nil {
				return obs, false, err
			}
			return obs, cond(loc, obs), nil
		case <-ticker.C:
		}
	}
}

func describe(loc Locator, o Observation) string {
	if o.Ambiguous(loc) {
		return "strict mode violation: " + o.String()
	}
	return o.String()
}

// WaitActionable waits until loc resolves to a single visible element. On
// timeout it returns a *failure.TimeoutError naming the locator.
func WaitActionable(ctx context.Context, page Page, loc Locator, t Timing) (Observation, error) {
	t = t.WithDefaults()
	start := time.Now()
	obs, ok, err := poll(ctx, page, loc, t.Action, t.Poll, actionable)
	if err != nil {
		return obs, err
	}
	if !ok {
		return obs, &failure.TimeoutError{
			Locator: loc.String(),
			Want:    "visible and unique",
			Elapsed: time.Since(start),
			Last:    describe(loc, obs),
		}
	}
	return obs, nil
}

// ExpectVisible polls until loc's target is visible. On timeout it returns a
// *failure.AssertionError carrying the last observation.
func ExpectVisible(ctx context.Context, page Page, loc Locator, t Timing) (Observation, error) {
	return expect(ctx, page, loc, t, true)
}

// ExpectHidden polls until loc's target is hidden or absent.
func ExpectHidden(ctx context.Context, page Page, loc Locator, t Timing) (Observation, error) {
	return expect(ctx, page, loc, t, false)
}

func expect(ctx context.Context, page Page, loc Locator, t Timing, visible bool) (Observation, error) {
	t = t.WithDefaults()
	cond, want := condition(actionable), "visible"
	if !visible {
		cond, want = hidden, "hidden"
	}

	start := time.Now()
	obs, ok, err := poll(ctx, page, loc, t.Assert, t.Poll, cond)
	if err != nil {
		return obs, err
	}
	if !ok {
		return obs, &failure.AssertionError{
			Locator:  loc.String(),
			Expected: want,
			Actual:   describe(loc, obs),
			Elapsed:  time.Since(start),
		}
	}
	return obs, nil
}
