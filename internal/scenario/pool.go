package scenario

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/wondertwin-ai/blogcheck/internal/failure"
)

// Pool runs scenarios with one worker per runner. Runners must address
// independent application instances: scenarios sharing a store run one at a
// time because every scenario starts with a reset.
type Pool struct {
	runners []*Runner

	// OnResult, if set, is called once per finished scenario, serialized.
	OnResult func(*Result)
}

// NewPool creates a Pool over runners.
func NewPool(runners ...*Runner) *Pool {
	return &Pool{runners: runners}
}

// Run executes scenarios and returns their results in input order. A failed
// scenario does not stop the others. Scenarios not started before ctx is
// cancelled are reported as failed with the context error.
func (p *Pool) Run(ctx context.Context, scenarios []*Scenario) []*Result {
	results := make([]*Result, len(scenarios))
	if len(p.runners) == 0 {
		for i, s := range scenarios {
			results[i] = notRun(s, errNoRunners)
		}
		return results
	}

	jobs := make(chan int)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	report := func(i int, res *Result) {
		mu.Lock()
		defer mu.Unlock()
		results[i] = res
		if p.OnResult != nil {
			p.OnResult(res)
		}
	}

	for _, r := range p.runners {
		wg.Add(1)
		go func(r *Runner) {
			defer wg.Done()
			for i := range jobs {
				report(i, r.Run(ctx, scenarios[i]))
			}
		}(r)
	}

feed:
	for i := range scenarios {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for i, res := range results {
		if res == nil {
			results[i] = notRun(scenarios[i], ctx.Err())
		}
	}
	return results
}

func notRun(s *Scenario, err error) *Result {
	res := &Result{
		ScenarioName: s.Name,
		Phase:        PhaseFailed,
		Err:          err,
		Kind:         failure.KindOf(err),
	}
	for _, st := range s.Steps {
		res.Steps = append(res.Steps, StepResult{Name: st.Title(), Action: st.Action, Skipped: true})
	}
	return res
}

var errNoRunners = &failure.EnvironmentError{Op: "run", Endpoint: "pool", Err: errors.New("no targets configured")}

// Summary counts results.
type Summary struct {
	Total, Passed, Failed int
	Duration              time.Duration
	ByKind                map[failure.Kind]int
}

// Summarize tallies results.
func Summarize(results []*Result) Summary {
	s := Summary{Total: len(results), ByKind: make(map[failure.Kind]int)}
	for _, r := range results {
		s.Duration += r.Duration
		if r.Passed {
			s.Passed++
			continue
		}
		s.Failed++
		s.ByKind[r.Kind]++
	}
	return s
}
