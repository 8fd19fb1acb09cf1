// Package report prints scenario results in the CLI's PASS/FAIL format.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"golang.org/x/term"

	"github.com/wondertwin-ai/blogcheck/internal/failure"
	"github.com/wondertwin-ai/blogcheck/internal/scenario"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiDim    = "\033[2m"
)

// ColorEnabled reports whether f is a terminal and NO_COLOR is unset.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Printer writes results to w.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter creates a Printer. color adds ANSI colours to labels.
func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

func (p *Printer) paint(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + ansiReset
}

// Scenario prints one scenario's steps and verdict.
func (p *Printer) Scenario(res *scenario.Result) {
	fmt.Fprintf(p.w, "\n--- %s ---\n\n", res.ScenarioName)

	// setup failures happen before any step runs
	if res.Err != nil && res.Kind == failure.KindEnvironment && !anyRan(res.Steps) {
		fmt.Fprintf(p.w, "  %s %v\n", p.paint(ansiRed, "ERROR:"), res.Err)
	}

	for _, sr := range res.Steps {
		switch {
		case sr.Skipped:
			fmt.Fprintf(p.w, "  %s  %s\n", p.paint(ansiYellow, "SKIP"), p.paint(ansiDim, sr.Name))
		case sr.Passed:
			fmt.Fprintf(p.w, "  %s  %-50s (%s)\n", p.paint(ansiGreen, "PASS"), sr.Name, sr.Duration.Round(time.Millisecond))
		default:
			fmt.Fprintf(p.w, "  %s  %-50s (%s)\n", p.paint(ansiRed, "FAIL"), sr.Name, sr.Duration.Round(time.Millisecond))
			fmt.Fprintf(p.w, "        %s\n", sr.Error)
		}
	}

	verdict := p.paint(ansiGreen, "PASSED")
	if !res.Passed {
		verdict = p.paint(ansiRed, "FAILED")
		if res.Kind != failure.KindNone {
			verdict += " [" + string(res.Kind) + "]"
		}
	}
	fmt.Fprintf(p.w, "\n  Scenario: %s (%s)\n", verdict, res.Duration.Round(time.Millisecond))
}

func anyRan(steps []scenario.StepResult) bool {
	for _, s := range steps {
		if !s.Skipped {
			return true
		}
	}
	return false
}

// Summary prints the totals line, with failures broken down by kind.
func (p *Printer) Summary(results []*scenario.Result) {
	sum := scenario.Summarize(results)
	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "Results: %d passed, %d failed, %d total\n", sum.Passed, sum.Failed, sum.Total)
	if sum.Failed == 0 {
		return
	}
	kinds := make([]string, 0, len(sum.ByKind))
	for k := range sum.ByKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(p.w, "  %-15s %d\n", k, sum.ByKind[failure.Kind(k)])
	}
	if sum.ByKind[failure.KindEnvironment] > 0 {
		fmt.Fprintln(p.w, "Environment failures mean the application could not be set up; they are not product findings.")
	}
}
