package scenario

import (
	"github.com/pkg/errors"
)

// Phase is a scenario's position in its lifecycle:
//
//	Idle -> Resetting -> Seeding -> Acting <-> Asserting -> Passed | Failed
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseResetting
	PhaseSeeding
	PhaseActing
	PhaseAsserting
	PhasePassed
	PhaseFailed
)

var phaseNames = [...]string{"idle", "resetting", "seeding", "acting", "asserting", "passed", "failed"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// band orders phases. Acting and Asserting share a band so steps may
// alternate between them.
func (p Phase) band() int {
	switch p {
	case PhaseIdle:
		return 0
	case PhaseResetting:
		return 1
	case PhaseSeeding:
		return 2
	case PhaseActing, PhaseAsserting:
		return 3
	default:
		return 4
	}
}

// Terminal reports whether p ends the scenario.
func (p Phase) Terminal() bool { return p == PhasePassed || p == PhaseFailed }

// machine enforces forward-only phase transitions.
type machine struct {
	cur      Phase
	onChange func(from, to Phase)
}

// advance moves to the next phase. Phases may be skipped going forward but
// never revisited; Failed is reachable from any live phase.
func (m *machine) advance(to Phase) error {
	from := m.cur
	switch {
	case from.Terminal():
		return errors.Errorf("scenario already %s, cannot move to %s", from, to)
	case to == from:
		return nil
	case to == PhaseFailed:
	case to == PhasePassed && from.band() < PhaseSeeding.band():
		return errors.Errorf("cannot pass from %s before setup", from)
	case to.band() < from.band():
		return errors.Errorf("cannot move back from %s to %s", from, to)
	}
	m.cur = to
	if m.onChange != nil {
		m.onChange(from, to)
	}
	return nil
}
