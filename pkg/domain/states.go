package domain

import (
	"fmt"

	er "xmtest/errors"
)

type StateString string

const (
	StateUncreated StateString = "uncreated"
	StateStarted   StateString = "started"
	StateStopped   StateString = "stopped"
)

func (s StateString) valid() bool {
	switch s {
	case StateUncreated, StateStarted, StateStopped:
		return true
	}
	return false
}

// transition checks old -> new. A stopped domain may be started again, which
// is what the restart scenarios rely on.
func (s StateString) transition(old, new StateString) error {
	if !s.valid() {
		return fmt.Errorf("%w: %q", er.InvalidState, s)
	}
	if s != old {
		return fmt.Errorf("mismatched state: %s (expecting: %v): %w", s, old, er.InvalidState)
	}

	switch s {
	case StateUncreated:
		if new == StateStarted || new == StateStopped {
			return nil
		}
	case StateStarted:
		if new == StateStopped {
			return nil
		}
	case StateStopped:
		if new == StateStarted {
			return nil
		}
	}

	return fmt.Errorf("cannot transition from state %v to %v: %w", s, new, er.InvalidState)
}
