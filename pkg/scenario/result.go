// Package scenario runs xm-test style scenarios: each one is a plain function
// taking a *T, returns an explicit Result, and a Runner aggregates them.
package scenario

import (
	"fmt"
	"time"

	defs "xmtest/definitions"
)

type Verdict int

const (
	Pass Verdict = iota
	Fail
	Skip
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "PASS"
	case Fail:
		return "FAIL"
	case Skip:
		return "SKIP"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// ExitCode is what the xm-test runner scripts expect a scenario process to
// exit with.
func (v Verdict) ExitCode() int {
	switch v {
	case Pass:
		return defs.ExitPass
	case Skip:
		return defs.ExitSkip
	default:
		return defs.ExitFail
	}
}

// Scenario is one registered test. Group is the directory it lived in under
// the xm-test tree (sedf, create, ...), Name its numbered file name.
type Scenario struct {
	Group string
	Name  string
	Func  func(t *T)
}

func (s Scenario) ID() string {
	return s.Group + "/" + s.Name
}

type Result struct {
	Group   string
	Name    string
	Verdict Verdict
	Message string
	// Err is the typed error behind a failure, when the scenario had one.
	Err error
	// CleanupErr collects every cleanup that failed.
	CleanupErr error
	Duration   time.Duration
}

func (r Result) ID() string {
	return r.Group + "/" + r.Name
}
