package sedf

import (
	"xmtest/pkg/domain"
	"xmtest/pkg/scenario"
)

// QueryStable reads the tunables twice with nothing in between; both reads
// must agree field for field.
func QueryStable(ctrl *domain.Controller) func(t *scenario.T) {
	return func(t *scenario.T) {
		ts := ctrl.Toolstack()
		dom := startDomain(t, ctrl)

		first := getSEDFParams(t, ts, dom)
		second := getSEDFParams(t, ts, dom)

		if first.Tuple() != second.Tuple() {
			t.Fatalf("sched-sedf reported %v then %v without any change in between", first.Tuple(), second.Tuple())
		}
	}
}
