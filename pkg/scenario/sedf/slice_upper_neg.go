package sedf

import (
	"go.opentelemetry.io/otel/attribute"

	er "xmtest/errors"
	"xmtest/pkg/domain"
	"xmtest/pkg/pedestal"
	"xmtest/pkg/scenario"
)

const sliceTooBig = "sched-sedf let me set a slice bigger than my period."

// SliceUpperNeg asks for a slice one millisecond longer than the domain's
// current period. The verdict comes from pedestal.SEDFRejected.
func SliceUpperNeg(ctrl *domain.Controller) func(t *scenario.T) {
	return func(t *scenario.T) {
		ctx := t.Context()
		ts := ctrl.Toolstack()

		dom := startDomain(t, ctrl)

		// current values are the baseline
		params := getSEDFParams(t, ts, dom)

		slice, err := pedestal.NextSlice(params.Period)
		if err != nil {
			t.FailWith(err)
		}
		status, output, err := ts.ApplySEDF(ctx, dom.Name(), pedestal.SEDFOptions{Slice: slice})
		if err != nil {
			t.FailWith(err)
		}
		t.Step("slice applied", attribute.String("slice", slice), attribute.Int("status", status))

		if pedestal.SEDFRejected(output) {
			t.Failf(&er.AssertionFailure{Msg: sliceTooBig}, sliceTooBig)
		}
		// the domain is stopped by the cleanup startDomain registered
	}
}
