// Package sedf holds the scenarios that poke at the sedf scheduler's
// per-domain tunables through `sched-sedf`.
package sedf

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	defs "xmtest/definitions"
	er "xmtest/errors"
	"xmtest/pkg/domain"
	"xmtest/pkg/pedestal"
	"xmtest/pkg/scenario"
)

const group = "sedf"

// Scenarios returns every sedf scenario bound to ctrl.
func Scenarios(ctrl *domain.Controller) []scenario.Scenario {
	return []scenario.Scenario{
		{Group: group, Name: "00_sedf_query_stable", Func: QueryStable(ctrl)},
		{Group: group, Name: "04_sedf_slice_upper_neg", Func: SliceUpperNeg(ctrl)},
	}
}

// requireSEDF skips (fails on strict runs) when the host cannot run the
// scenario at all.
func requireSEDF(t *scenario.T, ctrl *domain.Controller, cfg domain.Config) {
	ctx := t.Context()
	if err := ctrl.Toolstack().CheckScheduler(ctx, defs.SchedSEDF); err != nil {
		if er.Is(err, er.NotSupported) {
			t.Unsupportedf(err, "%v", err)
		}
		t.Log().WithError(err).Debug("could not confirm hypervisor scheduler, carrying on")
	}
	if err := ctrl.Preflight(ctx, cfg); err != nil {
		if er.Is(err, er.InsufficientMemory) {
			t.Unsupportedf(err, "%v", err)
		}
		t.FailWith(err)
	}
}

// startDomain provisions a sedf-scheduled domain and arranges for it to be
// stopped when the scenario ends, on every path.
func startDomain(t *scenario.T, ctrl *domain.Controller) *domain.Domain {
	cfg := domain.Config{Extra: map[string]string{"sched": defs.SchedSEDF}}
	requireSEDF(t, ctrl, cfg)

	ctx := t.Context()
	dom, err := ctrl.Create(ctx, cfg)
	if err != nil {
		failProvisioning(t, err)
	}
	t.Cleanup(func(ctx context.Context) error {
		return dom.Stop(ctx)
	})

	if err := dom.Start(ctx, domain.StartOptions{Console: false}); err != nil {
		failProvisioning(t, err)
	}
	t.Step("domain started", attribute.String("domain", dom.Name()), attribute.Int("domid", dom.ID()))
	return dom
}

func failProvisioning(t *scenario.T, err error) {
	var perr *er.ProvisioningError
	if t.Verbose() && er.As(err, &perr) {
		t.Logf("Failed to create test domain because:\n%s", perr.Detail)
	}
	t.FailWith(err)
}

// getSEDFParams queries and parses the domain's current tunables. A non-zero
// status fails the scenario with the status code in the message; a row that
// does not have seven fields fails it with a ParseError.
func getSEDFParams(t *scenario.T, ts *pedestal.Toolstack, dom *domain.Domain) pedestal.SEDFParams {
	status, output, err := ts.QuerySEDF(t.Context(), dom.Name())
	if err != nil {
		t.FailWith(err)
	}
	if status != 0 {
		qerr := &er.QueryError{Command: "sched-sedf " + dom.Name(), Status: status, Output: output}
		t.Failf(qerr, "Getting sedf parameters return non-zero rv (%d)", status)
	}

	params, err := pedestal.ParseSEDFRow(output)
	if err != nil {
		t.FailWith(err)
	}
	t.Step("sedf queried",
		attribute.String("period", params.Period),
		attribute.String("slice", params.Slice),
		attribute.String("latency", params.Latency))
	return params
}
