//go:build test
// +build test

package sedf

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	er "xmtest/errors"
	log "xmtest/logger"
	"xmtest/pkg/cmdtrace"
	"xmtest/pkg/domain"
	"xmtest/pkg/pedestal"
	"xmtest/pkg/scenario"
	"xmtest/pkg/xmsim"
)

type fixture struct {
	host *xmsim.Host
	rec  *cmdtrace.Recorder
	ctrl *domain.Controller
}

func newFixture(t *testing.T, state xmsim.State, faults xmsim.Faults) *fixture {
	t.Helper()
	log.SetOutput(io.Discard)

	host := xmsim.NewHost(state)
	host.SetFaults(faults)
	rec := &cmdtrace.Recorder{Inner: host}
	ts := pedestal.NewToolstack(pedestal.XM, "xm", rec)
	ctrl := domain.NewController(ts, t.TempDir(), domain.Config{MemoryMB: 64, VCPUs: 1})
	return &fixture{host: host, rec: rec, ctrl: ctrl}
}

func (f *fixture) run(fn func(*domain.Controller) func(*scenario.T)) scenario.Result {
	r := &scenario.Runner{Verbose: true}
	return r.RunOne(context.Background(), scenario.Scenario{Group: group, Name: "under_test", Func: fn(f.ctrl)})
}

// only Domain-0 is left once a scenario is over
func (f *fixture) assertTornDown(t *testing.T) {
	t.Helper()
	doms := f.host.State().Domains
	require.Len(t, doms, 1)
	assert.Equal(t, "Domain-0", doms[0].Name)
}

func (f *fixture) applyCalls() [][]string {
	var calls [][]string
	for _, c := range f.rec.Calls() {
		if len(c) > 3 && c[1] == "sched-sedf" {
			calls = append(calls, c)
		}
	}
	return calls
}

// A hypervisor that refuses slice > period prints the diagnostic, and the
// check as written turns that into a failure.
func TestSliceUpperNegHostRejects(t *testing.T) {
	f := newFixture(t, xmsim.NewState(), xmsim.Faults{})

	res := f.run(SliceUpperNeg)

	assert.Equal(t, scenario.Fail, res.Verdict)
	assert.Equal(t, "sched-sedf let me set a slice bigger than my period.", res.Message)
	assert.ErrorIs(t, res.Err, er.ErrAssertion)
	assert.NoError(t, res.CleanupErr)
	f.assertTornDown(t)

	calls := f.applyCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-s", "21.0"}, calls[0][3:])
}

// Without the diagnostic the scenario falls through to teardown and passes.
func TestSliceUpperNegHostAccepts(t *testing.T) {
	f := newFixture(t, xmsim.NewState(), xmsim.Faults{AcceptInvalidSlice: true})

	res := f.run(SliceUpperNeg)

	assert.Equal(t, scenario.Pass, res.Verdict, res.Message)
	f.assertTornDown(t)
}

func TestSliceUpperNegUsesBaselinePeriod(t *testing.T) {
	// xm prints periods like "10" on some builds; the slice derived from it is 11.0
	exec := cmdtrace.Func(func(ctx context.Context, name string, args ...string) (cmdtrace.Result, error) {
		switch args[0] {
		case "info":
			return cmdtrace.Result{Output: "xen_scheduler : sedf\nfree_memory : 1024\ntotal_memory : 2048\n"}, nil
		case "domid":
			return cmdtrace.Result{Output: "7\n"}, nil
		case "sched-sedf":
			if len(args) == 2 {
				return cmdtrace.Result{Output: "Name ID Period(ms) Slice(ms) Lat(ms) Extra Weight\n" + args[1] + " 7 10 5 0 1 0\n"}, nil
			}
			return cmdtrace.Result{Status: 0, Output: ""}, nil
		}
		return cmdtrace.Result{}, nil
	})
	rec := &cmdtrace.Recorder{Inner: exec}
	ctrl := domain.NewController(pedestal.NewToolstack(pedestal.XM, "xm", rec), t.TempDir(), domain.Config{MemoryMB: 64, VCPUs: 1})

	res := (&scenario.Runner{}).RunOne(context.Background(), scenario.Scenario{Group: group, Name: "p", Func: SliceUpperNeg(ctrl)})
	assert.Equal(t, scenario.Pass, res.Verdict, res.Message)

	var apply []string
	for _, c := range rec.Calls() {
		if c[1] == "sched-sedf" && len(c) > 3 {
			apply = c
		}
	}
	require.NotNil(t, apply)
	assert.Equal(t, []string{"-s", "11.0"}, apply[3:])
	assert.Equal(t, "shutdown", rec.Subcommands()[len(rec.Subcommands())-1])
}

func TestSliceUpperNegProvisioningFailure(t *testing.T) {
	f := newFixture(t, xmsim.NewState(), xmsim.Faults{FailCreate: "Kernel image does not exist"})

	res := f.run(SliceUpperNeg)

	assert.Equal(t, scenario.Fail, res.Verdict)
	var perr *er.ProvisioningError
	require.True(t, er.As(res.Err, &perr))
	assert.Equal(t, "Error: Kernel image does not exist", perr.Detail)
	assert.Contains(t, res.Message, "Kernel image does not exist")

	assert.NotContains(t, f.rec.Subcommands(), "sched-sedf")
	assert.NotContains(t, f.rec.Subcommands(), "shutdown")
	f.assertTornDown(t)
}

func TestSliceUpperNegQueryStatus(t *testing.T) {
	f := newFixture(t, xmsim.NewState(), xmsim.Faults{QueryStatus: 3})

	res := f.run(SliceUpperNeg)

	assert.Equal(t, scenario.Fail, res.Verdict)
	assert.Equal(t, "Getting sedf parameters return non-zero rv (3)", res.Message)
	var qerr *er.QueryError
	require.True(t, er.As(res.Err, &qerr))
	assert.Equal(t, 3, qerr.Status)
	assert.Empty(t, f.applyCalls())
	f.assertTornDown(t)
}

func TestSliceUpperNegMalformedRow(t *testing.T) {
	f := newFixture(t, xmsim.NewState(), xmsim.Faults{ShortRow: true})

	res := f.run(SliceUpperNeg)

	assert.Equal(t, scenario.Fail, res.Verdict)
	assert.ErrorIs(t, res.Err, er.ErrOutputParse)
	var perr *er.ParseError
	require.True(t, er.As(res.Err, &perr))
	assert.Equal(t, 7, perr.Want)
	assert.Equal(t, 6, perr.Got)
	assert.Empty(t, f.applyCalls())
	f.assertTornDown(t)
}

func TestSliceUpperNegSkipsOnOtherScheduler(t *testing.T) {
	state := xmsim.NewState()
	state.Scheduler = "credit"
	f := newFixture(t, state, xmsim.Faults{})

	res := f.run(SliceUpperNeg)

	assert.Equal(t, scenario.Skip, res.Verdict)
	assert.NotContains(t, f.rec.Subcommands(), "create")
}

func TestSliceUpperNegSkipsWithoutMemory(t *testing.T) {
	state := xmsim.NewState()
	state.TotalMemoryMB = 520
	f := newFixture(t, state, xmsim.Faults{})

	res := f.run(SliceUpperNeg)

	assert.Equal(t, scenario.Skip, res.Verdict)
	assert.Contains(t, res.Message, "not enough free host memory")
}

func TestSliceUpperNegStrictFailsOnOtherScheduler(t *testing.T) {
	state := xmsim.NewState()
	state.Scheduler = "credit"
	f := newFixture(t, state, xmsim.Faults{})

	r := &scenario.Runner{Strict: true}
	res := r.RunOne(context.Background(), scenario.Scenario{Group: group, Name: "strict", Func: SliceUpperNeg(f.ctrl)})

	assert.Equal(t, scenario.Fail, res.Verdict)
	assert.ErrorIs(t, res.Err, er.NotSupported)
	assert.NotContains(t, f.rec.Subcommands(), "create")
}

func TestSliceUpperNegNegativeMemoryFails(t *testing.T) {
	host := xmsim.NewHost(xmsim.NewState())
	ts := pedestal.NewToolstack(pedestal.XM, "xm", host)
	ctrl := domain.NewController(ts, t.TempDir(), domain.Config{MemoryMB: -64, VCPUs: 1})

	res := (&scenario.Runner{}).RunOne(context.Background(), scenario.Scenario{Group: group, Name: "m", Func: SliceUpperNeg(ctrl)})

	assert.Equal(t, scenario.Fail, res.Verdict)
	assert.Contains(t, res.Message, "memory must be positive")
}

func TestSliceUpperNegCreateTimeoutDoesNotLeak(t *testing.T) {
	log.SetOutput(io.Discard)
	host := xmsim.NewHost(xmsim.NewState())
	exec := cmdtrace.Func(func(ctx context.Context, name string, args ...string) (cmdtrace.Result, error) {
		if args[0] == "create" {
			host.Exec(args)
			return cmdtrace.Result{Status: -1}, context.DeadlineExceeded
		}
		return host.Trace(ctx, name, args...)
	})
	ts := pedestal.NewToolstack(pedestal.XM, "xm", exec)
	ctrl := domain.NewController(ts, t.TempDir(), domain.Config{MemoryMB: 64, VCPUs: 1})

	res := (&scenario.Runner{}).RunOne(context.Background(), scenario.Scenario{Group: group, Name: "t", Func: SliceUpperNeg(ctrl)})

	assert.Equal(t, scenario.Fail, res.Verdict)
	assert.ErrorIs(t, res.Err, er.ErrProvision)
	require.Len(t, host.State().Domains, 1)
	assert.Equal(t, "Domain-0", host.State().Domains[0].Name)
}

func TestQueryStable(t *testing.T) {
	f := newFixture(t, xmsim.NewState(), xmsim.Faults{})

	res := f.run(QueryStable)

	assert.Equal(t, scenario.Pass, res.Verdict, res.Message)
	f.assertTornDown(t)
}

func TestQueryStableDetectsDrift(t *testing.T) {
	host := xmsim.NewHost(xmsim.NewState())
	queries := 0
	exec := cmdtrace.Func(func(ctx context.Context, name string, args ...string) (cmdtrace.Result, error) {
		if args[0] == "sched-sedf" && len(args) == 2 {
			queries++
			if queries == 2 {
				// something else retuned the domain between the reads
				host.Exec([]string{"sched-sedf", args[1], "-w", "3"})
			}
		}
		return host.Trace(ctx, name, args...)
	})
	ctrl := domain.NewController(pedestal.NewToolstack(pedestal.XM, "xm", exec), t.TempDir(), domain.Config{MemoryMB: 64, VCPUs: 1})

	res := (&scenario.Runner{}).RunOne(context.Background(), scenario.Scenario{Group: group, Name: "q", Func: QueryStable(ctrl)})
	assert.Equal(t, scenario.Fail, res.Verdict)
	assert.Contains(t, res.Message, "without any change in between")
	assert.Len(t, host.State().Domains, 1)
}

func TestScenariosAreNamed(t *testing.T) {
	var ids []string
	for _, s := range Scenarios(nil) {
		ids = append(ids, s.ID())
		assert.NotNil(t, s.Func)
	}
	assert.Equal(t, []string{"sedf/00_sedf_query_stable", "sedf/04_sedf_slice_upper_neg"}, ids)
}
