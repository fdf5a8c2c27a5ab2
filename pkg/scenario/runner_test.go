//go:build test
// +build test

package scenario

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	er "xmtest/errors"
)

func TestRunOneVerdicts(t *testing.T) {
	r := &Runner{}
	ctx := context.Background()

	res := r.RunOne(ctx, Scenario{Group: "g", Name: "pass", Func: func(t *T) {}})
	assert.Equal(t, Pass, res.Verdict)
	assert.Empty(t, res.Message)
	assert.Equal(t, "g/pass", res.ID())

	res = r.RunOne(ctx, Scenario{Group: "g", Name: "fail", Func: func(t *T) {
		t.Fatalf("rv was %d", 3)
	}})
	assert.Equal(t, Fail, res.Verdict)
	assert.Equal(t, "rv was 3", res.Message)
	assert.ErrorIs(t, res.Err, er.ErrAssertion)

	res = r.RunOne(ctx, Scenario{Group: "g", Name: "skip", Func: func(t *T) {
		t.Skipf("no %s here", "sedf")
	}})
	assert.Equal(t, Skip, res.Verdict)
	assert.Equal(t, "no sedf here", res.Message)

	res = r.RunOne(ctx, Scenario{Group: "g", Name: "panic", Func: func(t *T) {
		var m map[string]int
		m["x"] = 1
	}})
	assert.Equal(t, Fail, res.Verdict)
	assert.Contains(t, res.Message, "scenario panicked")
}

func TestFailfKeepsTypedError(t *testing.T) {
	r := &Runner{}
	qerr := &er.QueryError{Command: "sched-sedf x", Status: 2}
	res := r.RunOne(context.Background(), Scenario{Group: "g", Name: "q", Func: func(t *T) {
		t.Failf(qerr, "Getting sedf parameters return non-zero rv (%d)", 2)
	}})

	assert.Equal(t, "Getting sedf parameters return non-zero rv (2)", res.Message)
	var got *er.QueryError
	require.True(t, errors.As(res.Err, &got))
	assert.Equal(t, 2, got.Status)
}

func TestCleanupsRunInReverseOnEveryPath(t *testing.T) {
	for _, body := range map[string]func(t *T){
		"pass":  func(t *T) {},
		"fail":  func(t *T) { t.Fatalf("boom") },
		"skip":  func(t *T) { t.Skipf("nope") },
		"panic": func(t *T) { panic("boom") },
	} {
		var order []int
		res := (&Runner{}).RunOne(context.Background(), Scenario{Group: "g", Name: "c", Func: func(t *T) {
			t.Cleanup(func(context.Context) error { order = append(order, 1); return nil })
			t.Cleanup(func(context.Context) error { order = append(order, 2); return nil })
			body(t)
		}})
		assert.Equal(t, []int{2, 1}, order, res.Verdict.String())
		assert.NoError(t, res.CleanupErr)
	}
}

func TestCleanupErrorsAggregate(t *testing.T) {
	res := (&Runner{}).RunOne(context.Background(), Scenario{Group: "g", Name: "c", Func: func(t *T) {
		t.Cleanup(func(context.Context) error { return errors.New("first") })
		t.Cleanup(func(context.Context) error { panic("second") })
		t.Cleanup(func(context.Context) error { t.Fatalf("third"); return nil })
	}})

	require.Error(t, res.CleanupErr)
	msg := res.CleanupErr.Error()
	assert.Contains(t, msg, "first")
	assert.Contains(t, msg, "second")
	assert.Contains(t, msg, "third")
	// Fatalf inside a cleanup still fails the scenario
	assert.Equal(t, Fail, res.Verdict)
}

func TestCleanupContextSurvivesCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var cleanupErr error
	(&Runner{}).RunOne(ctx, Scenario{Group: "g", Name: "c", Func: func(t *T) {
		t.Cleanup(func(ctx context.Context) error { cleanupErr = ctx.Err(); return nil })
		cancel()
	}})
	assert.NoError(t, cleanupErr)
}

func TestRunReport(t *testing.T) {
	scenarios := []Scenario{
		{Group: "a", Name: "1", Func: func(t *T) {}},
		{Group: "a", Name: "2", Func: func(t *T) { t.Fatalf("x") }},
		{Group: "b", Name: "3", Func: func(t *T) { t.Skipf("y") }},
	}

	rep := (&Runner{}).Run(context.Background(), scenarios)
	require.Len(t, rep.Results, 3)
	assert.Equal(t, 1, rep.Passed)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, 1, rep.ExitCode())

	rep = (&Runner{}).Run(context.Background(), scenarios[2:])
	assert.Equal(t, 77, rep.ExitCode())

	rep = (&Runner{}).Run(context.Background(), scenarios[:1])
	assert.Equal(t, 0, rep.ExitCode())
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ran := 0
	rep := (&Runner{}).Run(ctx, []Scenario{
		{Group: "a", Name: "1", Func: func(t *T) { ran++; cancel() }},
		{Group: "a", Name: "2", Func: func(t *T) { ran++ }},
	})
	assert.Equal(t, 1, ran)
	assert.Equal(t, Skip, rep.Results[1].Verdict)
}

func TestSelect(t *testing.T) {
	all := []Scenario{
		{Group: "sedf", Name: "00_sedf_query_stable"},
		{Group: "sedf", Name: "04_sedf_slice_upper_neg"},
		{Group: "create", Name: "01_create_basic_pos"},
	}

	got, err := Select(all, nil)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = Select(all, []string{"sedf"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = Select(all, []string{"*/04_*"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sedf/04_sedf_slice_upper_neg", got[0].ID())

	_, err = Select(all, []string{"["})
	assert.Error(t, err)
}

func TestVerdictExitCode(t *testing.T) {
	assert.Equal(t, 0, Pass.ExitCode())
	assert.Equal(t, 1, Fail.ExitCode())
	assert.Equal(t, 77, Skip.ExitCode())
	assert.Equal(t, "Verdict(9)", Verdict(9).String())
}

func TestRunOneRecordsSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	r := &Runner{Tracer: tp.Tracer("test")}

	r.RunOne(context.Background(), Scenario{Group: "sedf", Name: "04_sedf_slice_upper_neg", Func: func(t *T) {
		t.Step("slice applied", attribute.String("slice", "21.0"))
		t.Fatalf("sched-sedf let me set a slice bigger than my period.")
	}})

	spans := rec.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "sedf/04_sedf_slice_upper_neg", span.Name())
	assert.Equal(t, codes.Error, span.Status().Code)
	require.Len(t, span.Events(), 1)
	assert.Equal(t, "slice applied", span.Events()[0].Name)
	assert.Contains(t, span.Attributes(), attribute.String("xmtest.verdict", "FAIL"))
}
