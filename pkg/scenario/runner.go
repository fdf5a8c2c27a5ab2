package scenario

import (
	"context"
	"fmt"
	"path"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	defs "xmtest/definitions"
	er "xmtest/errors"
	log "xmtest/logger"
)

const tracerName = "xmtest/pkg/scenario"

type Runner struct {
	Verbose bool
	// Strict turns Unsupportedf skips into failures.
	Strict bool
	// Tracer defaults to the global provider, a no-op unless tracing is set up.
	Tracer trace.Tracer
}

func (r *Runner) tracer() trace.Tracer {
	if r.Tracer != nil {
		return r.Tracer
	}
	return otel.Tracer(tracerName)
}

// Report aggregates one run.
type Report struct {
	Results []Result
	Passed  int
	Failed  int
	Skipped int
}

// ExitCode is 1 if anything failed, 77 if everything was skipped, 0 otherwise.
func (rep Report) ExitCode() int {
	switch {
	case rep.Failed > 0:
		return defs.ExitFail
	case len(rep.Results) > 0 && rep.Skipped == len(rep.Results):
		return defs.ExitSkip
	default:
		return defs.ExitPass
	}
}

// Run executes scenarios one after another. They share the host, so there is
// no parallelism.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) Report {
	var rep Report
	for _, s := range scenarios {
		if ctx.Err() != nil {
			rep.Results = append(rep.Results, Result{
				Group:   s.Group,
				Name:    s.Name,
				Verdict: Skip,
				Message: "run cancelled: " + ctx.Err().Error(),
			})
			rep.Skipped++
			continue
		}

		res := r.RunOne(ctx, s)
		rep.Results = append(rep.Results, res)
		switch res.Verdict {
		case Pass:
			rep.Passed++
		case Fail:
			rep.Failed++
		case Skip:
			rep.Skipped++
		}
	}
	return rep
}

// RunOne executes a single scenario and always returns its Result; panics
// inside the scenario become failures.
func (r *Runner) RunOne(ctx context.Context, s Scenario) Result {
	ctx, span := r.tracer().Start(ctx, s.ID(), trace.WithAttributes(
		attribute.String("xmtest.group", s.Group),
		attribute.String("xmtest.scenario", s.Name),
	))
	defer span.End()

	t := newT(trace.ContextWithSpan(ctx, span), s, r.Verbose)
	t.strict = r.Strict
	start := time.Now()
	t.entry.Debug("scenario started")

	r.body(t, s)
	cleanupErr := t.runCleanups()

	res := Result{
		Group:      s.Group,
		Name:       s.Name,
		Verdict:    t.verdict,
		Message:    t.message,
		Err:        t.err,
		CleanupErr: cleanupErr,
		Duration:   time.Since(start),
	}

	entry := t.entry.WithField("verdict", res.Verdict.String()).WithField("duration", res.Duration)
	if cleanupErr != nil {
		entry.WithError(cleanupErr).Warn("scenario cleanup failed")
	}
	span.SetAttributes(attribute.String("xmtest.verdict", res.Verdict.String()))
	switch res.Verdict {
	case Fail:
		span.SetStatus(codes.Error, res.Message)
		entry.Errorf("FAIL: %s", res.Message)
	case Skip:
		entry.Infof("SKIP: %s", res.Message)
	default:
		entry.Info("PASS")
	}
	return res
}

func (r *Runner) body(t *T, s Scenario) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if _, ok := rec.(stop); ok {
			return
		}
		t.verdict = Fail
		t.message = fmt.Sprintf("scenario panicked: %v", rec)
		t.err = &er.AssertionFailure{Msg: t.message}
		log.Debugf("%s panicked: %v", s.ID(), rec)
	}()
	s.Func(t)
}

// Select keeps the scenarios whose ID matches one of patterns (path.Match
// syntax, e.g. "sedf/*"). No patterns keeps everything.
func Select(scenarios []Scenario, patterns []string) ([]Scenario, error) {
	if len(patterns) == 0 {
		return scenarios, nil
	}
	var out []Scenario
	for _, s := range scenarios {
		for _, p := range patterns {
			ok, err := path.Match(p, s.ID())
			if err != nil {
				return nil, fmt.Errorf("bad scenario pattern %q: %w", p, err)
			}
			if ok || p == s.Group {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}
