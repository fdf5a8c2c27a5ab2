package scenario

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	er "xmtest/errors"
	log "xmtest/logger"
)

// T is handed to a scenario. Fatalf and Skipf end the scenario; cleanups
// registered with Cleanup run afterwards in reverse order whatever happened.
type T struct {
	ctx      context.Context
	entry    *logrus.Entry
	verbose  bool
	strict   bool
	verdict  Verdict
	message  string
	err      error
	cleanups []func(ctx context.Context) error
}

// stop unwinds a scenario after Fatalf or Skipf.
type stop struct{}

func newT(ctx context.Context, s Scenario, verbose bool) *T {
	return &T{
		ctx:     ctx,
		entry:   log.WithScenario(s.Group, s.Name),
		verbose: verbose,
		verdict: Pass,
	}
}

func (t *T) Context() context.Context {
	return t.ctx
}

// Verbose mirrors xm-test's global verbose flag.
func (t *T) Verbose() bool {
	return t.verbose
}

func (t *T) Log() *logrus.Entry {
	return t.entry
}

func (t *T) Logf(format string, args ...interface{}) {
	t.entry.Infof(format, args...)
}

// Step marks a milestone: a debug log line and an event on the scenario span.
func (t *T) Step(name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(t.ctx).AddEvent(name, trace.WithAttributes(attrs...))
	if t.entry.Logger.IsLevelEnabled(logrus.DebugLevel) {
		fields := make(logrus.Fields, len(attrs))
		for _, a := range attrs {
			fields[string(a.Key)] = a.Value.Emit()
		}
		t.entry.WithFields(fields).Debug(name)
	}
}

// Cleanup registers fn to run when the scenario ends.
func (t *T) Cleanup(fn func(ctx context.Context) error) {
	t.cleanups = append(t.cleanups, fn)
}

// Fatalf fails the scenario with a formatted message and ends it.
func (t *T) Fatalf(format string, args ...interface{}) {
	t.FailWith(&er.AssertionFailure{Msg: fmt.Sprintf(format, args...)})
}

// FailWith ends the scenario with err as its failure. The message is err's
// text; errors.As on Result.Err recovers the typed error.
func (t *T) FailWith(err error) {
	t.verdict = Fail
	t.message = err.Error()
	t.err = err
	panic(stop{})
}

// Failf ends the scenario with a message of its own while keeping err as
// the typed cause.
func (t *T) Failf(err error, format string, args ...interface{}) {
	t.verdict = Fail
	t.message = fmt.Sprintf(format, args...)
	t.err = err
	panic(stop{})
}

// Skipf marks the scenario as not applicable to this host and ends it.
func (t *T) Skipf(format string, args ...interface{}) {
	t.verdict = Skip
	t.message = fmt.Sprintf(format, args...)
	panic(stop{})
}

// Unsupportedf is for hosts that cannot run the scenario at all. It skips,
// or fails when the run is strict.
func (t *T) Unsupportedf(err error, format string, args ...interface{}) {
	if t.strict {
		t.Failf(err, format, args...)
	}
	t.Skipf(format, args...)
}

func (t *T) runCleanups() error {
	var result *multierror.Error
	for i := len(t.cleanups) - 1; i >= 0; i-- {
		if err := t.runCleanup(t.cleanups[i]); err != nil {
			result = multierror.Append(result, err)
		}
	}
	t.cleanups = nil
	return result.ErrorOrNil()
}

func (t *T) runCleanup(fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(stop); ok {
				err = fmt.Errorf("cleanup ended the scenario: %s", t.message)
				return
			}
			err = fmt.Errorf("cleanup panicked: %v", r)
		}
	}()
	// cleanups must run even when the scenario context was cancelled
	return fn(context.WithoutCancel(t.ctx))
}
