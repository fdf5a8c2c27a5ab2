// Package cmdtrace runs toolstack commands the way xm-test's traceCommand
// did: stdout and stderr merged, exit status reported rather than treated as
// an error, everything logged.
package cmdtrace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	log "xmtest/logger"
)

// Result is what a traced command left behind.
type Result struct {
	// Status is the exit code, or -1 when the process never exited normally.
	Status int
	Output string
}

// Executor is satisfied by Runner and by scripted fakes in tests.
type Executor interface {
	Trace(ctx context.Context, name string, args ...string) (Result, error)
}

type Runner struct {
	// Timeout bounds one command. Zero means only ctx bounds it.
	Timeout time.Duration
	// Env is appended to the inherited environment.
	Env []string
}

func NewRunner(timeout time.Duration) *Runner {
	return &Runner{Timeout: timeout}
}

// Trace runs name with args. A non-zero exit is reported through Result.Status
// with a nil error; err is only set when the command could not be started or
// was killed for running past its deadline.
func (r *Runner) Trace(ctx context.Context, name string, args ...string) (Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	// xm forks helpers; kill the whole group or they keep the pipes open
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = time.Second

	cmdline := strings.Join(append([]string{name}, args...), " ")
	log.Debugf("trace: %s", cmdline)

	err := cmd.Run()
	res := Result{Status: 0, Output: out.String()}
	log.Debugf("trace: %s -> output:\n%s", cmdline, res.Output)

	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.Status = -1
		return res, fmt.Errorf("%s: %w", cmdline, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.Status = exitErr.ExitCode()
		if res.Status < 0 {
			return res, fmt.Errorf("%s: %w", cmdline, err)
		}
		log.Debugf("trace: %s exited with %d", cmdline, res.Status)
		return res, nil
	}

	res.Status = -1
	return res, fmt.Errorf("%s: %w", cmdline, err)
}
