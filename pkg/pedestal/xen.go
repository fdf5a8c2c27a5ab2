// Package pedestal drives the Xen toolstack CLI and parses what it prints.
package pedestal

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	er "xmtest/errors"
	log "xmtest/logger"
	"xmtest/pkg/cmdtrace"
)

type subCmd string

const (
	create    subCmd = "create"
	shutdown  subCmd = "shutdown"
	destroy   subCmd = "destroy"
	list      subCmd = "list"
	domid     subCmd = "domid"
	info      subCmd = "info"
	schedSEDF subCmd = "sched-sedf"
)

// Toolstack runs xm (or xl) subcommands through a traced executor.
type Toolstack struct {
	Kind   ToolstackKind
	Binary string
	exec   cmdtrace.Executor
}

func NewToolstack(kind ToolstackKind, binary string, exec cmdtrace.Executor) *Toolstack {
	if binary == "" {
		binary = kind.String()
	}
	return &Toolstack{Kind: kind, Binary: binary, exec: exec}
}

// Run returns the exit status and combined output of `<binary> <sub> args...`.
func (ts *Toolstack) Run(ctx context.Context, sub subCmd, args ...string) (int, string, error) {
	cmdArgs := append([]string{string(sub)}, args...)
	res, err := ts.exec.Trace(ctx, ts.Binary, cmdArgs...)
	return res.Status, res.Output, err
}

func (ts *Toolstack) command(sub subCmd, args ...string) string {
	return strings.Join(append([]string{ts.Binary, string(sub)}, args...), " ")
}

// Create boots a domain from a config file. Console attach is only honoured
// when asked for, xm-test domains normally run headless.
func (ts *Toolstack) Create(ctx context.Context, cfgPath string, console bool) (string, error) {
	args := []string{cfgPath}
	if console {
		args = append([]string{"-c"}, args...)
	}
	status, out, err := ts.Run(ctx, create, args...)
	if err != nil {
		return out, err
	}
	if status != 0 {
		return out, fmt.Errorf("%s exited with %d: %w", ts.command(create, args...), status, er.ToolstackFailed)
	}
	log.Debugf("created domain from %s", cfgPath)
	return out, nil
}

// Shutdown asks the guest to halt and waits for it.
func (ts *Toolstack) Shutdown(ctx context.Context, name string) error {
	return ts.runChecked(ctx, shutdown, "-w", name)
}

func (ts *Toolstack) Destroy(ctx context.Context, name string) error {
	return ts.runChecked(ctx, destroy, name)
}

func (ts *Toolstack) runChecked(ctx context.Context, sub subCmd, args ...string) error {
	status, out, err := ts.Run(ctx, sub, args...)
	if err != nil {
		return err
	}
	if status != 0 {
		msg := strings.TrimSpace(out)
		if msg == "" {
			msg = "no output"
		}
		return fmt.Errorf("%s exited with %d (%s): %w", ts.command(sub, args...), status, msg, er.ToolstackFailed)
	}
	return nil
}

// DomID resolves a domain name, trying `domid` first and `list` second since
// older xm builds lack the former.
func (ts *Toolstack) DomID(ctx context.Context, name string) (int, error) {
	status, out, err := ts.Run(ctx, domid, name)
	if err == nil && status == 0 {
		id, convErr := strconv.Atoi(strings.TrimSpace(out))
		if convErr == nil {
			return id, nil
		}
		log.Debugf("%s gave invalid output %q: %v", ts.command(domid, name), out, convErr)
	} else {
		log.Debugf("%s failed (status %d, err %v), falling back to list", ts.command(domid, name), status, err)
	}

	status, out, err = ts.Run(ctx, list)
	if err != nil {
		return 0, err
	}
	if status != 0 {
		return 0, fmt.Errorf("%s exited with %d: %w", ts.command(list), status, er.ToolstackFailed)
	}
	return parseListForDomain(out, name)
}

// Running reports whether name appears in `list`.
func (ts *Toolstack) Running(ctx context.Context, name string) (bool, error) {
	status, out, err := ts.Run(ctx, list)
	if err != nil {
		return false, err
	}
	if status != 0 {
		return false, fmt.Errorf("%s exited with %d: %w", ts.command(list), status, er.ToolstackFailed)
	}
	_, err = parseListForDomain(out, name)
	if err == nil {
		return true, nil
	}
	if er.Is(err, er.DomainNotFound) {
		return false, nil
	}
	return false, err
}

// xm list:
// Name                                        ID   Mem VCPUs      State   Time(s)
// Domain-0                                     0   512     2     r-----   1210.3
// xmtest-1a2b3c4d                              3    64     1     -b----      0.4
func parseListForDomain(output, name string) (int, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "Name") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != name {
			continue
		}

		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, &er.ParseError{What: "list row", Input: line, Err: err}
		}
		return id, nil
	}

	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("list parse error: %w", err)
	}

	return 0, fmt.Errorf("%s: %w", name, er.DomainNotFound)
}
