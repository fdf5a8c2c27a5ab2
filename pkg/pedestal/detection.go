package pedestal

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	defs "xmtest/definitions"
	er "xmtest/errors"
	log "xmtest/logger"
)

var (
	lookPath = exec.LookPath
	statPath = os.Stat

	xenPresentOnce  sync.Once
	xenPresentCache bool
)

// XenPresent reports whether this kernel runs under Xen. Cached, the answer
// cannot change while the harness runs.
func XenPresent() bool {
	xenPresentOnce.Do(func() {
		xenPresentCache = detectXen()
	})
	return xenPresentCache
}

func detectXen() bool {
	if _, err := statPath(defs.ProcXenXenbus); err != nil {
		log.Debugf("missing xen bus: %v", err)
		return false
	}
	return true
}

// CheckXen returns XenMissing when the host is not a Xen dom0 or guest.
func CheckXen() error {
	if XenPresent() {
		return nil
	}
	return fmt.Errorf("%s not found: %w", defs.ProcXenXenbus, er.XenMissing)
}

// DetectToolstack picks the binary to drive. An explicit preference wins when
// it resolves in PATH; otherwise xm, then xl.
func DetectToolstack(preferred string) (ToolstackKind, string, error) {
	if preferred != "" {
		if path, err := lookPath(preferred); err == nil {
			kind := ParseToolstackKind(preferred)
			if kind == Unsupported {
				// a wrapper script or mock, assume xm syntax
				kind = XM
			}
			return kind, path, nil
		}
		log.Warnf("preferred toolstack %q not found in PATH, probing defaults", preferred)
	}

	for _, kind := range []ToolstackKind{XM, XL} {
		if path, err := lookPath(kind.String()); err == nil {
			return kind, path, nil
		}
	}
	return Unsupported, "", er.ToolstackMissing
}

// CheckScheduler fails unless the hypervisor was booted with sched.
func (ts *Toolstack) CheckScheduler(ctx context.Context, sched string) error {
	hi, err := ts.Info(ctx)
	if err != nil {
		return err
	}
	if hi.XenScheduler != sched {
		return fmt.Errorf("hypervisor scheduler is %q, want %q: %w", hi.XenScheduler, sched, er.NotSupported)
	}
	return nil
}
