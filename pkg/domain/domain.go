// Package domain creates, starts and stops the throwaway guests scenarios run
// against.
package domain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	defs "xmtest/definitions"
	er "xmtest/errors"
	log "xmtest/logger"
	"xmtest/pkg/pedestal"
)

// Controller owns the toolstack and the directory rendered configs go to.
type Controller struct {
	ts       *pedestal.Toolstack
	workDir  string
	defaults Config
}

func NewController(ts *pedestal.Toolstack, workDir string, defaults Config) *Controller {
	if workDir == "" {
		workDir = defs.DefaultWorkDir
	}
	return &Controller{ts: ts, workDir: workDir, defaults: defaults}
}

func (c *Controller) Toolstack() *pedestal.Toolstack {
	return c.ts
}

type StartOptions struct {
	// Console attaches to the guest console on create.
	Console bool
}

type Domain struct {
	sync.Mutex
	ts      *pedestal.Toolstack
	config  Config
	cfgPath string
	state   StateString
	id      int
}

// Create validates cfg, renders it to disk and returns an uncreated domain.
// Nothing runs on the host until Start.
func (c *Controller) Create(ctx context.Context, cfg Config) (*Domain, error) {
	cfg = cfg.Defaults(c.defaults)
	if cfg.Name == "" {
		cfg.Name = NewName()
	}
	if err := cfg.Validate(); err != nil {
		return nil, &er.ProvisioningError{Domain: cfg.Name, Err: err}
	}

	if err := os.MkdirAll(c.workDir, 0o755); err != nil {
		return nil, &er.ProvisioningError{Domain: cfg.Name, Err: errors.Wrapf(err, "create work dir %s", c.workDir)}
	}
	cfgPath := filepath.Join(c.workDir, cfg.Name+".cfg")
	if err := os.WriteFile(cfgPath, []byte(cfg.Render()), defs.FileMode); err != nil {
		return nil, &er.ProvisioningError{Domain: cfg.Name, Err: errors.Wrapf(err, "write config %s", cfgPath)}
	}
	log.Pretty("domain %s config: %v", cfg.Name, cfg)

	return &Domain{
		ts:      c.ts,
		config:  cfg,
		cfgPath: cfgPath,
		state:   StateUncreated,
		id:      -1,
	}, nil
}

// Preflight skips work the host cannot carry: it reports whether the free
// hypervisor memory covers cfg.
func (c *Controller) Preflight(ctx context.Context, cfg Config) error {
	cfg = cfg.Defaults(c.defaults)
	if cfg.MemoryMB <= 0 {
		return fmt.Errorf("domain memory must be positive, got %d", cfg.MemoryMB)
	}
	free, total := c.ts.MemoryMB(ctx)
	log.Debugf("host memory: free=%dMB total=%dMB, domain wants %dMB", free, total, cfg.MemoryMB)
	if total > 0 && uint64(cfg.MemoryMB) > uint64(free) {
		return fmt.Errorf("%dMB requested, %dMB free: %w", cfg.MemoryMB, free, er.InsufficientMemory)
	}
	return nil
}

func (d *Domain) Name() string {
	return d.config.Name
}

func (d *Domain) ConfigPath() string {
	return d.cfgPath
}

// ID is the hypervisor domain id, -1 until the domain has been started.
func (d *Domain) ID() int {
	d.Lock()
	defer d.Unlock()
	return d.id
}

func (d *Domain) State() StateString {
	d.Lock()
	defer d.Unlock()
	return d.state
}

// Start boots the domain. A failed create returns a ProvisioningError whose
// Detail is the toolstack output. If the guest was built anyway (create timed
// out or failed late) it is destroyed; when that fails too the domain is left
// started so Stop still tears it down.
func (d *Domain) Start(ctx context.Context, opts StartOptions) error {
	d.Lock()
	defer d.Unlock()

	if err := d.state.transition(d.state, StateStarted); err != nil {
		return &er.ProvisioningError{Domain: d.config.Name, Err: err}
	}

	out, err := d.ts.Create(ctx, d.cfgPath, opts.Console)
	if err != nil {
		d.reapHalfCreated(context.WithoutCancel(ctx))
		return &er.ProvisioningError{
			Domain: d.config.Name,
			Detail: strings.TrimSpace(out),
			Err:    errors.Wrap(err, "create"),
		}
	}

	old := d.state
	d.state = StateStarted
	log.Debugf("domain %s state: %s -> %s", d.config.Name, old, d.state)

	id, err := d.ts.DomID(ctx, d.config.Name)
	if err != nil {
		log.WithError(err).Warnf("domain %s started but its id could not be resolved", d.config.Name)
		return nil
	}
	d.id = id
	return nil
}

// reapHalfCreated runs with d locked after a failed create.
func (d *Domain) reapHalfCreated(ctx context.Context) {
	running, err := d.ts.Running(ctx, d.config.Name)
	if err != nil {
		log.WithError(err).Warnf("could not tell whether %s exists after a failed create", d.config.Name)
		return
	}
	if !running {
		return
	}
	if err := d.ts.Destroy(ctx, d.config.Name); err != nil {
		log.WithError(err).Warnf("domain %s built by a failed create, leaving it to Stop", d.config.Name)
		d.state = StateStarted
		return
	}
	log.Debugf("destroyed %s left behind by a failed create", d.config.Name)
}

// Stop shuts the domain down and waits for it, destroying it if the guest
// does not cooperate. Stopping a domain that is not running is a no-op.
func (d *Domain) Stop(ctx context.Context) error {
	d.Lock()
	defer d.Unlock()

	if d.state != StateStarted {
		log.Debugf("domain %s is %s, nothing to stop", d.config.Name, d.state)
		return nil
	}

	if err := d.ts.Shutdown(ctx, d.config.Name); err != nil {
		log.WithError(err).Warnf("graceful shutdown of %s failed, destroying", d.config.Name)
		if derr := d.ts.Destroy(ctx, d.config.Name); derr != nil {
			running, lerr := d.ts.Running(ctx, d.config.Name)
			if lerr != nil || running {
				return errors.Wrapf(derr, "stop domain %s", d.config.Name)
			}
			log.Debugf("domain %s already gone", d.config.Name)
		}
	}

	if err := d.state.transition(d.state, StateStopped); err != nil {
		return err
	}
	d.state = StateStopped
	d.id = -1
	log.Debugf("domain %s stopped", d.config.Name)
	return nil
}
