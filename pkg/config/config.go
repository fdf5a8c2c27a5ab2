// Package config loads the harness configuration from INI files and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gookit/ini/v2"

	defs "xmtest/definitions"
	log "xmtest/logger"
)

type Toolstack struct {
	// Binary is xm, xl or a path to either (or to tests/mock_xm).
	Binary  string
	Timeout time.Duration
}

type Domain struct {
	MemoryMB int
	VCPUs    int
	Kernel   string
	Ramdisk  string
	Root     string
	CPUs     string
	WorkDir  string
}

type Trace struct {
	Endpoint string
	Insecure bool
	Service  string
}

type Config struct {
	Toolstack Toolstack
	Domain    Domain
	Log       log.Config
	Trace     Trace
	Verbose   bool
	// Strict fails scenarios the host cannot run instead of skipping them.
	Strict bool
}

func Default() Config {
	return Config{
		Toolstack: Toolstack{
			Binary:  defs.DefaultToolstack,
			Timeout: defs.DefaultCommandTimeout,
		},
		Domain: Domain{
			MemoryMB: defs.DefaultDomainMemoryMB,
			VCPUs:    defs.DefaultDomainVCPUs,
			Kernel:   defs.DefaultKernel,
			Ramdisk:  defs.DefaultRamdisk,
			Root:     defs.DefaultRoot,
			WorkDir:  defs.DefaultWorkDir,
		},
		Log: log.Config{
			Level:  "info",
			Format: "text",
		},
		Trace: Trace{
			Service: "xm-test",
		},
	}
}

// Load discovers the config files, layers them over Default and applies the
// environment overrides.
func Load() (Config, error) {
	files, err := DiscoverFiles()
	if err != nil {
		return Config{}, err
	}
	return LoadFiles(files...)
}

// LoadFiles layers files (later ones win) over Default, then the environment.
// Every file must exist; DiscoverFiles only returns files that do.
func LoadFiles(files ...string) (Config, error) {
	cfg := Default()

	for _, f := range files {
		if err := checkConfigFile(f); err != nil {
			return Config{}, fmt.Errorf("xm-test config: %w", err)
		}
	}
	data := ini.NewWithOptions(ini.IgnoreCase)
	if len(files) > 0 {
		if err := data.LoadFiles(files...); err != nil {
			return Config{}, fmt.Errorf("failed to load xm-test config %v: %w", files, err)
		}
	}
	if err := cfg.apply(data); err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	log.Pretty("xm-test config from %v: %v", files, cfg)
	return cfg, nil
}

func (c *Config) apply(data *ini.Ini) error {
	c.Toolstack.Binary = data.String("toolstack.binary", c.Toolstack.Binary)
	if v := data.String("toolstack.timeout"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("[toolstack] timeout %q: %w", v, err)
		}
		c.Toolstack.Timeout = d
	}

	var err error
	if c.Domain.MemoryMB, err = intKey(data, "domain.memory", c.Domain.MemoryMB); err != nil {
		return err
	}
	if c.Domain.VCPUs, err = intKey(data, "domain.vcpus", c.Domain.VCPUs); err != nil {
		return err
	}
	c.Domain.Kernel = data.String("domain.kernel", c.Domain.Kernel)
	c.Domain.Ramdisk = data.String("domain.ramdisk", c.Domain.Ramdisk)
	c.Domain.Root = data.String("domain.root", c.Domain.Root)
	c.Domain.CPUs = data.String("domain.cpus", c.Domain.CPUs)
	c.Domain.WorkDir = data.String("domain.workdir", c.Domain.WorkDir)

	c.Log.Level = data.String("log.level", c.Log.Level)
	c.Log.Format = data.String("log.format", c.Log.Format)
	c.Log.Output = data.String("log.output", c.Log.Output)
	if c.Log.Debug, err = boolKey(data, "log.debug", c.Log.Debug); err != nil {
		return err
	}

	if c.Strict, err = boolKey(data, "scenario.strict", c.Strict); err != nil {
		return err
	}

	c.Trace.Endpoint = data.String("trace.endpoint", c.Trace.Endpoint)
	c.Trace.Service = data.String("trace.service", c.Trace.Service)
	if c.Trace.Insecure, err = boolKey(data, "trace.insecure", c.Trace.Insecure); err != nil {
		return err
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(defs.XmTestToolstackEnv)); v != "" {
		c.Toolstack.Binary = v
	}
	if v := strings.TrimSpace(getenv(defs.XmTestVerboseEnv)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", defs.XmTestVerboseEnv, v, err)
		}
		c.Verbose = b
	}
	return nil
}

func intKey(data *ini.Ini, key string, def int) (int, error) {
	v := strings.TrimSpace(data.String(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", key, v, err)
	}
	return n, nil
}

func boolKey(data *ini.Ini, key string, def bool) (bool, error) {
	v := strings.TrimSpace(data.String(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s %q: %w", key, v, err)
	}
	return b, nil
}
