package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	defs "xmtest/definitions"
	er "xmtest/errors"
	"xmtest/pkg/cpuset"
)

var namePattern = regexp.MustCompile("^[a-zA-Z0-9][a-zA-Z0-9_.-]+$")

// Config describes a test domain. Extra carries scenario specific settings
// such as sched = "sedf" and is rendered after the fixed keys.
type Config struct {
	Name     string
	MemoryMB int
	VCPUs    int
	Kernel   string
	Ramdisk  string
	Root     string
	// CPUs pins the vcpus, in xm cpus syntax ("0-3,^2"). Empty leaves
	// placement to the hypervisor.
	CPUs  string
	Extra map[string]string
}

// Defaults fills what a scenario left unset from base.
func (c Config) Defaults(base Config) Config {
	if c.Name == "" {
		c.Name = base.Name
	}
	if c.MemoryMB == 0 {
		c.MemoryMB = base.MemoryMB
	}
	if c.VCPUs == 0 {
		c.VCPUs = base.VCPUs
	}
	if c.Kernel == "" {
		c.Kernel = base.Kernel
	}
	if c.Ramdisk == "" {
		c.Ramdisk = base.Ramdisk
	}
	if c.Root == "" {
		c.Root = base.Root
	}
	if c.CPUs == "" {
		c.CPUs = base.CPUs
	}
	if len(base.Extra) > 0 {
		merged := make(map[string]string, len(base.Extra)+len(c.Extra))
		for k, v := range base.Extra {
			merged[k] = v
		}
		for k, v := range c.Extra {
			merged[k] = v
		}
		c.Extra = merged
	}
	return c
}

// NewName returns a fresh xmtest-<8 hex> domain name.
func NewName() string {
	return defs.DefaultDomainPrefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func ValidName(name string) error {
	if name == "" {
		return er.EmptyDomainName
	}
	if len(name) > defs.MaxDomainNameLength {
		return fmt.Errorf("domain name %q exceeds %d characters: %w", name, defs.MaxDomainNameLength, er.InvalidDomainName)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%q: %w", name, er.InvalidDomainName)
	}
	return nil
}

func (c Config) Validate() error {
	if err := ValidName(c.Name); err != nil {
		return err
	}
	if c.MemoryMB <= 0 {
		return fmt.Errorf("domain %s: memory must be positive, got %d", c.Name, c.MemoryMB)
	}
	if c.VCPUs <= 0 {
		return fmt.Errorf("domain %s: vcpus must be positive, got %d", c.Name, c.VCPUs)
	}
	if c.CPUs != "" {
		set, err := cpuset.Parse(c.CPUs)
		if err != nil {
			return fmt.Errorf("domain %s: cpus: %w", c.Name, err)
		}
		if set.IsEmpty() {
			return fmt.Errorf("domain %s: cpus %q selects no cpu", c.Name, c.CPUs)
		}
	}
	for k := range c.Extra {
		if k == "" || strings.ContainsAny(k, " =\n") {
			return fmt.Errorf("domain %s: invalid config key %q", c.Name, k)
		}
	}
	return nil
}

// Render produces the xm config file. Numbers stay bare, everything else is
// quoted; values already written as lists ([...]) pass through untouched.
func (c Config) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "name = %s\n", quote(c.Name))
	fmt.Fprintf(&b, "memory = %d\n", c.MemoryMB)
	fmt.Fprintf(&b, "vcpus = %d\n", c.VCPUs)
	if c.Kernel != "" {
		fmt.Fprintf(&b, "kernel = %s\n", quote(c.Kernel))
	}
	if c.Ramdisk != "" {
		fmt.Fprintf(&b, "ramdisk = %s\n", quote(c.Ramdisk))
	}
	if c.Root != "" {
		fmt.Fprintf(&b, "root = %s\n", quote(c.Root))
	}
	if set, err := cpuset.Parse(c.CPUs); err == nil && !set.IsEmpty() {
		fmt.Fprintf(&b, "cpus = %s\n", quote(set.String()))
	}

	keys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s = %s\n", k, renderValue(c.Extra[k]))
	}
	return b.String()
}

func renderValue(v string) string {
	if strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]") {
		return v
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v
	}
	return quote(v)
}

func quote(s string) string {
	return strconv.Quote(s)
}
