// Package xmsim simulates the parts of a Xen host that xm-test scenarios talk
// to: domain lifecycle, `info`, `list` and the sedf scheduler tunables. It
// speaks the same command line and prints the same text as xm, so it can sit
// behind the real command runner (tests/mock_xm) or be used directly as an
// executor in tests.
package xmsim

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"xmtest/pkg/cmdtrace"
)

const (
	dom0Name = "Domain-0"

	defaultPeriodMs = 20.0
	defaultSliceMs  = 15.0
	defaultMemoryMB = 128
)

type DomainState string

const (
	Running DomainState = "r-----"
	Blocked DomainState = "-b----"
)

// SEDF holds one domain's sedf tunables, in milliseconds.
type SEDF struct {
	PeriodMs  float64 `json:"period_ms"`
	SliceMs   float64 `json:"slice_ms"`
	LatencyMs float64 `json:"latency_ms"`
	Extratime int     `json:"extratime"`
	Weight    int     `json:"weight"`
}

type Domain struct {
	Name     string      `json:"name"`
	ID       int         `json:"id"`
	MemoryMB int         `json:"memory_mb"`
	VCPUs    int         `json:"vcpus"`
	Sched    string      `json:"sched"`
	State    DomainState `json:"state"`
	SEDF     SEDF        `json:"sedf"`
}

// Faults make the host misbehave in the ways scenarios must notice.
type Faults struct {
	// AcceptInvalidSlice lets slice > period through, as a broken hypervisor would.
	AcceptInvalidSlice bool `json:"accept_invalid_slice"`
	// FailCreate, when set, is printed as the reason every create fails.
	FailCreate string `json:"fail_create"`
	// ShortRow drops the weight column from sched-sedf rows.
	ShortRow bool `json:"short_row"`
	// QueryStatus forces the exit status of sched-sedf queries.
	QueryStatus int `json:"query_status"`
}

type State struct {
	Scheduler     string    `json:"scheduler"`
	NrCPUs        int       `json:"nr_cpus"`
	TotalMemoryMB int       `json:"total_memory_mb"`
	NextID        int       `json:"next_id"`
	Domains       []*Domain `json:"domains"`
	Faults        Faults    `json:"faults"`
}

// NewState returns a host with only Domain-0 running.
func NewState() State {
	return State{
		Scheduler:     "sedf",
		NrCPUs:        4,
		TotalMemoryMB: 4096,
		NextID:        1,
		Domains: []*Domain{{
			Name:     dom0Name,
			ID:       0,
			MemoryMB: 512,
			VCPUs:    4,
			Sched:    "sedf",
			State:    Running,
			SEDF:     SEDF{PeriodMs: defaultPeriodMs, SliceMs: defaultSliceMs, Extratime: 1},
		}},
	}
}

type Host struct {
	mu    sync.Mutex
	state State
}

func NewHost(state State) *Host {
	return &Host{state: state}
}

// State returns a deep copy of the current state.
func (h *Host) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := h.state
	st.Domains = make([]*Domain, 0, len(h.state.Domains))
	for _, d := range h.state.Domains {
		c := *d
		st.Domains = append(st.Domains, &c)
	}
	return st
}

func (h *Host) SetFaults(f Faults) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.Faults = f
}

// Trace lets a Host stand in for cmdtrace.Runner. The binary name is ignored.
func (h *Host) Trace(ctx context.Context, name string, args ...string) (cmdtrace.Result, error) {
	if err := ctx.Err(); err != nil {
		return cmdtrace.Result{Status: -1}, err
	}
	status, out := h.Exec(args)
	return cmdtrace.Result{Status: status, Output: out}, nil
}

// Exec runs one xm command line (without the binary name) and returns its
// exit status and output.
func (h *Host) Exec(args []string) (int, string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(args) == 0 {
		return 1, "Usage: xm <subcommand> [args]\n"
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "create":
		return h.create(rest)
	case "shutdown":
		return h.remove(rest, "shutdown")
	case "destroy":
		return h.remove(rest, "destroy")
	case "list":
		return h.list()
	case "domid":
		return h.domid(rest)
	case "info":
		return h.info()
	case "sched-sedf":
		return h.schedSEDF(rest)
	default:
		return 1, fmt.Sprintf("Error: Subcommand %s not found!\n", sub)
	}
}

func (h *Host) lookup(name string) *Domain {
	for _, d := range h.state.Domains {
		if d.Name == name || strconv.Itoa(d.ID) == name {
			return d
		}
	}
	return nil
}

func notExist(name string) (int, string) {
	return 1, fmt.Sprintf("Error: the domain '%s' does not exist.\n", name)
}

func (h *Host) freeMemoryMB() int {
	used := 0
	for _, d := range h.state.Domains {
		used += d.MemoryMB
	}
	return h.state.TotalMemoryMB - used
}

func (h *Host) create(args []string) (int, string) {
	var cfgPath string
	for _, a := range args {
		if a == "-c" {
			continue
		}
		cfgPath = a
	}
	if cfgPath == "" {
		return 1, "Error: no config file given\n"
	}
	if h.state.Faults.FailCreate != "" {
		return 1, "Error: " + h.state.Faults.FailCreate + "\n"
	}

	raw, err := os.ReadFile(cfgPath)
	if err != nil {
		return 1, fmt.Sprintf("Error: config file %s could not be read: %v\n", cfgPath, err)
	}
	cfg := ParseDomainConfig(string(raw))

	name := cfg["name"]
	if name == "" {
		return 1, "Error: domain config has no name\n"
	}
	if d := h.lookup(name); d != nil {
		return 1, fmt.Sprintf("Error: Domain '%s' already exists with ID '%d'\n", name, d.ID)
	}

	mem := defaultMemoryMB
	if v, ok := cfg["memory"]; ok {
		if mem, err = strconv.Atoi(v); err != nil {
			return 1, fmt.Sprintf("Error: invalid memory %q\n", v)
		}
	}
	if mem > h.freeMemoryMB() {
		return 1, fmt.Sprintf("Error: Not enough free memory for domain '%s' (%d MB requested)\n", name, mem)
	}
	vcpus := 1
	if v, ok := cfg["vcpus"]; ok {
		if vcpus, err = strconv.Atoi(v); err != nil {
			return 1, fmt.Sprintf("Error: invalid vcpus %q\n", v)
		}
	}
	sched := cfg["sched"]
	if sched == "" {
		sched = h.state.Scheduler
	}

	d := &Domain{
		Name:     name,
		ID:       h.state.NextID,
		MemoryMB: mem,
		VCPUs:    vcpus,
		Sched:    sched,
		State:    Blocked,
		SEDF:     SEDF{PeriodMs: defaultPeriodMs, SliceMs: defaultSliceMs, Extratime: 1},
	}
	h.state.NextID++
	h.state.Domains = append(h.state.Domains, d)
	return 0, fmt.Sprintf("Using config file \"%s\".\nStarted domain %s\n", cfgPath, name)
}

func (h *Host) remove(args []string, verb string) (int, string) {
	var name string
	for _, a := range args {
		if strings.HasPrefix(a, "-") {
			continue
		}
		name = a
	}
	if name == "" {
		return 1, fmt.Sprintf("Error: '%s' requires a domain\n", verb)
	}
	d := h.lookup(name)
	if d == nil {
		return notExist(name)
	}
	if d.ID == 0 {
		return 1, fmt.Sprintf("Error: cannot %s Domain-0\n", verb)
	}

	kept := h.state.Domains[:0]
	for _, o := range h.state.Domains {
		if o != d {
			kept = append(kept, o)
		}
	}
	h.state.Domains = kept
	if verb == "shutdown" {
		return 0, fmt.Sprintf("Domain %s terminated\nAll domains terminated\n", name)
	}
	return 0, ""
}

func (h *Host) list() (int, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "%-40s %5s %5s %5s %10s %9s\n", "Name", "ID", "Mem", "VCPUs", "State", "Time(s)")
	doms := append([]*Domain(nil), h.state.Domains...)
	sort.Slice(doms, func(i, j int) bool { return doms[i].ID < doms[j].ID })
	for _, d := range doms {
		fmt.Fprintf(&b, "%-40s %5d %5d %5d %10s %9.1f\n", d.Name, d.ID, d.MemoryMB, d.VCPUs, d.State, 0.0)
	}
	return 0, b.String()
}

func (h *Host) domid(args []string) (int, string) {
	if len(args) != 1 {
		return 1, "Error: 'xm domid' requires 1 argument.\n"
	}
	d := h.lookup(args[0])
	if d == nil {
		return notExist(args[0])
	}
	return 0, strconv.Itoa(d.ID) + "\n"
}

func (h *Host) info() (int, string) {
	var b strings.Builder
	for _, kv := range [][2]string{
		{"host", "xmsim"},
		{"release", "2.6.18-xen"},
		{"machine", "x86_64"},
		{"nr_cpus", strconv.Itoa(h.state.NrCPUs)},
		{"nr_nodes", "1"},
		{"cores_per_socket", strconv.Itoa(h.state.NrCPUs)},
		{"threads_per_core", "1"},
		{"cpu_mhz", "2400"},
		{"total_memory", strconv.Itoa(h.state.TotalMemoryMB)},
		{"free_memory", strconv.Itoa(h.freeMemoryMB())},
		{"xen_major", "4"},
		{"xen_minor", "1"},
		{"xen_extra", ".2"},
		{"xen_caps", "xen-3.0-x86_64 xen-3.0-x86_32p"},
		{"xen_scheduler", h.state.Scheduler},
		{"xen_pagesize", "4096"},
		{"xen_commandline", "sched=" + h.state.Scheduler},
		{"xend_config_format", "4"},
	} {
		fmt.Fprintf(&b, "%-22s : %s\n", kv[0], kv[1])
	}
	return 0, b.String()
}
