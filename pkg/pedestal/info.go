package pedestal

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/mem"

	er "xmtest/errors"
	log "xmtest/logger"
)

// xm info:
// host                   : xentest01
// release                : 2.6.18-xen
// machine                : x86_64
// nr_cpus                : 4
// nr_nodes               : 1
// cores_per_socket       : 2
// threads_per_core       : 1
// cpu_mhz                : 2400
// total_memory           : 4095
// free_memory            : 3391
// xen_major              : 4
// xen_minor              : 1
// xen_extra              : .2
// xen_caps               : xen-3.0-x86_64 xen-3.0-x86_32p hvm-3.0-x86_32
// xen_scheduler          : sedf
// xen_pagesize           : 4096
// xen_commandline        : sched=sedf dom0_mem=512M
// xend_config_format     : 4

// HostInfo is the subset of `info` the scenarios look at.
type HostInfo struct {
	Host           string
	Machine        string
	NrCPUs         uint32
	CoresPerSocket uint32
	ThreadsPerCore uint32
	CPUMhz         float64
	TotalMemoryMB  uint32
	FreeMemoryMB   uint32
	XenVersion     string
	XenCaps        string
	// Scheduler the hypervisor was booted with (sedf, credit, credit2, ...).
	XenScheduler   string
	XenCommandline string
}

func (ts *Toolstack) Info(ctx context.Context) (*HostInfo, error) {
	status, out, err := ts.Run(ctx, info)
	if err != nil {
		return nil, err
	}
	if status != 0 {
		return nil, &er.QueryError{Command: ts.command(info), Status: status, Output: out}
	}
	return parseInfo(out)
}

func parseInfo(output string) (*HostInfo, error) {
	hi := &HostInfo{}
	scanner := bufio.NewScanner(strings.NewReader(output))

	var major, minor, extra string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		var err error
		switch key {
		case "host":
			hi.Host = value
		case "machine":
			hi.Machine = value
		case "nr_cpus":
			hi.NrCPUs, err = parseUint32(value)
		case "cores_per_socket":
			hi.CoresPerSocket, err = parseUint32(value)
		case "threads_per_core":
			hi.ThreadsPerCore, err = parseUint32(value)
		case "cpu_mhz":
			hi.CPUMhz, err = strconv.ParseFloat(value, 64)
		case "total_memory":
			hi.TotalMemoryMB, err = parseUint32(value)
		case "free_memory":
			hi.FreeMemoryMB, err = parseUint32(value)
		case "xen_major":
			major = value
		case "xen_minor":
			minor = value
		case "xen_extra":
			extra = value
		case "xen_caps":
			hi.XenCaps = value
		case "xen_scheduler":
			hi.XenScheduler = value
		case "xen_commandline":
			hi.XenCommandline = value
		}
		if err != nil {
			return nil, &er.ParseError{What: "info " + key, Input: value, Err: err}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading info output: %w", err)
	}

	if major != "" {
		hi.XenVersion = major
		if minor != "" {
			hi.XenVersion += "." + minor + extra
		}
	}

	return hi, nil
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}

var virtualMemory = mem.VirtualMemory

// MemoryMB returns free and total host memory in MB. The hypervisor's view
// from `info` wins; the kernel's view is only a fallback since dom0 does not
// see memory that is not ballooned into it.
func (ts *Toolstack) MemoryMB(ctx context.Context) (free, total uint32) {
	if v, err := virtualMemory(); err == nil {
		free = uint32(v.Available >> 20)
		total = uint32(v.Total >> 20)
	} else {
		log.Debugf("failed to read kernel memory stats: %v", err)
	}

	hi, err := ts.Info(ctx)
	if err != nil {
		log.Debugf("failed to get host info: %v", err)
		return free, total
	}
	return hi.FreeMemoryMB, hi.TotalMemoryMB
}
