package xmsim

import (
	"fmt"
	"strconv"
	"strings"
)

// rv the hypervisor hands back for a rejected sedf_adjust
const einval = -22

const sedfHeader = "Name                                ID Period(ms) Slice(ms) Lat(ms) Extra Weight"

func (h *Host) sedfRow(d *Domain) string {
	row := fmt.Sprintf("%-33s %3d %9.1f %9.1f %7.1f %6d", d.Name, d.ID, d.SEDF.PeriodMs, d.SEDF.SliceMs, d.SEDF.LatencyMs, d.SEDF.Extratime)
	if h.state.Faults.ShortRow {
		return row
	}
	return row + fmt.Sprintf(" %6d", d.SEDF.Weight)
}

func (h *Host) schedSEDF(args []string) (int, string) {
	if len(args) == 0 {
		var b strings.Builder
		b.WriteString(sedfHeader + "\n")
		for _, d := range h.state.Domains {
			b.WriteString(h.sedfRow(d) + "\n")
		}
		return h.queryStatus(), b.String()
	}

	name, opts := args[0], args[1:]
	d := h.lookup(name)
	if d == nil {
		return notExist(name)
	}
	if d.Sched != "sedf" {
		return 1, fmt.Sprintf("Error: domain '%s' is not scheduled by sedf\n", name)
	}

	if len(opts) == 0 {
		return h.queryStatus(), sedfHeader + "\n" + h.sedfRow(d) + "\n"
	}

	next, err := applyOpts(d.SEDF, opts)
	if err != nil {
		return 1, fmt.Sprintf("Error: %v\n", err)
	}
	if rv := h.adjust(next); rv != 0 {
		return 1, fmt.Sprintf("Error: Failed to set sedf parameters (rv=%d).\n", rv)
	}
	d.SEDF = next
	return 0, ""
}

func (h *Host) queryStatus() int {
	return h.state.Faults.QueryStatus
}

// adjust mirrors the hypervisor's sanity checks on new tunables.
func (h *Host) adjust(p SEDF) int {
	if p.PeriodMs <= 0 || p.SliceMs <= 0 || p.LatencyMs < 0 {
		return einval
	}
	if p.Extratime != 0 && p.Extratime != 1 {
		return einval
	}
	if p.Weight < 0 {
		return einval
	}
	if p.SliceMs > p.PeriodMs && !h.state.Faults.AcceptInvalidSlice {
		return einval
	}
	return 0
}

func applyOpts(cur SEDF, opts []string) (SEDF, error) {
	next := cur
	for i := 0; i < len(opts); i++ {
		flag := opts[i]
		if i+1 >= len(opts) {
			return cur, fmt.Errorf("option %s requires a value", flag)
		}
		value := opts[i+1]
		i++

		var err error
		switch flag {
		case "-p", "--period":
			next.PeriodMs, err = strconv.ParseFloat(value, 64)
		case "-s", "--slice":
			next.SliceMs, err = strconv.ParseFloat(value, 64)
		case "-l", "--latency":
			next.LatencyMs, err = strconv.ParseFloat(value, 64)
		case "-e", "--extratime":
			next.Extratime, err = strconv.Atoi(value)
		case "-w", "--weight":
			next.Weight, err = strconv.Atoi(value)
		default:
			return cur, fmt.Errorf("unknown option %s", flag)
		}
		if err != nil {
			return cur, fmt.Errorf("invalid value %q for %s", value, flag)
		}
	}
	return next, nil
}
