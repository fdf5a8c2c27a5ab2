// Package cpuset handles the CPU lists xm accepts for a domain's cpus
// setting, e.g. "0-3,^2".
package cpuset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type CPUSet struct {
	cpus map[int]struct{}
}

func New(cpus ...int) CPUSet {
	set := CPUSet{cpus: make(map[int]struct{}, len(cpus))}
	for _, cpu := range cpus {
		set.cpus[cpu] = struct{}{}
	}
	return set
}

// Parse reads a comma separated list of CPUs and ranges. An entry prefixed
// with ^ removes CPUs added by the entries before it.
func Parse(s string) (CPUSet, error) {
	set := New()
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		exclude := strings.HasPrefix(part, "^")
		lo, hi, err := parseRange(strings.TrimPrefix(part, "^"))
		if err != nil {
			return set, err
		}
		for cpu := lo; cpu <= hi; cpu++ {
			if exclude {
				delete(set.cpus, cpu)
			} else {
				set.cpus[cpu] = struct{}{}
			}
		}
	}
	return set, nil
}

func parseRange(s string) (int, int, error) {
	first, last, isRange := strings.Cut(s, "-")
	lo, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil || lo < 0 {
		return 0, 0, fmt.Errorf("invalid cpu %q", s)
	}
	if !isRange {
		return lo, lo, nil
	}
	hi, err := strconv.Atoi(strings.TrimSpace(last))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid cpu range %q", s)
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("invalid cpu range %q: start > end", s)
	}
	return lo, hi, nil
}

func (set CPUSet) Contains(cpu int) bool {
	_, ok := set.cpus[cpu]
	return ok
}

func (set CPUSet) Size() int { return len(set.cpus) }

func (set CPUSet) IsEmpty() bool { return len(set.cpus) == 0 }

func (set CPUSet) ToSlice() []int {
	cpus := make([]int, 0, len(set.cpus))
	for cpu := range set.cpus {
		cpus = append(cpus, cpu)
	}
	sort.Ints(cpus)
	return cpus
}

// String renders the canonical form: sorted, consecutive CPUs collapsed into
// ranges, no exclusions.
func (set CPUSet) String() string {
	cpus := set.ToSlice()
	var parts []string
	for i := 0; i < len(cpus); i++ {
		start := cpus[i]
		for i+1 < len(cpus) && cpus[i+1] == cpus[i]+1 {
			i++
		}
		if start == cpus[i] {
			parts = append(parts, strconv.Itoa(start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, cpus[i]))
		}
	}
	return strings.Join(parts, ",")
}
