package pedestal

import (
	"context"
	"math"
	"strconv"
	"strings"

	defs "xmtest/definitions"
	er "xmtest/errors"
	log "xmtest/logger"
)

// xm sched-sedf <dom>:
//
//	Name                                ID Period(ms) Slice(ms) Lat(ms) Extra Weight
//	xmtest-1a2b3c4d                      3      20.0      15.0     0.0      1      0
//
// Line 0 is the header, line 1 the domain's row. Fields are whitespace
// separated; Name never contains blanks because domain names are validated.
type SEDFParams struct {
	Name      string
	DomID     string
	Period    string
	Slice     string
	Latency   string
	Extratime string
	Weight    string
}

// Tuple returns the fields in the order xm prints them.
func (p SEDFParams) Tuple() [defs.SEDFRowFields]string {
	return [defs.SEDFRowFields]string{p.Name, p.DomID, p.Period, p.Slice, p.Latency, p.Extratime, p.Weight}
}

func (p SEDFParams) PeriodFloat() (float64, error) {
	v, err := strconv.ParseFloat(p.Period, 64)
	if err != nil {
		return 0, &er.ParseError{What: "sedf period", Input: p.Period, Err: err}
	}
	return v, nil
}

// ParseSEDFRow takes the raw output of a sched-sedf query and decomposes the
// data row. It insists on exactly seven fields so that a change in the
// toolstack's layout fails loudly.
func ParseSEDFRow(output string) (SEDFParams, error) {
	lines := strings.Split(output, "\n")
	if len(lines) < 2 {
		return SEDFParams{}, &er.ParseError{What: "sched-sedf output", Input: output}
	}

	row := lines[1]
	fields := strings.Fields(row)
	if len(fields) != defs.SEDFRowFields {
		return SEDFParams{}, &er.ParseError{
			What:  "sched-sedf row",
			Input: row,
			Want:  defs.SEDFRowFields,
			Got:   len(fields),
		}
	}

	return SEDFParams{
		Name:      fields[0],
		DomID:     fields[1],
		Period:    fields[2],
		Slice:     fields[3],
		Latency:   fields[4],
		Extratime: fields[5],
		Weight:    fields[6],
	}, nil
}

// SEDFOptions are the short flags of `sched-sedf <dom> [opts]`. Empty fields
// are left out of the command line so the hypervisor keeps the current value.
type SEDFOptions struct {
	Period    string
	Slice     string
	Latency   string
	Extratime string
	Weight    string
}

func (o SEDFOptions) args() []string {
	var args []string
	for _, opt := range []struct{ flag, value string }{
		{"-p", o.Period},
		{"-s", o.Slice},
		{"-l", o.Latency},
		{"-e", o.Extratime},
		{"-w", o.Weight},
	} {
		if opt.value != "" {
			args = append(args, opt.flag, opt.value)
		}
	}
	return args
}

func (o SEDFOptions) empty() bool {
	return len(o.args()) == 0
}

// QuerySEDF runs `sched-sedf <dom>`.
func (ts *Toolstack) QuerySEDF(ctx context.Context, domain string) (int, string, error) {
	if domain == "" {
		return -1, "", er.EmptyDomainName
	}
	return ts.Run(ctx, schedSEDF, domain)
}

// ApplySEDF runs `sched-sedf <dom> <opts>`. The caller decides what the
// output means; see SEDFRejected.
func (ts *Toolstack) ApplySEDF(ctx context.Context, domain string, opts SEDFOptions) (int, string, error) {
	if domain == "" {
		return -1, "", er.EmptyDomainName
	}
	if opts.empty() {
		return -1, "", er.InvalidSEDFArgument
	}
	args := append([]string{domain}, opts.args()...)
	log.Debugf("applying sedf parameters: %s", ts.command(schedSEDF, args...))
	return ts.Run(ctx, schedSEDF, args...)
}

// SEDFRejected reports whether xm printed its "could not set" diagnostic.
//
// 04_sedf_slice_upper_neg fails when this is true, so a hypervisor that
// correctly refuses a slice above the period yields FAIL and one that accepts
// it yields PASS. That inverted verdict is how the scenario has always
// behaved and callers rely on it; negate the call site to get a real
// negative test.
func SEDFRejected(output string) bool {
	return strings.Contains(output, defs.SEDFSetFailed)
}

// NextSlice returns exactly period + 1.0 ("10" gives "11.0"). The digits are
// the shortest that round-trip, which can be longer than the 12 significant
// digits older xm-test builds printed.
func NextSlice(period string) (string, error) {
	p, err := strconv.ParseFloat(strings.TrimSpace(period), 64)
	if err != nil {
		return "", &er.ParseError{What: "sedf period", Input: period, Err: err}
	}
	return FormatFloat(p + 1.0), nil
}

// FormatFloat prints the shortest representation that round-trips, always
// with a fractional part, switching to exponent form below 1e-4 and from 1e16
// on.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	if v != 0 {
		exp := math.Floor(math.Log10(math.Abs(v)))
		if exp < -4 || exp >= 16 {
			// 1e+16, 2.5e-05
			return strconv.FormatFloat(v, 'e', -1, 64)
		}
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
