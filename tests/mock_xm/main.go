// mock_xm pretends to be xm on hosts without Xen. State lives in a JSON file
// so consecutive invocations see the same domains.
//
//	XM_MOCK_STATE=/tmp/xm-test/mock-xm.json mock_xm create /tmp/xm-test/dom.cfg
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"xmtest/pkg/xmsim"
)

const (
	stateEnv         = "XM_MOCK_STATE"
	acceptInvalidEnv = "XM_MOCK_ACCEPT_INVALID"
	failCreateEnv    = "XM_MOCK_FAIL_CREATE"
	shortRowEnv      = "XM_MOCK_SHORT_ROW"
	queryStatusEnv   = "XM_MOCK_QUERY_STATUS"

	defaultStateFile = "/tmp/xm-test/mock-xm.json"
)

func main() {
	os.Exit(run(os.Args[1:], os.Getenv))
}

func run(args []string, getenv func(string) string) int {
	path := getenv(stateEnv)
	if path == "" {
		path = defaultStateFile
	}

	faults, err := faultsFromEnv(getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mock_xm: %v\n", err)
		return 2
	}

	status := 0
	err = xmsim.WithStateFile(path, func(h *xmsim.Host) error {
		h.SetFaults(faults)
		var out string
		status, out = h.Exec(args)
		fmt.Print(out)
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "mock_xm: %v\n", err)
		return 2
	}
	return status
}

func faultsFromEnv(getenv func(string) string) (xmsim.Faults, error) {
	f := xmsim.Faults{
		AcceptInvalidSlice: truthy(getenv(acceptInvalidEnv)),
		FailCreate:         getenv(failCreateEnv),
		ShortRow:           truthy(getenv(shortRowEnv)),
	}
	if v := getenv(queryStatusEnv); v != "" {
		st, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("%s=%q: %w", queryStatusEnv, v, err)
		}
		f.QueryStatus = st
	}
	return f, nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no":
		return false
	default:
		return true
	}
}
