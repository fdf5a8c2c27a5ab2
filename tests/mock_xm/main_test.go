//go:build test
// +build test

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestRunKeepsStateAcrossInvocations(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "dom.cfg")
	require.NoError(t, os.WriteFile(cfg, []byte("name = \"xmtest-m\"\nsched = \"sedf\"\n"), 0o644))
	vars := map[string]string{stateEnv: filepath.Join(dir, "xm.json")}

	assert.Equal(t, 0, run([]string{"create", cfg}, env(vars)))
	assert.Equal(t, 0, run([]string{"sched-sedf", "xmtest-m"}, env(vars)))
	assert.Equal(t, 1, run([]string{"sched-sedf", "xmtest-m", "-s", "21.0"}, env(vars)))

	vars[acceptInvalidEnv] = "1"
	assert.Equal(t, 0, run([]string{"sched-sedf", "xmtest-m", "-s", "21.0"}, env(vars)))

	assert.Equal(t, 0, run([]string{"shutdown", "-w", "xmtest-m"}, env(vars)))
	assert.Equal(t, 1, run([]string{"domid", "xmtest-m"}, env(vars)))
}

func TestFaultsFromEnv(t *testing.T) {
	f, err := faultsFromEnv(env(map[string]string{
		failCreateEnv:  "no kernel",
		shortRowEnv:    "yes",
		queryStatusEnv: "5",
	}))
	require.NoError(t, err)
	assert.Equal(t, "no kernel", f.FailCreate)
	assert.True(t, f.ShortRow)
	assert.False(t, f.AcceptInvalidSlice)
	assert.Equal(t, 5, f.QueryStatus)

	_, err = faultsFromEnv(env(map[string]string{queryStatusEnv: "x"}))
	assert.Error(t, err)
	assert.Equal(t, 2, run([]string{"list"}, env(map[string]string{queryStatusEnv: "x"})))
}
