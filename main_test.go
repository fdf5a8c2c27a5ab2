//go:build test
// +build test

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	defs "xmtest/definitions"
	"xmtest/pkg/scenario"
)

func TestListScenarios(t *testing.T) {
	var out, errOut bytes.Buffer
	code := execute([]string{"list"}, &out, &errOut)
	assert.Equal(t, 0, code)
	assert.Equal(t, "sedf/00_sedf_query_stable\nsedf/04_sedf_slice_upper_neg\n", out.String())

	out.Reset()
	code = execute([]string{"list", "sedf/04_*"}, &out, &errOut)
	assert.Equal(t, 0, code)
	assert.Equal(t, "sedf/04_sedf_slice_upper_neg\n", out.String())
}

func TestBadPattern(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, 2, execute([]string{"list", "["}, &out, &errOut))
	assert.Contains(t, errOut.String(), "bad scenario pattern")
}

func TestLoadConfigFlagsWin(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "xm-test.conf")
	require.NoError(t, os.WriteFile(file, []byte("[toolstack]\nbinary = xl\n[domain]\nworkdir = /srv/a\n"), 0o644))
	t.Setenv(defs.XmTestToolstackEnv, "")

	cfg, err := loadConfig(&options{configFile: file, workDir: "/srv/b", logLevel: "debug", verbose: true, strict: true})
	require.NoError(t, err)
	assert.Equal(t, "xl", cfg.Toolstack.Binary)
	assert.Equal(t, "/srv/b", cfg.Domain.WorkDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Verbose)
	assert.True(t, cfg.Strict)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(&options{configFile: filepath.Join(t.TempDir(), "typo.conf")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPrintReport(t *testing.T) {
	rep := scenario.Report{
		Results: []scenario.Result{
			{Group: "sedf", Name: "04_sedf_slice_upper_neg", Verdict: scenario.Fail, Message: "sched-sedf let me set a slice bigger than my period.", Duration: 1500 * time.Millisecond},
			{Group: "sedf", Name: "00_sedf_query_stable", Verdict: scenario.Skip, Message: "no sedf"},
		},
		Failed:  1,
		Skipped: 1,
	}
	var out bytes.Buffer
	printReport(&out, rep)
	assert.Contains(t, out.String(), "FAIL:  sedf/04_sedf_slice_upper_neg")
	assert.Contains(t, out.String(), "1.5s")
	assert.Contains(t, out.String(), "0 passed, 1 failed, 1 skipped")
}
