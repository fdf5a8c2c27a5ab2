//go:build test && !debug
// +build test,!debug

package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset(t *testing.T) {
	t.Cleanup(func() {
		Log.SetOutput(os.Stderr)
		Log.SetLevel(logrus.InfoLevel)
		_ = setFormat("text", false)
	})
}

func TestInitJSONWithScenario(t *testing.T) {
	reset(t)
	require.NoError(t, Init(&Config{Level: "warn", Format: "json"}))

	var buf bytes.Buffer
	SetOutput(&buf)
	Info("dropped")
	WithScenario("sedf", "04_sedf_slice_upper_neg").Warn("slice accepted")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sedf", entry["group"])
	assert.Equal(t, "04_sedf_slice_upper_neg", entry["scenario"])
	assert.Equal(t, "slice accepted", entry["msg"])
}

func TestInitRejects(t *testing.T) {
	reset(t)
	assert.Error(t, Init(&Config{Level: "chatty"}))
	assert.Error(t, Init(&Config{Format: "yaml"}))
	assert.NoError(t, Init(nil))
}

func TestInitOutputFile(t *testing.T) {
	reset(t)
	path := filepath.Join(t.TempDir(), "logs", "xm-test.log")
	require.NoError(t, Init(&Config{Output: path}))
	Warnf("domain %s still running", "xmtest-1")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "domain xmtest-1 still running")
}

func TestDebugfPrefixesCaller(t *testing.T) {
	reset(t)
	var buf bytes.Buffer
	SetOutput(&buf)
	Log.SetLevel(logrus.DebugLevel)
	Debugf("querying %s", "xmtest-2")
	assert.Contains(t, buf.String(), "[logger_test.go:")
	assert.Contains(t, buf.String(), "querying xmtest-2")
}
