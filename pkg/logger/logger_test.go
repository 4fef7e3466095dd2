package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitParsesLevels(t *testing.T) {
	cases := map[string]string{
		"debug":    "debug",
		" WARN ":   "warn",
		"warning":  "warn",
		"Error":    "error",
		"fatal":    "fatal",
		"nonsense": "info",
		"":         "info",
	}
	for in, want := range cases {
		Init(in)
		assert.Equal(t, want, LevelString(), "Init(%q)", in)
	}
	Init("info")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	setOutput(&buf)
	defer setOutput(os.Stdout)
	defer Init("info")

	Init("warn")
	Debugf("session %s touched", "s-debug")
	Infof("session %s created", "s-info")
	Warnf("sweep failed: %v", "timeout")
	Errorf("logout-all incomplete for %s", "u1")

	out := buf.String()
	assert.NotContains(t, out, "s-debug")
	assert.NotContains(t, out, "s-info")
	assert.Contains(t, out, "sweep failed: timeout")
	assert.Contains(t, out, "logout-all incomplete for u1")
	assert.Contains(t, out, "WARN")
}

func TestProductionUsesJSON(t *testing.T) {
	var buf bytes.Buffer
	setOutput(&buf)
	defer func() {
		InitWithEnvironment("info", "development")
		setOutput(os.Stdout)
	}()

	InitWithEnvironment("info", "production")
	With("user_id", "u1").Infof("session created")
	require.NoError(t, Sync())

	out := buf.String()
	assert.Contains(t, out, `"msg":"session created"`)
	assert.Contains(t, out, `"user_id":"u1"`)
	assert.Contains(t, out, `"timestamp"`)
}
