package log

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	SetOutput(out, errOut)
	t.Cleanup(func() {
		SetOutput(os.Stdout, os.Stderr)
		SetLevel(InfoLevel)
	})
	return out, errOut
}

func TestOutputSplitByLevel(t *testing.T) {
	out, errOut := capture(t)

	Info("hello", "world")
	Warnf("careful %d", 1)
	Errorf("broken %s", "pipe")

	assert.Contains(t, out.String(), "hello world")
	assert.NotContains(t, out.String(), "careful")
	assert.Contains(t, errOut.String(), "careful 1")
	assert.Contains(t, errOut.String(), "broken pipe")
}

func TestSetLevel(t *testing.T) {
	out, _ := capture(t)

	Debug("hidden")
	assert.NotContains(t, out.String(), "hidden")

	assert.NoError(t, SetLevel(TraceLevel))
	Debug("shown")
	Trace("traced")
	assert.Contains(t, out.String(), "shown")
	assert.Contains(t, out.String(), "traced")

	assert.Error(t, SetLevel("loud"))
}

func TestShouldLog(t *testing.T) {
	assert.True(t, ShouldLog(ErrorLevel, InfoLevel))
	assert.False(t, ShouldLog(DebugLevel, InfoLevel))
	assert.False(t, ShouldLog("loud", InfoLevel))
	assert.True(t, ValidLogLevel(WarningLevel))
}

func TestDebugError(t *testing.T) {
	out, _ := capture(t)
	SetLevel(DebugLevel)

	inner := errors.New("inner")
	DebugError(fmt.Errorf("outer: %w", inner))

	assert.Contains(t, out.String(), "outer: inner")
	assert.Contains(t, out.String(), "| 1: inner")
}

func TestConfigureFile(t *testing.T) {
	capture(t)

	path := filepath.Join(t.TempDir(), "multinode.log")
	Configure(LogConfig{File: path})
	t.Cleanup(func() { Configure(LogConfig{}) })

	Info("to file")

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
