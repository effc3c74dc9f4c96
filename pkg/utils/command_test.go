//go:build linux

package utils

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunWaitCwd(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, RunWaitCwd(dir, "sh", "-c", "touch marker"))
	assert.FileExists(t, filepath.Join(dir, "marker"))
}

func TestRunWaitCwdFailure(t *testing.T) {
	err := RunWaitCwd("", "sh", "-c", "echo broken >&2; exit 3")
	assert.Error(t, err)

	var detailed DetailedError
	if assert.True(t, errors.As(err, &detailed)) {
		assert.Equal(t, "broken\n", detailed.Details())
	}

	assert.ErrorIs(t, RunWaitCwd(""), ErrBadRequest)
}
