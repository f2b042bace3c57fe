package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaffoldFailsWhenInputDirCannotBeCreated(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("input", []byte("not a directory"), 0644))

	err := scaffoldCmd(nil)
	assert.Error(t, err)
	_, statErr := os.Stat(timelinesDir)
	assert.True(t, os.IsNotExist(statErr))
}
