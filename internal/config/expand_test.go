package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_Variables(t *testing.T) {
	t.Setenv("HOME", "/home/deploy")
	t.Setenv("USER", "deploy")

	assert.Equal(t, "/home/deploy/logs/fleet.log", Expand("${HOME}/logs/fleet.log"))
	assert.Equal(t, "/srv/deploy/state", Expand("/srv/${USER}/state"))
	assert.Equal(t, "/plain/path", Expand("/plain/path"))
	assert.Equal(t, "", Expand(""))
}

func TestExpand_UnknownVariablePassesThrough(t *testing.T) {
	assert.Equal(t, "/srv/${NOPE}/x", Expand("/srv/${NOPE}/x"))
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/deploy")

	assert.Equal(t, "/home/deploy/snapshots", ExpandPath("${HOME}/snapshots"))
	assert.Equal(t, "/home/deploy/snapshots", ExpandPath("~/snapshots"))
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x"), ExpandHome("~/x"))
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "rel/path", ExpandHome("rel/path"))
}
