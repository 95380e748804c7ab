package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
version: 1
nodes:
  pve1:
    address: 10.0.0.10
    user: root
    key_auth: true
    tags: [hypervisor, prod]
  pve2:
    address: 10.0.0.11
    port: 2222
    user: admin
    password: hunter2
remote:
  work_root: /var/tmp
  lib_dir: ./lib
  log_level: debug
  connect_timeout: 30s
  command_timeout: 5m
bulk:
  max_range: 250
  max_parallel: 8
  retries: 2
  retry_delay: 10s
snapshot:
  dir: /srv/snapshots
  status_command: "qm status {id}"
  config_command: "qm config {id}"
  set_command: "qm set {id} --{key} {value}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Nodes, 2)
	assert.Equal(t, "10.0.0.10", cfg.Nodes["pve1"].Address)
	assert.True(t, cfg.Nodes["pve1"].KeyAuth)
	assert.Equal(t, []string{"hypervisor", "prod"}, cfg.Nodes["pve1"].Tags)
	assert.Equal(t, 2222, cfg.Nodes["pve2"].Port)
	assert.Equal(t, "hunter2", cfg.Nodes["pve2"].Password)

	assert.Equal(t, "/var/tmp", cfg.Remote.WorkRoot)
	assert.Equal(t, 30*time.Second, cfg.Remote.ConnectTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Remote.CommandTimeout)

	assert.Equal(t, 250, cfg.Bulk.MaxRange)
	assert.Equal(t, 8, cfg.Bulk.MaxParallel)
	assert.Equal(t, 10*time.Second, cfg.Bulk.RetryDelay)

	assert.Equal(t, "/srv/snapshots", cfg.Snapshot.Dir)
	assert.Equal(t, "qm status {id}", cfg.Snapshot.StatusCommand)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
nodes:
  web1:
    address: 192.168.1.5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp", cfg.Remote.WorkRoot)
	assert.Equal(t, "info", cfg.Remote.LogLevel)
	assert.Equal(t, 100, cfg.Bulk.MaxRange)
	assert.Equal(t, 4, cfg.Bulk.MaxParallel)
	assert.Equal(t, 5*time.Second, cfg.Bulk.RetryDelay)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "nodes: [not: a: map\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
nodes:
  broken:
    user: root
`)
	_, err := Load(path)
	assert.Error(t, err, "a node without an address must be rejected at load time")
}

func TestFind_ExplicitMissing(t *testing.T) {
	_, err := Find(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestFind_Explicit(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "version: 1\n")
	found, err := Find(path)
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

func TestLoadOrDefault_NoConfigAnywhere(t *testing.T) {
	// Run from a directory tree with no config files in reach.
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0755))
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Remote.WorkRoot, cfg.Remote.WorkRoot)
}

func TestLoad_ExpandsVariablesInPaths(t *testing.T) {
	t.Setenv("HOME", "/home/deploy")

	path := writeConfig(t, t.TempDir(), `
nodes:
  pve1:
    address: 10.0.0.10
    key_file: ~/.ssh/fleet_ed25519
remote:
  aggregate_log: ${HOME}/logs/fleet.log
bulk:
  state_dir: ~/state
snapshot:
  dir: ${HOME}/snapshots
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/home/deploy/logs/fleet.log", cfg.Remote.AggregateLog)
	assert.Equal(t, "/home/deploy/state", cfg.Bulk.StateDir)
	assert.Equal(t, "/home/deploy/snapshots", cfg.Snapshot.Dir)
	assert.Equal(t, "/home/deploy/.ssh/fleet_ed25519", cfg.Nodes["pve1"].KeyFile)
}
