package transfer

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFile is one file in the mock remote filesystem.
type fakeFile struct {
	data []byte
	mode uint32
}

// mockTransport simulates the remote side of the transfer engine with a
// virtual filesystem. It understands the small command vocabulary the
// engine emits: workspace reset, mkdir -p, the tar probe, and extraction.
type mockTransport struct {
	hasTar bool
	files  map[string]fakeFile
	dirs   map[string]bool
	execs  []string
}

func newMockTransport(hasTar bool) *mockTransport {
	return &mockTransport{
		hasTar: hasTar,
		files:  make(map[string]fakeFile),
		dirs:   make(map[string]bool),
	}
}

func unquote(s string) string {
	return strings.Trim(s, "'")
}

func (m *mockTransport) Exec(cmd string) ([]byte, []byte, int, error) {
	m.execs = append(m.execs, cmd)

	switch {
	case strings.HasPrefix(cmd, "command -v tar"):
		if m.hasTar {
			return nil, nil, 0, nil
		}
		return nil, nil, 127, nil

	case strings.HasPrefix(cmd, "rm -rf "):
		// Workspace reset: "rm -rf 'dir' && mkdir -p 'dir' 'dir/lib' 'dir/log'"
		parts := strings.SplitN(cmd, " && ", 2)
		target := unquote(strings.TrimPrefix(parts[0], "rm -rf "))
		for p := range m.files {
			if strings.HasPrefix(p, target+"/") {
				delete(m.files, p)
			}
		}
		for p := range m.dirs {
			if p == target || strings.HasPrefix(p, target+"/") {
				delete(m.dirs, p)
			}
		}
		if len(parts) == 2 {
			for _, d := range strings.Fields(strings.TrimPrefix(parts[1], "mkdir -p ")) {
				m.dirs[unquote(d)] = true
			}
		}
		return nil, nil, 0, nil

	case strings.HasPrefix(cmd, "mkdir -p "):
		for _, d := range strings.Fields(strings.TrimPrefix(cmd, "mkdir -p ")) {
			m.dirs[unquote(d)] = true
		}
		return nil, nil, 0, nil
	}

	return nil, []byte("command not found"), 127, nil
}

func (m *mockTransport) CopyTo(src io.Reader, remotePath string, mode uint32) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	m.files[remotePath] = fakeFile{data: data, mode: mode}
	return nil
}

func (m *mockTransport) CopyFrom(remotePath string) ([]byte, error) {
	f, ok := m.files[remotePath]
	if !ok {
		return nil, io.EOF
	}
	return f.data, nil
}

func (m *mockTransport) CopyToStream(src io.Reader, remoteCmd string) error {
	// Only extraction is expected: "tar -xzf - -C 'dir'"
	dir := unquote(strings.TrimPrefix(remoteCmd, "tar -xzf - -C "))

	gz, err := gzip.NewReader(src)
	if err != nil {
		return err
	}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return err
		}
		m.files[path.Join(dir, hdr.Name)] = fakeFile{data: data, mode: uint32(hdr.Mode)}
	}
	return nil
}

func (m *mockTransport) Close() error    { return nil }
func (m *mockTransport) GetHost() string { return "mock" }

// writeFixtures creates a library directory with a nested file and an
// executable, plus a target script. Returns (libDir, scriptPath).
func writeFixtures(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()

	libDir := filepath.Join(root, "lib")
	require.NoError(t, os.MkdirAll(filepath.Join(libDir, "core"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(libDir, "common.sh"), []byte("common v1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(libDir, "core", "logging.sh"), []byte("log fns\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(libDir, "core", "helper"), []byte("#!/bin/sh\n"), 0755))

	script := filepath.Join(root, "restart-guests.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho hi\n"), 0644))

	return libDir, script
}

func TestBuildManifest(t *testing.T) {
	libDir, script := writeFixtures(t)

	m, err := BuildManifest(libDir, script)
	require.NoError(t, err)

	paths := m.RemotePaths()
	assert.ElementsMatch(t, []string{
		"lib/common.sh",
		"lib/core/logging.sh",
		"lib/core/helper",
		"restart-guests.sh",
	}, paths)

	// Script always gets the execute bit even if the local copy lacks it.
	last := m.Entries[len(m.Entries)-1]
	assert.Equal(t, "restart-guests.sh", last.RemotePath)
	assert.Equal(t, uint32(0755), last.Mode)
}

func TestBuildManifest_MissingScript(t *testing.T) {
	libDir, _ := writeFixtures(t)
	_, err := BuildManifest(libDir, filepath.Join(libDir, "no-such.sh"))
	assert.Error(t, err)
}

func push(t *testing.T, hasTar bool) *mockTransport {
	t.Helper()
	libDir, script := writeFixtures(t)
	m, err := BuildManifest(libDir, script)
	require.NoError(t, err)

	transport := newMockTransport(hasTar)
	// Stale state from a previous session must not survive the reset.
	transport.files["/tmp/ws1/leftover.tmp"] = fakeFile{data: []byte("stale")}

	engine := NewEngine(transport, nil)
	require.NoError(t, engine.Push(context.Background(), m, "/tmp/ws1"))
	return transport
}

func TestPush_FastAndFallbackProduceIdenticalFileSet(t *testing.T) {
	fast := push(t, true)
	fallback := push(t, false)

	require.Equal(t, len(fast.files), len(fallback.files))
	for p, f := range fast.files {
		other, ok := fallback.files[p]
		require.True(t, ok, "fallback missing %s", p)
		assert.Equal(t, f.data, other.data, "content mismatch at %s", p)
		assert.Equal(t, f.mode, other.mode, "mode mismatch at %s", p)
	}
}

func TestPush_ResetsWorkspace(t *testing.T) {
	transport := push(t, true)
	_, stale := transport.files["/tmp/ws1/leftover.tmp"]
	assert.False(t, stale, "stale file survived the workspace reset")
}

func TestPush_FastPathSingleTransfer(t *testing.T) {
	transport := push(t, true)
	// Fast path: reset + probe only, no per-file mkdir round trips.
	assert.Len(t, transport.execs, 2)
	for p := range transport.files {
		assert.True(t, strings.HasPrefix(p, "/tmp/ws1/"))
	}
}

func TestPush_Cancelled(t *testing.T) {
	libDir, script := writeFixtures(t)
	m, err := BuildManifest(libDir, script)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(newMockTransport(true), nil)
	err = engine.Push(ctx, m, "/tmp/ws1")
	assert.ErrorIs(t, err, context.Canceled)
}
