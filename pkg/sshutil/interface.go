package sshutil

import "io"

// Transport defines the uniform exec/copy surface the orchestration layers
// depend on. Both the real Client and mock implementations satisfy it.
//
// This interface enables testing of SSH-dependent code without requiring
// actual SSH connections.
type Transport interface {
	// Exec runs a command and returns stdout, stderr, and exit code.
	// Exit code is -1 if the command couldn't be executed at all.
	// A non-zero exit code with nil error means the command ran but failed.
	Exec(cmd string) (stdout, stderr []byte, exitCode int, err error)

	// CopyTo streams src to a file on the remote host, optionally chmod-ing it.
	CopyTo(src io.Reader, remotePath string, mode uint32) error

	// CopyFrom reads a remote file and returns its contents.
	CopyFrom(remotePath string) ([]byte, error)

	// CopyToStream runs a remote command with src piped to its stdin.
	CopyToStream(src io.Reader, remoteCmd string) error

	// Close closes the connection.
	Close() error

	// GetHost returns the original host/alias used to connect.
	GetHost() string
}
