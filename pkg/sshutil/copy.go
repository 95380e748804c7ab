package sshutil

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fleetops/fleetctl/internal/errors"
	"github.com/fleetops/fleetctl/internal/util"
	"golang.org/x/crypto/ssh"
)

// CopyTo streams src to a file on the remote host.
// The destination's parent directory must already exist.
// Mode is applied with chmod after the write (0 skips the chmod).
func (c *Client) CopyTo(src io.Reader, remotePath string, mode uint32) error {
	session, err := c.newSSHSession()
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrTransport,
			"Failed to create SSH session for file copy",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	session.Stdin = src

	// A leading ~/ stays unquoted so the remote shell expands it.
	cmd := "cat > " + util.ShellQuotePreserveTilde(remotePath)
	if mode != 0 {
		cmd += fmt.Sprintf(" && chmod %o %s", mode, util.ShellQuotePreserveTilde(remotePath))
	}

	var stderrBuf bytes.Buffer
	session.Stderr = &stderrBuf

	if err := session.Run(cmd); err != nil {
		if _, ok := err.(*ssh.ExitError); ok {
			return errors.WrapWithCode(err, errors.ErrExec,
				fmt.Sprintf("Remote write to %s failed: %s", remotePath, bytes.TrimSpace(stderrBuf.Bytes())),
				"Check the destination directory exists and is writable.")
		}
		return errors.WrapWithCode(err, errors.ErrTransport,
			fmt.Sprintf("Copy to %s aborted mid-transfer", remotePath),
			"Connection may have dropped. Try again.")
	}

	return nil
}

// CopyFrom reads a remote file and returns its contents.
// A missing file surfaces as an EXEC error (cat's non-zero exit), which
// callers treating log retrieval as best-effort can downgrade to a warning.
func (c *Client) CopyFrom(remotePath string) ([]byte, error) {
	session, err := c.newSSHSession()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			"Failed to create SSH session for file retrieval",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	if err := session.Run("cat " + util.ShellQuotePreserveTilde(remotePath)); err != nil {
		if _, ok := err.(*ssh.ExitError); ok {
			return nil, errors.WrapWithCode(err, errors.ErrExec,
				fmt.Sprintf("Remote read of %s failed: %s", remotePath, bytes.TrimSpace(stderrBuf.Bytes())),
				"The file may not exist on the remote host.")
		}
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			fmt.Sprintf("Copy from %s aborted mid-transfer", remotePath),
			"Connection may have dropped. Try again.")
	}

	return stdoutBuf.Bytes(), nil
}

// CopyToStream runs a remote command with src piped to its stdin.
// Used by the transfer engine to stream archives into `tar -x`.
func (c *Client) CopyToStream(src io.Reader, remoteCmd string) error {
	session, err := c.newSSHSession()
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrTransport,
			"Failed to create SSH session for streaming copy",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	session.Stdin = src

	var stderrBuf bytes.Buffer
	session.Stderr = &stderrBuf

	if err := session.Run(remoteCmd); err != nil {
		if _, ok := err.(*ssh.ExitError); ok {
			return errors.WrapWithCode(err, errors.ErrExec,
				fmt.Sprintf("Remote command failed during streaming copy: %s", bytes.TrimSpace(stderrBuf.Bytes())),
				"Check the remote side of the pipe (tar availability, destination permissions).")
		}
		return errors.WrapWithCode(err, errors.ErrTransport,
			"Streaming copy aborted mid-transfer",
			"Connection may have dropped. Try again.")
	}

	return nil
}
