package sshutil

import (
	"bytes"
	"fmt"

	"github.com/fleetops/fleetctl/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Exec runs a command on the remote host and returns the output.
// Returns stdout, stderr, exit code, and any error.
// Exit code is -1 if the command couldn't be executed at all.
// A non-zero exit code with nil error means the command ran but failed;
// that distinction is what lets callers separate transport failures from
// remote command failures.
func (c *Client) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	session, err := c.newSSHSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrTransport,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	exitCode = 0
	err = session.Run(cmd)
	if err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			exitCode = exitErr.ExitStatus()
			err = nil // Command ran, just had non-zero exit
		} else {
			// No exit status at all means the session died under the
			// command: a transport failure, not a command failure.
			return nil, nil, -1, errors.WrapWithCode(err, errors.ErrTransport,
				fmt.Sprintf("Command aborted mid-run: %s", cmd),
				"Connection may have dropped. Try again.")
		}
	}

	return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitCode, nil
}
