package sshutil

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// PromptPassword reads a password from the terminal without echoing it.
// Used for nodes configured for password auth without a stored credential.
func PromptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal; set the node password in the registry or run interactively")
	}

	pw, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
