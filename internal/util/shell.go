// Package util holds small helpers shared across packages.
package util

import "strings"

// ShellQuote single-quotes s so a POSIX shell treats it as one literal word.
// Embedded single quotes become the '\'' close-escape-reopen sequence.
func ShellQuote(s string) string {
	escaped := strings.ReplaceAll(s, "'", "'\\''")
	return "'" + escaped + "'"
}

// ShellQuotePreserveTilde quotes a remote path but leaves a leading ~ bare,
// so the remote shell still expands it to the login user's home. Anything
// after the ~/ is quoted like ShellQuote.
func ShellQuotePreserveTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		return "~/" + ShellQuote(path[2:])
	}
	if path == "~" {
		return "~"
	}
	return ShellQuote(path)
}
