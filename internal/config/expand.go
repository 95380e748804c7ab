package config

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Expand replaces ${VAR}-style variables in a config value.
// Supported variables:
//   - ${HOME} - user's home directory
//   - ${USER} - current username
//
// Unknown variables pass through untouched. Does NOT expand ~ - use
// ExpandHome for that.
func Expand(s string) string {
	if s == "" {
		return s
	}

	// Get values lazily to avoid unnecessary work
	result := s

	if strings.Contains(result, "${HOME}") {
		result = strings.ReplaceAll(result, "${HOME}", getHome())
	}

	if strings.Contains(result, "${USER}") {
		result = strings.ReplaceAll(result, "${USER}", getUser())
	}

	return result
}

// ExpandPath expands variables and a leading ~ in a local filesystem path.
// Config paths go through this once at load time; remote paths never do,
// the remote shell expands those itself.
func ExpandPath(path string) string {
	return ExpandHome(Expand(path))
}

// ExpandHome replaces a leading ~/ with the user's home directory.
// Does not support ~username syntax - just ~ for the current user.
func ExpandHome(path string) string {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// getHome returns the home directory for ${HOME} expansion.
func getHome() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}

	// Fallback to HOME env var
	if home := os.Getenv("HOME"); home != "" {
		return home
	}

	return "~"
}

// getUser returns the current username for ${USER} expansion.
func getUser() string {
	// Try USER env var first (most common)
	if user := os.Getenv("USER"); user != "" {
		return user
	}

	// Try LOGNAME (POSIX standard)
	if user := os.Getenv("LOGNAME"); user != "" {
		return user
	}

	// Last resort: whoami command
	out, err := exec.Command("whoami").Output()
	if err != nil {
		return "user"
	}
	return strings.TrimSpace(string(out))
}
