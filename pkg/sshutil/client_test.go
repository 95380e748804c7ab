package sshutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveSSHSettings_UserHostPort(t *testing.T) {
	settings := resolveSSHSettings("admin@10.0.0.5:2222")
	assert.Equal(t, "admin", settings.user)
	assert.Equal(t, "10.0.0.5", settings.hostname)
	assert.Equal(t, "2222", settings.port)
}

func TestResolveSSHSettings_Defaults(t *testing.T) {
	settings := resolveSSHSettings("somehost.invalid")
	assert.Equal(t, "somehost.invalid", settings.hostname)
	assert.Equal(t, "22", settings.port)
	assert.NotEmpty(t, settings.user)
}

func TestResolveSSHSettings_ColonNotPort(t *testing.T) {
	// A trailing segment with non-digits must not be treated as a port.
	settings := resolveSSHSettings("host:abc")
	assert.Equal(t, "host:abc", settings.hostname)
	assert.Equal(t, "22", settings.port)
}

func TestApplyOptions_Overrides(t *testing.T) {
	settings := resolveSSHSettings("node1.invalid")
	applyOptions(settings, Options{
		User:     "root",
		Port:     2022,
		Password: "hunter2",
		KeyAuth:  false,
		Timeout:  5 * time.Second,
	})

	assert.Equal(t, "root", settings.user)
	assert.Equal(t, "2022", settings.port)
	assert.Equal(t, "hunter2", settings.password)
	// Password set and key auth not cached: keys are skipped entirely.
	assert.False(t, settings.keyAuth)
}

func TestApplyOptions_KeyAuthKeptWithoutPassword(t *testing.T) {
	settings := resolveSSHSettings("node1.invalid")
	applyOptions(settings, Options{})
	assert.True(t, settings.keyAuth)
}

func TestApplyOptions_PasswordPlusCachedKeyAuth(t *testing.T) {
	settings := resolveSSHSettings("node1.invalid")
	applyOptions(settings, Options{Password: "pw", KeyAuth: true})
	// Both methods available: keys first, password as fallback.
	assert.True(t, settings.keyAuth)
	assert.Equal(t, "pw", settings.password)
}

func TestSettingsAddress(t *testing.T) {
	s := &sshSettings{hostname: "10.1.1.1", port: "22"}
	assert.Equal(t, "10.1.1.1:22", s.address())
}
