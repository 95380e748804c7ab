package config

import (
	"testing"

	"github.com/fleetops/fleetctl/internal/errors"
	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Nodes = map[string]Node{
		"pve1": {Address: "10.0.0.10", User: "root"},
	}
	return cfg
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidate_MissingAddress(t *testing.T) {
	cfg := validConfig()
	cfg.Nodes["bad"] = Node{User: "root"}

	err := Validate(cfg)
	assert.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestValidate_BadPort(t *testing.T) {
	cfg := validConfig()
	cfg.Nodes["bad"] = Node{Address: "10.0.0.1", Port: 70000}
	assert.Error(t, Validate(cfg))
}

func TestValidate_BulkLimits(t *testing.T) {
	cfg := validConfig()
	cfg.Bulk.MaxRange = 0
	assert.Error(t, Validate(cfg))

	cfg = validConfig()
	cfg.Bulk.MaxParallel = 0
	assert.Error(t, Validate(cfg))
}

func TestNodeNames(t *testing.T) {
	cfg := validConfig()
	cfg.Nodes["pve2"] = Node{Address: "10.0.0.11"}

	assert.ElementsMatch(t, []string{"pve1", "pve2"}, NodeNames(cfg))
	assert.Empty(t, NodeNames(DefaultConfig()))
}
