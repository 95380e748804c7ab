package config

import (
	"fmt"

	"github.com/fleetops/fleetctl/internal/errors"
)

// Validate checks the config for structural problems that would only
// surface mid-run otherwise.
func Validate(cfg *Config) error {
	for name, node := range cfg.Nodes {
		if name == "" {
			return errors.New(errors.ErrConfig,
				"Node with empty name in registry",
				"Give every nodes: entry a name")
		}
		if node.Address == "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Node '%s' has no address", name),
				"Set nodes."+name+".address in the config")
		}
		if node.Port < 0 || node.Port > 65535 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Node '%s' has invalid port %d", name, node.Port),
				"Ports must be between 1 and 65535 (or omitted for 22)")
		}
	}

	if cfg.Bulk.MaxRange < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("bulk.max_range must be positive, got %d", cfg.Bulk.MaxRange),
			"Set bulk.max_range to a positive id span")
	}
	if cfg.Bulk.MaxParallel < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("bulk.max_parallel must be positive, got %d", cfg.Bulk.MaxParallel),
			"Set bulk.max_parallel to at least 1")
	}

	return nil
}

// NodeNames returns the names of all registry entries.
// Ordering is up to the caller.
func NodeNames(cfg *Config) []string {
	names := make([]string, 0, len(cfg.Nodes))
	for name := range cfg.Nodes {
		names = append(names, name)
	}
	return names
}
