package config

import (
	"os"
	"path/filepath"

	"github.com/fleetops/fleetctl/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".fleetctl.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/fleetctl"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
)

// Load reads config from the specified path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Create a .fleetctl.yaml with a nodes: registry, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .fleetctl.yaml in current directory
// 3. .fleetctl.yaml in parent directories (stops at git root or home)
// 4. ~/.config/fleetctl/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	// 1. Explicit path takes precedence
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	// 2. Current directory
	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	// 3. Walk up to parent directories
	home, _ := os.UserHomeDir()
	dir := cwd
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		if home != "" && parent == home {
			// Don't go above home directory
			break
		}
		dir = parent

		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		// Stop at git root
		gitPath := filepath.Join(dir, ".git")
		if _, err := os.Stat(gitPath); err == nil {
			break
		}
	}

	// 4. Global config
	if home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// LoadOrDefault loads config from the found path, or returns defaults if not found.
func LoadOrDefault(explicit string) (*Config, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, err
	}

	if path == "" {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	setDefaults(v)

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}

	// Expand variables and home-relative prefixes in local paths once at
	// load time. Remote paths (work_root) stay as written.
	cfg.Remote.AggregateLog = ExpandPath(cfg.Remote.AggregateLog)
	cfg.Bulk.StateDir = ExpandPath(cfg.Bulk.StateDir)
	cfg.Snapshot.Dir = ExpandPath(cfg.Snapshot.Dir)
	for name, node := range cfg.Nodes {
		node.KeyFile = ExpandPath(node.KeyFile)
		cfg.Nodes[name] = node
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults configures viper defaults so partial config files merge cleanly.
func setDefaults(v *viper.Viper) {
	v.SetDefault("remote.work_root", "/tmp")
	v.SetDefault("remote.log_level", "info")
	v.SetDefault("remote.connect_timeout", "10s")
	v.SetDefault("remote.command_timeout", "0s")
	v.SetDefault("bulk.max_range", 100)
	v.SetDefault("bulk.max_parallel", 4)
	v.SetDefault("bulk.retry_delay", "5s")
	v.SetDefault("output.color", "auto")
	v.SetDefault("output.format", "text")
	v.SetDefault("output.verbosity", "normal")
}
