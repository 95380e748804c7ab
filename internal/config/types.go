package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .fleetctl.yaml configuration file.
type Config struct {
	Version  int             `yaml:"version" mapstructure:"version"`
	Nodes    map[string]Node `yaml:"nodes" mapstructure:"nodes"`
	Remote   RemoteConfig    `yaml:"remote" mapstructure:"remote"`
	Bulk     BulkConfig      `yaml:"bulk" mapstructure:"bulk"`
	Snapshot SnapshotConfig  `yaml:"snapshot" mapstructure:"snapshot"`
	Output   OutputConfig    `yaml:"output" mapstructure:"output"`
}

// Node defines one fleet member and its connection settings.
// The registry is read once at run start and is immutable during a run.
type Node struct {
	// Address is the hostname or IP to connect to. Required.
	Address string `yaml:"address" mapstructure:"address"`

	// Port is the SSH port (default 22).
	Port int `yaml:"port" mapstructure:"port"`

	// User is the login user (defaults to the local user).
	User string `yaml:"user" mapstructure:"user"`

	// Password enables password authentication when key auth is unavailable.
	// Leave empty to be prompted at run time.
	Password string `yaml:"password" mapstructure:"password"`

	// KeyFile is an explicit private key path for this node.
	KeyFile string `yaml:"key_file" mapstructure:"key_file"`

	// KeyAuth caches whether key-based auth is known to work for this node.
	// When false, password auth is used without trying keys first.
	KeyAuth bool `yaml:"key_auth" mapstructure:"key_auth"`

	// Tags for filtering nodes with --tag.
	Tags []string `yaml:"tags" mapstructure:"tags"`
}

// RemoteConfig controls the remote session environment.
type RemoteConfig struct {
	// WorkRoot is where per-session workspaces are created on the remote.
	WorkRoot string `yaml:"work_root" mapstructure:"work_root"`

	// LibDir is the local support-library directory transferred with every script.
	LibDir string `yaml:"lib_dir" mapstructure:"lib_dir"`

	// LogLevel is exported to the remote script bootstrap.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`

	// AggregateLog is the local file remote logs are appended to.
	AggregateLog string `yaml:"aggregate_log" mapstructure:"aggregate_log"`

	// ConnectTimeout bounds the TCP dial + SSH handshake.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`

	// CommandTimeout bounds each remote command (0 = no timeout).
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`
}

// BulkConfig controls the bulk operation engine.
type BulkConfig struct {
	// MaxRange caps the id span a single bulk run may cover.
	// Guards against fleet-wide typos; override per-call with --force-range.
	MaxRange int `yaml:"max_range" mapstructure:"max_range"`

	// MaxParallel bounds the parallel variant's worker count.
	MaxParallel int `yaml:"max_parallel" mapstructure:"max_parallel"`

	// Retries is the default retry count for the retry wrapper.
	Retries int `yaml:"retries" mapstructure:"retries"`

	// RetryDelay is the fixed delay between retry attempts.
	RetryDelay time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`

	// StateDir is where bulk run state files are persisted.
	StateDir string `yaml:"state_dir" mapstructure:"state_dir"`
}

// SnapshotConfig controls the snapshot store.
type SnapshotConfig struct {
	// Dir is the root directory for snapshot records.
	Dir string `yaml:"dir" mapstructure:"dir"`

	// StatusCommand, ConfigCommand and SetCommand are the opaque per-entity
	// collaborator command templates. {type} and {id} are substituted;
	// SetCommand additionally substitutes {key} and {value}.
	StatusCommand string `yaml:"status_command" mapstructure:"status_command"`
	ConfigCommand string `yaml:"config_command" mapstructure:"config_command"`
	SetCommand    string `yaml:"set_command" mapstructure:"set_command"`
}

// OutputConfig controls terminal output formatting.
type OutputConfig struct {
	// Color mode: "auto", "always", or "never".
	Color string `yaml:"color" mapstructure:"color"`

	// Format for bulk reports: "text", "json", "csv", or "table".
	Format string `yaml:"format" mapstructure:"format"`

	// Verbosity level: "quiet", "normal", or "verbose".
	Verbosity string `yaml:"verbosity" mapstructure:"verbosity"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Nodes:   make(map[string]Node),
		Remote: RemoteConfig{
			WorkRoot:       "/tmp",
			LibDir:         "",
			LogLevel:       "info",
			AggregateLog:   "~/.fleetctl/logs/fleetctl.log",
			ConnectTimeout: 10 * time.Second,
			CommandTimeout: 0,
		},
		Bulk: BulkConfig{
			MaxRange:    100,
			MaxParallel: 4,
			Retries:     0,
			RetryDelay:  5 * time.Second,
			StateDir:    "~/.fleetctl/state",
		},
		Snapshot: SnapshotConfig{
			Dir: "~/.fleetctl/snapshots",
		},
		Output: OutputConfig{
			Color:     "auto",
			Format:    "text",
			Verbosity: "normal",
		},
	}
}
