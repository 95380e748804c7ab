// Package entity adapts shell command templates into a snapshot.Provider.
// The commands that own the entities (status, dump config, set one key) are
// configured as templates; this package substitutes placeholders, runs them,
// and parses "key: value" output.
package entity

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/fleetops/fleetctl/internal/config"
	"github.com/fleetops/fleetctl/internal/errors"
	"github.com/fleetops/fleetctl/internal/logger"
	"github.com/fleetops/fleetctl/internal/util"
	"github.com/fleetops/fleetctl/pkg/sshutil"
)

// Runner executes one shell command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, command string) ([]byte, error)
}

// LocalRunner executes commands on this host through the shell.
type LocalRunner struct{}

func (LocalRunner) Run(ctx context.Context, command string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "sh", "-c", command).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s: %w", firstLine(out), err)
	}
	return out, nil
}

// transportRunner executes commands on a remote node.
type transportRunner struct {
	t sshutil.Transport
}

// NewTransportRunner wraps a transport so entity commands run on the node
// that owns the entities.
func NewTransportRunner(t sshutil.Transport) Runner {
	return &transportRunner{t: t}
}

func (r *transportRunner) Run(ctx context.Context, command string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stdout, stderr, code, err := r.t.Exec(command)
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, fmt.Errorf("exit status %d: %s", code, firstLine(stderr))
	}
	return stdout, nil
}

// ShellProvider is a snapshot.Provider backed by configured command
// templates. {type} and {id} are substituted everywhere; the set template
// additionally takes {key} and {value}.
type ShellProvider struct {
	cfg config.SnapshotConfig
	run Runner
	log logger.Logger
}

// NewShellProvider validates that all three templates are configured.
func NewShellProvider(cfg config.SnapshotConfig, run Runner, log logger.Logger) (*ShellProvider, error) {
	if cfg.StatusCommand == "" || cfg.ConfigCommand == "" || cfg.SetCommand == "" {
		return nil, errors.New(errors.ErrConfig,
			"Snapshot command templates are not configured",
			"Set snapshot.status_command, snapshot.config_command and snapshot.set_command")
	}
	if log == nil {
		log = logger.Noop()
	}
	return &ShellProvider{cfg: cfg, run: run, log: log}, nil
}

func expand(template, typ string, id int, extra map[string]string) string {
	r := strings.NewReplacer("{type}", typ, "{id}", strconv.Itoa(id))
	out := r.Replace(template)
	for k, v := range extra {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

// Status runs the status template and returns the entity's lifecycle state.
// Output in "status: running" form is unwrapped; anything else is returned
// as the trimmed first line.
func (p *ShellProvider) Status(ctx context.Context, typ string, id int) (string, error) {
	cmd := expand(p.cfg.StatusCommand, typ, id, nil)
	p.log.Debug("entity status: %s", cmd)

	out, err := p.run.Run(ctx, cmd)
	if err != nil {
		return "", err
	}

	line := firstLine(out)
	if _, value, ok := strings.Cut(line, ":"); ok {
		return strings.TrimSpace(value), nil
	}
	return line, nil
}

// Config runs the config template and parses its "key: value" lines.
func (p *ShellProvider) Config(ctx context.Context, typ string, id int) (map[string]string, error) {
	cmd := expand(p.cfg.ConfigCommand, typ, id, nil)
	p.log.Debug("entity config: %s", cmd)

	out, err := p.run.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return parseConfig(out), nil
}

// SetConfig runs the set template for one key. The value is shell-quoted
// before substitution.
func (p *ShellProvider) SetConfig(ctx context.Context, typ string, id int, key, value string) error {
	cmd := expand(p.cfg.SetCommand, typ, id, map[string]string{
		"key":   key,
		"value": util.ShellQuote(value),
	})
	p.log.Debug("entity set: %s", cmd)

	_, err := p.run.Run(ctx, cmd)
	return err
}

// parseConfig reads "key: value" lines, skipping blanks and comments.
func parseConfig(out []byte) map[string]string {
	cfg := make(map[string]string)
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		cfg[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return cfg
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
