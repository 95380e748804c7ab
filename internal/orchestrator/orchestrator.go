// Package orchestrator drives the remote session executor across a target
// list, with cooperative cancellation and summary reporting.
//
// Execution is deliberately sequential: one outstanding remote call per node
// keeps output readable and credential use predictable. Parallel multi-node
// execution is layered via the bulk engine's parallel mode instead of
// duplicating concurrency here.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetops/fleetctl/internal/config"
	"github.com/fleetops/fleetctl/internal/errors"
	"github.com/fleetops/fleetctl/internal/logger"
	"github.com/fleetops/fleetctl/internal/session"
	"github.com/fleetops/fleetctl/pkg/sshutil"
)

// Outcome classifies one node's result.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// NodeResult is the per-node record in a run summary.
type NodeResult struct {
	Node     string  `json:"node"`
	Outcome  Outcome `json:"outcome"`
	ExitCode int     `json:"exit_code"`
	Message  string  `json:"message,omitempty"`
}

// Summary aggregates a whole orchestrator run.
type Summary struct {
	Script    string        `json:"script"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Total     int           `json:"total"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Results   []NodeResult  `json:"results"`
}

// ExitCode maps the summary to a process exit code: 0 only if every targeted
// node succeeded, otherwise the failure count (capped so it stays a valid
// exit status).
func (s *Summary) ExitCode() int {
	if s.Failed == 0 {
		return 0
	}
	if s.Failed > 125 {
		return 125
	}
	return s.Failed
}

// Dialer opens a transport to a named node. Injected so tests and the bulk
// engine can substitute mock transports.
type Dialer func(name string, node config.Node) (sshutil.Transport, error)

// Runner iterates a configured target list sequentially.
type Runner struct {
	cfg  *config.Config
	dial Dialer
	log  logger.Logger

	// OnResult, when set, is invoked after each node completes or is
	// classified. Used by the CLI for interleaved progress output.
	OnResult func(NodeResult, *session.Result)
}

// New creates a Runner over the given registry and dialer.
func New(cfg *config.Config, dial Dialer, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NewEnvLogger("[orchestrator]")
	}
	return &Runner{cfg: cfg, dial: dial, log: log}
}

// Run executes scriptPath with args on every named node, in order.
//
// Cancellation is cooperative: the context is polled before each node (and
// inside the session executor at its own checkpoints). Nodes never attempted
// are explicitly recorded as skipped, never silently dropped. The summary is
// persisted as machine-readable last-run state even for interrupted runs.
func (r *Runner) Run(ctx context.Context, nodes []string, scriptPath, args string) (*Summary, error) {
	summary := &Summary{
		Script:    scriptPath,
		StartedAt: time.Now(),
		Total:     len(nodes),
	}

	for _, name := range nodes {
		if _, ok := r.cfg.Nodes[name]; !ok {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("Node '%s' is not in the registry", name),
				"Add it to nodes: in the config, or check the spelling")
		}
	}

	for i, name := range nodes {
		if ctx.Err() != nil {
			// Interrupt: everything not yet attempted is skipped.
			for _, rest := range nodes[i:] {
				r.record(summary, NodeResult{
					Node:    rest,
					Outcome: OutcomeSkipped,
					Message: "cancelled before start",
				}, nil)
			}
			break
		}

		res, sess := r.runNode(ctx, name, scriptPath, args)
		r.record(summary, res, sess)
	}

	summary.Duration = time.Since(summary.StartedAt)

	if err := SaveLastRun(r.cfg.Bulk.StateDir, summary); err != nil {
		r.log.Warn("couldn't persist last-run state: %v", err)
	}

	return summary, nil
}

// runNode resolves credentials, executes the session, and classifies the result.
func (r *Runner) runNode(ctx context.Context, name, scriptPath, args string) (NodeResult, *session.Result) {
	node := r.cfg.Nodes[name]

	transport, err := r.dial(name, node)
	if err != nil {
		// Transport errors abort this node immediately and count as failure;
		// retry is explicit via the bulk engine wrapper, never automatic here.
		r.log.Error("node %s: %v", name, err)
		return NodeResult{Node: name, Outcome: OutcomeFailed, ExitCode: -1, Message: err.Error()}, nil
	}
	defer transport.Close()

	exec := session.NewExecutor(transport, session.Options{
		WorkRoot:       r.cfg.Remote.WorkRoot,
		LibDir:         r.cfg.Remote.LibDir,
		LogLevel:       r.cfg.Remote.LogLevel,
		AggregateLog:   r.cfg.Remote.AggregateLog,
		CommandTimeout: r.cfg.Remote.CommandTimeout,
	}, r.log)

	result, err := exec.Run(ctx, scriptPath, args)
	if err != nil {
		if ctx.Err() != nil {
			return NodeResult{Node: name, Outcome: OutcomeSkipped, ExitCode: -1, Message: "cancelled mid-session"}, result
		}
		if errors.IsTransport(err) {
			r.log.Error("node %s: connection lost mid-session: %v", name, err)
		} else {
			r.log.Error("node %s: %v", name, err)
		}
		return NodeResult{Node: name, Outcome: OutcomeFailed, ExitCode: result.ExitCode, Message: err.Error()}, result
	}

	if result.Success() {
		return NodeResult{Node: name, Outcome: OutcomeSuccess, ExitCode: 0}, result
	}
	return NodeResult{
		Node:     name,
		Outcome:  OutcomeFailed,
		ExitCode: result.ExitCode,
		Message:  fmt.Sprintf("script exited with status %d", result.ExitCode),
	}, result
}

// record accumulates one node result into the summary and fires OnResult.
func (r *Runner) record(summary *Summary, res NodeResult, sess *session.Result) {
	summary.Results = append(summary.Results, res)
	switch res.Outcome {
	case OutcomeSuccess:
		summary.Succeeded++
		summary.Attempted++
	case OutcomeFailed:
		summary.Failed++
		summary.Attempted++
	case OutcomeSkipped:
		summary.Skipped++
	}

	if r.OnResult != nil {
		r.OnResult(res, sess)
	}
}
