// Package session sets up a remote workspace, runs a script in it, recovers
// the authoritative exit status and logs, and tears the workspace down on
// every exit path.
package session

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fleetops/fleetctl/internal/errors"
	"github.com/fleetops/fleetctl/internal/logger"
	"github.com/fleetops/fleetctl/internal/transfer"
	"github.com/fleetops/fleetctl/internal/util"
	"github.com/fleetops/fleetctl/pkg/sshutil"
	"github.com/google/uuid"
)

// Remote workspace layout, relative to the session directory.
const (
	remoteLogFile    = "log/run.log"
	remoteDebugFile  = "log/debug.log"
	remoteStatusFile = "exit.status"
)

// safePath is exported into the remote environment so scripts never depend
// on whatever login-shell PATH the node happens to have.
const safePath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

// Options configure a session run.
type Options struct {
	// WorkRoot is the remote directory sessions are created under.
	WorkRoot string

	// LibDir is the local support-library directory transferred with the script.
	LibDir string

	// LogLevel is exported as FLEET_LOG_LEVEL to the remote bootstrap.
	LogLevel string

	// AggregateLog is a local file retrieved remote logs are appended to.
	// Empty disables aggregation.
	AggregateLog string

	// CommandTimeout bounds the remote script execution (0 = no timeout).
	CommandTimeout time.Duration
}

// Result is the outcome of one remote session.
type Result struct {
	Node     string
	ExitCode int    // authoritative status from the sentinel file
	Output   []byte // combined stdout/stderr of the script (best effort)
	DebugLog []byte // structured debug log (best effort)
	Warnings []string
}

// Success reports whether the remote script exited zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Executor runs scripts on one node over an established transport.
type Executor struct {
	transport sshutil.Transport
	log       logger.Logger
	opts      Options
}

// NewExecutor creates an executor over the given transport.
func NewExecutor(t sshutil.Transport, opts Options, log logger.Logger) *Executor {
	if log == nil {
		log = logger.NewEnvLogger("[session]")
	}
	if opts.WorkRoot == "" {
		opts.WorkRoot = "/tmp"
	}
	if opts.LogLevel == "" {
		opts.LogLevel = "info"
	}
	return &Executor{transport: t, log: log, opts: opts}
}

// Run executes scriptPath with args on the node. It creates a collision-free
// workspace, transfers the manifest, runs the script with the remote
// environment contract, reads the exit status from the sentinel file, pulls
// the logs best-effort, and removes the workspace unconditionally.
//
// The returned Result carries the remote script's own exit code, never the
// transport call's: a successful SSH invocation can still wrap a failing
// remote command, and the sentinel file is the only authoritative source.
func (e *Executor) Run(ctx context.Context, scriptPath, args string) (*Result, error) {
	result := &Result{Node: e.transport.GetHost(), ExitCode: -1}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifest, err := transfer.BuildManifest(e.opts.LibDir, scriptPath)
	if err != nil {
		return result, err
	}

	// Process-scoped unique name: concurrent runs against the same node
	// never share a workspace.
	workDir := path.Join(e.opts.WorkRoot, "fleetctl-"+uuid.NewString()[:8])
	e.log.Debug("node %s: workspace %s", result.Node, workDir)

	// Workspace teardown happens on every exit path, including cancellation.
	defer e.cleanup(workDir)

	engine := transfer.NewEngine(e.transport, e.log)
	if err := engine.Push(ctx, manifest, workDir); err != nil {
		return result, err
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	runCtx := ctx
	if e.opts.CommandTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.opts.CommandTimeout)
		defer cancel()
	}

	cmd := e.buildCommand(workDir, filepath.Base(scriptPath), args)
	e.log.Debug("node %s: %s", result.Node, cmd)

	if err := e.execWithContext(runCtx, cmd); err != nil {
		// A per-command timeout is an execution failure of an attempted
		// command, not a cancellation: only the caller's own context
		// expiring propagates as-is.
		if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return result, errors.New(errors.ErrExec,
				fmt.Sprintf("Command timed out after %s", e.opts.CommandTimeout),
				"Raise remote.command_timeout or split the work into smaller steps")
		}
		return result, err
	}

	// Authoritative exit status comes from the sentinel file, not from the
	// transport call above.
	status, err := e.readSentinel(workDir)
	if err != nil {
		return result, err
	}
	result.ExitCode = status

	e.collectLogs(workDir, result)

	return result, nil
}

// buildCommand assembles the remote invocation: environment exports, cd into
// the workspace, the script itself with combined output redirected into the
// session log, and the sentinel-file handoff of the exit code.
func (e *Executor) buildCommand(workDir, script, args string) string {
	// Workspace paths keep a leading ~ unquoted so a home-relative work
	// root is expanded by the remote shell, not taken literally.
	exports := strings.Join([]string{
		"export FLEET_LIB_DIR=" + util.ShellQuotePreserveTilde(path.Join(workDir, "lib")),
		"FLEET_LOG_FILE=" + util.ShellQuotePreserveTilde(path.Join(workDir, remoteLogFile)),
		"FLEET_LOG_LEVEL=" + util.ShellQuote(e.opts.LogLevel),
		"FLEET_NONINTERACTIVE=1",
		"PATH=" + util.ShellQuote(safePath),
	}, " ")

	invocation := "./" + util.ShellQuote(script)
	if args != "" {
		invocation += " " + args
	}

	// The trailing echo always runs: the sentinel captures the script's
	// status whether it succeeds or fails.
	return fmt.Sprintf("%s; cd %s && %s > %s 2>&1; echo $? > %s",
		exports,
		util.ShellQuotePreserveTilde(workDir),
		invocation,
		util.ShellQuotePreserveTilde(path.Join(workDir, remoteLogFile)),
		util.ShellQuotePreserveTilde(path.Join(workDir, remoteStatusFile)))
}

// execWithContext runs the command on the transport, honoring cancellation.
// The SSH run itself blocks, so cancellation closes the transport's window
// by returning as soon as ctx fires; the deferred cleanup still runs.
func (e *Executor) execWithContext(ctx context.Context, cmd string) error {
	type execResult struct {
		code int
		err  error
	}
	done := make(chan execResult, 1)

	go func() {
		_, stderr, code, err := e.transport.Exec(cmd)
		if err == nil && code != 0 {
			// The wrapper command itself failed before the sentinel was
			// written (cd failed, workspace missing). The script's own
			// failures are absorbed by the sentinel handoff.
			err = errors.New(errors.ErrExec,
				fmt.Sprintf("Remote wrapper failed with status %d: %s", code, strings.TrimSpace(string(stderr))),
				"Check the remote work root exists and is writable")
		}
		done <- execResult{code, err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-done:
		return res.err
	}
}

// readSentinel retrieves and parses the exit-status sentinel file.
func (e *Executor) readSentinel(workDir string) (int, error) {
	raw, err := e.transport.CopyFrom(path.Join(workDir, remoteStatusFile))
	if err != nil {
		return -1, errors.WrapWithCode(err, errors.ErrExec,
			"Remote script left no exit status behind",
			"The session may have been killed before the script finished")
	}

	status, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return -1, errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Unparseable exit status %q", strings.TrimSpace(string(raw))),
			"The sentinel file was corrupted; re-run the script")
	}
	return status, nil
}

// collectLogs retrieves the session's stdout and debug logs. Absence is a
// warning, not a failure, and anything retrieved is appended to the
// aggregate log.
func (e *Executor) collectLogs(workDir string, result *Result) {
	out, err := e.transport.CopyFrom(path.Join(workDir, remoteLogFile))
	if err != nil {
		msg := fmt.Sprintf("node %s: couldn't retrieve session log", result.Node)
		e.log.Warn(msg)
		result.Warnings = append(result.Warnings, msg)
	} else {
		result.Output = out
	}

	dbg, err := e.transport.CopyFrom(path.Join(workDir, remoteDebugFile))
	if err != nil {
		e.log.Debug("node %s: no debug log", result.Node)
	} else {
		result.DebugLog = dbg
	}

	e.appendAggregate(result)
}

// appendAggregate writes retrieved logs to the local aggregate log file.
func (e *Executor) appendAggregate(result *Result) {
	if e.opts.AggregateLog == "" || (len(result.Output) == 0 && len(result.DebugLog) == 0) {
		return
	}

	if err := os.MkdirAll(filepath.Dir(e.opts.AggregateLog), 0755); err != nil {
		e.log.Warn("couldn't create aggregate log directory: %v", err)
		return
	}
	f, err := os.OpenFile(e.opts.AggregateLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		e.log.Warn("couldn't open aggregate log: %v", err)
		return
	}
	defer f.Close()

	fmt.Fprintf(f, "==== %s %s ====\n", time.Now().Format(time.RFC3339), result.Node)
	f.Write(result.Output)
	if len(result.DebugLog) > 0 {
		fmt.Fprintf(f, "---- debug ----\n")
		f.Write(result.DebugLog)
	}
}

// cleanup removes the remote workspace. Best effort: a failure here only warns.
func (e *Executor) cleanup(workDir string) {
	if _, _, code, err := e.transport.Exec("rm -rf " + util.ShellQuotePreserveTilde(workDir)); err != nil || code != 0 {
		e.log.Warn("node %s: couldn't remove workspace %s", e.transport.GetHost(), workDir)
	}
}
