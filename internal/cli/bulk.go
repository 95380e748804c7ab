package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fleetops/fleetctl/internal/bulk"
	"github.com/fleetops/fleetctl/internal/errors"
	"github.com/fleetops/fleetctl/internal/logger"
	"github.com/fleetops/fleetctl/internal/session"
	"github.com/fleetops/fleetctl/internal/ui"
	"github.com/spf13/cobra"
)

var (
	bulkScriptFlag     string
	bulkNodeFlag       string
	bulkParallelFlag   int
	bulkRetriesFlag    int
	bulkRetryDelayFlag time.Duration
	bulkForceRangeFlag bool
	bulkStateFlag      string
	bulkFormatFlag     string
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Bulk operations over an entity id range",
}

var bulkExecCmd = &cobra.Command{
	Use:   "exec <start> <end>",
	Short: "Run a script once per id in a range",
	Long: `Run a script on one node, once per id in [start, end]. The id is passed
as the script's first argument. Oversized ranges are rejected before any
unit runs unless --force-range is given.

Run state (per-id outcomes) is persisted so interrupted runs can be
inspected and reported later.

Examples:
  fleetctl bulk exec 100 120 --script ./scripts/upgrade.sh --node pve1
  fleetctl bulk exec 100 400 --script ./scripts/migrate.sh --node pve1 --force-range --parallel 4
  fleetctl bulk exec 100 120 --script ./scripts/patch.sh --node pve1 --retries 2 --retry-delay 10s`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return bulkExecCommand(cmd, args[0], args[1])
	},
}

var bulkReportCmd = &cobra.Command{
	Use:   "report <state-file>",
	Short: "Render a saved bulk run",
	Long: `Render the per-id outcomes of a persisted bulk run.

Examples:
  fleetctl bulk report ~/.fleetctl/state/bulk-20260823-141500.json
  fleetctl bulk report run.json --format csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return bulkReportCommand(args[0])
	},
}

func init() {
	bulkExecCmd.Flags().StringVar(&bulkScriptFlag, "script", "", "script to run once per id (required)")
	bulkExecCmd.Flags().StringVar(&bulkNodeFlag, "node", "", "node to run on (required)")
	bulkExecCmd.Flags().IntVar(&bulkParallelFlag, "parallel", 0, "worker count (0 or 1 = sequential)")
	bulkExecCmd.Flags().IntVar(&bulkRetriesFlag, "retries", 0, "retries per failing id")
	bulkExecCmd.Flags().DurationVar(&bulkRetryDelayFlag, "retry-delay", 0, "delay between retries (e.g. 10s)")
	bulkExecCmd.Flags().BoolVar(&bulkForceRangeFlag, "force-range", false, "allow ranges larger than the configured cap")
	bulkExecCmd.Flags().StringVar(&bulkStateFlag, "state", "", "state file path (default: generated under bulk.state_dir)")
	bulkExecCmd.MarkFlagRequired("script")
	bulkExecCmd.MarkFlagRequired("node")

	bulkReportCmd.Flags().StringVar(&bulkFormatFlag, "format", "text", "output format: text, json, csv, table")

	bulkCmd.AddCommand(bulkExecCmd)
	bulkCmd.AddCommand(bulkReportCmd)
	rootCmd.AddCommand(bulkCmd)
}

func bulkExecCommand(cmd *cobra.Command, startArg, endArg string) error {
	start, end, err := parseRange(startArg, endArg)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	node, ok := cfg.Nodes[bulkNodeFlag]
	if !ok {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Node '%s' is not in the registry", bulkNodeFlag),
			"Add it to nodes: in the config, or check the spelling")
	}

	transport, err := nodeDialer(cfg)(bulkNodeFlag, node)
	if err != nil {
		return err
	}
	defer transport.Close()

	exec := session.NewExecutor(transport, session.Options{
		WorkRoot:       cfg.Remote.WorkRoot,
		LibDir:         cfg.Remote.LibDir,
		LogLevel:       cfg.Remote.LogLevel,
		AggregateLog:   cfg.Remote.AggregateLog,
		CommandTimeout: cfg.Remote.CommandTimeout,
	}, logger.Default())

	fn := func(ctx context.Context, id int) error {
		result, err := exec.Run(ctx, bulkScriptFlag, strconv.Itoa(id))
		if err != nil {
			return err
		}
		if !result.Success() {
			return fmt.Errorf("script exited with status %d", result.ExitCode)
		}
		return nil
	}

	opts := bulk.Options{
		MaxRange:   cfg.Bulk.MaxRange,
		ForceRange: bulkForceRangeFlag,
		Parallel:   bulkParallelFlag,
		Retries:    bulkRetriesFlag,
		RetryDelay: bulkRetryDelayFlag,
	}
	if opts.Parallel > cfg.Bulk.MaxParallel {
		opts.Parallel = cfg.Bulk.MaxParallel
	}
	if opts.Retries == 0 {
		opts.Retries = cfg.Bulk.Retries
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = cfg.Bulk.RetryDelay
	}

	run, err := bulk.Execute(cmd.Context(), start, end, fn, opts)
	if err != nil {
		return err
	}

	statePath := bulkStateFlag
	if statePath == "" {
		statePath = filepath.Join(cfg.Bulk.StateDir,
			"bulk-"+run.StartedAt.Format("20060102-150405")+".json")
	}
	if err := bulk.SaveState(statePath, run); err != nil {
		return err
	}

	if err := bulk.Report(os.Stdout, run, bulk.FormatText); err != nil {
		return err
	}
	fmt.Printf("\n%s\n", ui.StyleMuted.Render("state: "+statePath))

	_, failed, _ := run.Counts()
	exitStatus = capExit(failed)
	return nil
}

func bulkReportCommand(statePath string) error {
	format, err := bulk.ParseFormat(bulkFormatFlag)
	if err != nil {
		return err
	}

	run, err := bulk.LoadState(statePath)
	if err != nil {
		return err
	}

	return bulk.Report(os.Stdout, run, format)
}

// parseRange parses the two positional id arguments.
func parseRange(startArg, endArg string) (int, int, error) {
	start, err := strconv.Atoi(startArg)
	if err != nil {
		return 0, 0, errors.New(errors.ErrValidate,
			fmt.Sprintf("'%s' is not a numeric id", startArg),
			"Ids are plain integers, e.g. 100")
	}
	end, err := strconv.Atoi(endArg)
	if err != nil {
		return 0, 0, errors.New(errors.ErrValidate,
			fmt.Sprintf("'%s' is not a numeric id", endArg),
			"Ids are plain integers, e.g. 120")
	}
	return start, end, nil
}

// capExit keeps a failure count inside the valid exit-status range.
func capExit(failed int) int {
	if failed > 125 {
		return 125
	}
	return failed
}
