package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fleetops/fleetctl/internal/bulk"
	"github.com/fleetops/fleetctl/internal/config"
	"github.com/fleetops/fleetctl/internal/entity"
	"github.com/fleetops/fleetctl/internal/errors"
	"github.com/fleetops/fleetctl/internal/logger"
	"github.com/fleetops/fleetctl/internal/snapshot"
	"github.com/fleetops/fleetctl/internal/ui"
	"github.com/spf13/cobra"
)

var (
	snapTypeFlag     string
	snapNodeFlag     string
	snapForceFlag    bool
	snapParallelFlag int
	snapForceRange   bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save, diff, and restore entity configuration",
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save <id> <name>",
	Short: "Capture an entity's configuration",
	Long: `Fetch the entity's status and full configuration and persist them as an
immutable named record.

Examples:
  fleetctl snapshot save 101 pre-upgrade
  fleetctl snapshot save 200 baseline --type ct --node pve1`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return snapshotSaveCommand(cmd, args[0], args[1])
	},
}

var snapshotDiffCmd = &cobra.Command{
	Use:   "diff <id> <name>",
	Short: "Diff current configuration against a snapshot",
	Long: `Re-fetch the entity's current configuration and report every key that
differs from the named snapshot. Exits 1 when differences are found.

Examples:
  fleetctl snapshot diff 101 pre-upgrade
  fleetctl snapshot diff 200 baseline --type ct`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return snapshotDiffCommand(cmd, args[0], args[1])
	},
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore <id> <name>",
	Short: "Replay a snapshot's configuration onto the entity",
	Long: `Apply each key/value pair from the named snapshot back to the entity,
one set call per key. Shows the diff first and asks for confirmation
unless --force is given. Per-key failures are warnings; remaining keys
are still applied.

Examples:
  fleetctl snapshot restore 101 pre-upgrade
  fleetctl snapshot restore 101 pre-upgrade --force`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return snapshotRestoreCommand(cmd, args[0], args[1])
	},
}

var snapshotFleetCmd = &cobra.Command{
	Use:   "fleet <start> <end> <name>",
	Short: "Snapshot every entity in an id range",
	Long: `Capture a snapshot named <name> for every entity in [start, end] through
the bulk engine. Ids with no backing entity are skipped.

Examples:
  fleetctl snapshot fleet 100 150 pre-maintenance
  fleetctl snapshot fleet 100 400 sweep --force-range --parallel 4`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return snapshotFleetCommand(cmd, args[0], args[1], args[2])
	},
}

func init() {
	snapshotCmd.PersistentFlags().StringVar(&snapTypeFlag, "type", "vm", "entity type: vm or ct")
	snapshotCmd.PersistentFlags().StringVar(&snapNodeFlag, "node", "", "run entity commands on this node (default: locally)")
	snapshotRestoreCmd.Flags().BoolVarP(&snapForceFlag, "force", "f", false, "apply without confirmation")
	snapshotFleetCmd.Flags().IntVar(&snapParallelFlag, "parallel", 0, "worker count (0 or 1 = sequential)")
	snapshotFleetCmd.Flags().BoolVar(&snapForceRange, "force-range", false, "allow ranges larger than the configured cap")

	snapshotCmd.AddCommand(snapshotSaveCmd)
	snapshotCmd.AddCommand(snapshotDiffCmd)
	snapshotCmd.AddCommand(snapshotRestoreCmd)
	snapshotCmd.AddCommand(snapshotFleetCmd)
	rootCmd.AddCommand(snapshotCmd)
}

// snapshotSetup loads config and builds the provider and store shared by all
// snapshot subcommands. The returned cleanup closes any transport opened for
// a remote provider.
func snapshotSetup() (*config.Config, snapshot.Provider, *snapshot.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	if snapTypeFlag != "vm" && snapTypeFlag != "ct" {
		return nil, nil, nil, nil, errors.New(errors.ErrValidate,
			fmt.Sprintf("Unknown entity type %q", snapTypeFlag),
			"Use --type vm or --type ct")
	}

	var runner entity.Runner = entity.LocalRunner{}
	cleanup := func() {}

	if snapNodeFlag != "" {
		node, ok := cfg.Nodes[snapNodeFlag]
		if !ok {
			return nil, nil, nil, nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("Node '%s' is not in the registry", snapNodeFlag),
				"Add it to nodes: in the config, or check the spelling")
		}
		transport, err := nodeDialer(cfg)(snapNodeFlag, node)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		runner = entity.NewTransportRunner(transport)
		cleanup = func() { transport.Close() }
	}

	provider, err := entity.NewShellProvider(cfg.Snapshot, runner, logger.Default())
	if err != nil {
		cleanup()
		return nil, nil, nil, nil, err
	}

	store := snapshot.NewStore(cfg.Snapshot.Dir, logger.Default())
	return cfg, provider, store, cleanup, nil
}

func snapshotSaveCommand(cmd *cobra.Command, idArg, name string) error {
	id, err := parseID(idArg)
	if err != nil {
		return err
	}

	_, provider, store, cleanup, err := snapshotSetup()
	if err != nil {
		return err
	}
	defer cleanup()

	rec, err := store.Save(cmd.Context(), provider, snapTypeFlag, id, name)
	if err != nil {
		return err
	}

	fmt.Printf("%s Saved snapshot %q for %s %d (%d keys, status %s)\n",
		ui.StyleSuccess.Render(ui.SymbolSuccess), rec.Name, rec.Type, rec.ID,
		len(rec.Config), rec.Status)
	return nil
}

func snapshotDiffCommand(cmd *cobra.Command, idArg, name string) error {
	id, err := parseID(idArg)
	if err != nil {
		return err
	}

	_, provider, store, cleanup, err := snapshotSetup()
	if err != nil {
		return err
	}
	defer cleanup()

	rec, err := store.Load(snapTypeFlag, id, name)
	if err != nil {
		return err
	}

	changes, err := snapshot.Compare(cmd.Context(), provider, rec)
	if err != nil {
		return err
	}

	snapshot.RenderDiff(os.Stdout, rec, changes)
	if len(changes) > 0 {
		exitStatus = 1
	}
	return nil
}

func snapshotRestoreCommand(cmd *cobra.Command, idArg, name string) error {
	id, err := parseID(idArg)
	if err != nil {
		return err
	}

	_, provider, store, cleanup, err := snapshotSetup()
	if err != nil {
		return err
	}
	defer cleanup()

	rec, err := store.Load(snapTypeFlag, id, name)
	if err != nil {
		return err
	}

	res, err := snapshot.Restore(cmd.Context(), provider, rec, snapshot.RestoreOptions{
		Force:   snapForceFlag,
		Confirm: confirm,
	}, os.Stdout, logger.Default())
	if err != nil {
		return err
	}

	if len(res.Warnings) > 0 {
		exitStatus = capExit(len(res.Warnings))
	}
	return nil
}

func snapshotFleetCommand(cmd *cobra.Command, startArg, endArg, name string) error {
	start, end, err := parseRange(startArg, endArg)
	if err != nil {
		return err
	}

	cfg, provider, store, cleanup, err := snapshotSetup()
	if err != nil {
		return err
	}
	defer cleanup()

	run, err := store.FleetSave(cmd.Context(), provider, snapTypeFlag, start, end, name, bulk.Options{
		MaxRange:   cfg.Bulk.MaxRange,
		ForceRange: snapForceRange,
		Parallel:   snapParallelFlag,
	})
	if err != nil {
		return err
	}

	if err := bulk.Report(os.Stdout, run, bulk.FormatText); err != nil {
		return err
	}

	_, failed, _ := run.Counts()
	exitStatus = capExit(failed)
	return nil
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errors.New(errors.ErrValidate,
			fmt.Sprintf("'%s' is not a numeric id", arg),
			"Ids are plain integers, e.g. 101")
	}
	return id, nil
}
