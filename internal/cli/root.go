// Package cli implements the fleetctl command-line interface.
//
// The package is organized around Cobra commands, with each command
// delegating to the internal packages for the actual work:
//
//	fleetctl run <script> [args...]   - Run a script across fleet nodes
//	fleetctl bulk exec <start> <end>  - Drive a script across an id range
//	fleetctl bulk report <state-file> - Render a saved bulk run
//	fleetctl snapshot ...             - Save/diff/restore entity config
//	fleetctl version                  - Print version information
//
// Global flags (--config, --debug) are defined on the root command.
// Interrupts cancel the command context; in-flight work finishes, untried
// targets are recorded skipped, and the process exit code carries the
// failure count.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fleetops/fleetctl/internal/config"
	"github.com/fleetops/fleetctl/internal/logger"
	"github.com/fleetops/fleetctl/pkg/sshutil"
	"github.com/spf13/cobra"
)

// Global flags
var (
	configFlag string
	debugFlag  bool
)

// exitStatus carries a nonzero failure count out of commands that complete
// but had failing targets. Cobra's RunE error path is reserved for the
// command itself not being runnable.
var exitStatus int

var rootCmd = &cobra.Command{
	Use:   "fleetctl",
	Short: "Fleet operations toolkit",
	Long: `fleetctl runs scripts across fleet nodes over SSH, drives bulk
operations over entity id ranges, and snapshots entity configuration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugFlag {
			os.Setenv("FLEET_DEBUG", "1")
		}
		logger.SetDefault(logger.NewEnvLogger("fleetctl"))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
}

// loadConfig resolves and loads the effective configuration.
func loadConfig() (*config.Config, error) {
	return config.LoadOrDefault(configFlag)
}

// Execute runs the root command and exits the process. SIGINT and SIGTERM
// cancel the command context so every layer below can wind down cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	sshutil.CloseAgent()
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(exitStatus)
}
