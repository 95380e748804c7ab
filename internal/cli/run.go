package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fleetops/fleetctl/internal/config"
	"github.com/fleetops/fleetctl/internal/errors"
	"github.com/fleetops/fleetctl/internal/logger"
	"github.com/fleetops/fleetctl/internal/orchestrator"
	"github.com/fleetops/fleetctl/internal/session"
	"github.com/fleetops/fleetctl/internal/ui"
	"github.com/fleetops/fleetctl/internal/util"
	"github.com/spf13/cobra"
)

var (
	runNodesFlag string
	runTagFlag   string
	runAllFlag   bool
	runYesFlag   bool
)

var runCmd = &cobra.Command{
	Use:   "run <script> [args...]",
	Short: "Run a script on fleet nodes",
	Long: `Push a script (plus the shared support library) to each target node,
run it in a throwaway remote workspace, and collect exit status and logs.

Examples:
  fleetctl run ./scripts/patch-kernel.sh --node web1,web2
  fleetctl run ./scripts/health-check.sh --all
  fleetctl run ./scripts/rotate-certs.sh example.com --all`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, args[0], args[1:])
	},
}

func init() {
	runCmd.Flags().StringVar(&runNodesFlag, "node", "", "target nodes (comma-separated)")
	runCmd.Flags().StringVar(&runTagFlag, "tag", "", "target nodes carrying this tag")
	runCmd.Flags().BoolVar(&runAllFlag, "all", false, "target every configured node")
	runCmd.Flags().BoolVarP(&runYesFlag, "yes", "y", false, "skip the fleet-wide confirmation prompt")
	rootCmd.AddCommand(runCmd)
}

func runCommand(cmd *cobra.Command, script string, extraArgs []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	nodes, err := selectNodes(cfg)
	if err != nil {
		return err
	}

	// Fleet-wide runs are deliberate: ask before touching every node.
	if runAllFlag && !runYesFlag {
		ok, err := confirm(fmt.Sprintf("Run %s on all %d nodes?", script, len(nodes)))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println(ui.StyleMuted.Render("Cancelled"))
			return nil
		}
	}

	quoted := make([]string, len(extraArgs))
	for i, a := range extraArgs {
		quoted[i] = util.ShellQuote(a)
	}

	runner := orchestrator.New(cfg, nodeDialer(cfg), logger.Default())
	runner.OnResult = func(r orchestrator.NodeResult, sess *session.Result) {
		printNodeResult(r)
	}

	summary, err := runner.Run(cmd.Context(), nodes, script, strings.Join(quoted, " "))
	if err != nil {
		return err
	}

	fmt.Println()
	orchestrator.RenderSummary(os.Stdout, summary)
	exitStatus = summary.ExitCode()
	return nil
}

// selectNodes resolves --node/--tag/--all into a target list.
func selectNodes(cfg *config.Config) ([]string, error) {
	given := 0
	for _, set := range []bool{runAllFlag, runNodesFlag != "", runTagFlag != ""} {
		if set {
			given++
		}
	}
	if given > 1 {
		return nil, errors.New(errors.ErrValidate,
			"--all, --node, and --tag cannot be combined",
			"Pick one way of naming the targets")
	}

	if runAllFlag {
		nodes := config.NodeNames(cfg)
		if len(nodes) == 0 {
			return nil, errors.New(errors.ErrConfig,
				"No nodes are configured",
				"Add nodes to the config file")
		}
		return nodes, nil
	}

	if runTagFlag != "" {
		nodes := nodesByTag(cfg, runTagFlag)
		if len(nodes) == 0 {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("No node carries the tag %q", runTagFlag),
				"Check nodes.<name>.tags in the config")
		}
		return nodes, nil
	}

	if runNodesFlag == "" {
		return nil, errors.New(errors.ErrValidate,
			"No target nodes given",
			"Use --node name1,name2, --tag name, or --all")
	}

	var nodes []string
	for _, n := range strings.Split(runNodesFlag, ",") {
		if n = strings.TrimSpace(n); n != "" {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

func nodesByTag(cfg *config.Config, tag string) []string {
	var nodes []string
	for name, node := range cfg.Nodes {
		for _, t := range node.Tags {
			if t == tag {
				nodes = append(nodes, name)
				break
			}
		}
	}
	return nodes
}

func printNodeResult(r orchestrator.NodeResult) {
	switch r.Outcome {
	case orchestrator.OutcomeSuccess:
		fmt.Printf("%s %s\n", ui.StyleSuccess.Render(ui.SymbolSuccess), r.Node)
	case orchestrator.OutcomeSkipped:
		fmt.Printf("%s %s %s\n", ui.StyleMuted.Render(ui.SymbolSkipped), r.Node,
			ui.StyleMuted.Render(r.Message))
	default:
		fmt.Printf("%s %s %s\n", ui.StyleError.Render(ui.SymbolFail), r.Node,
			ui.StyleError.Render(r.Message))
	}
}
