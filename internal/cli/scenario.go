package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/redtape/internal/scenario"
)

var scenarioFormat string

func init() {
	rootCmd.AddCommand(scenarioCmd)
	scenarioCmd.Flags().StringVarP(&scenarioFormat, "format", "f", "text", "Output format (text|json)")
}

var scenarioCmd = &cobra.Command{
	Use:   "scenario <file.yaml> [file.yaml...]",
	Short: "Run scripted negotiation fixtures",
	Long:  "Runs each scenario file's scripted negotiations against the engine and\nchecks the terminal state against the fixture's expectations. No LLM\nbackend is consulted. Exits 1 if any negotiation misses its expectation.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScenario,
}

func runScenario(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	results := make([]*scenario.RunResult, 0, len(args))
	failed := false
	for _, path := range args {
		res, err := scenario.LoadAndRun(ctx, path)
		if err != nil {
			return err
		}
		if res.Failed > 0 {
			failed = true
		}
		results = append(results, res)
	}

	switch scenarioFormat {
	case "json":
		out, err := scenario.FormatJSON(results)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(scenario.FormatText(results))
	}

	if failed {
		os.Exit(1)
	}
	return nil
}
