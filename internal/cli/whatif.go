package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/redtape/internal/whatif"
)

var (
	whatifExclusions string
	whatifLevels     string
	whatifFormat     string
)

func init() {
	rootCmd.AddCommand(whatifCmd)
	whatifCmd.Flags().StringVar(&whatifExclusions, "exclusions", "", "Path to alternate exclusions YAML")
	whatifCmd.Flags().StringVar(&whatifLevels, "levels", "", "Path to alternate review table YAML")
	whatifCmd.Flags().StringVarP(&whatifFormat, "format", "f", "text", "Output format (text|json)")
}

var whatifCmd = &cobra.Command{
	Use:   "whatif <trail.jsonl>",
	Short: "Replay a trail against alternate plan rules and show what changes",
	Long: "Reads a committed audit trail and replays it against an alternate\n" +
		"exclusion list or review table. Reports which requests would now be\n" +
		"screened out (or reach review) and which recorded steps would break\n" +
		"the negotiation rules.\n\n" +
		"Recorded reviewer decisions are never re-evaluated; use this to\n" +
		"preview plan rule changes before deploying them.",
	Args: cobra.ExactArgs(1),
	RunE: runWhatif,
}

func runWhatif(cmd *cobra.Command, args []string) error {
	result, err := whatif.Run(args[0], whatifExclusions, whatifLevels)
	if err != nil {
		return err
	}

	switch whatifFormat {
	case "json":
		out, err := whatif.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(whatif.FormatText(result))
	}

	return nil
}
