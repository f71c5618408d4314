package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/redtape/internal/audit"
	"github.com/ppiankov/redtape/internal/friction"
	"github.com/ppiankov/redtape/internal/ledger"
	"github.com/ppiankov/redtape/internal/levels"
)

var (
	replayLevels string
	replayFormat string
)

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayLevels, "levels", "", "Path to review table YAML (default: ~/.redtape/levels.yaml)")
	replayCmd.Flags().StringVarP(&replayFormat, "format", "f", "text", "Output format (text|json)")
}

var replayCmd = &cobra.Command{
	Use:   "replay <trail.jsonl>",
	Short: "Reconstruct a negotiation from its audit trail",
	Long:  "Folds the entry stream back through the commit rules and renders the\nterminal state the original run reached. Invariant violations in the\ntrail are reported and exit with status 1.",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

// replayOutput is the JSON rendering of a reconstructed negotiation.
type replayOutput struct {
	CaseID        string            `json:"case_id"`
	Entries       int               `json:"entries"`
	Iterations    int               `json:"iterations"`
	Lines         []ledger.Line     `json:"lines"`
	Friction      friction.Snapshot `json:"friction"`
	PendCounts    map[int]int       `json:"pend_counts,omitempty"`
	LevelsVisited []int             `json:"levels_visited"`
	TreatAnyway   string            `json:"treat_anyway,omitempty"`
	Violations    []string          `json:"invariant_violations,omitempty"`
}

func runReplay(cmd *cobra.Command, args []string) error {
	entries, err := audit.ReadEntries(args[0])
	if err != nil {
		return err
	}

	table, err := levels.Load(replayLevels)
	if err != nil {
		return fmt.Errorf("load review table: %w", err)
	}

	rep, err := audit.Replay(entries, table)
	if err != nil {
		return fmt.Errorf("replay %s: %w", args[0], err)
	}
	violations := audit.CheckInvariants(entries, table)

	out := replayOutput{
		CaseID:        rep.CaseID,
		Entries:       len(entries),
		Iterations:    rep.Iterations,
		Lines:         rep.Ledger.Lines(),
		Friction:      rep.Friction.Snapshot(),
		PendCounts:    rep.PendCounts,
		LevelsVisited: rep.LevelsVisited,
		TreatAnyway:   string(rep.TreatAnyway),
		Violations:    violations,
	}

	switch replayFormat {
	case "json":
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	default:
		fmt.Printf("Replayed case %s: %d entries, %d iterations\n\n", out.CaseID, out.Entries, out.Iterations)
		fmt.Println("Service lines:")
		for _, ln := range out.Lines {
			fmt.Printf("  %d. %-40s %-10s %-9s level %d\n",
				ln.LineNumber, ln.ServiceName, ln.RequestType, ln.Status, ln.Level)
		}
		if out.TreatAnyway != "" {
			fmt.Printf("Treat anyway: %s\n", out.TreatAnyway)
		}
		fmt.Printf("Levels visited: %s\n", joinInts(out.LevelsVisited))
		fmt.Printf("Friction: provider=%d payor=%d probes=%d escalation=%d\n",
			out.Friction.ProviderActions, out.Friction.PayorActions,
			out.Friction.ProbingTestsCount, out.Friction.EscalationDepth)
		fmt.Println()
		if len(violations) == 0 {
			fmt.Println("Invariants: OK")
		} else {
			fmt.Println("Invariant violations:")
			for _, v := range violations {
				fmt.Printf("  - %s\n", v)
			}
		}
	}

	if len(violations) > 0 {
		os.Exit(1)
	}
	return nil
}
