package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/redtape/internal/batch"
)

var (
	batchConfig  string
	batchProfile string
	batchOut     string
	batchWorkers int
	batchFormat  string
)

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVar(&batchConfig, "config", "", "Path to run config YAML (default: ~/.redtape/config.yaml)")
	batchCmd.Flags().StringVar(&batchProfile, "profile", "", "Reviewer profile to apply (e.g., strict)")
	batchCmd.Flags().StringVarP(&batchOut, "out", "o", "", "Directory receiving one outcome file per case")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "Max negotiations in flight (0 = default)")
	batchCmd.Flags().StringVarP(&batchFormat, "format", "f", "text", "Output format (text|json)")
}

var batchCmd = &cobra.Command{
	Use:   "batch <case-dir>",
	Short: "Adjudicate every case file in a directory",
	Long:  "Runs all case files under the directory through the negotiation engine,\nseveral in parallel. A case that fails to load or adjudicate becomes a\nfailed outcome without stopping the rest. Exits 1 if any case failed.",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	eng, _, cleanup, err := buildEngine(ctx, batchConfig, batchProfile, "")
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := batch.Run(ctx, eng, args[0], batchOut, batchWorkers)
	if err != nil {
		return err
	}

	switch batchFormat {
	case "json":
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	default:
		fmt.Printf("Adjudicated %d cases in %dms: %d done, %d failed\n\n",
			report.Total, report.DurationMS, report.Done, report.Failed)
		for _, o := range report.Outcomes {
			if o.Status == batch.OutcomeFailed {
				fmt.Printf("  %-28s %-7s %s\n", o.CaseID, o.Status, o.Error)
				continue
			}
			fmt.Printf("  %-28s %-7s %s\n", o.CaseID, o.Status, lineSummary(o))
		}
	}

	if report.Failed > 0 {
		os.Exit(1)
	}
	return nil
}

// lineSummary condenses a done outcome to its per-line statuses.
func lineSummary(o *batch.Outcome) string {
	if o.Result == nil {
		return ""
	}
	parts := make([]string, len(o.Result.Lines))
	for i, ln := range o.Result.Lines {
		parts[i] = string(ln.Status)
	}
	s := strings.Join(parts, "/")
	if o.Result.TreatAnyway != "" {
		s += fmt.Sprintf(" (%s)", o.Result.TreatAnyway)
	}
	return s
}
