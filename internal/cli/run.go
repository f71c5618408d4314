package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/redtape/internal/casefile"
	"github.com/ppiankov/redtape/internal/model"
	"github.com/ppiankov/redtape/internal/review"
)

var (
	runConfig   string
	runProfile  string
	runAuditDir string
	runFormat   string
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runConfig, "config", "", "Path to run config YAML (default: ~/.redtape/config.yaml)")
	runCmd.Flags().StringVar(&runProfile, "profile", "", "Reviewer profile to apply (e.g., strict)")
	runCmd.Flags().StringVar(&runAuditDir, "audit-dir", "", "Directory receiving the audit trail")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "text", "Output format (text|json)")
}

var runCmd = &cobra.Command{
	Use:   "run <case.json>",
	Short: "Adjudicate a single case file",
	Long:  "Loads one case fixture and drives it through the full negotiation:\nprovider requests, payer decisions, escalation, and the treat-anyway\nconsult. The audit trail is written before the result is printed.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	c, err := casefile.Load(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	eng, _, cleanup, err := buildEngine(ctx, runConfig, runProfile, runAuditDir)
	if err != nil {
		return err
	}
	defer cleanup()

	result, trail, err := eng.Adjudicate(ctx, c)
	if err != nil {
		if trail != "" {
			fmt.Fprintf(os.Stderr, "partial audit trail: %s\n", trail)
		}
		return err
	}

	switch runFormat {
	case "json":
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		if trail != "" {
			fmt.Fprintf(os.Stderr, "audit trail: %s\n", trail)
		}
	default:
		fmt.Print(formatResult(result, trail))
	}

	return nil
}

// formatResult renders a negotiation result as a human-readable summary.
func formatResult(res *review.Result, trail string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Case:        %s\n", res.CaseID)
	fmt.Fprintf(&b, "Session:     %s\n", res.SessionID)
	fmt.Fprintf(&b, "Iterations:  %d\n", res.Iterations)
	fmt.Fprintf(&b, "Levels:      %s\n", joinInts(res.LevelsVisited))
	fmt.Fprintf(&b, "Oracle:      %d calls, %d cache hits, %dms\n", res.OracleCalls, res.CacheHits, res.DurationMS)
	b.WriteString("\n")

	b.WriteString("Service lines:\n")
	for _, ln := range res.Lines {
		fmt.Fprintf(&b, "  %d. %-40s %-10s %-9s level %d\n",
			ln.LineNumber, ln.ServiceName, ln.RequestType, ln.Status, ln.Level)
		if ln.ModificationType != "" {
			fmt.Fprintf(&b, "     modified: %s (%d approved)\n", ln.ModificationType, ln.ApprovedQuantity)
		}
		if len(ln.RequestedDocuments) > 0 {
			fmt.Fprintf(&b, "     documents requested: %s\n", strings.Join(ln.RequestedDocuments, ", "))
		}
		if ln.LastReason != "" && ln.Status == model.LineDenied {
			fmt.Fprintf(&b, "     reason: %s\n", ln.LastReason)
		}
	}

	if res.ForcedDenial {
		b.WriteString("\nForced denial: iteration cap reached\n")
	}
	if res.TreatAnyway != "" {
		fmt.Fprintf(&b, "\nTreat anyway: %s\n", res.TreatAnyway)
	}

	s := res.Friction
	fmt.Fprintf(&b, "\nFriction: provider=%d payor=%d probes=%d escalation=%d\n",
		s.ProviderActions, s.PayorActions, s.ProbingTestsCount, s.EscalationDepth)

	if trail != "" {
		fmt.Fprintf(&b, "\nAudit trail: %s\n", trail)
	}

	return b.String()
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ", ")
}
