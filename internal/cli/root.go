package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/redtape/internal/batch"
	"github.com/ppiankov/redtape/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "redtape",
	Short: "Simulated health insurance bureaucracy",
	Long:  "Drives adversarial prior-auth negotiations between a provider and a payer\nthrough escalating review levels. Every request, decision, and resolution\nlands in a hash-chained audit trail that replays to the same terminal state.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildEngine loads the run config, applies CLI overrides, and assembles
// the adjudication engine. The loaded config is returned for callers
// that need more than the engine (the watch service reads its alert
// destinations from it). The cleanup func must be called when the
// command finishes.
func buildEngine(ctx context.Context, configPath, profileName, auditDir string) (batch.Engine, *config.Config, func() error, error) {
	cfg, hash, err := config.LoadWithHash(configPath)
	if err != nil {
		return batch.Engine{}, nil, nil, err
	}
	if profileName != "" {
		cfg.Profile = profileName
	}
	if auditDir != "" {
		cfg.AuditDir = auditDir
	}
	eng, cleanup, err := batch.NewEngine(ctx, cfg, hash)
	return eng, cfg, cleanup, err
}
