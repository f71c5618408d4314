package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/redtape/internal/mcpserver"
)

var (
	mcpConfig   string
	mcpProfile  string
	mcpAuditDir string
)

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpConfig, "config", "", "Path to run config YAML (default: ~/.redtape/config.yaml)")
	mcpCmd.Flags().StringVar(&mcpProfile, "profile", "", "Reviewer profile to apply (e.g., strict)")
	mcpCmd.Flags().StringVar(&mcpAuditDir, "audit-dir", "", "Directory receiving audit trails")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs redtape as an MCP (Model Context Protocol) server over stdio.\nExposes adjudication tools: adjudicate_case, replay_audit, verify_audit.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := mcpserver.New(ctx, mcpserver.Config{
		ConfigPath:  mcpConfig,
		ProfileName: mcpProfile,
		AuditDir:    mcpAuditDir,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "redtape MCP server running on stdio")
	if mcpProfile != "" {
		fmt.Fprintf(os.Stderr, "Profile: %s\n", mcpProfile)
	}

	return srv.Run(ctx)
}
