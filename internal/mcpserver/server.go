// Package mcpserver exposes adjudication over the Model Context
// Protocol: agent frontends connect on stdio and drive negotiations,
// replay committed trails, and verify hash chains as tools.
package mcpserver

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/redtape/internal/batch"
	"github.com/ppiankov/redtape/internal/config"
)

// Config holds MCP server configuration.
type Config struct {
	ConfigPath  string // run configuration YAML; empty falls back to ~/.redtape/config.yaml
	ProfileName string // overrides the configured payer posture profile
	AuditDir    string // overrides where per-case audit trails are written
}

// Server wraps the MCP SDK server around the adjudication engine. The
// engine's configured backends serve calls that carry no scripted
// turns; scripted calls run entirely in process.
type Server struct {
	mcpServer *mcpsdk.Server
	engine    batch.Engine
	cleanup   func() error
}

// New creates an MCP server with a fully assembled engine. The context
// is used for backend construction only.
func New(ctx context.Context, cfg Config) (*Server, error) {
	runCfg, hash, err := config.LoadWithHash(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load run config: %w", err)
	}
	if cfg.ProfileName != "" {
		runCfg.Profile = cfg.ProfileName
	}
	if cfg.AuditDir != "" {
		runCfg.AuditDir = cfg.AuditDir
	}

	engine, cleanup, err := batch.NewEngine(ctx, runCfg, hash)
	if err != nil {
		return nil, err
	}

	s := &Server{engine: engine, cleanup: cleanup}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "redtape",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close releases the engine's response cache.
func (s *Server) Close() error {
	return s.cleanup()
}

// registerTools adds the adjudication tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "adjudicate_case",
		Description: "Run one prior-auth negotiation for an inline case fixture. Scripted provider/payor turns run without an LLM backend; omit them to use the configured backends.",
	}, s.handleAdjudicate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "replay_audit",
		Description: "Rebuild the final negotiation state from a committed audit trail, including any invariant violations found.",
	}, s.handleReplay)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "verify_audit",
		Description: "Verify the hash chain of an audit trail and report the first broken link, if any.",
	}, s.handleVerify)
}
