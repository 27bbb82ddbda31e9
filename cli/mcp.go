// ABOUTME: MCP server subcommand
// ABOUTME: Serves the deal engine tools over stdio for MCP clients
package cli

import (
	"context"
	"log/slog"

	"github.com/harperreed/dealpulse/engine"
	"github.com/harperreed/dealpulse/handlers"
	"github.com/harperreed/dealpulse/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPCommand starts the MCP server on stdio and blocks until the client disconnects.
func MCPCommand(ctx context.Context, service *engine.Service, agent models.AgentContext, version string, logger *slog.Logger) error {
	logger.Info("starting MCP server",
		slog.String("version", version),
		slog.Bool("system_agent", agent.IsSystem()))

	server := handlers.NewServer(service, agent, version)
	return server.Run(ctx, &mcp.StdioTransport{})
}
