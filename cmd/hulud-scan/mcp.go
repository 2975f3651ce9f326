package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kluth/shai-hulud-scanner/internal/badlist"
	"github.com/kluth/shai-hulud-scanner/internal/logging"
	"github.com/kluth/shai-hulud-scanner/internal/scan"
)

func newMcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the Model Context Protocol (MCP) server",
		Long: `Starts a JSON-RPC server implementing the Model Context Protocol (MCP).
This allows AI assistants (like Claude Desktop) to use hulud-scan as a tool.`,
		RunE: runMcpServer,
	}
}

func runMcpServer(cmd *cobra.Command, args []string) error {
	s := server.NewMCPServer(
		"shai-hulud-scanner",
		version,
		server.WithLogging(),
	)

	scanProjectTool := mcp.NewTool("scan_project",
		mcp.WithDescription("Scan a local JavaScript project directory for Shai-Hulud worm indicators"),
		mcp.WithString("path",
			mcp.Description("Absolute path to the project directory"),
			mcp.Required(),
		),
		mcp.WithBoolean("skip_git",
			mcp.Description("Skip the local git repository scan"),
		),
	)
	s.AddTool(scanProjectTool, handleScanProject)

	wormOverviewTool := mcp.NewTool("worm_overview",
		mcp.WithDescription("Return a short write-up of the Shai-Hulud npm supply-chain worm"),
	)
	s.AddTool(wormOverviewTool, handleWormOverview)

	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}

func handleScanProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("arguments must be a map"), nil
	}
	path, ok := args["path"].(string)
	if !ok {
		return mcp.NewToolResultError("path must be a string"), nil
	}
	noGit, _ := args["skip_git"].(bool)

	// Stdout belongs to the JSON-RPC transport, so the scan runs silently.
	runner := scan.NewRunner(scan.Config{
		SkipGit: noGit,
		Fetcher: badlist.NewFetcher(),
	}, logging.Nop{})

	rep, err := runner.Run(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Scan failed: %v", err)), nil
	}

	jsonBytes, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal report: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func handleWormOverview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(overviewText), nil
}
