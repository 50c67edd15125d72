package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can retrieve
passages from your indexed documents.

The server offers:
  retrieve            - nearest passages for a query, with page numbers
  ask                 - a one-off question to a chat mode
  lexrag://modes      - the chat modes
  lexrag://index      - the vector index of the configured embedding model

By default, the server communicates over stdio using JSON-RPC.
Use --port to serve HTTP instead, or --http to pick the first free port.

Examples:
  # Stdio mode (default)
  lexrag mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  lexrag mcp serve --port 8765

Client configuration:
  {
    "mcpServers": {
      "lexrag": {
        "command": "/path/to/lexrag",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().Bool("http", false, "serve HTTP on the first free port")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	useHTTP, err := cmd.Flags().GetBool("http")
	if err != nil {
		return fmt.Errorf("getting http flag: %w", err)
	}

	ports := &mcp.Ports{
		Retriever: retriever,
		Chat:      chatService,
		Index:     indexService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 || useHTTP {
		addr, err := mcp.HTTPAddr(port)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
