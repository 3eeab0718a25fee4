package cli

import (
	"github.com/spf13/cobra"

	"xcreator/internal/mcp"
)

var mcpAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP tool server",
	Long: `Expose ingest_profile, find_matches, matching_posts and store_stats as MCP
tools, over stdio by default or streamable HTTP with --http.

Examples:
  xcreator mcp
  xcreator mcp --http :8081`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpAddr, "http", "", "serve over streamable HTTP on this address (default from config, else stdio)")
}

func runMCP(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.MCPAddr
	if mcpAddr != "" {
		addr = mcpAddr
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	srv, err := mcp.NewServer(a, logger, cfg.Match.TopK)
	if err != nil {
		return err
	}
	if addr == "" {
		return srv.Run(cmd.Context())
	}
	return srv.RunHTTP(cmd.Context(), addr)
}
