package cmd

import (
	"github.com/blackhat-astro/blackhat/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the blackhat MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents list passbands,
summarize, fit and predict light curves via standard tools.

Fitted sources are kept in memory between tool calls, so a predict after a fit
reuses the conditioned process.`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, storeManager)
	},
}
