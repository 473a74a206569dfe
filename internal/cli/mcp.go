package cli

import (
	"os"

	"github.com/mvp-joe/mcpforge/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long: `Start a Model Context Protocol server over stdio exposing the
extract_entities tool, so AI assistants can extract entry points from files on
disk or from inline Python sources.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// stdout carries the protocol; logs go to stderr.
		logger := newLogger(os.Stderr, verbose, false)

		p, err := newPipeline(cfg, nil, logger)
		if err != nil {
			return err
		}
		defer p.Close()

		srv, err := mcp.NewMCPServer(p.runner, Version, logger)
		if err != nil {
			return err
		}
		return srv.Serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
