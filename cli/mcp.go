package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/rohanthewiz/logger"
	"github.com/spf13/cobra"

	"microwin/mcptools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the micro-step tools over MCP stdio",
	Long:  `Run an MCP server on stdin/stdout so an AI agent can walk the user through a goal one tiny step at a time.`,
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	mcptools.Version = Version
	s := mcptools.NewServer(a.service)

	logger.Info("MicroWin MCP server starting", "provider", a.cfg.Provider)
	return server.ServeStdio(s)
}
