package cli

import (
	"github.com/spf13/cobra"
)

// Version is reported by --version and the MCP server
var Version = "0.1.0"

var (
	dbDriverFlag string
	dbPathFlag   string
)

var rootCmd = &cobra.Command{
	Use:     "microwin",
	Short:   "Micro-step generator for task initiation",
	Long:    `MicroWin turns a goal you cannot start into one tiny, physical next step at a time. Steps that feel too hard can be made smaller, and a task can be paused and picked up later.`,
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbDriverFlag, "db-driver", "", "record store driver: duckdb or sqlite (env MICROWIN_DB_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db-path", "", "record store file (env MICROWIN_DB_PATH)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(migrateCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
