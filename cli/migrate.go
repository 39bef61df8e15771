package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the record store schema",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	// Opening the store applies pending migrations
	a, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	version, err := a.db.SchemaVersion()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s store at %s is at schema version %d\n", a.cfg.DBDriver, a.cfg.DBPath, version)
	return nil
}
