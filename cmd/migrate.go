package cmd

import (
	"github.com/spf13/cobra"

	"timereport/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := db.Migrate(a.db); err != nil {
			return err
		}
		a.log.Infow("schema migrated")
		return nil
	},
}
