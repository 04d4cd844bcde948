package cmd

import (
	"fmt"

	"incus-sync/feature/hosts"
	"incus-sync/feature/inventory"

	"github.com/spf13/cobra"
)

// migrateCmd creates or updates the inventory and host registry tables.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the inventory tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		if err := inventory.Migrate(a.db); err != nil {
			return fmt.Errorf("failed to migrate inventory: %w", err)
		}
		if err := hosts.Migrate(a.db); err != nil {
			return fmt.Errorf("failed to migrate host registry: %w", err)
		}
		a.logger.Info("Migration completed")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
