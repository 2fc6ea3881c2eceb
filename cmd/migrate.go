package cmd

import (
	"fmt"

	"github.com/defect-tracker/database"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(inj *do.Injector) error {
			db := do.MustInvoke[*gorm.DB](inj)
			if err := database.Migrate(cmd.Context(), db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			do.MustInvoke[*zap.Logger](inj).Info("schema is up to date")
			return nil
		})
	},
}
