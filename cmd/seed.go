package cmd

import (
	"github.com/defect-tracker/config"
	"github.com/defect-tracker/services"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default roles and the configured admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(inj *do.Injector) error {
			cfg := do.MustInvoke[*config.Config](inj)
			return services.Seed(cmd.Context(),
				do.MustInvoke[*services.IdentityService](inj),
				cfg.Seed,
				do.MustInvoke[*zap.Logger](inj),
			)
		})
	},
}
