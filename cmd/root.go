// Package cmd contains the CLI commands for defect-tracker.
package cmd

import (
	"github.com/defect-tracker/bootstrap"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "defect-tracker",
	Short: "Defect tracking service",
	Long: `defect-tracker records defects found in projects, routes them through
their lifecycle and reports on them.

Examples:
  # Run the HTTP API
  defect-tracker serve

  # Create the schema and default roles
  defect-tracker migrate
  defect-tracker seed

  # Export every defect as a semicolon separated file
  defect-tracker export --format csv --out defects.csv`,
	SilenceUsage: true,
}

// Execute runs the root command. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, userCmd, exportCmd)
}

// withContainer builds the container, runs fn and releases what fn opened
func withContainer(fn func(inj *do.Injector) error) error {
	inj := bootstrap.BuildContainer()
	defer func() {
		if err := bootstrap.Close(inj); err != nil {
			if log, lerr := do.Invoke[*zap.Logger](inj); lerr == nil {
				log.Sugar().Warnw("close resources", "err", err)
			}
		}
	}()
	return fn(inj)
}
