package cmd

import (
	"fmt"
	"os"

	"github.com/defect-tracker/services"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all defects to a delimited file",
	Long: `Export every defect, newest first.

Formats:
  csv    semicolon separated, .csv
  excel  tab separated, .xls

Without --out the file is written to the current directory under a
timestamped name such as defects_report_20240315_103000.csv.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(inj *do.Injector) error {
			reports := do.MustInvoke[*services.ReportService](inj)
			file, err := reports.ExportDefects(cmd.Context(), exportFormat)
			if err != nil {
				return fmt.Errorf("export defects: %w", err)
			}

			out := exportOut
			if out == "" {
				out = file.FileName
			}
			if err := os.WriteFile(out, file.Content, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Printf("Exported %d bytes to %s\n", len(file.Content), out)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv or excel")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path")
}
