package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Rewrite the attendance CSV reports",
	Long: `Export rewrites the master report (every attendance fact) and the daily
summary (first mark per person, subject and day) from the current
ledger. Exports are deterministic: an unchanged ledger produces
byte-identical files.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	exporter := export.NewExporter(store, cfg.Export.MasterPath, cfg.Export.DailyPath)
	if err := exporter.ExportAll(cmd.Context()); err != nil {
		return err
	}

	fmt.Printf("Wrote %s and %s\n", cfg.Export.MasterPath, cfg.Export.DailyPath)
	return nil
}
