package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/pmarques/hemiciclo/internal/config"
	"github.com/pmarques/hemiciclo/internal/export"
	"github.com/pmarques/hemiciclo/internal/store"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export aggregated statistics to static JSON files",
	Long: `Export writes the same aggregate payloads the HTTP API serves to a
directory of static JSON files, for hosting without a backend.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if exportDir == "" {
			exportDir = cfg.ExportDir
		}

		db, err := store.NewDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		ctx := context.Background()
		if err := store.Migrate(ctx, db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}

		exporter := export.NewExporter(
			store.NewDeputyStore(db),
			store.NewSessionStore(db),
			store.NewActivityStore(db),
			store.NewAgendaStore(db),
		)
		if err := exporter.Run(ctx, exportDir); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", "", "Output directory (default: EXPORT_DIR or ./data)")
}
