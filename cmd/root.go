package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hemiciclo",
	Short: "Parliamentary attendance and activity analyzer",
	Long: `Hemiciclo ingests the parliament's session attendance exports and
activity/agenda feeds, stores them in PostgreSQL and serves aggregated
statistics as JSON.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
