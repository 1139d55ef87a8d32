package cmd

import (
	"github.com/spf13/cobra"

	"github.com/caisdata/cais/internal/api"
	"github.com/caisdata/cais/internal/config"
	"github.com/caisdata/cais/internal/telemetry"
)

var apiServerCmd = &cobra.Command{
	Use:   "api-server",
	Short: "Start the analytics API server",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()

		shutdownTelemetry := telemetry.NewProvider(conf.OTEL_EXPORTER_OTLP_ENDPOINT)
		defer shutdownTelemetry()

		s := api.New()
		s.Start()
	},
}

// Register the "api-server" command
func init() {
	rootCmd.AddCommand(apiServerCmd)
}
