package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/caisdata/cais/internal/causal"
	"github.com/caisdata/cais/internal/config"
	"github.com/caisdata/cais/internal/jobs"
	"github.com/caisdata/cais/internal/services"
	"github.com/caisdata/cais/internal/telemetry"
)

var analysisWorkerCmd = &cobra.Command{
	Use:   "analysis-worker",
	Short: "Start the causal analysis worker pool",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()

		shutdownTelemetry := telemetry.NewProvider(conf.OTEL_EXPORTER_OTLP_ENDPOINT)
		defer shutdownTelemetry()

		svc := services.NewServices(conf)

		ctx, cancel := context.WithCancel(context.Background())

		// Messages stranded by dead workers go back on the queue first, then
		// periodically, so recovery does not wait for the next restart
		if _, err := svc.Broker.RequeueOrphans(ctx); err != nil {
			slog.Error("Failed to requeue orphaned messages", slog.Any("error", err))
		}
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := svc.Broker.RequeueOrphans(ctx); err != nil {
						slog.Error("Failed to requeue orphaned messages", slog.Any("error", err))
					}
				}
			}
		}()

		runners := causal.Runners(causal.NewWarehouseEstimators(svc.Warehouse))

		worker := jobs.NewWorker(svc.AnalysisRepo, svc.Broker, runners, svc.Notification, svc.Audit, jobs.WorkerConfig{
			Workers:     conf.ANALYSIS_WORKERS,
			SoftTimeout: conf.ANALYSIS_SOFT_TIMEOUT,
			HardTimeout: conf.ANALYSIS_HARD_TIMEOUT,
			MaxRetries:  conf.ANALYSIS_MAX_RETRIES,
			RetryDelay:  conf.ANALYSIS_RETRY_DELAY,
		})

		go func() {
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			<-c
			slog.Info("Received interrupt, draining workers...")
			cancel()
		}()

		slog.Info("Analysis worker pool started", slog.Int("workers", conf.ANALYSIS_WORKERS))
		worker.Start(ctx)

		svc.Audit.Close()
		slog.Info("Analysis worker pool stopped")
	},
}

// Register the "analysis-worker" command
func init() {
	rootCmd.AddCommand(analysisWorkerCmd)
}
