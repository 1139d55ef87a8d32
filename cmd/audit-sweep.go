package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/caisdata/cais/internal/config"
	"github.com/caisdata/cais/internal/db"
	"github.com/caisdata/cais/internal/services/audit"
)

var auditSweepCmd = &cobra.Command{
	Use:   "audit-sweep",
	Short: "Delete audit entries past the retention window",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()

		svc := audit.NewAuditService(audit.NewAuditRepo(db.NewConn(conf)), conf.AUDIT_RETENTION)
		defer svc.Close()

		swept, err := svc.Sweep(context.Background())
		if err != nil {
			slog.Error("Audit sweep failed", slog.Any("error", err))
			os.Exit(1)
		}

		slog.Info("Audit sweep finished", slog.Int64("swept", swept))
	},
}

// Register the "audit-sweep" command
func init() {
	rootCmd.AddCommand(auditSweepCmd)
}
