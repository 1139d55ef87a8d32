package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260801095000",
		up:      mig_20260801095000_audit_logs_up,
		down:    mig_20260801095000_audit_logs_down,
	})
}

func mig_20260801095000_audit_logs_up(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS audit_logs (
            id UUID PRIMARY KEY,
            tenant_id UUID NOT NULL,
            user_id UUID,
            action VARCHAR(50) NOT NULL,
            resource VARCHAR(255) NOT NULL DEFAULT '',
            status_code INTEGER NOT NULL DEFAULT 0,
            duration_ms BIGINT NOT NULL DEFAULT 0,
            bytes_processed BIGINT NOT NULL DEFAULT 0,
            ip VARCHAR(45) NOT NULL DEFAULT '',
            details JSONB,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE INDEX IF NOT EXISTS idx_audit_logs_tenant_created ON audit_logs(tenant_id, created_at DESC);
    `)
	if err != nil {
		return err
	}

	// The retention sweep deletes by created_at alone
	_, err = tx.Exec(`
        CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at);
    `)

	return err
}

func mig_20260801095000_audit_logs_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS audit_logs;`)
	return err
}
