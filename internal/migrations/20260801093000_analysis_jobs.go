package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260801093000",
		up:      mig_20260801093000_analysis_jobs_up,
		down:    mig_20260801093000_analysis_jobs_down,
	})
}

func mig_20260801093000_analysis_jobs_up(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS analysis_jobs (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            method VARCHAR(50) NOT NULL,
            module INTEGER NOT NULL CHECK (module BETWEEN 1 AND 7),
            params JSONB NOT NULL DEFAULT '{}',
            status VARCHAR(20) NOT NULL DEFAULT 'pending'
                CHECK (status IN ('pending', 'running', 'succeeded', 'failed', 'retrying')),
            retry_count INTEGER NOT NULL DEFAULT 0,
            failure_reason TEXT,
            result JSONB,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE INDEX IF NOT EXISTS idx_analysis_jobs_tenant_created ON analysis_jobs(tenant_id, created_at DESC);
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE INDEX IF NOT EXISTS idx_analysis_jobs_status ON analysis_jobs(status);
    `)

	return err
}

func mig_20260801093000_analysis_jobs_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS analysis_jobs;`)
	return err
}
