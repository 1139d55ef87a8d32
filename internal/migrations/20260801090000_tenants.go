package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260801090000",
		up:      mig_20260801090000_tenants_up,
		down:    mig_20260801090000_tenants_down,
	})
}

func mig_20260801090000_tenants_up(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS tenants (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            name VARCHAR(255) NOT NULL UNIQUE,
            plan VARCHAR(50) NOT NULL DEFAULT 'basic' CHECK (plan IN ('basic', 'pro', 'enterprise')),
            active BOOLEAN NOT NULL DEFAULT TRUE,
            flags JSONB NOT NULL DEFAULT '{}',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
        );
    `)
	if err != nil {
		return err
	}

	// Seed the default tenant so a fresh install is usable immediately
	_, err = tx.Exec(`
        INSERT INTO tenants (name, plan, active)
        VALUES ('Default', 'enterprise', true)
        ON CONFLICT (name) DO NOTHING;
    `)

	return err
}

func mig_20260801090000_tenants_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS tenants;`)
	return err
}
