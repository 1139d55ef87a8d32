package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260801092000",
		up:      mig_20260801092000_module_permissions_up,
		down:    mig_20260801092000_module_permissions_down,
	})
}

func mig_20260801092000_module_permissions_up(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS module_permissions (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
            role VARCHAR(100) NOT NULL,
            module INTEGER NOT NULL CHECK (module BETWEEN 1 AND 7),
            action VARCHAR(50) NOT NULL CHECK (action IN ('read', 'execute', 'write')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
            UNIQUE (tenant_id, role, module, action)
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE INDEX IF NOT EXISTS idx_module_permissions_tenant ON module_permissions(tenant_id);
    `)
	if err != nil {
		return err
	}

	// Grant the seeded admin role full access in the default tenant. Every
	// other role starts with nothing.
	_, err = tx.Exec(`
        INSERT INTO module_permissions (tenant_id, role, module, action)
        SELECT t.id, 'admin', modules.m, actions.a
        FROM tenants t
        CROSS JOIN generate_series(1, 7) AS modules(m)
        CROSS JOIN (VALUES ('read'), ('execute'), ('write')) AS actions(a)
        WHERE t.name = 'Default'
        ON CONFLICT DO NOTHING;
    `)

	return err
}

func mig_20260801092000_module_permissions_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS module_permissions;`)
	return err
}
