package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260801100000",
		up:      mig_20260801100000_pubsub_up,
		down:    mig_20260801100000_pubsub_down,
	})
}

func mig_20260801100000_pubsub_up(tx *sqlx.Tx) error {
	// Notify with the tenant whose grants changed so listeners can invalidate
	// a single cache entry
	_, err := tx.Exec(`
		CREATE OR REPLACE FUNCTION notify_permission_change()
		RETURNS TRIGGER AS $$
		BEGIN
			PERFORM pg_notify('permission_changes', COALESCE(NEW.tenant_id, OLD.tenant_id)::text);
			RETURN COALESCE(NEW, OLD);
		END;
		$$ LANGUAGE plpgsql;
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE TRIGGER module_permissions_notify
		AFTER INSERT OR UPDATE OR DELETE ON module_permissions
		FOR EACH ROW EXECUTE FUNCTION notify_permission_change();
	`)

	return err
}

func mig_20260801100000_pubsub_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TRIGGER IF EXISTS module_permissions_notify ON module_permissions;`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`DROP FUNCTION IF EXISTS notify_permission_change();`)
	return err
}
