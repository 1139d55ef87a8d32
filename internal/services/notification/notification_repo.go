package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type NotificationRepo struct {
	db *sqlx.DB
}

func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

const preferenceColumns = `id, tenant_id, user_id, channel, endpoint, enabled, created_at, updated_at`

// Upsert replaces the preference for (tenant, user, channel), relying on the
// table's unique constraint to keep one row per channel.
func (r *NotificationRepo) Upsert(ctx context.Context, tenantID, userID uuid.UUID, req *UpsertPreferenceRequest) (*NotificationPreference, error) {
	query := `
		INSERT INTO notification_preferences (id, tenant_id, user_id, channel, endpoint, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (tenant_id, user_id, channel)
		DO UPDATE SET endpoint = EXCLUDED.endpoint, enabled = EXCLUDED.enabled, updated_at = now()
		RETURNING ` + preferenceColumns
	var pref NotificationPreference
	err := r.db.GetContext(ctx, &pref, query, uuid.New(), tenantID, userID, req.Channel, req.Endpoint, req.Enabled)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert notification preference: %w", err)
	}
	return &pref, nil
}

func (r *NotificationRepo) ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]NotificationPreference, error) {
	query := `SELECT ` + preferenceColumns + ` FROM notification_preferences WHERE tenant_id = $1 AND user_id = $2 ORDER BY channel`
	var prefs []NotificationPreference
	if err := r.db.SelectContext(ctx, &prefs, query, tenantID, userID); err != nil {
		return nil, fmt.Errorf("failed to list notification preferences: %w", err)
	}
	return prefs, nil
}

// ListEnabled returns the preferences the dispatcher should deliver to.
func (r *NotificationRepo) ListEnabled(ctx context.Context, tenantID, userID uuid.UUID) ([]NotificationPreference, error) {
	query := `SELECT ` + preferenceColumns + ` FROM notification_preferences WHERE tenant_id = $1 AND user_id = $2 AND enabled = true`
	var prefs []NotificationPreference
	if err := r.db.SelectContext(ctx, &prefs, query, tenantID, userID); err != nil {
		return nil, fmt.Errorf("failed to list enabled preferences: %w", err)
	}
	return prefs, nil
}

func (r *NotificationRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notification_preferences WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete notification preference: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("notification preference not found")
	}

	return nil
}
