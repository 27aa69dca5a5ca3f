package repository

import (
	"context"
	"database/sql"
	"fmt"

	"qa-review-tracker/pkg/models"
)

// PostgresSettingsRepository implements SettingsRepository
type PostgresSettingsRepository struct {
	db *sql.DB
}

func NewPostgresSettingsRepository(db *sql.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

func (r *PostgresSettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = $1`,
		key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting: %w", err)
	}
	return value, nil
}

func (r *PostgresSettingsRepository) Set(ctx context.Context, setting *models.Setting) error {
	query := `
		INSERT INTO settings (key, value, updated_by, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_by = EXCLUDED.updated_by,
		    updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query, setting.Key, setting.Value, setting.UpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

func (r *PostgresSettingsRepository) Delete(ctx context.Context, key string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("setting %s: %w", key, ErrNotFound)
	}
	return nil
}

func (r *PostgresSettingsRepository) List(ctx context.Context) ([]models.Setting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value, updated_by, updated_at FROM settings ORDER BY key`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var settings []models.Setting
	for rows.Next() {
		var s models.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedBy, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting row: %w", err)
		}
		settings = append(settings, s)
	}

	return settings, rows.Err()
}

// PostgresActivityLogRepository implements ActivityLogRepository
type PostgresActivityLogRepository struct {
	db *sql.DB
}

func NewPostgresActivityLogRepository(db *sql.DB) *PostgresActivityLogRepository {
	return &PostgresActivityLogRepository{db: db}
}

func (r *PostgresActivityLogRepository) Append(ctx context.Context, entry *models.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (id, actor, action, entity_id, detail, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Actor,
		entry.Action,
		entry.EntityID,
		entry.Detail,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append activity log: %w", err)
	}
	return nil
}

func (r *PostgresActivityLogRepository) List(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, actor, action, entity_id, detail, timestamp FROM activity_logs ORDER BY timestamp DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity logs: %w", err)
	}
	defer rows.Close()

	var entries []models.ActivityLog
	for rows.Next() {
		var e models.ActivityLog
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.EntityID, &e.Detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan activity log row: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
