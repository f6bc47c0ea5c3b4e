package postgres

import (
	"context"
	"fmt"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

// UpsertRule — идемпотентная запись правила по его ID
func (r *StateRepo) UpsertRule(ctx context.Context, rule domain.AlertRule) error {
	query := `
		INSERT INTO alert_rules (id, name, metric, condition, threshold, sustained_minutes, severity, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			metric = EXCLUDED.metric,
			condition = EXCLUDED.condition,
			threshold = EXCLUDED.threshold,
			sustained_minutes = EXCLUDED.sustained_minutes,
			severity = EXCLUDED.severity,
			enabled = EXCLUDED.enabled,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		rule.ID, rule.Name, rule.Metric, rule.Condition, rule.Threshold,
		rule.SustainedMinutes, rule.Severity, rule.Enabled, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert rule: %w", err)
	}
	return nil
}

func (r *StateRepo) DeleteRule(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM alert_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete rule: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("postgres: rule not found")
	}
	return nil
}

// LoadRules выполняет "холодную загрузку" всего набора правил при старте
func (r *StateRepo) LoadRules(ctx context.Context) ([]domain.AlertRule, error) {
	query := `
		SELECT id, name, metric, condition, threshold, sustained_minutes, severity, enabled, created_at, updated_at
		FROM alert_rules`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: load rules: %w", err)
	}
	defer rows.Close()

	var out []domain.AlertRule
	for rows.Next() {
		var rule domain.AlertRule
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.Metric, &rule.Condition, &rule.Threshold,
			&rule.SustainedMinutes, &rule.Severity, &rule.Enabled, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}
