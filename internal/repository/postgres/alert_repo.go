package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

// SaveAlert — upsert по ID: один и тот же алерт пишется при создании,
// подтверждении и закрытии
func (r *StateRepo) SaveAlert(ctx context.Context, a domain.Alert) error {
	query := `
		INSERT INTO alerts (id, ts, service_id, severity, rule_id, message, status, acknowledged_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			acknowledged_at = EXCLUDED.acknowledged_at,
			resolved_at = EXCLUDED.resolved_at`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.Timestamp, a.ServiceID, a.Severity, a.RuleID, a.Message, a.Status, a.AcknowledgedAt, a.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save alert: %w", err)
	}
	return nil
}

// SaveIncident хранит ссылки на алерты/сервисы массивами, таймлайн — JSON
func (r *StateRepo) SaveIncident(ctx context.Context, inc domain.Incident) error {
	timeline, err := json.Marshal(inc.Timeline)
	if err != nil {
		return fmt.Errorf("postgres: marshal timeline: %w", err)
	}

	query := `
		INSERT INTO incidents (id, title, status, severity, started_at, resolved_at,
			alert_ids, affected_services, timeline, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			severity = EXCLUDED.severity,
			resolved_at = EXCLUDED.resolved_at,
			alert_ids = EXCLUDED.alert_ids,
			affected_services = EXCLUDED.affected_services,
			timeline = EXCLUDED.timeline,
			summary = EXCLUDED.summary`

	_, err = r.pool.Exec(ctx, query,
		inc.ID, inc.Title, inc.Status, inc.Severity, inc.StartedAt, inc.ResolvedAt,
		inc.AlertIDs, inc.AffectedServices, timeline, inc.Summary,
	)
	if err != nil {
		return fmt.Errorf("postgres: save incident: %w", err)
	}
	return nil
}

// LoadOpenAlerts — "холодная загрузка" незакрытых алертов при старте
func (r *StateRepo) LoadOpenAlerts(ctx context.Context) ([]domain.Alert, error) {
	query := `
		SELECT id, ts, service_id, severity, rule_id, message, status, acknowledged_at, resolved_at
		FROM alerts
		WHERE status != 'resolved'`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: load open alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(&a.ID, &a.Timestamp, &a.ServiceID, &a.Severity, &a.RuleID,
			&a.Message, &a.Status, &a.AcknowledgedAt, &a.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *StateRepo) LoadOpenIncidents(ctx context.Context) ([]domain.Incident, error) {
	query := `
		SELECT id, title, status, severity, started_at, resolved_at,
			alert_ids, affected_services, timeline, summary
		FROM incidents
		WHERE status != 'resolved'`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: load open incidents: %w", err)
	}
	defer rows.Close()

	var out []domain.Incident
	for rows.Next() {
		var inc domain.Incident
		var timeline []byte
		if err := rows.Scan(&inc.ID, &inc.Title, &inc.Status, &inc.Severity, &inc.StartedAt,
			&inc.ResolvedAt, &inc.AlertIDs, &inc.AffectedServices, &timeline, &inc.Summary); err != nil {
			return nil, err
		}
		if len(timeline) > 0 {
			if err := json.Unmarshal(timeline, &inc.Timeline); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal timeline: %w", err)
			}
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}
