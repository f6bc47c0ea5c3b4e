package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres

	"github.com/xela07ax/spaceai-fleet-monitor/internal/audit"
)

type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(connString string) (*AuditRepo, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: open audit db: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &AuditRepo{db: db}, nil
}

func (r *AuditRepo) Close() error { return r.db.Close() }

// WriteBatch пишет пачку событий одним INSERT
func (r *AuditRepo) WriteBatch(ctx context.Context, events []audit.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Количество колонок в таблице audit_log
	numFields := 8
	placeholderStr := ""
	vals := make([]interface{}, 0, len(events)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range events {
		p := i * numFields
		placeholderStr += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d),",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8)

		oldVal, _ := json.Marshal(e.OldValue)
		newVal, _ := json.Marshal(e.NewValue)

		vals = append(vals,
			e.ID, e.Actor, e.Action, e.Entity, e.EntityID, oldVal, newVal, e.Timestamp,
		)
	}

	query := fmt.Sprintf(
		"INSERT INTO audit_log (id, actor, action, entity, entity_id, old_value, new_value, timestamp) VALUES %s",
		strings.TrimSuffix(placeholderStr, ","),
	)

	_, err := r.db.ExecContext(ctx, query, vals...)
	return err
}
