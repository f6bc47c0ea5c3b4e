package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

// SaveSamples пишет замеры пачкой (append-only временной ряд)
func (r *StateRepo) SaveSamples(ctx context.Context, samples []domain.MetricSample) error {
	if len(samples) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, s := range samples {
		batch.Queue(`
			INSERT INTO metric_samples (service_id, group_id, ts, cpu, memory, network_rx, network_tx)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			s.ServiceID, s.GroupID, s.Timestamp, s.CPU, s.Memory, s.NetworkRx, s.NetworkTx,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: save samples: %w", err)
	}
	return nil
}

func (r *StateRepo) SaveProbes(ctx context.Context, probes []domain.HealthProbe) error {
	if len(probes) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range probes {
		batch.Queue(`
			INSERT INTO health_probes (service_id, ts, ok, status_code, latency_ms)
			VALUES ($1, $2, $3, $4, $5)`,
			p.ServiceID, p.Timestamp, p.OK, p.StatusCode, p.LatencyMs,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: save probes: %w", err)
	}
	return nil
}

func (r *StateRepo) SaveAnomalies(ctx context.Context, anomalies []domain.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range anomalies {
		batch.Queue(`
			INSERT INTO anomalies (id, ts, service_id, metric, observed_value, expected_value, deviation, kind)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING`,
			a.ID, a.Timestamp, a.ServiceID, a.Metric, a.ObservedValue, a.ExpectedValue, a.Deviation, a.Kind,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: save anomalies: %w", err)
	}
	return nil
}

// UpsertCostEntries — натуральный ключ (date, group, service): повторный
// цикл перезаписывает сумму, а не дублирует строку
func (r *StateRepo) UpsertCostEntries(ctx context.Context, entries []domain.CostEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO cost_entries (date, group_id, service_id, amount, fetched_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (date, group_id, service_id)
			DO UPDATE SET amount = EXCLUDED.amount, fetched_at = EXCLUDED.fetched_at`,
			e.Date, e.GroupID, e.ServiceID, e.Amount, e.FetchedAt,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: upsert cost entries: %w", err)
	}
	return nil
}

// UpsertSLARecords — снапшоты SLA, ключ (service, period, window_start)
func (r *StateRepo) UpsertSLARecords(ctx context.Context, records []domain.SLARecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO sla_records (service_id, period, window_start, window_end,
				total_probes, successful_probes, uptime_percent,
				avg_latency_ms, p95_latency_ms, p99_latency_ms, max_latency_ms, outage_minutes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (service_id, period, window_start) DO UPDATE SET
				window_end = EXCLUDED.window_end,
				total_probes = EXCLUDED.total_probes,
				successful_probes = EXCLUDED.successful_probes,
				uptime_percent = EXCLUDED.uptime_percent,
				avg_latency_ms = EXCLUDED.avg_latency_ms,
				p95_latency_ms = EXCLUDED.p95_latency_ms,
				p99_latency_ms = EXCLUDED.p99_latency_ms,
				max_latency_ms = EXCLUDED.max_latency_ms,
				outage_minutes = EXCLUDED.outage_minutes`,
			rec.ServiceID, rec.Period, rec.WindowStart, rec.WindowEnd,
			rec.TotalProbes, rec.SuccessfulProbes, rec.UptimePercent,
			rec.AvgLatencyMs, rec.P95LatencyMs, rec.P99LatencyMs, rec.MaxLatencyMs, rec.OutageMinutes,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: upsert sla records: %w", err)
	}
	return nil
}
