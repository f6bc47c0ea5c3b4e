package engine

import (
	"context"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

// Storage — контракт долговременного хранилища. Запись всегда best-effort:
// сначала обновляется снапшот в памяти, затем делается попытка записи сюда.
// Upsert-ы идут по натуральным ключам, поэтому повторы идемпотентны.
type Storage interface {
	SaveSamples(ctx context.Context, samples []domain.MetricSample) error
	SaveProbes(ctx context.Context, probes []domain.HealthProbe) error
	SaveAnomalies(ctx context.Context, anomalies []domain.Anomaly) error
	SaveAlert(ctx context.Context, alert domain.Alert) error
	SaveIncident(ctx context.Context, incident domain.Incident) error
	UpsertCostEntries(ctx context.Context, entries []domain.CostEntry) error
	UpsertSLARecords(ctx context.Context, records []domain.SLARecord) error

	UpsertRule(ctx context.Context, rule domain.AlertRule) error
	DeleteRule(ctx context.Context, id string) error

	// Холодная загрузка при старте
	LoadRules(ctx context.Context) ([]domain.AlertRule, error)
	LoadOpenAlerts(ctx context.Context) ([]domain.Alert, error)
	LoadOpenIncidents(ctx context.Context) ([]domain.Incident, error)

	Mode() string // "durable" | "memory-only"
	Close()
}

// NullStorage — деградация в memory-only режим: все записи no-op, чтения
// пусты. Выбирается на старте, если БД не сконфигурирована или недоступна;
// процесс не пытается переподключаться.
type NullStorage struct{}

func (NullStorage) SaveSamples(context.Context, []domain.MetricSample) error    { return nil }
func (NullStorage) SaveProbes(context.Context, []domain.HealthProbe) error      { return nil }
func (NullStorage) SaveAnomalies(context.Context, []domain.Anomaly) error       { return nil }
func (NullStorage) SaveAlert(context.Context, domain.Alert) error               { return nil }
func (NullStorage) SaveIncident(context.Context, domain.Incident) error         { return nil }
func (NullStorage) UpsertCostEntries(context.Context, []domain.CostEntry) error { return nil }
func (NullStorage) UpsertSLARecords(context.Context, []domain.SLARecord) error  { return nil }
func (NullStorage) UpsertRule(context.Context, domain.AlertRule) error          { return nil }
func (NullStorage) DeleteRule(context.Context, string) error                    { return nil }

func (NullStorage) LoadRules(context.Context) ([]domain.AlertRule, error)        { return nil, nil }
func (NullStorage) LoadOpenAlerts(context.Context) ([]domain.Alert, error)       { return nil, nil }
func (NullStorage) LoadOpenIncidents(context.Context) ([]domain.Incident, error) { return nil, nil }

func (NullStorage) Mode() string { return "memory-only" }
func (NullStorage) Close()       {}
