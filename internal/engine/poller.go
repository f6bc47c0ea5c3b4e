package engine

/*
Файл poller.go — оркестратор цикла опроса.

Один процесс — один активный поллер. Цикл запускается сразу при старте и
далее по фиксированному интервалу. Булев in-flight guard дает single-flight:
тик, пришедший во время работающего цикла, молча пропускается (не ставится
в очередь и не повторяется).

Дисциплина частичных сбоев: ошибка по одному сервису записывается в журнал
и не прерывает обработку остальных; целиком цикл падает только на
неустранимой ошибке (нет учетных данных, недоступен весь каталог) — и будет
повторен следующим тиком.
*/

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/alerting"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/analytics"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

// HealthProber — контракт пробера health-эндпоинтов (не возвращает ошибок)
type HealthProber interface {
	ProbeHealth(ctx context.Context, serviceID, serviceURL string) domain.HealthProbe
}

// Broadcaster уведомляет подписчиков об изменениях (best-effort):
// дельты снапшота и отдельный канал для конфигурации правил
type Broadcaster interface {
	StateChanged(ctx context.Context, kind, id string)
	RuleChanged(ctx context.Context, id string)
}

// BreakerStatus — доступ к состоянию предохранителя для диагностики
type BreakerStatus interface {
	Open() bool
}

type PollerConfig struct {
	Interval     time.Duration
	GroupIDs     []string
	TokenPresent bool // Отсутствие токена — неустранимая ошибка цикла
}

type Poller struct {
	cfg        PollerConfig
	api        FleetAPI
	prober     HealthProber
	state      *State
	storage    Storage
	alerts     *alerting.Engine
	correlator *alerting.Correlator
	breaker    BreakerStatus
	notify     Broadcaster
	metrics    *Metrics
	logger     *zap.Logger
	now        func() time.Time

	inFlight atomic.Bool
	wg       sync.WaitGroup
}

func NewPoller(
	cfg PollerConfig,
	api FleetAPI,
	prober HealthProber,
	state *State,
	storage Storage,
	alertEngine *alerting.Engine,
	correlator *alerting.Correlator,
	breaker BreakerStatus,
	notify Broadcaster,
	metrics *Metrics,
	logger *zap.Logger,
) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	return &Poller{
		cfg:        cfg,
		api:        api,
		prober:     prober,
		state:      state,
		storage:    storage,
		alerts:     alertEngine,
		correlator: correlator,
		breaker:    breaker,
		notify:     notify,
		metrics:    metrics,
		logger:     logger.Named("poller"),
		now:        time.Now,
	}
}

// Start запускает планировщик: немедленный цикл и далее по тикеру.
// Останавливается отменой контекста; Wait дожидается завершения.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.Poll(ctx)

		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Poll(ctx)
			}
		}
	}()
}

func (p *Poller) Wait() { p.wg.Wait() }

// Poll выполняет один цикл. Вызов во время работающего цикла — молчаливый no-op.
func (p *Poller) Poll(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.metrics.PollsTotal.WithLabelValues("skipped").Inc()
		return
	}
	defer p.inFlight.Store(false)

	start := p.now()
	err := p.cycle(ctx)
	p.metrics.PollDuration.Observe(time.Since(start).Seconds())
	p.updateGauges()

	if err != nil {
		p.metrics.PollsTotal.WithLabelValues("failed").Inc()
		p.state.FinishPoll(false)
		p.logger.Error("poll cycle failed", zap.Error(err))
		return
	}
	p.metrics.PollsTotal.WithLabelValues("ok").Inc()
	p.state.FinishPoll(true)
	p.notify.StateChanged(ctx, "poll", "")
	p.logger.Info("poll cycle complete", zap.Duration("took", time.Since(start)))
}

// cycle — последовательность шагов одного опроса
func (p *Poller) cycle(ctx context.Context) error {
	if !p.cfg.TokenPresent {
		p.state.RecordError("services", "", "fleet api token is not configured")
		return errors.New("poller: missing fleet api credential")
	}

	// 1. Список сервисов — единственный шаг, фейл которого роняет цикл
	services, err := p.api.ListServices(ctx, p.cfg.GroupIDs)
	if err != nil {
		p.metrics.FetchErrors.WithLabelValues("services").Inc()
		p.state.RecordError("services", "", err.Error())
		p.state.SyncServices(nil, false)
		return fmt.Errorf("poller: list services: %w", err)
	}
	p.state.SyncServices(services, true)

	// 2. Метрики и пробы, по сервису; сбои не прерывают цикл
	var newSamples []domain.MetricSample
	var newProbes []domain.HealthProbe
	var newAnomalies []domain.Anomaly
	now := p.now()

	for _, svc := range services {
		sample, err := p.api.FetchMetrics(ctx, svc.ID, svc.GroupID)
		if err != nil {
			p.metrics.FetchErrors.WithLabelValues("metrics").Inc()
			p.state.RecordError("metrics", svc.ID, err.Error())
		} else if sample != nil {
			p.state.RecordSample(*sample)
			newSamples = append(newSamples, *sample)
		}

		if svc.URL != "" {
			probe := p.prober.ProbeHealth(ctx, svc.ID, svc.URL)
			p.state.RecordProbe(probe)
			newProbes = append(newProbes, probe)
			if !probe.OK {
				p.metrics.FetchErrors.WithLabelValues("probe").Inc()
			}
		}

		// 3. Аномалии: статистика и тренд по истории сервиса
		history := p.state.Samples(svc.ID)
		newAnomalies = append(newAnomalies, analytics.DetectStatistical(svc.ID, history, now)...)
		newAnomalies = append(newAnomalies, analytics.DetectTrend(svc.ID, history, now)...)
	}

	// 4. Стоимость по группам + аномалия скачка
	for _, gid := range p.cfg.GroupIDs {
		entries, err := p.api.FetchUsage(ctx, gid)
		if err != nil {
			p.metrics.FetchErrors.WithLabelValues("usage").Inc()
			p.state.RecordError("usage", gid, err.Error())
			continue
		}
		p.state.UpsertCosts(entries)
		p.persist("persist", func(c context.Context) error { return p.storage.UpsertCostEntries(c, entries) })
	}
	if a := analytics.DetectCostAnomaly(groupLabel(p.cfg.GroupIDs), p.state.Costs(), now); a != nil {
		newAnomalies = append(newAnomalies, *a)
	}

	p.state.RecordAnomalies(newAnomalies)

	// 5. Правила алертинга
	delta := p.alerts.Evaluate(p.state.Services(), p.state.Rules(), p.state.Anomalies(), p.state.ActiveAlertIndex())
	resolved := p.state.ApplyAlerts(delta.Created, delta.ResolvedIDs)
	for _, a := range delta.Created {
		alert := a
		p.persist("persist", func(c context.Context) error { return p.storage.SaveAlert(c, alert) })
		p.notify.StateChanged(ctx, "alert", alert.ID)
	}
	for _, a := range resolved {
		alert := a
		p.persist("persist", func(c context.Context) error { return p.storage.SaveAlert(c, alert) })
	}

	// 6. Корреляция инцидентов
	incidents := p.correlator.Run(p.state.AlertPointers(), p.state.IncidentPointers(), p.state.ServiceName)
	p.state.SetIncidents(incidents)
	for _, inc := range incidents {
		snapshot := *inc
		p.persist("persist", func(c context.Context) error { return p.storage.SaveIncident(c, snapshot) })
	}

	// 7. SLA по каждому сервису
	for _, svc := range services {
		records := analytics.ComputeSLA(svc.ID, p.state.Probes(svc.ID), now)
		p.state.SetSLA(svc.ID, records)
		recs := records
		p.persist("persist", func(c context.Context) error { return p.storage.UpsertSLARecords(c, recs) })
	}

	// 8. Прогноз расходов
	p.state.SetForecast(analytics.ForecastCost(p.state.Costs(), now))

	// 9. Батчи временных рядов
	p.persist("persist", func(c context.Context) error { return p.storage.SaveSamples(c, newSamples) })
	p.persist("persist", func(c context.Context) error { return p.storage.SaveProbes(c, newProbes) })
	p.persist("persist", func(c context.Context) error { return p.storage.SaveAnomalies(c, newAnomalies) })

	return nil
}

// persist — best-effort запись: ошибка хранилища логируется и не влияет на цикл
func (p *Poller) persist(step string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		p.metrics.FetchErrors.WithLabelValues(step).Inc()
		p.state.RecordError(step, "", err.Error())
	}
}

func (p *Poller) updateGauges() {
	if p.breaker.Open() {
		p.metrics.CircuitBreakerState.Set(1)
	} else {
		p.metrics.CircuitBreakerState.Set(0)
	}
	p.metrics.ActiveAlerts.Set(float64(len(p.state.ActiveAlertIndex())))

	open := 0
	for _, inc := range p.state.IncidentPointers() {
		if inc.Status != domain.IncidentResolved {
			open++
		}
	}
	p.metrics.OpenIncidents.Set(float64(open))
}

// groupLabel — под какой меткой репортим общефлотовую аномалию стоимости
func groupLabel(groups []string) string {
	if len(groups) == 1 {
		return groups[0]
	}
	return "all-groups"
}
