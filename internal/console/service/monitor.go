package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/analytics"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/audit"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/engine"
)

// Сколько последних точек истории отдаем в карточке сервиса
const detailHistoryTail = 288 // Сутки при 5-минутном интервале

// MonitorService — фасад чтения над снапшотом оркестратора плюс два явных
// действия (ack алерта). Читает без мутаций; мутации идут синхронно в
// снапшот, затем best-effort в хранилище, затем сигнал подписчикам.
type MonitorService struct {
	state   *engine.State
	storage engine.Storage
	api     engine.FleetAPI
	breaker engine.BreakerStatus
	trail   *audit.Trail
	notify  engine.Broadcaster
	logger  *zap.Logger
	now     func() time.Time
}

func NewMonitorService(
	state *engine.State,
	storage engine.Storage,
	api engine.FleetAPI,
	breaker engine.BreakerStatus,
	trail *audit.Trail,
	notify engine.Broadcaster,
	logger *zap.Logger,
) *MonitorService {
	return &MonitorService{
		state:   state,
		storage: storage,
		api:     api,
		breaker: breaker,
		trail:   trail,
		notify:  notify,
		logger:  logger.Named("monitor-service"),
		now:     time.Now,
	}
}

func (s *MonitorService) Infrastructure() domain.InfrastructureSummary {
	return s.state.Summary()
}

// ServiceDetail собирает карточку сервиса. Выкатки тянутся из каталога
// на лету; их недоступность не роняет карточку.
func (s *MonitorService) ServiceDetail(ctx context.Context, id string) (*domain.ServiceDetail, error) {
	svc, err := s.state.Service(id)
	if err != nil {
		return nil, err
	}

	history := s.state.Samples(id)
	detail := &domain.ServiceDetail{
		Service: svc,
		Samples: tail(history, detailHistoryTail),
		Probes:  tail(s.state.Probes(id), detailHistoryTail),
		// Оконная статистика считается по полной истории, не по хвосту
		Stats: analytics.Aggregate(history, s.now()),
	}

	deployments, err := s.api.FetchDeployments(ctx, id, 10)
	if err != nil {
		s.logger.Warn("fetch deployments failed", zap.String("service", id), zap.Error(err))
	} else {
		detail.Deployments = deployments
	}

	for _, a := range s.state.Alerts(engine.AlertFilter{}) {
		if a.ServiceID == id {
			detail.Alerts = append(detail.Alerts, a)
		}
	}
	for _, an := range s.state.Anomalies() {
		if an.ServiceID == id {
			detail.Anomalies = append(detail.Anomalies, an)
		}
	}
	return detail, nil
}

func (s *MonitorService) ServiceSLA(id string) ([]domain.SLARecord, error) {
	if _, err := s.state.Service(id); err != nil {
		return nil, err
	}
	return s.state.SLA(id), nil
}

func (s *MonitorService) Alerts(f engine.AlertFilter) []domain.Alert {
	return s.state.Alerts(f)
}

// AcknowledgeAlert: снапшот -> аудит -> хранилище -> сигнал
func (s *MonitorService) AcknowledgeAlert(ctx context.Context, id, actor string) (domain.Alert, error) {
	before, _ := s.alertByID(id)

	alert, err := s.state.AcknowledgeAlert(id)
	if err != nil {
		return domain.Alert{}, err
	}

	s.trail.Log(audit.ChangeEvent{
		ID:       uuid.New().String(),
		Actor:    actor,
		Action:   audit.ActionAlertAcknowledge,
		Entity:   "alert",
		EntityID: id,
		OldValue: before,
		NewValue: alert,
	})

	if err := s.storage.SaveAlert(ctx, alert); err != nil {
		s.logger.Warn("persist acknowledged alert failed", zap.String("alert", id), zap.Error(err))
	}
	s.notify.StateChanged(ctx, "alert", id)
	return alert, nil
}

func (s *MonitorService) Anomalies() []domain.Anomaly { return s.state.Anomalies() }

func (s *MonitorService) Costs() []domain.CostEntry { return s.state.Costs() }

func (s *MonitorService) Forecast() domain.CostForecast { return s.state.Forecast() }

func (s *MonitorService) Incidents(status domain.IncidentStatus) []domain.Incident {
	return s.state.Incidents(status)
}

func (s *MonitorService) SystemStatus() domain.SystemStatus {
	return s.state.Status(s.breaker.Open(), s.storage.Mode())
}

func (s *MonitorService) alertByID(id string) (*domain.Alert, error) {
	for _, a := range s.state.Alerts(engine.AlertFilter{}) {
		if a.ID == id {
			copied := a
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func tail[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
