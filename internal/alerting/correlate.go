package alerting

/*
Файл correlate.go — корреляция алертов в инциденты.

Алерт присоединяется к незакрытому инциденту по одному из двух признаков:
временная близость (5 минут от последнего события таймлайна) либо общий
затронутый сервис. Матчинг детерминирован: инциденты сканируются от старых
к новым, совпадение по сервису имеет приоритет над чисто временным.
Инцидент авто-закрывается, когда закрыты все его алерты.
*/

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
	"go.uber.org/zap"
)

// Окно временной близости для присоединения алерта к инциденту
const correlationWindow = 5 * time.Minute

type Correlator struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewCorrelator(logger *zap.Logger) *Correlator {
	return &Correlator{logger: logger.Named("incidents"), now: time.Now}
}

// Run выполняет один проход корреляции: раскладывает неприкаянные алерты по
// инцидентам, зеркалирует подтверждения в таймлайны и авто-закрывает
// инциденты без живых алертов. Мутирует переданные инциденты и возвращает
// список с добавленными новыми.
func (c *Correlator) Run(
	alerts []*domain.Alert,
	incidents []*domain.Incident,
	serviceName func(id string) string,
) []*domain.Incident {
	assigned := make(map[string]struct{})
	for _, inc := range incidents {
		for _, id := range inc.AlertIDs {
			assigned[id] = struct{}{}
		}
	}

	alertsByID := make(map[string]*domain.Alert, len(alerts))
	for _, a := range alerts {
		alertsByID[a.ID] = a
	}

	// 1. Раскладываем кандидатов
	for _, a := range alerts {
		if a.Status == domain.AlertResolved {
			continue
		}
		if _, ok := assigned[a.ID]; ok {
			continue
		}
		if inc := c.match(a, incidents); inc != nil {
			c.join(inc, a, serviceName)
		} else {
			incidents = append(incidents, c.open(a, serviceName))
		}
		assigned[a.ID] = struct{}{}
	}

	// 2. Зеркалируем подтверждения (ровно один раз на алерт)
	for _, inc := range incidents {
		if inc.Status == domain.IncidentResolved {
			continue
		}
		c.mirrorAcknowledgements(inc, alertsByID)
	}

	// 3. Авто-закрытие
	for _, inc := range incidents {
		if inc.Status == domain.IncidentResolved {
			continue
		}
		c.maybeResolve(inc, alertsByID, serviceName)
	}

	return incidents
}

// match ищет инцидент для алерта. Два прохода от старых к новым:
// сначала совпадение по сервису, потом временная близость.
func (c *Correlator) match(a *domain.Alert, incidents []*domain.Incident) *domain.Incident {
	for _, inc := range incidents {
		if inc.Status != domain.IncidentResolved && inc.HasService(a.ServiceID) {
			return inc
		}
	}
	for _, inc := range incidents {
		if inc.Status == domain.IncidentResolved {
			continue
		}
		gap := a.Timestamp.Sub(inc.LastEventAt())
		if gap < 0 {
			gap = -gap
		}
		if gap <= correlationWindow {
			return inc
		}
	}
	return nil
}

func (c *Correlator) join(inc *domain.Incident, a *domain.Alert, serviceName func(string) string) {
	if inc.HasAlert(a.ID) {
		return
	}
	inc.AlertIDs = append(inc.AlertIDs, a.ID)
	if !inc.HasService(a.ServiceID) {
		inc.AffectedServices = append(inc.AffectedServices, a.ServiceID)
	}
	inc.Severity = domain.MaxSeverity(inc.Severity, a.Severity)
	inc.Timeline = append(inc.Timeline, domain.IncidentEvent{
		Timestamp: a.Timestamp,
		Type:      domain.EventAlertFired,
		Message:   a.Message,
		AlertID:   a.ID,
		ServiceID: a.ServiceID,
	})
	c.logger.Info("alert joined incident",
		zap.String("incident", inc.ID),
		zap.String("alert", a.ID),
		zap.String("service", serviceName(a.ServiceID)),
	)
}

func (c *Correlator) open(a *domain.Alert, serviceName func(string) string) *domain.Incident {
	inc := &domain.Incident{
		ID:               uuid.New().String(),
		Title:            fmt.Sprintf("Incident: %s", serviceName(a.ServiceID)),
		Status:           domain.IncidentActive,
		Severity:         a.Severity,
		StartedAt:        a.Timestamp,
		AlertIDs:         []string{a.ID},
		AffectedServices: []string{a.ServiceID},
		Timeline: []domain.IncidentEvent{{
			Timestamp: a.Timestamp,
			Type:      domain.EventAlertFired,
			Message:   a.Message,
			AlertID:   a.ID,
			ServiceID: a.ServiceID,
		}},
	}
	c.logger.Info("incident opened",
		zap.String("incident", inc.ID),
		zap.String("service", serviceName(a.ServiceID)),
		zap.String("severity", string(a.Severity)),
	)
	return inc
}

// mirrorAcknowledgements добавляет в таймлайн событие о подтверждении
// алерта оператором; дедупликация по alertID.
func (c *Correlator) mirrorAcknowledgements(inc *domain.Incident, alertsByID map[string]*domain.Alert) {
	mirrored := make(map[string]struct{})
	for _, ev := range inc.Timeline {
		if ev.Type == domain.EventAlertAcknowledged {
			mirrored[ev.AlertID] = struct{}{}
		}
	}
	for _, id := range inc.AlertIDs {
		a := alertsByID[id]
		if a == nil || a.AcknowledgedAt == nil {
			continue
		}
		if _, done := mirrored[id]; done {
			continue
		}
		inc.Timeline = append(inc.Timeline, domain.IncidentEvent{
			Timestamp: *a.AcknowledgedAt,
			Type:      domain.EventAlertAcknowledged,
			Message:   "alert acknowledged by operator",
			AlertID:   id,
			ServiceID: a.ServiceID,
		})
	}
}

// maybeResolve закрывает инцидент, если закрыты все его алерты.
// Алерт, отсутствующий в индексе, считается закрытым: из буфера истории
// вытесняются только закрытые алерты.
func (c *Correlator) maybeResolve(inc *domain.Incident, alertsByID map[string]*domain.Alert, serviceName func(string) string) {
	for _, id := range inc.AlertIDs {
		if a, ok := alertsByID[id]; ok && a.Status != domain.AlertResolved {
			return
		}
	}

	now := c.now()
	inc.Status = domain.IncidentResolved
	inc.ResolvedAt = &now
	inc.Timeline = append(inc.Timeline, domain.IncidentEvent{
		Timestamp: now,
		Type:      domain.EventAlertResolved,
		Message:   "all constituent alerts resolved",
	})

	names := make([]string, 0, len(inc.AffectedServices))
	for _, sid := range inc.AffectedServices {
		names = append(names, serviceName(sid))
	}
	inc.Summary = fmt.Sprintf("Affected %s; lasted %d minutes; %d alerts",
		strings.Join(names, ", "),
		int(now.Sub(inc.StartedAt).Minutes()),
		len(inc.AlertIDs),
	)
	c.logger.Info("incident auto-resolved", zap.String("incident", inc.ID))
}
