package domain

import "time"

type IncidentStatus string

const (
	IncidentActive        IncidentStatus = "active"
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentResolved      IncidentStatus = "resolved"
)

// Типы событий таймлайна
const (
	EventAlertFired        = "alert_fired"
	EventAlertAcknowledged = "alert_acknowledged"
	EventAlertResolved     = "alert_resolved"
)

// IncidentEvent — упорядоченная append-only запись таймлайна инцидента
type IncidentEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	AlertID   string    `json:"alert_id,omitempty"`
	ServiceID string    `json:"service_id,omitempty"`
}

// Incident — группа связанных алертов. Severity всегда равна максимальной
// severity входящих алертов; авто-закрывается, когда закрыты все алерты.
type Incident struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Status           IncidentStatus  `json:"status"`
	Severity         Severity        `json:"severity"`
	StartedAt        time.Time       `json:"started_at"`
	ResolvedAt       *time.Time      `json:"resolved_at,omitempty"`
	AlertIDs         []string        `json:"alert_ids"`
	AffectedServices []string        `json:"affected_services"`
	Timeline         []IncidentEvent `json:"timeline"`
	Summary          string          `json:"summary,omitempty"`
}

// LastEventAt — время последнего события таймлайна (для temporal-матчинга)
func (i *Incident) LastEventAt() time.Time {
	if len(i.Timeline) == 0 {
		return i.StartedAt
	}
	return i.Timeline[len(i.Timeline)-1].Timestamp
}

// HasService проверяет принадлежность сервиса к инциденту (affinity-матчинг)
func (i *Incident) HasService(serviceID string) bool {
	for _, s := range i.AffectedServices {
		if s == serviceID {
			return true
		}
	}
	return false
}

// HasAlert защищает от двойного присоединения одного алерта
func (i *Incident) HasAlert(alertID string) bool {
	for _, id := range i.AlertIDs {
		if id == alertID {
			return true
		}
	}
	return false
}
