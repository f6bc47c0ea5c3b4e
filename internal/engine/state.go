package engine

/*
Файл state.go — авторитетный in-memory снапшот монитора.

Снапшот — источник правды для работающего процесса: цикл опроса пишет в него
синхронно (single-flight гарантирует отсутствие конкурирующих циклов), а
консольное API читает конкурентно, поэтому все доступы под RWMutex. Явные
мутации извне (ack алерта, CRUD правил) идут под тем же write-lock — это же
закрывает гонку "алерт закрыт правилом" против "инцидент закрывают руками".

Все исторические буферы ограничены и обрезаются со старого конца.
*/

import (
	"sort"
	"sync"
	"time"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

// Limits задает глубину буферов истории
type Limits struct {
	SamplesPerService int
	ProbesPerService  int
	Anomalies         int
	Alerts            int
	Errors            int
}

func DefaultLimits() Limits {
	return Limits{
		SamplesPerService: 1000,
		ProbesPerService:  2000,
		Anomalies:         1000,
		Alerts:            2000,
		Errors:            200,
	}
}

type State struct {
	mu     sync.RWMutex
	limits Limits
	now    func() time.Time

	services map[string]*domain.Service
	samples  map[string][]domain.MetricSample // по сервису, capped
	probes   map[string][]domain.HealthProbe  // по сервису, capped

	anomalies []domain.Anomaly
	alerts    []*domain.Alert
	active    map[string]*domain.Alert // индекс незакрытых по паре (service, rule)
	incidents []*domain.Incident
	rules     map[string]*domain.AlertRule
	costs     map[string]domain.CostEntry // ключ date|group|service
	sla       map[string][]domain.SLARecord
	forecast  domain.CostForecast

	errors     []domain.PollError
	lastPollAt time.Time
	lastPollOK bool
}

func NewState(limits Limits) *State {
	return &State{
		limits:   limits,
		now:      time.Now,
		services: make(map[string]*domain.Service),
		samples:  make(map[string][]domain.MetricSample),
		probes:   make(map[string][]domain.HealthProbe),
		active:   make(map[string]*domain.Alert),
		rules:    make(map[string]*domain.AlertRule),
		costs:    make(map[string]domain.CostEntry),
		sla:      make(map[string][]domain.SLARecord),
	}
}

// Restore — холодная загрузка при старте: незакрытые алерты и инциденты
// плюс полный набор правил из долговременного хранилища.
func (s *State) Restore(rules []domain.AlertRule, alerts []domain.Alert, incidents []domain.Incident) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range rules {
		r := rules[i]
		s.rules[r.ID] = &r
	}
	for i := range alerts {
		a := alerts[i]
		s.alerts = append(s.alerts, &a)
		if a.Active() {
			s.active[pairKey(a.ServiceID, a.RuleID)] = &a
		}
	}
	for i := range incidents {
		inc := incidents[i]
		s.incidents = append(s.incidents, &inc)
	}
}

// --- Запись (цикл опроса) ---

// SyncServices вливает свежий список каталога. Сервисы не удаляются:
// пропавшие помечаются removed (каталог ответил) либо unknown (не ответил).
func (s *State) SyncServices(fresh []domain.Service, catalogOK bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(fresh))
	now := s.now()
	for _, f := range fresh {
		seen[f.ID] = struct{}{}
		if cur, ok := s.services[f.ID]; ok {
			cur.Name = f.Name
			cur.GroupID = f.GroupID
			cur.Status = f.Status
			cur.URL = f.URL
			cur.LastDeployAt = f.LastDeployAt
			cur.UpdatedAt = now
		} else {
			copied := f
			copied.UpdatedAt = now
			s.services[f.ID] = &copied
		}
	}

	missing := domain.ServiceUnknown
	if catalogOK {
		missing = domain.ServiceRemoved
	}
	for id, svc := range s.services {
		if _, ok := seen[id]; !ok {
			svc.Status = missing
			svc.UpdatedAt = now
		}
	}
}

// RecordSample добавляет замер и обновляет текущие гейджи сервиса
func (s *State) RecordSample(sample domain.MetricSample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := append(s.samples[sample.ServiceID], sample)
	if over := len(buf) - s.limits.SamplesPerService; over > 0 {
		buf = buf[over:]
	}
	s.samples[sample.ServiceID] = buf

	if svc, ok := s.services[sample.ServiceID]; ok {
		svc.CPUPercent = sample.CPU
		svc.MemoryPercent = sample.Memory
	}
}

// RecordProbe добавляет пробу и пересчитывает derived uptime сервиса (окно 24ч)
func (s *State) RecordProbe(probe domain.HealthProbe) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := append(s.probes[probe.ServiceID], probe)
	if over := len(buf) - s.limits.ProbesPerService; over > 0 {
		buf = buf[over:]
	}
	s.probes[probe.ServiceID] = buf

	svc, ok := s.services[probe.ServiceID]
	if !ok {
		return
	}
	cutoff := s.now().Add(-24 * time.Hour)
	total, good := 0, 0
	for _, p := range buf {
		if p.Timestamp.Before(cutoff) {
			continue
		}
		total++
		if p.OK {
			good++
		}
	}
	if total > 0 {
		svc.UptimePercent = float64(good) / float64(total) * 100
	}
}

func (s *State) RecordAnomalies(batch []domain.Anomaly) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anomalies = append(s.anomalies, batch...)
	if over := len(s.anomalies) - s.limits.Anomalies; over > 0 {
		s.anomalies = s.anomalies[over:]
	}
}

// ApplyAlerts вносит дельту движка правил: новые алерты и авто-закрытия.
// Возвращает закрытые алерты (для персиста).
func (s *State) ApplyAlerts(created []domain.Alert, resolvedIDs []string) []domain.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range created {
		a := created[i]
		s.alerts = append(s.alerts, &a)
		s.active[pairKey(a.ServiceID, a.RuleID)] = &a
	}

	var resolved []domain.Alert
	now := s.now()
	for _, id := range resolvedIDs {
		for _, a := range s.alerts {
			if a.ID != id || a.Status == domain.AlertResolved {
				continue
			}
			a.Status = domain.AlertResolved
			a.ResolvedAt = &now
			delete(s.active, pairKey(a.ServiceID, a.RuleID))
			resolved = append(resolved, *a)
		}
	}

	s.trimAlertsLocked()
	return resolved
}

// trimAlertsLocked выбрасывает старейшие закрытые алерты сверх лимита
func (s *State) trimAlertsLocked() {
	over := len(s.alerts) - s.limits.Alerts
	if over <= 0 {
		return
	}
	kept := s.alerts[:0]
	for _, a := range s.alerts {
		if over > 0 && a.Status == domain.AlertResolved {
			over--
			continue
		}
		kept = append(kept, a)
	}
	s.alerts = kept
}

func (s *State) SetIncidents(incidents []*domain.Incident) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents = incidents
}

func (s *State) UpsertCosts(entries []domain.CostEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.costs[e.Date+"|"+e.GroupID+"|"+e.ServiceID] = e
	}
}

func (s *State) SetSLA(serviceID string, records []domain.SLARecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sla[serviceID] = records
}

func (s *State) SetForecast(fc domain.CostForecast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forecast = fc
}

// RecordError пишет в кольцевой журнал диагностики
func (s *State) RecordError(step, serviceID, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, domain.PollError{
		Timestamp: s.now(),
		ServiceID: serviceID,
		Step:      step,
		Message:   msg,
	})
	if over := len(s.errors) - s.limits.Errors; over > 0 {
		s.errors = s.errors[over:]
	}
}

func (s *State) FinishPoll(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPollAt = s.now()
	s.lastPollOK = ok
}

// --- Явные мутации (консоль) ---

// AcknowledgeAlert переводит алерт new -> acknowledged.
// Закрытый алерт подтверждать нельзя.
func (s *State) AcknowledgeAlert(id string) (domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		if a.ID != id {
			continue
		}
		if a.Status == domain.AlertResolved {
			return domain.Alert{}, &domain.ValidationError{Field: "status", Reason: "alert already resolved"}
		}
		now := s.now()
		a.Status = domain.AlertAcknowledged
		a.AcknowledgedAt = &now
		return *a, nil
	}
	return domain.Alert{}, domain.ErrNotFound
}

func (s *State) UpsertRule(rule domain.AlertRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := rule
	s.rules[rule.ID] = &copied
}

func (s *State) DeleteRule(id string) (domain.AlertRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok {
		return domain.AlertRule{}, domain.ErrNotFound
	}
	delete(s.rules, id)
	return *r, nil
}

// --- Чтение (цикл и консоль) ---

func (s *State) Services() []domain.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Service, 0, len(s.services))
	for _, svc := range s.services {
		out = append(out, *svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *State) Service(id string) (domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[id]
	if !ok {
		return domain.Service{}, domain.ErrNotFound
	}
	return *svc, nil
}

func (s *State) ServiceName(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if svc, ok := s.services[id]; ok {
		return svc.Name
	}
	return id
}

func (s *State) Samples(serviceID string) []domain.MetricSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.MetricSample(nil), s.samples[serviceID]...)
}

func (s *State) Probes(serviceID string) []domain.HealthProbe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.HealthProbe(nil), s.probes[serviceID]...)
}

func (s *State) Anomalies() []domain.Anomaly {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Anomaly(nil), s.anomalies...)
}

// AlertFilter — фильтры выборки алертов; пустое значение — без фильтра
type AlertFilter struct {
	Status   domain.AlertStatus
	Severity domain.Severity
}

func (s *State) Alerts(f AlertFilter) []domain.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Alert
	for _, a := range s.alerts {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		out = append(out, *a)
	}
	return out
}

// AlertPointers отдает живые указатели для корреляции. Только для цикла
// опроса: вызывающий уже владеет single-flight секцией.
func (s *State) AlertPointers() []*domain.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.Alert(nil), s.alerts...)
}

// ActiveAlertIndex — копия индекса незакрытых алертов по паре (service, rule)
func (s *State) ActiveAlertIndex() map[string]*domain.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*domain.Alert, len(s.active))
	for k, v := range s.active {
		out[k] = v
	}
	return out
}

func (s *State) IncidentPointers() []*domain.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.Incident(nil), s.incidents...)
}

func (s *State) Incidents(status domain.IncidentStatus) []domain.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Incident
	for _, inc := range s.incidents {
		if status != "" && inc.Status != status {
			continue
		}
		out = append(out, *inc)
	}
	return out
}

func (s *State) Rules() []domain.AlertRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AlertRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *State) Rule(id string) (domain.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok {
		return domain.AlertRule{}, domain.ErrNotFound
	}
	return *r, nil
}

func (s *State) Costs() []domain.CostEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CostEntry, 0, len(s.costs))
	for _, e := range s.costs {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (s *State) Forecast() domain.CostForecast {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forecast
}

func (s *State) SLA(serviceID string) []domain.SLARecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.SLARecord(nil), s.sla[serviceID]...)
}

func (s *State) Summary() domain.InfrastructureSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := domain.InfrastructureSummary{
		TotalServices: len(s.services),
		LastPollAt:    s.lastPollAt,
	}
	for _, svc := range s.services {
		sum.Services = append(sum.Services, *svc)
		if svc.Status == domain.ServiceActive {
			sum.ActiveServices++
		}
	}
	sort.Slice(sum.Services, func(i, j int) bool { return sum.Services[i].Name < sum.Services[j].Name })
	sum.ActiveAlerts = len(s.active)
	for _, inc := range s.incidents {
		if inc.Status != domain.IncidentResolved {
			sum.OpenIncidents++
		}
	}
	return sum
}

func (s *State) Status(circuitOpen bool, storageMode string) domain.SystemStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.SystemStatus{
		LastPollAt:     s.lastPollAt,
		LastPollOK:     s.lastPollOK,
		CircuitOpen:    circuitOpen,
		StorageMode:    storageMode,
		RecentErrors:   append([]domain.PollError(nil), s.errors...),
		ServicesPolled: len(s.services),
	}
}

func pairKey(serviceID, ruleID string) string {
	return serviceID + "|" + ruleID
}
