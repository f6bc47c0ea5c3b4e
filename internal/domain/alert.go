package domain

import (
	"fmt"
	"time"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRank задает порядок для эскалации: critical > high > medium > low
var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank возвращает числовой вес. Неизвестная severity весит 0, то есть
// никогда не эскалирует инцидент.
func (s Severity) Rank() int { return severityRank[s] }

// MaxSeverity выбирает более тяжелую из двух
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

type RuleCondition string

const (
	CondGreaterThan RuleCondition = "gt"
	CondLessThan    RuleCondition = "lt"
	CondEqual       RuleCondition = "eq"
)

// Метрики, по которым умеет срабатывать правило
const (
	RuleMetricStatus  = "status"  // Сервис не в рабочем состоянии
	RuleMetricCPU     = "cpu"     // Гейдж CPU, %
	RuleMetricMemory  = "memory"  // Гейдж памяти, %
	RuleMetricAnomaly = "anomaly" // Любая аномалия за последние 5 минут
)

// AlertRule — конфигурационная сущность. CRUD через консольный API,
// каждое изменение аудируется.
type AlertRule struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Metric           string        `json:"metric"`    // status | cpu | memory | anomaly
	Condition        RuleCondition `json:"condition"` // gt | lt | eq
	Threshold        float64       `json:"threshold"`
	SustainedMinutes int           `json:"sustained_minutes"` // Антидребезг: сколько минут условие должно держаться
	Severity         Severity      `json:"severity"`
	Enabled          bool          `json:"enabled"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Validate отбраковывает некорректное правило до любой мутации состояния
func (r *AlertRule) Validate() error {
	if r.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	switch r.Metric {
	case RuleMetricStatus, RuleMetricCPU, RuleMetricMemory, RuleMetricAnomaly:
	default:
		return &ValidationError{Field: "metric", Reason: fmt.Sprintf("unsupported metric %q", r.Metric)}
	}
	switch r.Condition {
	case CondGreaterThan, CondLessThan, CondEqual:
	default:
		return &ValidationError{Field: "condition", Reason: fmt.Sprintf("unsupported condition %q", r.Condition)}
	}
	if r.Severity.Rank() == 0 {
		return &ValidationError{Field: "severity", Reason: fmt.Sprintf("unknown severity %q", r.Severity)}
	}
	if r.SustainedMinutes < 0 {
		return &ValidationError{Field: "sustained_minutes", Reason: "must be >= 0"}
	}
	return nil
}

type AlertStatus string

const (
	AlertNew          AlertStatus = "new"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

// Alert создается, когда нарушение правила держится >= SustainedMinutes.
// Инварианты: ResolvedAt выставлен тогда и только тогда, когда статус resolved;
// на пару (ServiceID, RuleID) в любой момент не больше одного незакрытого алерта.
type Alert struct {
	ID             string      `json:"id"`
	Timestamp      time.Time   `json:"timestamp"`
	ServiceID      string      `json:"service_id"`
	Severity       Severity    `json:"severity"`
	RuleID         string      `json:"rule_id"`
	Message        string      `json:"message"`
	Status         AlertStatus `json:"status"`
	AcknowledgedAt *time.Time  `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time  `json:"resolved_at,omitempty"`
}

// Active сообщает, держит ли алерт пару (service, rule) занятой
func (a *Alert) Active() bool {
	return a.Status != AlertResolved
}
