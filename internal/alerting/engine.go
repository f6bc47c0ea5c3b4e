package alerting

/*
Файл engine.go — движок правил алертинга с антидребезгом.

Конечный автомат на пару (service, rule):
Unviolated -> Violating(start=t) -> Violating(elapsed >= sustained) -> Alert.

Единственное состояние, живущее между циклами, — индекс начала нарушения
(violations). Он принадлежит движку на весь срок жизни процесса; сами алерты
живут в снапшоте оркестратора, движок лишь возвращает дельту.
*/

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
	"go.uber.org/zap"
)

// Аномалия считается "свежей" для правила anomaly в течение этого окна
const anomalyFreshness = 5 * time.Minute

type Engine struct {
	logger *zap.Logger
	now    func() time.Time

	// Индекс начала нарушения: "serviceID|ruleID" -> момент первого фейла
	violations map[string]time.Time
}

func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{
		logger:     logger.Named("alerting"),
		now:        time.Now,
		violations: make(map[string]time.Time),
	}
}

// Delta — результат одного прогона: что создать и что закрыть
type Delta struct {
	Created     []domain.Alert
	ResolvedIDs []string
}

// Evaluate прогоняет все включенные правила по всем сервисам.
// active — индекс незакрытых алертов по ключу пары (поддерживается снапшотом);
// инвариант "не больше одного активного алерта на пару" обеспечивается именно им.
func (e *Engine) Evaluate(
	services []domain.Service,
	rules []domain.AlertRule,
	anomalies []domain.Anomaly,
	active map[string]*domain.Alert,
) Delta {
	now := e.now()
	var delta Delta

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		for _, svc := range services {
			key := PairKey(svc.ID, rule.ID)
			if e.violates(rule, svc, anomalies, now) {
				start, tracked := e.violations[key]
				if !tracked {
					start = now
					e.violations[key] = start
				}
				sustained := time.Duration(rule.SustainedMinutes) * time.Minute
				if now.Sub(start) >= sustained && active[key] == nil {
					alert := domain.Alert{
						ID:        uuid.New().String(),
						Timestamp: now,
						ServiceID: svc.ID,
						Severity:  rule.Severity,
						RuleID:    rule.ID,
						Message:   e.message(rule, svc),
						Status:    domain.AlertNew,
					}
					delta.Created = append(delta.Created, alert)
					e.logger.Warn("alert raised",
						zap.String("service", svc.ID),
						zap.String("rule", rule.Name),
						zap.String("severity", string(rule.Severity)),
					)
				}
			} else {
				delete(e.violations, key)
				if a := active[key]; a != nil {
					delta.ResolvedIDs = append(delta.ResolvedIDs, a.ID)
				}
			}
		}
	}
	return delta
}

// violates проверяет условие правила против текущего состояния сервиса
func (e *Engine) violates(rule domain.AlertRule, svc domain.Service, anomalies []domain.Anomaly, now time.Time) bool {
	switch rule.Metric {
	case domain.RuleMetricStatus:
		switch svc.Status {
		case domain.ServiceActive, domain.ServiceDeploying, domain.ServiceBuilding:
			return false
		default:
			return true
		}
	case domain.RuleMetricCPU:
		return compare(svc.CPUPercent, rule.Condition, rule.Threshold)
	case domain.RuleMetricMemory:
		return compare(svc.MemoryPercent, rule.Condition, rule.Threshold)
	case domain.RuleMetricAnomaly:
		cutoff := now.Add(-anomalyFreshness)
		for _, a := range anomalies {
			if a.ServiceID == svc.ID && !a.Timestamp.Before(cutoff) {
				return true
			}
		}
		return false
	}
	return false
}

func (e *Engine) message(rule domain.AlertRule, svc domain.Service) string {
	switch rule.Metric {
	case domain.RuleMetricStatus:
		return fmt.Sprintf("%s: service is %s", rule.Name, svc.Status)
	case domain.RuleMetricCPU:
		return fmt.Sprintf("%s: cpu %.1f%% %s %.1f%%", rule.Name, svc.CPUPercent, rule.Condition, rule.Threshold)
	case domain.RuleMetricMemory:
		return fmt.Sprintf("%s: memory %.1f%% %s %.1f%%", rule.Name, svc.MemoryPercent, rule.Condition, rule.Threshold)
	case domain.RuleMetricAnomaly:
		return fmt.Sprintf("%s: anomaly detected within last %v", rule.Name, anomalyFreshness)
	}
	return rule.Name
}

func compare(value float64, cond domain.RuleCondition, threshold float64) bool {
	switch cond {
	case domain.CondGreaterThan:
		return value > threshold
	case domain.CondLessThan:
		return value < threshold
	case domain.CondEqual:
		// Точное равенство float сделало бы eq-правила мертвой конфигурацией
		return math.Abs(value-threshold) < 1e-9
	}
	return false
}

// PairKey — ключ индексов по паре (service, rule)
func PairKey(serviceID, ruleID string) string {
	return serviceID + "|" + ruleID
}
