package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

func testEngine(now *time.Time) *Engine {
	e := NewEngine(zap.NewNop())
	e.now = func() time.Time { return *now }
	return e
}

func cpuRule(threshold float64, sustained int) domain.AlertRule {
	return domain.AlertRule{
		ID:               "rule-cpu",
		Name:             "High CPU",
		Metric:           domain.RuleMetricCPU,
		Condition:        domain.CondGreaterThan,
		Threshold:        threshold,
		SustainedMinutes: sustained,
		Severity:         domain.SeverityHigh,
		Enabled:          true,
	}
}

func TestEvaluate_ImmediateAlert(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	e := testEngine(&now)

	services := []domain.Service{{ID: "svc-1", Status: domain.ServiceActive, CPUPercent: 95}}
	rules := []domain.AlertRule{cpuRule(80, 0)}

	delta := e.Evaluate(services, rules, nil, map[string]*domain.Alert{})
	require.Len(t, delta.Created, 1)
	assert.Empty(t, delta.ResolvedIDs)

	a := delta.Created[0]
	assert.Equal(t, "svc-1", a.ServiceID)
	assert.Equal(t, "rule-cpu", a.RuleID)
	assert.Equal(t, domain.SeverityHigh, a.Severity)
	assert.Equal(t, domain.AlertNew, a.Status)
	assert.Equal(t, now, a.Timestamp)
}

func TestEvaluate_SustainedDebounce(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	e := testEngine(&now)

	services := []domain.Service{{ID: "svc-1", Status: domain.ServiceActive, CPUPercent: 95}}
	rules := []domain.AlertRule{cpuRule(80, 10)}
	active := map[string]*domain.Alert{}

	// Нарушение только началось: алерта еще нет
	delta := e.Evaluate(services, rules, nil, active)
	assert.Empty(t, delta.Created)

	// 5 минут — все еще дребезг
	now = now.Add(5 * time.Minute)
	delta = e.Evaluate(services, rules, nil, active)
	assert.Empty(t, delta.Created)

	// 10 минут от начала — порог достигнут
	now = now.Add(5 * time.Minute)
	delta = e.Evaluate(services, rules, nil, active)
	require.Len(t, delta.Created, 1)
}

func TestEvaluate_DebounceResetsOnRecovery(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	e := testEngine(&now)

	rules := []domain.AlertRule{cpuRule(80, 10)}
	active := map[string]*domain.Alert{}
	hot := []domain.Service{{ID: "svc-1", Status: domain.ServiceActive, CPUPercent: 95}}
	cool := []domain.Service{{ID: "svc-1", Status: domain.ServiceActive, CPUPercent: 40}}

	e.Evaluate(hot, rules, nil, active)

	// Передышка сбрасывает индекс начала нарушения
	now = now.Add(5 * time.Minute)
	e.Evaluate(cool, rules, nil, active)

	// Снова горячо, но отсчет пошел заново
	now = now.Add(5 * time.Minute)
	delta := e.Evaluate(hot, rules, nil, active)
	assert.Empty(t, delta.Created)
}

func TestEvaluate_OneActivePerPair(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	e := testEngine(&now)

	services := []domain.Service{{ID: "svc-1", Status: domain.ServiceActive, CPUPercent: 95}}
	rules := []domain.AlertRule{cpuRule(80, 0)}
	existing := &domain.Alert{ID: "a-1", ServiceID: "svc-1", RuleID: "rule-cpu", Status: domain.AlertNew}
	active := map[string]*domain.Alert{PairKey("svc-1", "rule-cpu"): existing}

	delta := e.Evaluate(services, rules, nil, active)
	assert.Empty(t, delta.Created)
	assert.Empty(t, delta.ResolvedIDs)
}

func TestEvaluate_AutoResolveOnClear(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	e := testEngine(&now)

	services := []domain.Service{{ID: "svc-1", Status: domain.ServiceActive, CPUPercent: 40}}
	rules := []domain.AlertRule{cpuRule(80, 0)}
	existing := &domain.Alert{ID: "a-1", ServiceID: "svc-1", RuleID: "rule-cpu", Status: domain.AlertNew}
	active := map[string]*domain.Alert{PairKey("svc-1", "rule-cpu"): existing}

	delta := e.Evaluate(services, rules, nil, active)
	assert.Empty(t, delta.Created)
	assert.Equal(t, []string{"a-1"}, delta.ResolvedIDs)
}

func TestEvaluate_DisabledRuleIgnored(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	e := testEngine(&now)

	rule := cpuRule(80, 0)
	rule.Enabled = false
	services := []domain.Service{{ID: "svc-1", Status: domain.ServiceActive, CPUPercent: 95}}

	delta := e.Evaluate(services, []domain.AlertRule{rule}, nil, map[string]*domain.Alert{})
	assert.Empty(t, delta.Created)
}

func TestViolates_StatusRule(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	e := testEngine(&now)

	rule := domain.AlertRule{Metric: domain.RuleMetricStatus}

	// Рабочие состояния не нарушают правило
	for _, st := range []domain.ServiceStatus{domain.ServiceActive, domain.ServiceDeploying, domain.ServiceBuilding} {
		assert.False(t, e.violates(rule, domain.Service{Status: st}, nil, now), string(st))
	}
	for _, st := range []domain.ServiceStatus{domain.ServiceCrashed, domain.ServiceRemoved, domain.ServiceUnknown} {
		assert.True(t, e.violates(rule, domain.Service{Status: st}, nil, now), string(st))
	}
}

func TestViolates_AnomalyFreshness(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	e := testEngine(&now)

	rule := domain.AlertRule{Metric: domain.RuleMetricAnomaly}
	svc := domain.Service{ID: "svc-1"}

	fresh := []domain.Anomaly{{ServiceID: "svc-1", Timestamp: now.Add(-time.Minute)}}
	stale := []domain.Anomaly{{ServiceID: "svc-1", Timestamp: now.Add(-10 * time.Minute)}}
	foreign := []domain.Anomaly{{ServiceID: "other", Timestamp: now}}

	assert.True(t, e.violates(rule, svc, fresh, now))
	assert.False(t, e.violates(rule, svc, stale, now))
	assert.False(t, e.violates(rule, svc, foreign, now))
}

func TestCompare(t *testing.T) {
	assert.True(t, compare(90, domain.CondGreaterThan, 80))
	assert.False(t, compare(80, domain.CondGreaterThan, 80))
	assert.True(t, compare(10, domain.CondLessThan, 20))
	assert.True(t, compare(50, domain.CondEqual, 50))
	assert.False(t, compare(50.1, domain.CondEqual, 50))
}
