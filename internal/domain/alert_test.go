package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRule() AlertRule {
	return AlertRule{
		Name:             "High CPU",
		Metric:           RuleMetricCPU,
		Condition:        CondGreaterThan,
		Threshold:        80,
		SustainedMinutes: 5,
		Severity:         SeverityHigh,
		Enabled:          true,
	}
}

func TestAlertRule_Validate(t *testing.T) {
	rule := validRule()
	require.NoError(t, rule.Validate())

	cases := []struct {
		name   string
		mutate func(*AlertRule)
		field  string
	}{
		{"empty name", func(r *AlertRule) { r.Name = "" }, "name"},
		{"unknown metric", func(r *AlertRule) { r.Metric = "latency" }, "metric"},
		{"unknown condition", func(r *AlertRule) { r.Condition = "gte" }, "condition"},
		{"unknown severity", func(r *AlertRule) { r.Severity = "fatal" }, "severity"},
		{"negative sustained", func(r *AlertRule) { r.SustainedMinutes = -1 }, "sustained_minutes"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validRule()
			tc.mutate(&r)

			err := r.Validate()
			require.Error(t, err)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestMaxSeverity(t *testing.T) {
	assert.Equal(t, SeverityCritical, MaxSeverity(SeverityHigh, SeverityCritical))
	assert.Equal(t, SeverityHigh, MaxSeverity(SeverityHigh, SeverityLow))
	// Неизвестная severity никогда не эскалирует
	assert.Equal(t, SeverityLow, MaxSeverity(SeverityLow, "wat"))
}

func TestAlert_Active(t *testing.T) {
	assert.True(t, (&Alert{Status: AlertNew}).Active())
	assert.True(t, (&Alert{Status: AlertAcknowledged}).Active())
	assert.False(t, (&Alert{Status: AlertResolved}).Active())
}
