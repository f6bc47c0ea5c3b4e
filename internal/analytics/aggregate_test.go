package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

func statsFor(out []domain.MetricStats, metric, window string) (domain.MetricStats, bool) {
	for _, st := range out {
		if st.Metric == metric && st.Window == window {
			return st, true
		}
	}
	return domain.MetricStats{}, false
}

func TestAggregate_WindowedStats(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	// Три свежих сэмпла внутри часа и один трехчасовой давности:
	// часовое окно видит тройку, суточное — все четыре
	samples := []domain.MetricSample{
		sampleAt("svc-1", now.Add(-30*time.Minute), 10),
		sampleAt("svc-1", now.Add(-20*time.Minute), 20),
		sampleAt("svc-1", now.Add(-10*time.Minute), 30),
		sampleAt("svc-1", now.Add(-3*time.Hour), 100),
	}

	out := Aggregate(samples, now)

	hour, ok := statsFor(out, "cpu", "1h")
	require.True(t, ok)
	assert.Equal(t, 3, hour.Count)
	assert.InDelta(t, 20.0, hour.Mean, 1e-9)
	assert.InDelta(t, 10.0, hour.Min, 1e-9)
	assert.InDelta(t, 30.0, hour.Max, 1e-9)
	assert.InDelta(t, 8.1650, hour.StdDev, 1e-3)

	day, ok := statsFor(out, "cpu", "24h")
	require.True(t, ok)
	assert.Equal(t, 4, day.Count)
	assert.InDelta(t, 40.0, day.Mean, 1e-9)
	assert.InDelta(t, 100.0, day.Max, 1e-9)
}

func TestAggregate_SkipsEmptyWindows(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	// Единственный сэмпл двухчасовой давности: часовое окно пустое и
	// не порождает записей, остальные три окна — по записи на метрику
	samples := []domain.MetricSample{sampleAt("svc-1", now.Add(-2*time.Hour), 50)}

	out := Aggregate(samples, now)
	require.Len(t, out, 3*len(metricAccessors))
	for _, st := range out {
		assert.NotEqual(t, "1h", st.Window)
	}
}

func TestAggregate_NoSamples(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	assert.Empty(t, Aggregate(nil, now))
}
