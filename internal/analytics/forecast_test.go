package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

func TestForecastCost_Empty(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	fc := ForecastCost(nil, now)
	assert.Equal(t, domain.TrendStable, fc.Trend)
	assert.Zero(t, fc.Confidence)
	assert.Empty(t, fc.Points)
	assert.Equal(t, now, fc.GeneratedAt)
}

func TestForecastCost_SinglePoint(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	entries := []domain.CostEntry{{Date: "2026-08-30", GroupID: "grp", Amount: 42}}
	fc := ForecastCost(entries, now)

	// Одна точка — плоский прогноз без уверенности
	assert.Zero(t, fc.Slope)
	assert.InDelta(t, 42.0, fc.Intercept, 1e-9)
	assert.Zero(t, fc.RSquared)
	assert.Zero(t, fc.Confidence)
	assert.Equal(t, domain.TrendStable, fc.Trend)

	require.Len(t, fc.Points, 1+30)
	assert.False(t, fc.Points[0].Projected)
	for _, p := range fc.Points[1:] {
		assert.True(t, p.Projected)
		assert.InDelta(t, 42.0, p.Amount, 1e-9)
	}
	assert.InDelta(t, 7*42.0, fc.Predicted7Day, 1e-9)
	assert.InDelta(t, 30*42.0, fc.Predicted30Day, 1e-9)
}

func TestForecastCost_LinearGrowth(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	base := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	// Идеальная прямая 10, 20, 30, 40, 50
	entries := costDays(base, 10, 20, 30, 40, 50)
	fc := ForecastCost(entries, now)

	assert.InDelta(t, 10.0, fc.Slope, 1e-9)
	assert.InDelta(t, 10.0, fc.Intercept, 1e-9)
	assert.InDelta(t, 1.0, fc.RSquared, 1e-9)
	assert.Equal(t, 100, fc.Confidence)
	assert.Equal(t, domain.TrendIncreasing, fc.Trend)

	require.Len(t, fc.Points, 5+30)

	// Первая прогнозная точка: следующий день после последней даты
	first := fc.Points[5]
	assert.True(t, first.Projected)
	assert.Equal(t, base.AddDate(0, 0, 5).Format("2006-01-02"), first.Date)
	assert.InDelta(t, 60.0, first.Amount, 1e-9)

	// 60+70+...+120
	assert.InDelta(t, 630.0, fc.Predicted7Day, 1e-9)
}

func TestForecastCost_ClampsNegativeProjection(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	base := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	// Круто падающий расход: прогноз быстро уходит ниже нуля
	entries := costDays(base, 100, 75, 50, 25, 5)
	fc := ForecastCost(entries, now)

	assert.Equal(t, domain.TrendDecreasing, fc.Trend)
	for _, p := range fc.Points {
		assert.GreaterOrEqual(t, p.Amount, 0.0)
	}
}

func TestLinearFit_ZeroVariance(t *testing.T) {
	slope, intercept, r2 := linearFit([]float64{5, 5, 5, 5})

	assert.Zero(t, slope)
	assert.InDelta(t, 5.0, intercept, 1e-9)
	// Нулевая дисперсия y: фит считается идеальным
	assert.InDelta(t, 1.0, r2, 1e-9)
}
