package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

// ForecastCost строит прогноз расходов: обычный МНК по дневным суммам
// против индекса дня. Одна точка дает плоский прогноз (slope=0, R²=0);
// прогнозные значения зажимаются снизу нулем.
func ForecastCost(entries []domain.CostEntry, now time.Time) domain.CostForecast {
	byDate := make(map[string]float64)
	for _, e := range entries {
		byDate[e.Date] += e.Amount
	}
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	fc := domain.CostForecast{
		Trend:       domain.TrendStable,
		GeneratedAt: now,
	}
	if len(dates) == 0 {
		return fc
	}

	ys := make([]float64, len(dates))
	for i, d := range dates {
		ys[i] = byDate[d]
	}

	fc.Slope, fc.Intercept, fc.RSquared = linearFit(ys)
	fc.Confidence = int(math.Round(math.Max(0, fc.RSquared) * 100))

	// Классификация тренда относительно текущего дневного расхода
	currentDaily := ys[len(ys)-1]
	switch {
	case currentDaily > 0 && fc.Slope > 0.01*currentDaily:
		fc.Trend = domain.TrendIncreasing
	case currentDaily > 0 && fc.Slope < -0.01*currentDaily:
		fc.Trend = domain.TrendDecreasing
	}

	// Факт
	for i, d := range dates {
		fc.Points = append(fc.Points, domain.CostPoint{Date: d, Amount: ys[i], Projected: false})
	}

	// Прогноз на 30 дней вперед от последней известной даты
	lastDay, err := time.Parse("2006-01-02", dates[len(dates)-1])
	if err != nil {
		lastDay = now
	}
	n := float64(len(ys))
	for i := 1; i <= 30; i++ {
		predicted := math.Max(0, fc.Intercept+fc.Slope*(n-1+float64(i)))
		fc.Points = append(fc.Points, domain.CostPoint{
			Date:      lastDay.AddDate(0, 0, i).Format("2006-01-02"),
			Amount:    predicted,
			Projected: true,
		})
		if i <= 7 {
			fc.Predicted7Day += predicted
		}
		fc.Predicted30Day += predicted
	}

	return fc
}

// linearFit — МНК y = a + b*x по индексам x = 0..n-1.
// Менее двух точек или вырожденный (нулевая дисперсия) x дают slope 0.
func linearFit(ys []float64) (slope, intercept, r2 float64) {
	n := float64(len(ys))
	if len(ys) < 2 {
		if len(ys) == 1 {
			intercept = ys[0]
		}
		return 0, intercept, 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n

	// R² = 1 - SSres/SStot; при нулевой дисперсии y считаем фит идеальным
	meanY := sumY / n
	var ssTot, ssRes float64
	for i, y := range ys {
		fit := intercept + slope*float64(i)
		ssTot += (y - meanY) * (y - meanY)
		ssRes += (y - fit) * (y - fit)
	}
	if ssTot == 0 {
		return slope, intercept, 1
	}
	return slope, intercept, 1 - ssRes/ssTot
}
