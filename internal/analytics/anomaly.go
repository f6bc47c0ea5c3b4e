package analytics

/*
Файл anomaly.go — три независимых детектора аномалий. Все три — чистые
функции над неизменяемой историей: не мутируют вход и не имеют состояния
между вызовами. Девиация пишется в разных единицах: z-score для
статистического детектора, процент изменения для трендового и стоимостного.
*/

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

const (
	// Минимум сэмплов в скользящем окне 24ч для статистического детектора
	statMinSamples = 10
	// Порог z-score
	statZThreshold = 2.0

	// Трендовый детектор: сколько последних сэмплов смотрим
	trendTailLen = 4
	// Порог прироста между соседними сэмплами
	trendStepThreshold = 0.2
	// Сколько подряд идущих приростов считаем трендом
	trendRequiredSteps = 3

	// Минимум различных дат для детектора стоимости
	costMinDays = 8
	// Порог скачка против среднего за предыдущие 7 дней
	costJumpThreshold = 0.15
)

// DetectStatistical ищет выбросы по z-score. Берет сэмплы сервиса за
// скользящие 24 часа; при менее чем 10 сэмплах молчит независимо от разброса.
// Текущим значением считается последний сэмпл.
func DetectStatistical(serviceID string, samples []domain.MetricSample, now time.Time) []domain.Anomaly {
	cutoff := now.Add(-24 * time.Hour)
	var window []domain.MetricSample
	for _, s := range samples {
		if s.ServiceID == serviceID && !s.Timestamp.Before(cutoff) {
			window = append(window, s)
		}
	}
	if len(window) < statMinSamples {
		return nil
	}

	current := window[len(window)-1]
	var out []domain.Anomaly
	for metric, pick := range metricAccessors {
		values := make([]float64, len(window))
		for i, s := range window {
			values[i] = pick(s)
		}
		mean, sd := meanStdDev(values)
		if sd == 0 {
			continue
		}
		z := math.Abs(pick(current)-mean) / sd
		if z > statZThreshold {
			out = append(out, domain.Anomaly{
				ID:            uuid.New().String(),
				Timestamp:     now,
				ServiceID:     serviceID,
				Metric:        metric,
				ObservedValue: pick(current),
				ExpectedValue: mean,
				Deviation:     z,
				Kind:          domain.AnomalyStatistical,
			})
		}
	}
	return out
}

// DetectTrend ловит устойчивый рост: в последних 4 сэмплах три подряд
// прироста более 20% между соседями. Девиация — процент изменения от
// первого к последнему сэмплу четверки.
func DetectTrend(serviceID string, samples []domain.MetricSample, now time.Time) []domain.Anomaly {
	var own []domain.MetricSample
	for _, s := range samples {
		if s.ServiceID == serviceID {
			own = append(own, s)
		}
	}
	if len(own) < trendTailLen {
		return nil
	}
	tail := own[len(own)-trendTailLen:]

	var out []domain.Anomaly
	for metric, pick := range metricAccessors {
		steps := 0
		for i := 1; i < len(tail); i++ {
			prev, next := pick(tail[i-1]), pick(tail[i])
			if prev > 0 && (next-prev)/prev > trendStepThreshold {
				steps++
			} else {
				steps = 0
			}
		}
		if steps < trendRequiredSteps {
			continue
		}
		first, last := pick(tail[0]), pick(tail[len(tail)-1])
		if first == 0 {
			continue
		}
		out = append(out, domain.Anomaly{
			ID:            uuid.New().String(),
			Timestamp:     now,
			ServiceID:     serviceID,
			Metric:        metric,
			ObservedValue: last,
			ExpectedValue: first,
			Deviation:     (last - first) / first * 100,
			Kind:          domain.AnomalyTrend,
		})
	}
	return out
}

// DetectCostAnomaly сравнивает сумму последнего дня со средним за
// предыдущие 7 дней. Нужно минимум 8 различных дат, иначе молчим.
func DetectCostAnomaly(groupID string, entries []domain.CostEntry, now time.Time) *domain.Anomaly {
	byDate := make(map[string]float64)
	for _, e := range entries {
		byDate[e.Date] += e.Amount
	}
	if len(byDate) < costMinDays {
		return nil
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	latest := dates[len(dates)-1]
	prior := dates[len(dates)-costMinDays : len(dates)-1] // 7 дней перед последним

	var sum float64
	for _, d := range prior {
		sum += byDate[d]
	}
	avg := sum / float64(len(prior))
	if avg <= 0 {
		return nil
	}

	jump := (byDate[latest] - avg) / avg
	if jump <= costJumpThreshold {
		return nil
	}
	return &domain.Anomaly{
		ID:            uuid.New().String(),
		Timestamp:     now,
		ServiceID:     groupID,
		Metric:        fmt.Sprintf("daily_cost:%s", latest),
		ObservedValue: byDate[latest],
		ExpectedValue: avg,
		Deviation:     jump * 100,
		Kind:          domain.AnomalyCost,
	}
}
