package analytics

import (
	"sort"
	"time"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

// Интервал опроса, которым оцениваем длительность простоя: одна неуспешная
// проба ~= 5 минут даунтайма. Оценка, не измерение.
const assumedProbeInterval = 5 * time.Minute

// ComputeSLA — чистая функция: история проб -> записи по четырем фиксированным
// окнам. Окно без проб дает нулевую запись, а не ошибку и не NaN.
func ComputeSLA(serviceID string, probes []domain.HealthProbe, now time.Time) []domain.SLARecord {
	records := make([]domain.SLARecord, 0, len(domain.SLAPeriods))
	for _, period := range domain.SLAPeriods {
		start := now.Add(-period.Duration())
		rec := domain.SLARecord{
			ServiceID:   serviceID,
			Period:      period,
			WindowStart: start,
			WindowEnd:   now,
		}

		var latencies []int64
		var latencySum int64
		for _, p := range probes {
			if p.ServiceID != serviceID || p.Timestamp.Before(start) {
				continue
			}
			rec.TotalProbes++
			if p.OK {
				rec.SuccessfulProbes++
			}
			latencies = append(latencies, p.LatencyMs)
			latencySum += p.LatencyMs
		}

		if rec.TotalProbes > 0 {
			rec.UptimePercent = float64(rec.SuccessfulProbes) / float64(rec.TotalProbes) * 100
			rec.AvgLatencyMs = float64(latencySum) / float64(rec.TotalProbes)

			sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
			rec.P95LatencyMs = percentile(latencies, 95)
			rec.P99LatencyMs = percentile(latencies, 99)
			rec.MaxLatencyMs = latencies[len(latencies)-1]

			failed := rec.TotalProbes - rec.SuccessfulProbes
			rec.OutageMinutes = float64(failed) * assumedProbeInterval.Minutes()
		}

		records = append(records, rec)
	}
	return records
}

// percentile берет значение по индексу ceil(p/100 * n) - 1 в отсортированном
// по возрастанию ряду, с зажимом в допустимые границы.
func percentile(sorted []int64, p int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p*len(sorted) + 99) / 100 // ceil(p/100 * n)
	idx--
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
