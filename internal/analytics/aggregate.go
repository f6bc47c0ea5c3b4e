package analytics

import (
	"math"
	"time"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

// Фиксированные окна агрегации
var AggregationWindows = map[string]time.Duration{
	"1h":  time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// Aggregate считает оконную статистику по каждой метрике сэмплов.
// Окна без сэмплов пропускаются. Входная история не мутируется.
func Aggregate(samples []domain.MetricSample, now time.Time) []domain.MetricStats {
	var out []domain.MetricStats
	for window, d := range AggregationWindows {
		cutoff := now.Add(-d)
		var inWindow []domain.MetricSample
		for _, s := range samples {
			if !s.Timestamp.Before(cutoff) {
				inWindow = append(inWindow, s)
			}
		}
		if len(inWindow) == 0 {
			continue
		}
		for metric, pick := range metricAccessors {
			values := make([]float64, len(inWindow))
			for i, s := range inWindow {
				values[i] = pick(s)
			}
			mean, sd := meanStdDev(values)
			out = append(out, domain.MetricStats{
				Metric: metric,
				Window: window,
				Count:  len(values),
				Mean:   mean,
				Min:    minOf(values),
				Max:    maxOf(values),
				StdDev: sd,
			})
		}
	}
	return out
}

var metricAccessors = map[string]func(domain.MetricSample) float64{
	"cpu":        func(s domain.MetricSample) float64 { return s.CPU },
	"memory":     func(s domain.MetricSample) float64 { return s.Memory },
	"network_rx": func(s domain.MetricSample) float64 { return s.NetworkRx },
	"network_tx": func(s domain.MetricSample) float64 { return s.NetworkTx },
}

func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
