package domain

import "time"

type SLAPeriod string

const (
	SLAHour  SLAPeriod = "hour"
	SLADay   SLAPeriod = "day"
	SLAWeek  SLAPeriod = "week"
	SLAMonth SLAPeriod = "month"
)

// SLAPeriods — фиксированный набор окон, пересчитываемых каждый цикл
var SLAPeriods = []SLAPeriod{SLAHour, SLADay, SLAWeek, SLAMonth}

// Duration переводит период в длину ретроспективного окна
func (p SLAPeriod) Duration() time.Duration {
	switch p {
	case SLAHour:
		return time.Hour
	case SLADay:
		return 24 * time.Hour
	case SLAWeek:
		return 7 * 24 * time.Hour
	case SLAMonth:
		return 30 * 24 * time.Hour
	}
	return 0
}

// SLARecord — свежий агрегат по истории проб; не хранится как дельта,
// каждый цикл считается заново.
type SLARecord struct {
	ServiceID        string    `json:"service_id"`
	Period           SLAPeriod `json:"period"`
	WindowStart      time.Time `json:"window_start"`
	WindowEnd        time.Time `json:"window_end"`
	TotalProbes      int       `json:"total_probes"`
	SuccessfulProbes int       `json:"successful_probes"`
	UptimePercent    float64   `json:"uptime_percent"`
	AvgLatencyMs     float64   `json:"avg_latency_ms"`
	P95LatencyMs     int64     `json:"p95_latency_ms"`
	P99LatencyMs     int64     `json:"p99_latency_ms"`
	MaxLatencyMs     int64     `json:"max_latency_ms"`

	// Оценка: кол-во неуспешных проб * интервал опроса, а не измеренная длительность
	OutageMinutes float64 `json:"outage_minutes"`
}
