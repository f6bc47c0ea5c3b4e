package domain

import "time"

type AnomalyKind string

const (
	AnomalyStatistical AnomalyKind = "statistical" // Выброс по z-score от скользящего среднего
	AnomalyTrend       AnomalyKind = "trend"       // Устойчивый рост подряд идущих замеров
	AnomalyCost        AnomalyKind = "cost"        // Скачок дневной стоимости против недельного среднего
)

// Anomaly — неизменяемый факт отклонения. Список append-only с ограниченной
// глубиной хранения.
type Anomaly struct {
	ID            string      `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	ServiceID     string      `json:"service_id"`
	Metric        string      `json:"metric"`
	ObservedValue float64     `json:"observed_value"`
	ExpectedValue float64     `json:"expected_value"`
	Deviation     float64     `json:"deviation"` // z-score либо процент изменения, по виду аномалии
	Kind          AnomalyKind `json:"kind"`
}
