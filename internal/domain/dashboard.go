package domain

import "time"

// InfrastructureSummary — агрегат для главного экрана дашборда
type InfrastructureSummary struct {
	Services       []Service `json:"services"`
	TotalServices  int       `json:"total_services"`
	ActiveServices int       `json:"active_services"`
	ActiveAlerts   int       `json:"active_alerts"`
	OpenIncidents  int       `json:"open_incidents"`
	LastPollAt     time.Time `json:"last_poll_at"` // Наблюдаемая "свежесть" данных
}

// MetricStats — mean/min/max/stddev одной метрики в одном окне агрегации
type MetricStats struct {
	Metric string  `json:"metric"`
	Window string  `json:"window"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

// ServiceDetail — карточка сервиса: текущее состояние плюс история
type ServiceDetail struct {
	Service     Service        `json:"service"`
	Samples     []MetricSample `json:"samples"`
	Probes      []HealthProbe  `json:"probes"`
	Stats       []MetricStats  `json:"stats"` // Оконная статистика по всей истории
	Deployments []Deployment   `json:"deployments"`
	Alerts      []Alert        `json:"alerts"`
	Anomalies   []Anomaly      `json:"anomalies"`
}

// PollError — элемент ограниченного кольцевого журнала ошибок цикла
type PollError struct {
	Timestamp time.Time `json:"timestamp"`
	ServiceID string    `json:"service_id,omitempty"`
	Step      string    `json:"step"` // services | metrics | probe | usage | persist
	Message   string    `json:"message"`
}

// SystemStatus — диагностика для /system/status: staleness наблюдаема,
// даже когда ошибки внутри цикла гасятся молча.
type SystemStatus struct {
	LastPollAt     time.Time   `json:"last_poll_at"`
	LastPollOK     bool        `json:"last_poll_ok"`
	CircuitOpen    bool        `json:"circuit_open"`
	StorageMode    string      `json:"storage_mode"` // durable | memory-only
	RecentErrors   []PollError `json:"recent_errors"`
	ServicesPolled int         `json:"services_polled"`
}
