package domain

import "time"

type ServiceStatus string

const (
	ServiceActive    ServiceStatus = "active"    // Работает, принимает трафик
	ServiceDeploying ServiceStatus = "deploying" // Идет выкатка
	ServiceBuilding  ServiceStatus = "building"  // Идет сборка
	ServiceCrashed   ServiceStatus = "crashed"   // Упал (рестарт-луп или OOM)
	ServiceRemoved   ServiceStatus = "removed"   // Пропал из каталога флота
	ServiceUnknown   ServiceStatus = "unknown"   // Каталог недоступен, состояние неизвестно
)

// Service — отслеживаемый сервис флота. Записи никогда не удаляются:
// если сервис пропал из каталога, он помечается removed/unknown.
type Service struct {
	ID      string        `json:"id"`       // ID сервиса в каталоге флота
	Name    string        `json:"name"`     // Человекочитаемое имя
	GroupID string        `json:"group_id"` // Проект/группа (например, окружение)
	Status  ServiceStatus `json:"status"`   // Текущее состояние

	URL          string    `json:"url,omitempty"`           // База для health-проб ({url}/health)
	LastDeployAt time.Time `json:"last_deploy_at"`          // Последняя выкатка
	UpdatedAt    time.Time `json:"updated_at"`              // Последнее обновление поллером

	// Текущие показатели (перезаписываются каждый цикл)
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	UptimePercent float64 `json:"uptime_percent"` // Производная от истории проб (окно 24ч)
}

// MetricSample — неизменяемая точка временного ряда. История append-only,
// хвост обрезается при превышении лимита хранения.
type MetricSample struct {
	Timestamp time.Time `json:"timestamp"`
	ServiceID string    `json:"service_id"`
	GroupID   string    `json:"group_id"`
	CPU       float64   `json:"cpu"`
	Memory    float64   `json:"memory"`
	NetworkRx float64   `json:"network_rx"`
	NetworkTx float64   `json:"network_tx"`
}

// HealthProbe — результат одной пробы /health. Проба никогда не является
// ошибкой: любой сбой превращается в OK=false.
type HealthProbe struct {
	ServiceID  string    `json:"service_id"`
	Timestamp  time.Time `json:"timestamp"`
	OK         bool      `json:"ok"`
	StatusCode int       `json:"status_code"`
	LatencyMs  int64     `json:"latency_ms"`

	// Опциональные поля из тела ответа (если сервис их отдает)
	Version      string  `json:"version,omitempty"`
	UptimeSec    int64   `json:"uptime_sec,omitempty"`
	MemoryMb     float64 `json:"memory_mb,omitempty"`
	RequestCount int64   `json:"request_count,omitempty"`
	ErrorRate    float64 `json:"error_rate,omitempty"`
}

type Deployment struct {
	ID        string    `json:"id"`
	ServiceID string    `json:"service_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	Meta      string    `json:"meta,omitempty"` // Коммит/образ, как отдает каталог
}
