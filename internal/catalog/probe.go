package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

// Prober опрашивает health-эндпоинты сервисов. Отдельный код-путь от
// каталога: пробы идут напрямую в сервис, мимо предохранителя, и никогда
// не возвращают ошибку — любой сбой превращается в OK=false с латентностью.
type Prober struct {
	http *http.Client
}

func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Prober{http: &http.Client{Timeout: timeout}}
}

// Тело ответа /health; все поля опциональны
type healthDTO struct {
	Version      string  `json:"version"`
	UptimeSec    int64   `json:"uptimeSec"`
	MemoryMb     float64 `json:"memoryMb"`
	RequestCount int64   `json:"requestCount"`
	ErrorRate    float64 `json:"errorRate"`
}

// ProbeHealth выполняет GET {serviceURL}/health.
// Не-JSON тело или не-2xx статус — это не ошибка, а OK=false.
func (p *Prober) ProbeHealth(ctx context.Context, serviceID, serviceURL string) domain.HealthProbe {
	probe := domain.HealthProbe{
		ServiceID: serviceID,
		Timestamp: time.Now().UTC(),
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serviceURL+"/health", nil)
	if err != nil {
		probe.LatencyMs = time.Since(start).Milliseconds()
		return probe
	}

	resp, err := p.http.Do(req)
	probe.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		return probe
	}
	defer resp.Body.Close()

	probe.StatusCode = resp.StatusCode
	probe.OK = resp.StatusCode >= 200 && resp.StatusCode < 300

	// Тело — бонус, а не контракт. Битый JSON молча игнорируем.
	var body healthDTO
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		probe.Version = body.Version
		probe.UptimeSec = body.UptimeSec
		probe.MemoryMb = body.MemoryMb
		probe.RequestCount = body.RequestCount
		probe.ErrorRate = body.ErrorRate
	}

	return probe
}
