package catalog

/*
Файл client.go — HTTP-адаптер к внешнему API управления флотом.
Адаптер ничего не знает про ретраи и предохранитель: этим занимается
ReliabilityWrapper в пакете engine. Здесь только перевод REST-ответов
в доменные структуры и классификация ошибок (сеть/5xx vs троттлинг).
*/

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
}

// NewClient создает адаптер каталога. Токен уходит в Authorization каждого запроса.
func NewClient(baseURL, apiToken string) *Client {
	return &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		// Защитный таймаут уровня адаптера. Даже если обертка надежности
		// имеет свой, адаптер должен иметь свой предел.
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// Формат сервиса, как его отдает каталог
type serviceDTO struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ProjectID    string    `json:"projectId"`
	Status       string    `json:"status"`
	URL          string    `json:"url"`
	LastDeployAt time.Time `json:"lastDeployAt"`
}

// ListServices возвращает сервисы перечисленных групп
func (c *Client) ListServices(ctx context.Context, groupIDs []string) ([]domain.Service, error) {
	var out []domain.Service
	for _, gid := range groupIDs {
		var dtos []serviceDTO
		if err := c.getJSON(ctx, "/v1/projects/"+url.PathEscape(gid)+"/services", nil, &dtos); err != nil {
			return nil, err
		}
		for _, d := range dtos {
			out = append(out, domain.Service{
				ID:           d.ID,
				Name:         d.Name,
				GroupID:      gid,
				Status:       normalizeStatus(d.Status),
				URL:          d.URL,
				LastDeployAt: d.LastDeployAt,
			})
		}
	}
	return out, nil
}

type metricsDTO struct {
	CPU       float64 `json:"cpu"`
	Memory    float64 `json:"memory"`
	NetworkRx float64 `json:"networkRx"`
	NetworkTx float64 `json:"networkTx"`
}

// FetchMetrics возвращает свежий замер сервиса либо nil, если каталог
// не имеет данных (204).
func (c *Client) FetchMetrics(ctx context.Context, serviceID, groupID string) (*domain.MetricSample, error) {
	var dto metricsDTO
	found, err := c.getJSONOptional(ctx, "/v1/services/"+url.PathEscape(serviceID)+"/metrics", &dto)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &domain.MetricSample{
		Timestamp: time.Now().UTC(),
		ServiceID: serviceID,
		GroupID:   groupID,
		CPU:       dto.CPU,
		Memory:    dto.Memory,
		NetworkRx: dto.NetworkRx,
		NetworkTx: dto.NetworkTx,
	}, nil
}

type usageDTO struct {
	Date      string  `json:"date"`
	ServiceID string  `json:"serviceId"`
	Amount    float64 `json:"amount"`
}

// FetchUsage возвращает дневную стоимость по группе
func (c *Client) FetchUsage(ctx context.Context, groupID string) ([]domain.CostEntry, error) {
	var dtos []usageDTO
	if err := c.getJSON(ctx, "/v1/projects/"+url.PathEscape(groupID)+"/usage", nil, &dtos); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	entries := make([]domain.CostEntry, 0, len(dtos))
	for _, d := range dtos {
		entries = append(entries, domain.CostEntry{
			Date:      d.Date,
			GroupID:   groupID,
			ServiceID: d.ServiceID,
			Amount:    d.Amount,
			FetchedAt: now,
		})
	}
	return entries, nil
}

// FetchDeployments возвращает последние выкатки сервиса
func (c *Client) FetchDeployments(ctx context.Context, serviceID string, limit int) ([]domain.Deployment, error) {
	q := url.Values{"limit": []string{strconv.Itoa(limit)}}
	var deps []domain.Deployment
	if err := c.getJSON(ctx, "/v1/services/"+url.PathEscape(serviceID)+"/deployments", q, &deps); err != nil {
		return nil, err
	}
	return deps, nil
}

// getJSON выполняет GET и декодирует тело. Ошибки классифицируются:
// 429 -> ThrottleError, остальное -> обернутый ErrExternalUnavailable.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, dst interface{}) error {
	found, err := c.do(ctx, path, q, dst)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("catalog: GET %s: unexpected empty response: %w", path, domain.ErrExternalUnavailable)
	}
	return nil
}

// getJSONOptional — как getJSON, но 204/404 означает "данных нет", а не ошибку
func (c *Client) getJSONOptional(ctx context.Context, path string, dst interface{}) (bool, error) {
	return c.do(ctx, path, nil, dst)
}

func (c *Client) do(ctx context.Context, path string, q url.Values, dst interface{}) (bool, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("catalog: GET %s: %v: %w", path, err, domain.ErrExternalUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return false, &ThrottleError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Cause:      domain.ErrExternalUnavailable,
		}
	case resp.StatusCode >= 300:
		return false, fmt.Errorf("catalog: GET %s: status %d: %w", path, resp.StatusCode, domain.ErrExternalUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return false, fmt.Errorf("catalog: decode %s: %v: %w", path, err, domain.ErrExternalUnavailable)
	}
	return true, nil
}

func parseRetryAfter(header string) time.Duration {
	if sec, err := strconv.Atoi(header); err == nil && sec > 0 {
		return time.Duration(sec) * time.Second
	}
	return 5 * time.Second
}

// normalizeStatus приводит статус каталога к доменному enum
func normalizeStatus(s string) domain.ServiceStatus {
	switch domain.ServiceStatus(s) {
	case domain.ServiceActive, domain.ServiceDeploying, domain.ServiceBuilding,
		domain.ServiceCrashed, domain.ServiceRemoved:
		return domain.ServiceStatus(s)
	default:
		return domain.ServiceUnknown
	}
}
