package catalog

import (
	"context"
	"fmt"
	"math/rand/v2" // Используем v2 для Go 1.25
	"time"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

// MockCatalog имитирует каталог флота для локальной разработки и тестов:
// два стабильных сервиса и один "дрожащий" (иногда отдает ошибку).
type MockCatalog struct{}

func (m *MockCatalog) ListServices(ctx context.Context, groupIDs []string) ([]domain.Service, error) {
	var out []domain.Service
	for _, gid := range groupIDs {
		out = append(out,
			domain.Service{ID: "svc-api", Name: "api", GroupID: gid, Status: domain.ServiceActive, URL: "http://localhost:3001"},
			domain.Service{ID: "svc-worker", Name: "worker", GroupID: gid, Status: domain.ServiceActive, URL: "http://localhost:3002"},
			domain.Service{ID: "svc-flaky", Name: "flaky", GroupID: gid, Status: domain.ServiceCrashed, URL: "http://localhost:3003"},
		)
	}
	return out, nil
}

func (m *MockCatalog) FetchMetrics(ctx context.Context, serviceID, groupID string) (*domain.MetricSample, error) {
	// Имитируем задержку 50-300мс
	latency := time.Duration(50+rand.IntN(250)) * time.Millisecond
	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if serviceID == "svc-flaky" && rand.IntN(3) == 0 {
		return nil, fmt.Errorf("mock: metrics backend error: %w", domain.ErrExternalUnavailable)
	}

	return &domain.MetricSample{
		Timestamp: time.Now().UTC(),
		ServiceID: serviceID,
		GroupID:   groupID,
		CPU:       20 + rand.Float64()*60,
		Memory:    30 + rand.Float64()*50,
		NetworkRx: rand.Float64() * 1e6,
		NetworkTx: rand.Float64() * 1e6,
	}, nil
}

func (m *MockCatalog) FetchUsage(ctx context.Context, groupID string) ([]domain.CostEntry, error) {
	now := time.Now().UTC()
	entries := make([]domain.CostEntry, 0, 14)
	for i := 13; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		entries = append(entries, domain.CostEntry{
			Date:      day.Format("2006-01-02"),
			GroupID:   groupID,
			ServiceID: "svc-api",
			Amount:    10 + rand.Float64()*2,
			FetchedAt: now,
		})
	}
	return entries, nil
}

func (m *MockCatalog) FetchDeployments(ctx context.Context, serviceID string, limit int) ([]domain.Deployment, error) {
	return []domain.Deployment{
		{ID: "dep-1", ServiceID: serviceID, Status: "success", CreatedAt: time.Now().Add(-2 * time.Hour)},
	}, nil
}
