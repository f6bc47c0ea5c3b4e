package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

// flakyAPI отдает заранее заготовленную последовательность ответов
type flakyAPI struct {
	errs  []error // очередь ошибок; nil означает успех
	calls int
}

func (f *flakyAPI) next() error {
	if f.calls < len(f.errs) {
		err := f.errs[f.calls]
		f.calls++
		return err
	}
	f.calls++
	return nil
}

func (f *flakyAPI) ListServices(ctx context.Context, groupIDs []string) ([]domain.Service, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return []domain.Service{{ID: "svc-1", Name: "api", Status: domain.ServiceActive}}, nil
}

func (f *flakyAPI) FetchMetrics(ctx context.Context, serviceID, groupID string) (*domain.MetricSample, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return &domain.MetricSample{ServiceID: serviceID, CPU: 10}, nil
}

func (f *flakyAPI) FetchUsage(ctx context.Context, groupID string) ([]domain.CostEntry, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *flakyAPI) FetchDeployments(ctx context.Context, serviceID string, limit int) ([]domain.Deployment, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return nil, nil
}

func failN(n int) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = errors.New("catalog down")
	}
	return errs
}

func TestReliabilityWrapper_TripsAfterConsecutiveFailures(t *testing.T) {
	api := &flakyAPI{errs: failN(100)}
	w := NewReliabilityWrapper(api, ReliabilityConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
		Attempts:         1,
	})

	ctx := context.Background()

	_, err := w.ListServices(ctx, nil)
	require.Error(t, err)
	assert.False(t, w.Open())

	_, err = w.ListServices(ctx, nil)
	require.Error(t, err)
	assert.True(t, w.Open())

	// Разомкнутый предохранитель отвечает без похода в каталог
	callsBefore := api.calls
	_, err = w.ListServices(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.Equal(t, callsBefore, api.calls)
}

func TestReliabilityWrapper_SuccessResetsCounter(t *testing.T) {
	// Фейл, успех, фейл: счетчик последовательных сбоев не накапливается
	api := &flakyAPI{errs: []error{errors.New("boom"), nil, errors.New("boom")}}
	w := NewReliabilityWrapper(api, ReliabilityConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
		Attempts:         1,
	})

	ctx := context.Background()

	_, err := w.ListServices(ctx, nil)
	require.Error(t, err)

	_, err = w.ListServices(ctx, nil)
	require.NoError(t, err)

	_, err = w.ListServices(ctx, nil)
	require.Error(t, err)
	assert.False(t, w.Open())
}

func TestReliabilityWrapper_HalfOpenRecovery(t *testing.T) {
	api := &flakyAPI{errs: failN(2)}
	w := NewReliabilityWrapper(api, ReliabilityConfig{
		FailureThreshold: 2,
		ResetTimeout:     50 * time.Millisecond,
		Attempts:         1,
	})

	ctx := context.Background()

	_, _ = w.ListServices(ctx, nil)
	_, _ = w.ListServices(ctx, nil)
	require.True(t, w.Open())

	// До истечения паузы вызовы отбиваются без похода в каталог
	_, err := w.ListServices(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.Equal(t, 2, api.calls)

	// После паузы предохранитель полуоткрывается: пробный вызов доходит
	// до каталога, успех замыкает цепь обратно
	time.Sleep(80 * time.Millisecond)

	services, err := w.ListServices(ctx, nil)
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, 3, api.calls)
	assert.False(t, w.Open())
}

func TestReliabilityWrapper_RetriesWithinOneCall(t *testing.T) {
	// Два сбоя, затем успех: ретраи скрывают временный сбой от вызывающего
	api := &flakyAPI{errs: failN(2)}
	w := NewReliabilityWrapper(api, ReliabilityConfig{
		FailureThreshold: 25,
		ResetTimeout:     time.Hour,
		Attempts:         3,
	})

	services, err := w.ListServices(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, 3, api.calls)
}
