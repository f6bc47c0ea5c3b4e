package engine

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/catalog"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

// FleetAPI — все, что монитор хочет от каталога флота
type FleetAPI interface {
	ListServices(ctx context.Context, groupIDs []string) ([]domain.Service, error)
	FetchMetrics(ctx context.Context, serviceID, groupID string) (*domain.MetricSample, error)
	FetchUsage(ctx context.Context, groupID string) ([]domain.CostEntry, error)
	FetchDeployments(ctx context.Context, serviceID string, limit int) ([]domain.Deployment, error)
}

// ReliabilityConfig — параметры защитных механизмов
type ReliabilityConfig struct {
	FailureThreshold uint32        // Сколько последовательных сбоев размыкают предохранитель
	ResetTimeout     time.Duration // Через сколько предохранитель полуоткрывается
	Attempts         int           // Попыток на один вызов
}

func DefaultReliabilityConfig() ReliabilityConfig {
	return ReliabilityConfig{FailureThreshold: 25, ResetTimeout: 60 * time.Second, Attempts: 3}
}

// ReliabilityWrapper оборачивает FleetAPI ретраями, предохранителем и
// лимитером. Счетчик сбоев общий для всех вызовов: каталог деградирует
// целиком, а не по эндпоинтам. Успешный вызов сбрасывает счетчик.
type ReliabilityWrapper struct {
	next    FleetAPI
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	cfg     ReliabilityConfig
}

func NewReliabilityWrapper(next FleetAPI, cfg ReliabilityConfig) *ReliabilityWrapper {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "fleet-catalog",
		// Полуоткрытое состояние: одна пробная попытка; успех закрывает
		MaxRequests: 1,
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	})

	// Щадящий лимит на внешний API (не зависит от предохранителя)
	limiter := rate.NewLimiter(rate.Limit(20), 10)

	return &ReliabilityWrapper{next: next, cb: cb, limiter: limiter, cfg: cfg}
}

// Open сообщает, разомкнут ли предохранитель (для диагностики и метрик)
func (w *ReliabilityWrapper) Open() bool {
	return w.cb.State() == gobreaker.StateOpen
}

func (w *ReliabilityWrapper) ListServices(ctx context.Context, groupIDs []string) ([]domain.Service, error) {
	return execute(ctx, w, func(ctx context.Context) ([]domain.Service, error) {
		return w.next.ListServices(ctx, groupIDs)
	})
}

func (w *ReliabilityWrapper) FetchMetrics(ctx context.Context, serviceID, groupID string) (*domain.MetricSample, error) {
	return execute(ctx, w, func(ctx context.Context) (*domain.MetricSample, error) {
		return w.next.FetchMetrics(ctx, serviceID, groupID)
	})
}

func (w *ReliabilityWrapper) FetchUsage(ctx context.Context, groupID string) ([]domain.CostEntry, error) {
	return execute(ctx, w, func(ctx context.Context) ([]domain.CostEntry, error) {
		return w.next.FetchUsage(ctx, groupID)
	})
}

func (w *ReliabilityWrapper) FetchDeployments(ctx context.Context, serviceID string, limit int) ([]domain.Deployment, error) {
	return execute(ctx, w, func(ctx context.Context) ([]domain.Deployment, error) {
		return w.next.FetchDeployments(ctx, serviceID, limit)
	})
}

// execute — общий конвейер: rate limiter -> circuit breaker -> retries.
// Разомкнутый предохранитель превращается в ErrCircuitOpen до любой попытки.
func execute[T any](ctx context.Context, w *ReliabilityWrapper, call func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := w.limiter.Wait(ctx); err != nil {
		return zero, err
	}

	result, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(uint(w.cfg.Attempts)),
			// Линейный бэкофф attempt*1s; троттлинг каталога уважаем как есть
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				var tErr *catalog.ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}
				return time.Duration(n+1) * time.Second
			}),
		)

		var out T
		retryErr := r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
			defer cancel()

			var callErr error
			out, callErr = call(tCtx)
			return callErr
		})
		return out, retryErr
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, domain.ErrCircuitOpen
		}
		return zero, err
	}
	return result.(T), nil
}
