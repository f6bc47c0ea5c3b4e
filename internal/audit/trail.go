package audit

/*
Файл trail.go реализует журнал изменений (Audit Trail) как неблокирующий
батчер: события из горячего пути (CRUD правил, подтверждения алертов)
уходят в буферизованный канал, воркер пишет их в хранилище пачками по
таймеру или при наборе лимита. При остановке сервиса буфер вычитывается
до конца (Drain Pattern), поэтому перезапуск не теряет события.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// StorageInterface определяет, куда физически будут сохраняться события
type StorageInterface interface {
	// WriteBatch сохраняет пачку событий за один раз
	WriteBatch(ctx context.Context, events []ChangeEvent) error
}

// NullStorage — memory-only режим: события только логируются
type NullStorage struct{}

func (NullStorage) WriteBatch(context.Context, []ChangeEvent) error { return nil }

type Trail struct {
	ch     chan ChangeEvent
	repo   StorageInterface
	logger *zap.Logger
	wg     sync.WaitGroup

	flushInterval time.Duration
	// Атомарный флаг (0 - открыт, 1 - закрыт): защита от Log после остановки
	isClosed int32
}

func NewTrail(repo StorageInterface, logger *zap.Logger, bufferSize int, flushInterval time.Duration) *Trail {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if flushInterval <= 0 {
		flushInterval = 500 * time.Millisecond
	}
	return &Trail{
		ch:            make(chan ChangeEvent, bufferSize),
		repo:          repo,
		logger:        logger.With(zap.String("mod", "audit")),
		flushInterval: flushInterval,
	}
}

func (t *Trail) Start() {
	t.wg.Add(1)
	go t.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет.
func (t *Trail) Stop() {
	atomic.StoreInt32(&t.isClosed, 1)

	// Крошечная пауза, чтобы текущие Log успели проскочить
	time.Sleep(10 * time.Millisecond)

	t.logger.Info("stopping audit trail: closing channel and flushing buffer...")
	close(t.ch)
	t.wg.Wait()
	t.logger.Info("audit trail stopped gracefully")
}

// Fill — текущая заполненность буфера (для метрик)
func (t *Trail) Fill() int { return len(t.ch) }

func (t *Trail) Log(event ChangeEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if atomic.LoadInt32(&t.isClosed) == 1 {
		t.logger.Warn("audit event dropped: trail is stopping", zap.String("id", event.ID))
		return
	}

	// Load Shedding: переполненный буфер не блокирует горячий путь
	select {
	case t.ch <- event:
	default:
		t.logger.Error("audit_buffer_overflow",
			zap.String("actor", event.Actor),
			zap.String("action", event.Action),
		)
	}
}

func (t *Trail) worker() {
	defer t.wg.Done()

	batch := make([]ChangeEvent, 0, 100)
	ticker := time.NewTicker(t.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст к этому моменту может быть закрыт
		if err := t.repo.WriteBatch(context.Background(), batch); err != nil {
			t.logger.Error("audit flush failed", zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-t.ch:
			if !ok {
				// Final Flush при остановке
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
