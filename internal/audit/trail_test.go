package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// captureStorage собирает записанные пачки
type captureStorage struct {
	mu      sync.Mutex
	batches [][]ChangeEvent
}

func (c *captureStorage) WriteBatch(_ context.Context, events []ChangeEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch := append([]ChangeEvent(nil), events...)
	c.batches = append(c.batches, batch)
	return nil
}

func (c *captureStorage) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

func TestTrail_FlushesOnStop(t *testing.T) {
	repo := &captureStorage{}
	trail := NewTrail(repo, zap.NewNop(), 100, time.Hour) // тикер не успеет сработать
	trail.Start()

	for i := 0; i < 5; i++ {
		trail.Log(ChangeEvent{ID: "e", Actor: "tester", Action: ActionRuleCreate})
	}
	trail.Stop()

	// Drain при остановке дописывает все из буфера
	assert.Equal(t, 5, repo.total())
}

func TestTrail_SetsTimestamp(t *testing.T) {
	repo := &captureStorage{}
	trail := NewTrail(repo, zap.NewNop(), 10, time.Hour)
	trail.Start()

	trail.Log(ChangeEvent{ID: "e-1", Actor: "tester", Action: ActionAlertAcknowledge})
	trail.Stop()

	require.Equal(t, 1, repo.total())
	assert.False(t, repo.batches[0][0].Timestamp.IsZero())
}

func TestTrail_DropsAfterStop(t *testing.T) {
	repo := &captureStorage{}
	trail := NewTrail(repo, zap.NewNop(), 10, time.Hour)
	trail.Start()
	trail.Stop()

	// Log после остановки не паникует и не пишет
	trail.Log(ChangeEvent{ID: "late", Actor: "tester", Action: ActionRuleDelete})
	assert.Zero(t, repo.total())
}

func TestTrail_PeriodicFlush(t *testing.T) {
	repo := &captureStorage{}
	trail := NewTrail(repo, zap.NewNop(), 100, 20*time.Millisecond)
	trail.Start()
	defer trail.Stop()

	trail.Log(ChangeEvent{ID: "e-1", Actor: "tester", Action: ActionRuleUpdate})

	require.Eventually(t, func() bool { return repo.total() == 1 }, time.Second, 10*time.Millisecond)
}
