package broadcast

/*
Файл broadcast.go — широковещание дельт снапшота через Redis Pub/Sub.

Публикация строго best-effort: недоставленный сигнал ничего не ломает,
потребитель при следующем опросе API увидит актуальный снапшот. Без Redis
(адрес не задан) используется NopPublisher.

Для внешних потребителей (дашборды в отдельных процессах) экспортирован
Listen — «живучая» подписка с переподключением.
*/

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/infra"
)

type Publisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewPublisher(rdb *redis.Client, logger *zap.Logger) *Publisher {
	return &Publisher{rdb: rdb, logger: logger.Named("broadcast")}
}

// StateChanged публикует сигнал "<kind>:<id>" в канал дельт
func (p *Publisher) StateChanged(ctx context.Context, kind, id string) {
	payload := kind
	if id != "" {
		payload = kind + ":" + id
	}
	if err := p.rdb.Publish(ctx, infra.RedisChanStateChanged, payload).Err(); err != nil {
		p.logger.Warn("state change broadcast failed", zap.Error(err))
	}
}

// RuleChanged публикует ID измененного правила в выделенный канал:
// подписчики перечитывают конфигурацию правил, не дергая весь снапшот
func (p *Publisher) RuleChanged(ctx context.Context, id string) {
	if err := p.rdb.Publish(ctx, infra.RedisChanRuleUpdate, id).Err(); err != nil {
		p.logger.Warn("rule change broadcast failed", zap.Error(err))
	}
}

// NopPublisher — работа без Redis
type NopPublisher struct{}

func (NopPublisher) StateChanged(context.Context, string, string) {}

func (NopPublisher) RuleChanged(context.Context, string) {}

// Listen — универсальный цикл для "живучей" подписки на сигналы дельт.
// Обрабатывает переподключения, логирование и разбор сигналов.
func Listen(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	channel string,
	onReconnect func() error, // Callback для синхронизации при переподключении
	onSignal func(kind, id string), // Callback для обработки сигнала
) {
	for {
		pubsub := rdb.Subscribe(ctx, channel)

		// Проверка успешности подписки
		if _, err := pubsub.Receive(ctx); err != nil {
			logger.Error("failed to subscribe", zap.String("chan", channel), zap.Error(err))
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		// Синхронизация при каждом успешном коннекте
		if onReconnect != nil {
			if err := onReconnect(); err != nil {
				logger.Error("sync failed on reconnect", zap.Error(err))
			}
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}

				// Формат "kind" либо "kind:id"
				kind, id, _ := strings.Cut(msg.Payload, ":")
				onSignal(kind, id)
			}
		}

		pubsub.Close()
		time.Sleep(time.Second)
	}
}
