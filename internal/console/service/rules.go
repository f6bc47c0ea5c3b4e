package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/audit"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/engine"
)

// RuleService — CRUD правил алертинга. Порядок всегда одинаковый:
// валидация -> снапшот -> аудит -> best-effort хранилище -> сигнал.
// Валидация стоит первой: битое правило не должно мутировать ничего.
type RuleService struct {
	state   *engine.State
	storage engine.Storage
	trail   *audit.Trail
	notify  engine.Broadcaster
	logger  *zap.Logger
	now     func() time.Time
}

func NewRuleService(state *engine.State, storage engine.Storage, trail *audit.Trail, notify engine.Broadcaster, logger *zap.Logger) *RuleService {
	return &RuleService{
		state:   state,
		storage: storage,
		trail:   trail,
		notify:  notify,
		logger:  logger.Named("rule-service"),
		now:     time.Now,
	}
}

func (s *RuleService) List() []domain.AlertRule {
	return s.state.Rules()
}

func (s *RuleService) Get(id string) (domain.AlertRule, error) {
	return s.state.Rule(id)
}

func (s *RuleService) Create(ctx context.Context, actor string, rule domain.AlertRule) (domain.AlertRule, error) {
	if err := rule.Validate(); err != nil {
		return domain.AlertRule{}, err
	}

	now := s.now()
	rule.ID = uuid.New().String()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	s.state.UpsertRule(rule)
	s.audit(actor, audit.ActionRuleCreate, rule.ID, nil, rule)

	if err := s.storage.UpsertRule(ctx, rule); err != nil {
		s.logger.Warn("persist rule failed", zap.String("rule", rule.ID), zap.Error(err))
	}
	s.notifyUpdate(ctx, rule.ID)
	return rule, nil
}

func (s *RuleService) Update(ctx context.Context, actor, id string, rule domain.AlertRule) (domain.AlertRule, error) {
	if err := rule.Validate(); err != nil {
		return domain.AlertRule{}, err
	}

	old, err := s.state.Rule(id)
	if err != nil {
		return domain.AlertRule{}, err
	}

	rule.ID = id
	rule.CreatedAt = old.CreatedAt
	rule.UpdatedAt = s.now()

	s.state.UpsertRule(rule)
	s.audit(actor, audit.ActionRuleUpdate, id, old, rule)

	if err := s.storage.UpsertRule(ctx, rule); err != nil {
		s.logger.Warn("persist rule failed", zap.String("rule", id), zap.Error(err))
	}
	s.notifyUpdate(ctx, id)
	return rule, nil
}

func (s *RuleService) Delete(ctx context.Context, actor, id string) error {
	old, err := s.state.DeleteRule(id)
	if err != nil {
		return err
	}
	s.audit(actor, audit.ActionRuleDelete, id, old, nil)

	if err := s.storage.DeleteRule(ctx, id); err != nil {
		s.logger.Warn("delete rule from storage failed", zap.String("rule", id), zap.Error(err))
	}
	s.notifyUpdate(ctx, id)
	return nil
}

func (s *RuleService) audit(actor, action, id string, oldVal, newVal interface{}) {
	s.trail.Log(audit.ChangeEvent{
		ID:       uuid.New().String(),
		Actor:    actor,
		Action:   action,
		Entity:   "rule",
		EntityID: id,
		OldValue: oldVal,
		NewValue: newVal,
	})
}

// notifyUpdate отправляет сигнал в канал правил: подписанные дашборды
// перечитают конфигурацию
func (s *RuleService) notifyUpdate(ctx context.Context, id string) {
	s.notify.RuleChanged(ctx, id)
}
