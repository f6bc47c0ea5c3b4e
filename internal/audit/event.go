package audit

import "time"

// Действия, попадающие в аудит
const (
	ActionRuleCreate       = "rule_create"
	ActionRuleUpdate       = "rule_update"
	ActionRuleDelete       = "rule_delete"
	ActionAlertAcknowledge = "alert_acknowledge"
)

// ChangeEvent — одна запись журнала изменений конфигурации и явных действий
// оператора. Журнал append-only.
type ChangeEvent struct {
	ID       string `json:"id"`        // UUID события
	Actor    string `json:"actor"`     // Кто делал (из X-Actor, по умолчанию "dashboard")
	Action   string `json:"action"`    // Что сделал
	Entity   string `json:"entity"`    // rule | alert
	EntityID string `json:"entity_id"` // ID затронутой сущности

	// Было/стало в JSON; для create OldValue пуст, для delete пуст NewValue
	OldValue interface{} `json:"old_value,omitempty"`
	NewValue interface{} `json:"new_value,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
