package infra

// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
const RedisNamespace = "fleetmon"

// Каналы Pub/Sub (события)
const (
	// RedisChanStateChanged — широковещательный сигнал "снапшот обновился".
	// Публикуется после завершения цикла опроса и после явных мутаций
	// (ack алерта, CRUD правила). Полезная нагрузка: "<kind>:<id>".
	RedisChanStateChanged = RedisNamespace + ":state:changed"

	// RedisChanRuleUpdate — сигнал для внешних потребителей перечитать правила
	RedisChanRuleUpdate = RedisNamespace + ":rules:update"
)
