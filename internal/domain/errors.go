package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen — предохранитель разомкнут, внешние вызовы отбиваются мгновенно
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrExternalUnavailable — каталог флота недоступен после ретраев
	ErrExternalUnavailable = errors.New("fleet api unavailable")

	// ErrNotFound — сущность не найдена (в снапшоте или в БД)
	ErrNotFound = errors.New("not found")
)

// ValidationError — некорректный ввод на CRUD правил; отбивается до мутации
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: field %q %s", e.Field, e.Reason)
}
