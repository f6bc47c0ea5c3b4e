package postgres

/*
Пакет postgres — долговременное хранилище монитора. Слой намеренно тонкий:
обычный SQL поверх pgxpool, ошибки оборачиваются с префиксом "postgres:".
Все решения о деградации (memory-only) принимает вызывающая сторона:
если пул не поднялся на старте, процесс живет на NullStorage и сюда
больше не приходит.
*/

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type StateRepo struct {
	pool *pgxpool.Pool
}

// NewStateRepo поднимает пул и проверяет соединение. Ошибка здесь означает
// переход процесса в memory-only режим (решает main).
func NewStateRepo(ctx context.Context, connString string, maxConns, minConns int32) (*StateRepo, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &StateRepo{pool: pool}, nil
}

func (r *StateRepo) Mode() string { return "durable" }

func (r *StateRepo) Close() { r.pool.Close() }
