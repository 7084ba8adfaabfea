package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Options тюнинг пула соединений
type Options struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	// ConnectTimeout ограничивает общее время попыток подключения при старте
	ConnectTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxConns:        20,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		ConnectTimeout:  30 * time.Second,
	}
}

// NewPostgresDB создает новый пул соединений PostgreSQL.
// Пока база поднимается (docker-compose), ping повторяется с backoff.
func NewPostgresDB(ctx context.Context, databaseURL string, opts Options, log *logrus.Logger) (*pgxpool.Pool, error) {
	cfgPool, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка при разборе конфигурации postgres: %w", err)
	}
	if opts.MaxConns > 0 {
		cfgPool.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfgPool.MinConns = opts.MinConns
	}
	if opts.MaxConnLifetime > 0 {
		cfgPool.MaxConnLifetime = opts.MaxConnLifetime
	}

	dbpool, err := pgxpool.NewWithConfig(ctx, cfgPool)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать пул соединений: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = opts.ConnectTimeout
	err = backoff.RetryNotify(func() error {
		return dbpool.Ping(ctx)
	}, backoff.WithContext(policy, ctx), func(err error, next time.Duration) {
		log.WithError(err).WithField("retry_in", next).Warn("PostgreSQL is not reachable yet")
	})
	if err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("не удалось выполнить ping к postgres: %w", err)
	}

	return dbpool, nil
}
