package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shenikar/relief_locator/internal/config"
	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/sirupsen/logrus"
)

// readRetry повторяет идемпотентные чтения при сбоях инфраструктуры.
// Ошибки вызывающего (см. ierr.IsCallerError) возвращаются сразу.
// Изменения через него не идут.
type readRetry struct {
	maxAttempts     int
	initialInterval time.Duration
}

func newReadRetry(cfg *config.Config) readRetry {
	r := readRetry{maxAttempts: 1, initialInterval: 100 * time.Millisecond}
	if cfg == nil {
		return r
	}
	if cfg.ReadRetryMaxAttempts > 0 {
		r.maxAttempts = cfg.ReadRetryMaxAttempts
	}
	if cfg.ReadRetryInitialInterval > 0 {
		r.initialInterval = cfg.ReadRetryInitialInterval
	}
	return r
}

func (r readRetry) do(ctx context.Context, log *logrus.Entry, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.initialInterval
	policy.MaxElapsedTime = 0

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := op()
		if err != nil && ierr.IsCallerError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.maxAttempts-1)), ctx),
		func(err error, next time.Duration) {
			log.WithError(err).WithFields(logrus.Fields{
				"attempt":  attempt,
				"retry_in": next,
			}).Warn("Read failed, retrying")
		})
}
