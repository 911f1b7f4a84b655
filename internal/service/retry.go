package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/graphdesk/server/internal/domain"
)

// readRetry runs an idempotent read, retrying once with exponential backoff
// when the store reports a transient failure. Mutating operations must never
// go through here: a retried write could duplicate its side effect.
func readRetry(ctx context.Context, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(b, 1), ctx)

	return backoff.RetryNotify(func() error {
		err := fn()
		if err != nil && !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("wait", wait).Msg("retrying read after transient storage failure")
	})
}
