package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"giveaway/database"
	"giveaway/metrics"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

const defaultMaxAttempts = 5

// retryPolicy re-runs a whole unit of work when it lost a concurrency race
type retryPolicy struct {
	maxAttempts     int
	initialInterval time.Duration
	maxInterval     time.Duration
}

func newRetryPolicy(maxAttempts int) retryPolicy {
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	return retryPolicy{
		maxAttempts:     maxAttempts,
		initialInterval: 20 * time.Millisecond,
		maxInterval:     500 * time.Millisecond,
	}
}

// isConflict reports whether err is safe to retry from the start of the transaction
func isConflict(err error) bool {
	return errors.Is(err, ErrConcurrentUpdateConflict) || database.IsRetryable(err)
}

// run calls fn until it succeeds, fails with a non-conflict error, or attempts run out.
// Exhausted retries surface as ErrConcurrentUpdateConflict.
func (p retryPolicy) run(ctx context.Context, operation string, fn func() error) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = p.initialInterval
	expBackoff.MaxInterval = p.maxInterval
	expBackoff.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(p.maxAttempts-1)), ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if isConflict(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy, func(err error, wait time.Duration) {
		metrics.RecordConflictRetry(operation)
		log.WithFields(log.Fields{
			"operation": operation,
			"attempt":   attempt,
			"wait":      wait,
			"error":     err,
		}).Debug("Retrying after concurrent update conflict")
	})

	if err != nil && isConflict(err) && !errors.Is(err, ErrConcurrentUpdateConflict) {
		return fmt.Errorf("%w: %s gave up after %d attempts: %v", ErrConcurrentUpdateConflict, operation, attempt, err)
	}
	return err
}
