package pipeline

import (
	"context"
	"log"
	"time"

	"showrunner/internal/faults"
)

const retryAttempts = 3

// Vars so tests can shrink the backoff.
var (
	retryBaseDelay = 2 * time.Second
	retryMaxDelay  = 30 * time.Second
)

// retryTransient runs fn up to retryAttempts times with exponential backoff.
// Permanent failures and context cancellation stop the loop immediately.
func retryTransient(ctx context.Context, op string, fn func() error) error {
	delay := retryBaseDelay
	var err error

	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if err = fn(); err == nil || faults.IsPermanent(err) {
			return err
		}
		if attempt == retryAttempts {
			break
		}

		log.Printf("%s failed (attempt %d/%d), retrying in %v: %v", op, attempt, retryAttempts, delay, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > retryMaxDelay {
			delay = retryMaxDelay
		}
	}
	return err
}
