package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	firstRetryDelay = 500 * time.Millisecond
	maxRetryDelay   = 8 * time.Second
)

// ping calls fn until it succeeds, attempts run out or ctx ends. The delay
// doubles between attempts. The last error is returned.
func ping(ctx context.Context, log zerolog.Logger, store string, attempts int, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	delay := firstRetryDelay

	var err error
	for i := 1; ; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts {
			return err
		}

		log.Warn().Err(err).
			Str("store", store).
			Int("attempt", i).
			Dur("retry_in", delay).
			Msg("Store not reachable yet")

		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}
