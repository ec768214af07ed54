package event

import (
	"context"
	"errors"
	"time"

	"github.com/DioGolang/GoShop/pkg/logger"
	"github.com/DioGolang/GoShop/pkg/metrics"
)

// ErrPermanent marks a failure that retrying cannot fix, such as a
// malformed message body.
var ErrPermanent = errors.New("permanent failure")

// Backoff doubles the wait after every failed attempt, up to Max.
type Backoff struct {
	Retries int
	Base    time.Duration
	Max     time.Duration
}

func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Base << attempt
	if b.Max > 0 && (d > b.Max || d <= 0) {
		return b.Max
	}
	return d
}

// WrapExponentialBackoff retries transient failures of next in place.
// Permanent failures and context cancellation end the loop at once.
func WrapExponentialBackoff(
	log logger.Logger,
	m metrics.Metrics,
	handlerName string,
	policy Backoff,
	next MessageHandler,
) MessageHandler {
	return func(ctx context.Context, msg []byte, headers map[string]interface{}) error {
		err := next(ctx, msg, headers)
		for attempt := 0; err != nil && attempt < policy.Retries; attempt++ {
			if errors.Is(err, ErrPermanent) {
				return err
			}
			wait := policy.Delay(attempt)
			log.Warn(ctx, "Transient failure, retrying",
				logger.String("handler", handlerName),
				logger.Int("attempt", attempt+1),
				logger.Duration("wait", wait),
				logger.WithError(err),
			)

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(err, ctx.Err())
			case <-timer.C:
			}
			err = next(ctx, msg, headers)
		}
		if err != nil && !errors.Is(err, ErrPermanent) {
			log.Error(ctx, "Retries exhausted",
				logger.String("handler", handlerName),
				logger.Int("retries", policy.Retries),
				logger.WithError(err),
			)
			m.RecordUseCaseExecution(handlerName+"_exhausted", false, 0)
		}
		return err
	}
}
