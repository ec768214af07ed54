package order

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
	"github.com/DioGolang/GoShop/pkg/logger"
)

// CreateOrderRetryDecorator re-runs the whole workflow when the commit lost
// an optimistic concurrency race. Every attempt opens a fresh unit of work,
// so stock is re-read and re-validated. Other failures are returned as-is.
type CreateOrderRetryDecorator struct {
	Next        CreateUseCase
	Logger      logger.Logger
	MaxAttempts int
	BaseWait    time.Duration
}

func (d *CreateOrderRetryDecorator) Execute(ctx context.Context, input *CreateInput) (CreateOutput, error) {
	attempts := max(d.MaxAttempts, 1)
	for attempt := 1; ; attempt++ {
		output, err := d.Next.Execute(ctx, input)
		if err == nil || !outbound.IsConcurrentUpdate(err) || attempt >= attempts {
			return output, err
		}

		wait := d.BaseWait * time.Duration(math.Pow(2, float64(attempt-1)))
		d.Logger.Warn(ctx, "Order commit conflicted, retrying...",
			logger.Int("attempt", attempt),
			logger.Duration("wait", wait),
			logger.WithError(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return CreateOutput{}, fmt.Errorf("%w (retry aborted: %w)", err, ctx.Err())
		}
	}
}
