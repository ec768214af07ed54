package event

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/DioGolang/GoShop/pkg/logger"
	"github.com/DioGolang/GoShop/pkg/metrics"
)

// WrapResilientConsumer bounds each run of next by timeout and records its
// duration. While cb is open, next is not called and the message is
// requeued.
func WrapResilientConsumer(
	m metrics.Metrics,
	log logger.Logger,
	handlerName string,
	timeout time.Duration,
	cb *gobreaker.CircuitBreaker,
	next MessageHandler,
) MessageHandler {
	return func(ctx context.Context, msg []byte, headers map[string]interface{}) error {
		start := time.Now()
		runCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		_, err := cb.Execute(func() (interface{}, error) {
			return nil, next(runCtx, msg, headers)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			log.Warn(ctx, "Circuit open, message deferred",
				logger.String("handler", handlerName),
				logger.String("breaker", cb.Name()),
			)
		}
		m.RecordUseCaseExecution(handlerName, err == nil, time.Since(start))
		return err
	}
}
