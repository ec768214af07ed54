package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"github.com/DioGolang/GoShop/internal/domain/entity"
	tracing "github.com/DioGolang/GoShop/pkg/otel"
)

const (
	ProductsExchange   = "amq.direct"
	ProductsRoutingKey = "products.changed"
)

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// ProductPublisher forwards product changes to the broker. Once the broker
// keeps failing the circuit breaker rejects publishes until it half-opens.
type ProductPublisher struct {
	channel Channel
	breaker *gobreaker.CircuitBreaker
}

func NewProductPublisher(ch Channel, settings gobreaker.Settings) *ProductPublisher {
	if settings.Name == "" {
		settings.Name = "product-publisher"
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		}
	}
	return &ProductPublisher{channel: ch, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (p *ProductPublisher) Publish(ctx context.Context, e entity.ProductChanged) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal product event: %w", err)
	}

	headers := tracing.InjectAMQP(ctx, amqp.Table{EventIDHeader: e.EventID})

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.channel.PublishWithContext(
			ctx,
			ProductsExchange,
			ProductsRoutingKey,
			false,
			false,
			amqp.Publishing{
				Headers:      headers,
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    e.EventID,
				Timestamp:    time.Now(),
				Body:         payload,
			})
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ProductsRoutingKey, err)
	}
	return nil
}

func (p *ProductPublisher) State() gobreaker.State {
	return p.breaker.State()
}
