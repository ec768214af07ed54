package event

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/DioGolang/GoShop/pkg/logger"
	"github.com/DioGolang/GoShop/pkg/metrics"
	tracing "github.com/DioGolang/GoShop/pkg/otel"
)

type Consumer struct {
	Conn    *amqp.Connection
	Handler MessageHandler
	Logger  logger.Logger
	Metrics metrics.Metrics
}

func NewConsumer(conn *amqp.Connection, handler MessageHandler, l logger.Logger, m metrics.Metrics) *Consumer {
	return &Consumer{
		Conn:    conn,
		Handler: handler,
		Logger:  l,
		Metrics: m,
	}
}

// Start binds queueName to the product exchange and processes deliveries
// until ctx is cancelled or the broker closes the channel.
func (c *Consumer) Start(ctx context.Context, queueName string) error {
	ch, err := c.Conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := c.setupTopology(ch, queueName); err != nil {
		return fmt.Errorf("error when configuring topology: %w", err)
	}

	msgs, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	c.Logger.Info(ctx, "[*] Waiting for messages", logger.String("queue", queueName))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed by broker")
			}
			c.process(ctx, queueName, d)
		}
	}
}

// process runs the handler for one delivery and settles it: ack on
// success, drop on a permanent failure, requeue otherwise.
func (c *Consumer) process(ctx context.Context, queueName string, d amqp.Delivery) {
	ctx = tracing.ExtractAMQP(ctx, d.Headers)
	ctx, span := otel.GetTracerProvider().Tracer("worker-tracer").Start(ctx, "ProcessProductChange", trace.WithAttributes(
		attribute.String("queue.name", queueName),
		attribute.String("messaging.message_id", d.MessageId),
	))
	defer span.End()

	c.Logger.Debug(ctx, "Received message from queue", logger.String("queue", queueName))

	err := c.Handler(ctx, d.Body, d.Headers)
	switch {
	case err == nil:
		c.settle(ctx, "ack", d.Ack(false))
	case errors.Is(err, ErrPermanent):
		span.RecordError(err)
		span.SetStatus(codes.Error, "rejected")
		c.Logger.Error(ctx, "Dropping unprocessable message", logger.WithError(err))
		c.settle(ctx, "rejected", d.Nack(false, false))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "requeued")
		c.Logger.Warn(ctx, "Handler failed, message requeued", logger.WithError(err))
		c.settle(ctx, "requeued", d.Nack(false, true))
	}
}

func (c *Consumer) settle(ctx context.Context, status string, err error) {
	if err != nil {
		c.Logger.Error(ctx, "Failed to settle delivery", logger.String("status", status), logger.WithError(err))
		status = "settle_error"
	}
	c.Metrics.IncEventsConsumed(status)
}

func (c *Consumer) setupTopology(ch *amqp.Channel, queueName string) error {
	_, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}
	return ch.QueueBind(queueName, ProductsRoutingKey, ProductsExchange, false, nil)
}
