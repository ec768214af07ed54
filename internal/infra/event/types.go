// Package event moves product change events through RabbitMQ: the
// publisher used by the API and the consumer chain run by the worker.
package event

import "context"

// MessageHandler processes one delivery body. Returning an error wrapping
// ErrPermanent drops the message; any other error requeues it.
type MessageHandler func(ctx context.Context, msg []byte, headers map[string]interface{}) error
