package event

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/DioGolang/GoShop/pkg/logger"
	"github.com/DioGolang/GoShop/pkg/metrics"
)

const EventIDHeader = "x-event-id"

type RedisIdempotencyStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

// eventKey scopes the event id to one handler so two consumers of the same
// event do not shadow each other. Events without an id are keyed by body.
func eventKey(handlerName string, msg []byte, headers map[string]interface{}) (key, eventID string) {
	if v, ok := headers[EventIDHeader]; ok {
		eventID = fmt.Sprint(v)
	}
	if eventID == "" {
		sum := sha256.Sum256(msg)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}
	return "dedup:" + handlerName + ":" + eventID, eventID
}

// WrapIdempotency lets next see each event at most once per ttl. A failed
// run gives the claim back so a redelivery is processed. While the store is
// unreachable every message fails and is requeued.
func WrapIdempotency(
	log logger.Logger,
	m metrics.Metrics,
	store RedisIdempotencyStore,
	handlerName string,
	ttl time.Duration,
	next MessageHandler,
) MessageHandler {
	return func(ctx context.Context, msg []byte, headers map[string]interface{}) error {
		key, eventID := eventKey(handlerName, msg, headers)

		claimed, err := store.SetNX(ctx, key, "processing", ttl)
		if err != nil {
			log.Error(ctx, "Idempotency store unreachable", logger.String("handler", handlerName), logger.WithError(err))
			return fmt.Errorf("idempotency store unavailable: %w", err)
		}
		if !claimed {
			m.IncIdempotencyHit(handlerName)
			log.Info(ctx, "Duplicate event skipped",
				logger.String("handler", handlerName),
				logger.String("event_id", eventID),
			)
			return nil
		}
		m.IncIdempotencyMiss(handlerName)

		if err := next(ctx, msg, headers); err != nil {
			if delErr := store.Del(context.WithoutCancel(ctx), key); delErr != nil {
				log.Error(ctx, "Failed to release idempotency claim",
					logger.String("key", key),
					logger.WithError(delErr),
				)
			}
			return err
		}
		return nil
	}
}
