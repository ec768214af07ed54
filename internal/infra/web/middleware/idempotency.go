package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/DioGolang/GoShop/pkg/logger"
	"github.com/DioGolang/GoShop/pkg/metrics"
)

const IdempotencyHeader = "Idempotency-Key"

type IdempotencyStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

// Idempotency rejects a request whose Idempotency-Key was already seen
// within ttl. Requests without the header pass through. Only a successful
// answer consumes the key: after a 4xx or 5xx it is released so the client
// may retry the corrected request. A nil store disables the check.
func Idempotency(store IdempotencyStore, ttl time.Duration, log logger.Logger, m metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(IdempotencyHeader)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			key := "idem:http:" + r.Method + ":" + r.URL.Path + ":" + id

			fresh, err := store.SetNX(ctx, key, "processing", ttl)
			if err != nil {
				log.Error(ctx, "Redis unavailable for idempotency check", logger.WithError(err))
				writeJSONError(w, http.StatusServiceUnavailable, "idempotency_unavailable", "idempotency store unavailable")
				return
			}
			if !fresh {
				m.IncIdempotencyHit("http")
				log.Info(ctx, "Duplicate request rejected", logger.String("idempotency_key", id))
				writeJSONError(w, http.StatusConflict, "duplicate_request", "a request with this Idempotency-Key was already received")
				return
			}
			m.IncIdempotencyMiss("http")

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if ww.Status() >= http.StatusBadRequest {
				if err := store.Del(context.WithoutCancel(ctx), key); err != nil {
					log.Error(ctx, "Failed to release idempotency key",
						logger.String("key", key),
						logger.WithError(err),
					)
				}
			}
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
