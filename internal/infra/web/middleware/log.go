package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/DioGolang/GoShop/pkg/logger"
)

// RequestLogger writes one line per request. Server errors are logged at
// error level, client errors at warn level.
func RequestLogger(log logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			fields := []logger.Field{
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", ww.Status()),
				logger.Int("bytes", ww.BytesWritten()),
				logger.Duration("latency", time.Since(start)),
			}
			if id := middleware.GetReqID(r.Context()); id != "" {
				fields = append(fields, logger.String("request_id", id))
			}

			switch {
			case ww.Status() >= http.StatusInternalServerError:
				log.Error(r.Context(), "http request failed", fields...)
			case ww.Status() >= http.StatusBadRequest:
				log.Warn(r.Context(), "http request rejected", fields...)
			default:
				log.Info(r.Context(), "http request processed", fields...)
			}
		})
	}
}
