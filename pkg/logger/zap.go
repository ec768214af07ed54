package logger

import (
	"context"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Service    string
	Production bool
	// Output defaults to stdout.
	Output io.Writer
}

type zapLogger struct {
	log *zap.Logger
}

func NewLogger(serviceName string, isProd bool) Logger {
	return New(Options{Service: serviceName, Production: isProd})
}

// New builds a JSON logger. Production loggers start at info level and
// sample repeated entries; others log everything.
func New(opts Options) Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	encoder := zap.NewDevelopmentEncoderConfig()
	level := zapcore.DebugLevel
	if opts.Production {
		encoder = zap.NewProductionEncoderConfig()
		level = zapcore.InfoLevel
	}
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder.EncodeDuration = zapcore.StringDurationEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoder), zapcore.AddSync(out), level)
	if opts.Production {
		core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 100)
	}
	return &zapLogger{log: zap.New(core).With(zap.String("service", opts.Service))}
}

func (z *zapLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	z.write(ctx, zapcore.DebugLevel, msg, fields)
}

func (z *zapLogger) Info(ctx context.Context, msg string, fields ...Field) {
	z.write(ctx, zapcore.InfoLevel, msg, fields)
}

func (z *zapLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	z.write(ctx, zapcore.WarnLevel, msg, fields)
}

func (z *zapLogger) Error(ctx context.Context, msg string, fields ...Field) {
	z.write(ctx, zapcore.ErrorLevel, msg, fields)
}

func (z *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{log: z.log.With(toZap(fields, 0)...)}
}

// write converts fields only when the entry passes the level and sampler.
func (z *zapLogger) write(ctx context.Context, lvl zapcore.Level, msg string, fields []Field) {
	ce := z.log.Check(lvl, msg)
	if ce == nil {
		return
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		ce.Write(toZap(fields, 0)...)
		return
	}
	ce.Write(append(toZap(fields, 2),
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)...)
}

func toZap(fields []Field, spare int) []zap.Field {
	if len(fields)+spare == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields)+spare)
	for _, f := range fields {
		out = append(out, convert(f))
	}
	return out
}

// convert falls back to zap.Any when Value does not match Kind.
func convert(f Field) zap.Field {
	val := f.Value
	if fn, ok := val.(func() any); ok {
		val = fn()
	}
	switch v := val.(type) {
	case string:
		if f.Kind == KindString {
			return zap.String(f.Key, v)
		}
	case int:
		if f.Kind == KindInt {
			return zap.Int(f.Key, v)
		}
	case int64:
		if f.Kind == KindInt64 {
			return zap.Int64(f.Key, v)
		}
	case float64:
		if f.Kind == KindFloat64 {
			return zap.Float64(f.Key, v)
		}
	case bool:
		if f.Kind == KindBool {
			return zap.Bool(f.Key, v)
		}
	case time.Duration:
		if f.Kind == KindDuration {
			return zap.Duration(f.Key, v)
		}
	case error:
		if f.Kind == KindError {
			return zap.Error(v)
		}
	}
	return zap.Any(f.Key, val)
}
