package configs

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/spf13/viper"
)

type Conf struct {
	AppEnv        string `mapstructure:"APP_ENV"`
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`

	DBDriver   string `mapstructure:"DB_DRIVER"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	RedisHost string `mapstructure:"REDIS_HOST"`
	RedisPort string `mapstructure:"REDIS_PORT"`
	AMQPURL   string `mapstructure:"AMQP_URL"`

	WebServerPort     string `mapstructure:"WEB_SERVER_PORT"`
	GRPCPort          string `mapstructure:"GRPC_PORT"`
	WorkerMetricsPort string `mapstructure:"WORKER_METRICS_PORT"`
	OtelCollectorAddr string `mapstructure:"OTEL_COLLECTOR_ADDR"`

	RateLimitRPS   int `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int `mapstructure:"RATE_LIMIT_BURST"`

	OrderRetryAttempts int           `mapstructure:"ORDER_RETRY_ATTEMPTS"`
	OrderRetryBaseWait time.Duration `mapstructure:"ORDER_RETRY_BASE_WAIT"`
	IdempotencyTTL     time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	LowStockThreshold  int           `mapstructure:"LOW_STOCK_THRESHOLD"`
}

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

var defaults = map[string]any{
	"APP_ENV":               "development",
	"STORAGE_DRIVER":        StoragePostgres,
	"DB_DRIVER":             "postgres",
	"DB_HOST":               "localhost",
	"DB_PORT":               "5432",
	"DB_USER":               "postgres",
	"DB_PASSWORD":           "postgres",
	"DB_NAME":               "goshop",
	"DB_SSLMODE":            "disable",
	"REDIS_HOST":            "",
	"REDIS_PORT":            "6379",
	"AMQP_URL":              "",
	"WEB_SERVER_PORT":       "8000",
	"GRPC_PORT":             "50051",
	"WORKER_METRICS_PORT":   "9100",
	"OTEL_COLLECTOR_ADDR":   "",
	"RATE_LIMIT_RPS":        50,
	"RATE_LIMIT_BURST":      100,
	"ORDER_RETRY_ATTEMPTS":  3,
	"ORDER_RETRY_BASE_WAIT": "20ms",
	"IDEMPOTENCY_TTL":       "24h",
	"LOW_STOCK_THRESHOLD":   5,
}

// LoadConfig reads path/.env when present and lets environment variables
// override every key. A missing .env file is not an error.
func LoadConfig(path string) (*Conf, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Conf
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Conf) validate() error {
	switch c.StorageDriver {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageMemory, StoragePostgres, c.StorageDriver)
	}
	if c.OrderRetryAttempts < 1 {
		return fmt.Errorf("ORDER_RETRY_ATTEMPTS must be at least 1, got %d", c.OrderRetryAttempts)
	}
	return nil
}

func (c *Conf) IsProduction() bool { return c.AppEnv == "production" }

// RedisAddr is empty when Redis is not configured.
func (c *Conf) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return net.JoinHostPort(c.RedisHost, c.RedisPort)
}
