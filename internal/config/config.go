// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/imrishuroy/orders-service/internal/faults"
)

// Idempotency backends.
const (
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
)

// Config holds every setting the service reads at startup.
type Config struct {
	Stage       string
	ServiceName string
	RunLocal    bool
	Port        string

	TableName string

	IdempotencyBackend      string
	IdempotencyTableName    string
	IdempotencyExpiresAfter time.Duration
	IdempotencyCanonical    bool
	RedisAddr               string

	CreateLatency         bool
	CreateLatencyDuration time.Duration
	CreateError           bool
	CreateErrorRate       float64
	FaultSeed             uint64

	LogLevel      string
	LogSampleRate float64
	LogEvent      bool

	MetricsNamespace string
	OTelEndpoint     string
	OrdersQueueURL   string
}

var defaults = map[string]any{
	"stage":                       "",
	"service_name":                "orders-service",
	"run_local":                   false,
	"port":                        "8080",
	"table_name":                  "",
	"idempotency_backend":         BackendDynamoDB,
	"idempotency_table_name":      "",
	"idempotency_expires_after":   "30s",
	"idempotency_canonical":       false,
	"redis_addr":                  "localhost:6379",
	"create_latency":              false,
	"create_latency_duration":     faults.DefaultLatency.String(),
	"create_error":                false,
	"create_error_rate":           faults.DefaultErrorRate,
	"fault_seed":                  0,
	"log_level":                   "INFO",
	"log_sample_rate":             0.0,
	"log_event":                   false,
	"metrics_namespace":           "",
	"otel_exporter_otlp_endpoint": "",
	"orders_queue_url":            "",
}

// Load reads the environment, and the YAML file named by CONFIG_FILE when set.
// Environment variables win over the file. Callers run Validate for the
// settings they depend on.
func Load() (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Stage:       v.GetString("stage"),
		ServiceName: v.GetString("service_name"),
		RunLocal:    v.GetBool("run_local"),
		Port:        v.GetString("port"),

		TableName: v.GetString("table_name"),

		IdempotencyBackend:      strings.ToLower(v.GetString("idempotency_backend")),
		IdempotencyTableName:    v.GetString("idempotency_table_name"),
		IdempotencyExpiresAfter: v.GetDuration("idempotency_expires_after"),
		IdempotencyCanonical:    v.GetBool("idempotency_canonical"),
		RedisAddr:               v.GetString("redis_addr"),

		CreateLatency:         v.GetBool("create_latency"),
		CreateLatencyDuration: v.GetDuration("create_latency_duration"),
		CreateError:           v.GetBool("create_error"),
		CreateErrorRate:       v.GetFloat64("create_error_rate"),
		FaultSeed:             v.GetUint64("fault_seed"),

		LogLevel:      v.GetString("log_level"),
		LogSampleRate: v.GetFloat64("log_sample_rate"),
		LogEvent:      v.GetBool("log_event"),

		MetricsNamespace: v.GetString("metrics_namespace"),
		OTelEndpoint:     v.GetString("otel_exporter_otlp_endpoint"),
		OrdersQueueURL:   v.GetString("orders_queue_url"),
	}
	return cfg, nil
}

// Validate reports missing or inconsistent settings for the API.
func (c *Config) Validate() error {
	var errs []error
	if c.TableName == "" {
		errs = append(errs, errors.New("TABLE_NAME is required"))
	}
	switch c.IdempotencyBackend {
	case BackendDynamoDB:
		if c.IdempotencyTableName == "" {
			errs = append(errs, errors.New("IDEMPOTENCY_TABLE_NAME is required for the dynamodb backend"))
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IDEMPOTENCY_BACKEND %q", c.IdempotencyBackend))
	}
	if c.IdempotencyExpiresAfter <= 0 {
		errs = append(errs, errors.New("IDEMPOTENCY_EXPIRES_AFTER must be positive"))
	}
	if c.CreateErrorRate < 0 || c.CreateErrorRate > 1 {
		errs = append(errs, errors.New("CREATE_ERROR_RATE must be within [0, 1]"))
	}
	if c.LogSampleRate < 0 || c.LogSampleRate > 1 {
		errs = append(errs, errors.New("LOG_SAMPLE_RATE must be within [0, 1]"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether the service runs in the prod stage.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Stage, "prod")
}
