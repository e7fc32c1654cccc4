// Package config loads process configuration from CLIENTPULSE_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration. Empty connection URLs select the
// in-memory adapters so the service runs without infrastructure locally.
type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	Environment string `env:"ENV" envDefault:"local"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// FormulaFile optionally overrides the built-in health formula table.
	FormulaFile string `env:"FORMULA_FILE"`

	Database DatabaseConfig `envPrefix:"DATABASE_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Kafka    KafkaConfig    `envPrefix:"KAFKA_"`
	Refresh  RefreshConfig  `envPrefix:"REFRESH_"`
	OTel     OTelConfig     `envPrefix:"OTEL_"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL             string        `env:"URL"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	Migrate         bool          `env:"MIGRATE" envDefault:"true"`
}

// RedisConfig configures the Redis client used for the refresh lock and dirty set.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures the meeting feed consumer and refresh event producer.
type KafkaConfig struct {
	Brokers        []string `env:"BROKERS" envSeparator:","`
	MeetingTopic   string   `env:"MEETING_TOPIC" envDefault:"clientpulse.meetings"`
	RefreshTopic   string   `env:"REFRESH_TOPIC" envDefault:"clientpulse.health.refreshed"`
	ConsumerGroup  string   `env:"CONSUMER_GROUP" envDefault:"clientpulse-ingest"`
	EnsureTopics   bool     `env:"ENSURE_TOPICS" envDefault:"false"`
	TopicPartition int32    `env:"TOPIC_PARTITIONS" envDefault:"3"`
}

// RefreshConfig tunes refresh coordination.
type RefreshConfig struct {
	LockTTL        time.Duration `env:"LOCK_TTL" envDefault:"5m"`
	DirtyInterval  time.Duration `env:"DIRTY_INTERVAL" envDefault:"30s"`
	DirtyBatchSize int           `env:"DIRTY_BATCH_SIZE" envDefault:"100"`
	// FullInterval schedules a periodic full refresh. Zero disables it.
	FullInterval time.Duration `env:"FULL_INTERVAL" envDefault:"0s"`
}

// OTelConfig enables tracing export. Tracing is off when Endpoint is empty.
type OTelConfig struct {
	Enabled     bool   `env:"ENABLED" envDefault:"true"`
	Endpoint    string `env:"ENDPOINT"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"clientpulse"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv populates target from CLIENTPULSE_* variables.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: "CLIENTPULSE_"}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// KafkaEnabled reports whether brokers are configured.
func (c Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
