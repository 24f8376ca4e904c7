package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Audit backends.
const (
	AuditNone       = "none"
	AuditKafka      = "kafka"
	AuditClickHouse = "clickhouse"
)

// Rate limiter backends.
const (
	LimiterMemory = "memory"
	LimiterRedis  = "redis"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development"`
	Server      ServerConfig     `yaml:"server"`
	Log         LogConfig        `yaml:"log"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Predictor   PredictorConfig  `yaml:"predictor"`
	Session     SessionConfig    `yaml:"session"`
	RateLimit   RateLimitConfig  `yaml:"ratelimit"`
	Redis       RedisConfig      `yaml:"redis"`
	Audit       AuditConfig      `yaml:"audit"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	SlowThreshold   time.Duration `yaml:"slow_threshold" default:"5s"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

type LogConfig struct {
	Level   string        `yaml:"level" default:"info"`
	Format  string        `yaml:"format" default:"json"`
	Output  string        `yaml:"output" default:"stdout"`
	Collect CollectConfig `yaml:"collect"`
}

// CollectConfig controls shipping aggregated error logs to Kafka.
type CollectConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Topic     string        `yaml:"topic" default:"goldpredict.logs"`
	Interval  time.Duration `yaml:"interval" default:"30s"`
	Threshold int           `yaml:"threshold" default:"100"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type PredictorConfig struct {
	URL string `yaml:"url" default:"https://ml-ops-1.onrender.com/predict"`

	// Timeout of 0 waits until the service answers or the transport fails.
	Timeout time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	TTL         time.Duration `yaml:"ttl" default:"30m"`
	MaxSessions int           `yaml:"max_sessions" default:"10000"`
	CookieName  string        `yaml:"cookie_name" default:"gp_session"`
	Secure      bool          `yaml:"secure_cookie"`
}

type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled" default:"true"`
	Backend string        `yaml:"backend" default:"memory"`
	RPS     float64       `yaml:"rps" default:"1"`
	Burst   int           `yaml:"burst" default:"5"`
	Window  time.Duration `yaml:"window" default:"1m"`
	Limit   int           `yaml:"limit" default:"30"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"goldpredict"`
	PoolSize int    `yaml:"pool_size" default:"10"`
}

type AuditConfig struct {
	Backend string        `yaml:"backend" default:"none"`
	Timeout time.Duration `yaml:"timeout" default:"5s"`
}

type KafkaConfig struct {
	Brokers      []string       `yaml:"brokers"`
	Topic        string         `yaml:"topic" default:"goldpredict.submissions"`
	RequiredAcks int            `yaml:"required_acks" default:"-1"`
	Compression  string         `yaml:"compression" default:"gzip"`
	Producer     ProducerConfig `yaml:"producer"`
	Consumer     ConsumerConfig `yaml:"consumer"`
}

type ProducerConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	Linger       time.Duration `yaml:"linger" default:"50ms"`
	BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
	BatchSize    int           `yaml:"batch_size" default:"100"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	Async        bool          `yaml:"async"`
}

type ConsumerConfig struct {
	GroupID    string        `yaml:"group_id" default:"goldpredict-sink"`
	Workers    int           `yaml:"workers" default:"2"`
	BufferSize int           `yaml:"buffer_size" default:"64"`
	RetryMax   int           `yaml:"retry_max" default:"3"`
	BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
	BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
	DLQTopic   string        `yaml:"dlq_topic"`
	MinBytes   int           `yaml:"min_bytes" default:"1"`
	MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"goldpredict"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time"`
}

// Default returns a configuration populated from struct defaults only.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads a YAML configuration file over the defaults. An empty path
// yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads .env (if present), the YAML file, applies environment
// overrides and validates the result.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from environment variables read via lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = splitList(v)
		}
	}

	str("ENVIRONMENT", &c.Environment)
	str("PREDICTOR_URL", &c.Predictor.URL)
	str("AUDIT_BACKEND", &c.Audit.Backend)
	str("KAFKA_TOPIC", &c.Kafka.Topic)
	list("KAFKA_BROKERS", &c.Kafka.Brokers)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("RATELIMIT_BACKEND", &c.RateLimit.Backend)
	str("CLICKHOUSE_HOST", &c.ClickHouse.Host)
	str("CLICKHOUSE_PASSWORD", &c.ClickHouse.Password)
	str("LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup("LISTEN_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LISTEN_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("PREDICTOR_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PREDICTOR_TIMEOUT: %w", err)
		}
		c.Predictor.Timeout = d
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Predictor.URL == "" {
		return fmt.Errorf("predictor.url is required")
	}
	if c.Predictor.Timeout < 0 {
		return fmt.Errorf("predictor.timeout cannot be negative")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.Session.MaxSessions <= 0 {
		return fmt.Errorf("session.max_sessions must be positive")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session.cookie_name is required")
	}

	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case LimiterMemory:
			if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
				return fmt.Errorf("ratelimit.rps and ratelimit.burst must be positive")
			}
		case LimiterRedis:
			if c.Redis.Addr == "" {
				return fmt.Errorf("redis.addr is required for the redis limiter")
			}
			if c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0 {
				return fmt.Errorf("ratelimit.limit and ratelimit.window must be positive")
			}
		default:
			return fmt.Errorf("ratelimit.backend must be 'memory' or 'redis', got '%s'", c.RateLimit.Backend)
		}
	}

	switch c.Audit.Backend {
	case AuditNone:
	case AuditKafka:
		if err := c.requireKafka(); err != nil {
			return err
		}
	case AuditClickHouse:
		if err := c.requireClickHouse(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("audit.backend must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Audit.Backend)
	}

	if c.Log.Collect.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("log.collect requires kafka.brokers")
		}
		if c.Log.Collect.Topic == "" {
			return fmt.Errorf("log.collect.topic is required")
		}
	}
	return nil
}

// ValidateSink checks the settings the sink command needs.
func (c *Config) ValidateSink() error {
	if err := c.requireKafka(); err != nil {
		return err
	}
	return c.requireClickHouse()
}

func (c *Config) requireKafka() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty")
	}
	if c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required")
	}
	return nil
}

func (c *Config) requireClickHouse() error {
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if c.ClickHouse.Database == "" {
		return fmt.Errorf("clickhouse.database is required")
	}
	return nil
}
