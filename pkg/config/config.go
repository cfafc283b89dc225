package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

const (
	SourceHTTP       = "http"
	SourceClickHouse = "clickhouse"

	CacheNone    = "none"
	CacheMemory  = "memory"
	CacheRedis   = "redis"
	CacheLayered = "layered"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development"`
	Server      ServerConfig     `yaml:"server"`
	Log         LogConfig        `yaml:"log"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Source      SourceConfig     `yaml:"source"`
	Upstream    UpstreamConfig   `yaml:"upstream"`
	Cache       CacheConfig      `yaml:"cache"`
	Redis       RedisConfig      `yaml:"redis"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Queue       QueueConfig      `yaml:"queue"`
	RateLimit   RateLimitConfig  `yaml:"ratelimit"`
	Resolver    ResolverConfig   `yaml:"resolver"`
	Live        LiveConfig       `yaml:"live"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	AllowOrigins    []string      `yaml:"allow_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"json"`
	Output string `yaml:"output" default:"stdout"`
	// Collect ships de-duplicated error entries to kafka.log_topic.
	Collect         bool          `yaml:"collect"`
	CollectInterval time.Duration `yaml:"collect_interval" default:"30s"`
	CollectMax      int           `yaml:"collect_max" default:"100"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
	// SlowRequest logs HTTP requests slower than this as warnings.
	SlowRequest time.Duration `yaml:"slow_request" default:"1s"`
}

type SourceConfig struct {
	Type string `yaml:"type" default:"http"`
}

type UpstreamConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout" default:"10s"`
	Breaker BreakerConfig `yaml:"breaker"`
}

type BreakerConfig struct {
	Enabled     bool          `yaml:"enabled" default:"true"`
	MaxFailures uint32        `yaml:"max_failures" default:"5"`
	OpenTimeout time.Duration `yaml:"open_timeout" default:"30s"`
	HalfOpenMax uint32        `yaml:"half_open_max" default:"1"`
}

type CacheConfig struct {
	Type       string        `yaml:"type" default:"memory"`
	TTL        time.Duration `yaml:"ttl" default:"5m"`
	MemorySize int           `yaml:"memory_size" default:"1024"`
	MemoryTTL  time.Duration `yaml:"memory_ttl" default:"1m"`
	Prefix     string        `yaml:"prefix" default:"kolstats"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size" default:"10"`
}

type ClickHouseConfig struct {
	Host       string `yaml:"host" default:"localhost"`
	Port       int    `yaml:"port" default:"9000"`
	Database   string `yaml:"database" default:"kolstats"`
	User       string `yaml:"user" default:"default"`
	Password   string `yaml:"password"`
	Table      string `yaml:"table" default:"channel_period_metrics"`
	UseHTTP    bool   `yaml:"use_http"`
	InitSchema bool   `yaml:"init_schema"`
	// Archive writes refreshed snapshots back to Table.
	Archive          bool          `yaml:"archive"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
}

type KafkaConfig struct {
	Enabled      bool           `yaml:"enabled"`
	Brokers      []string       `yaml:"brokers"`
	UpdatesTopic string         `yaml:"updates_topic" default:"kolstats.stats-updated"`
	LogTopic     string         `yaml:"log_topic" default:"kolstats.logs"`
	Producer     ProducerConfig `yaml:"producer"`
	Consumer     ConsumerConfig `yaml:"consumer"`
}

type ProducerConfig struct {
	RequiredAcks int           `yaml:"required_acks" default:"1"`
	Compression  string        `yaml:"compression" default:"snappy"`
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	BatchSize    int           `yaml:"batch_size" default:"100"`
	Linger       time.Duration `yaml:"linger" default:"50ms"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	Async        bool          `yaml:"async"`
}

type ConsumerConfig struct {
	GroupID    string        `yaml:"group_id" default:"kolstats"`
	Workers    int           `yaml:"workers" default:"4"`
	BufferSize int           `yaml:"buffer_size" default:"256"`
	RetryMax   int           `yaml:"retry_max" default:"3"`
	BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
	BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
	DLQTopic   string        `yaml:"dlq_topic" default:"kolstats.stats-updated.dlq"`
	MinBytes   int           `yaml:"min_bytes" default:"1"`
	MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
}

type QueueConfig struct {
	Enabled    bool          `yaml:"enabled"`
	KeyPrefix  string        `yaml:"key_prefix" default:"kolstats:queue"`
	Workers    int           `yaml:"workers" default:"2"`
	RetryLimit int           `yaml:"retry_limit" default:"3"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
	// LockTTL bounds a per-channel refresh lock. Zero disables locking.
	LockTTL time.Duration `yaml:"lock_ttl" default:"30s"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" default:"true"`
	RPS     float64 `yaml:"rps" default:"20"`
	Burst   int     `yaml:"burst" default:"40"`
	// IdleTTL drops per-client limiters not seen for this long.
	IdleTTL time.Duration `yaml:"idle_ttl" default:"10m"`
}

type ResolverConfig struct {
	// WarnUnknownTimeframe defaults to true in development.
	WarnUnknownTimeframe *bool `yaml:"warn_unknown_timeframe"`
}

type LiveConfig struct {
	Enabled      bool          `yaml:"enabled" default:"true"`
	PingInterval time.Duration `yaml:"ping_interval" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	SendBuffer   int           `yaml:"send_buffer" default:"16"`
	MaxMessage   int64         `yaml:"max_message" default:"4096"`
}

// IsDevelopment reports whether the service runs in the development environment.
func (c *Config) IsDevelopment() bool { return c.Environment == "development" }

// WarnUnknownTimeframe resolves the resolver warning toggle against the environment.
func (c *Config) WarnUnknownTimeframe() bool {
	if c.Resolver.WarnUnknownTimeframe != nil {
		return *c.Resolver.WarnUnknownTimeframe
	}
	return c.IsDevelopment()
}

func decode(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// Parse applies defaults, then the YAML document, then validates.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides it with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := getenv("STATS_SOURCE"); v != "" {
		c.Source.Type = v
	}
	if v := getenv("UPSTREAM_BASE_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
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
	switch c.Source.Type {
	case SourceHTTP:
		if c.Upstream.BaseURL == "" {
			return fmt.Errorf("upstream.base_url is required for source.type %q", SourceHTTP)
		}
	case SourceClickHouse:
		if c.ClickHouse.Host == "" || c.ClickHouse.Database == "" {
			return fmt.Errorf("clickhouse.host and clickhouse.database are required for source.type %q", SourceClickHouse)
		}
	default:
		return fmt.Errorf("source.type must be %q or %q, got %q", SourceHTTP, SourceClickHouse, c.Source.Type)
	}
	switch c.Cache.Type {
	case CacheNone, CacheMemory, CacheRedis, CacheLayered:
	default:
		return fmt.Errorf("cache.type must be one of none, memory, redis, layered, got %q", c.Cache.Type)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("ratelimit.rps and ratelimit.burst must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// UsesRedis reports whether any enabled component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Cache.Type == CacheRedis || c.Cache.Type == CacheLayered || c.Queue.Enabled
}

// UsesClickHouse reports whether a ClickHouse connection is needed.
func (c *Config) UsesClickHouse() bool {
	return c.Source.Type == SourceClickHouse || c.ClickHouse.Archive
}
