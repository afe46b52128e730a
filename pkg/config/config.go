package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ArbBoard/internal/domain/models"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		IdleTimeout     time.Duration `yaml:"idle_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		AllowOrigins    []string      `yaml:"allow_origins"`
		RateLimit       struct {
			RPS   float64 `yaml:"rps" default:"5"`
			Burst int     `yaml:"burst" default:"10"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Signal struct {
		FetchTimeout   time.Duration `yaml:"fetch_timeout" default:"15s"`
		StreamInterval time.Duration `yaml:"stream_interval" default:"30s"`
		MinInterval    time.Duration `yaml:"min_interval" default:"5s"`
	} `yaml:"signal"`
	Quotes struct {
		Source   string `yaml:"source" default:"sina"`
		Fallback bool   `yaml:"fallback"`
		Sina     struct {
			BaseURL         string        `yaml:"base_url" default:"https://stock2.finance.sina.com.cn/futures/api/jsonp.php"`
			Timeout         time.Duration `yaml:"timeout" default:"10s"`
			RPS             float64       `yaml:"rps" default:"2"`
			Burst           int           `yaml:"burst" default:"4"`
			BreakerFailures uint32        `yaml:"breaker_failures" default:"5"`
			BreakerTimeout  time.Duration `yaml:"breaker_timeout" default:"30s"`
		} `yaml:"sina"`
	} `yaml:"quotes"`
	Cache struct {
		Backend      string        `yaml:"backend" default:"memory"`
		TTL          time.Duration `yaml:"ttl" default:"1h"`
		MaxEntries   int           `yaml:"max_entries" default:"256"`
		L1TTL        time.Duration `yaml:"l1_ttl" default:"5m"`
		WarmInterval time.Duration `yaml:"warm_interval"` // 0 disables the background warmer
	} `yaml:"cache"`
	Redis struct {
		Addr         string        `yaml:"addr" default:"localhost:6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		PoolSize     int           `yaml:"pool_size" default:"10"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
		PoolTimeout  time.Duration `yaml:"pool_timeout" default:"4s"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		SignalsTopic string        `yaml:"signals_topic" default:"arbboard.signals"`
		BarsTopic    string        `yaml:"bars_topic" default:"arbboard.bars"`
		GroupID      string        `yaml:"group_id" default:"arbboard-ingest"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
		Compression  string        `yaml:"compression" default:"snappy"`
		RequiredAcks int           `yaml:"required_acks" default:"1"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"arbboard"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"` // 0 keeps the server default
	} `yaml:"clickhouse"`
	Ingest struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"ingest"`
	Pairs []models.PairDefinition `yaml:"pairs"`
}

// Default returns a config populated only from struct defaults.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		c := Default()
		return c, c.Validate()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the given lookup (os.Getenv in production).
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("ARBBOARD_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("QUOTES_SOURCE"); v != "" {
		c.Quotes.Source = v
	}
	if v := getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Quotes.Source {
	case "sina":
	case "clickhouse":
		if !c.ClickHouse.Enabled {
			return fmt.Errorf("quotes.source 'clickhouse' requires clickhouse.enabled")
		}
	default:
		return fmt.Errorf("quotes.source must be 'sina' or 'clickhouse', got '%s'", c.Quotes.Source)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "layered", "none":
	default:
		return fmt.Errorf("cache.backend must be 'memory', 'redis', 'layered' or 'none', got '%s'", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Cache.WarmInterval < 0 || (c.Cache.WarmInterval > 0 && c.Cache.Backend == "none") {
		return fmt.Errorf("cache.warm_interval needs a cache backend and a non-negative value")
	}
	if c.Signal.MinInterval <= 0 || c.Signal.StreamInterval < c.Signal.MinInterval {
		return fmt.Errorf("signal.stream_interval must be >= signal.min_interval")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	switch c.Kafka.Compression {
	case "snappy", "gzip", "lz4", "zstd":
	default:
		return fmt.Errorf("kafka.compression must be 'snappy', 'gzip', 'lz4' or 'zstd', got '%s'", c.Kafka.Compression)
	}
	if c.Kafka.RequiredAcks < -1 || c.Kafka.RequiredAcks > 1 {
		return fmt.Errorf("kafka.required_acks must be -1, 0 or 1, got %d", c.Kafka.RequiredAcks)
	}
	if c.Ingest.Enabled && (!c.Kafka.Enabled || !c.ClickHouse.Enabled) {
		return fmt.Errorf("ingest requires kafka and clickhouse to be enabled")
	}
	return nil
}
