package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid marks every configuration problem reported by Validate.
var ErrInvalid = errors.New("invalid configuration")

const (
	DuplicatesAllow     = "allow-duplicates"
	DuplicatesSupersede = "supersede-if-unexpired"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10m"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		TriggerRPS      float64       `yaml:"trigger_rps" default:"1"`
		TriggerBurst    int           `yaml:"trigger_burst" default:"3"`
	} `yaml:"server"`
	Log struct {
		Level      string `yaml:"level" default:"info"`
		Format     string `yaml:"format" default:"console"`
		Output     string `yaml:"output" default:"stdout"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Cron struct {
		Secret         string        `yaml:"secret"`
		Timeframe      string        `yaml:"timeframe" default:"4h"`
		SystemUserID   string        `yaml:"system_user_id" default:"00000000-0000-0000-0000-000000000000"`
		DefaultStocks  []string      `yaml:"default_stocks" default:"[\"RELIANCE\",\"TCS\",\"INFY\",\"HDFCBANK\",\"ICICIBANK\"]"`
		DefaultCoins   []string      `yaml:"default_coins" default:"[\"bitcoin\",\"ethereum\",\"solana\"]"`
		StockSchedule  string        `yaml:"stock_schedule"`
		CryptoSchedule string        `yaml:"crypto_schedule"`
		LockTTL        time.Duration `yaml:"lock_ttl" default:"15m"`
	} `yaml:"cron"`
	IndianAPI struct {
		BaseURL             string        `yaml:"base_url" default:"https://stock.indianapi.in"`
		APIKey              string        `yaml:"api_key"`
		Period              string        `yaml:"period" default:"6m"`
		Filter              string        `yaml:"filter" default:"default"`
		Timeout             time.Duration `yaml:"timeout" default:"30s"`
		InterCallDelay      time.Duration `yaml:"inter_call_delay" default:"4s"`
		Cooldown            time.Duration `yaml:"cooldown" default:"60s"`
		MaxRateLimitRetries int           `yaml:"max_rate_limit_retries"`
	} `yaml:"indianapi"`
	CoinGecko struct {
		BaseURL         string        `yaml:"base_url" default:"https://api.coingecko.com/api/v3"`
		APIKey          string        `yaml:"api_key"`
		VsCurrency      string        `yaml:"vs_currency" default:"usd"`
		HistoryDays     int           `yaml:"history_days" default:"30"`
		Timeout         time.Duration `yaml:"timeout" default:"20s"`
		ListingCacheTTL time.Duration `yaml:"listing_cache_ttl" default:"60s"`
	} `yaml:"coingecko"`
	Predictor struct {
		Kind         string        `yaml:"kind" default:"ensemble"`
		RemoteURL    string        `yaml:"remote_url"`
		Timeout      time.Duration `yaml:"timeout" default:"10s"`
		StockWindow  int           `yaml:"stock_window" default:"30"`
		CryptoWindow int           `yaml:"crypto_window" default:"60"`
	} `yaml:"predictor"`
	Store struct {
		Backend         string        `yaml:"backend" default:"sqlite"`
		DuplicatePolicy string        `yaml:"duplicate_policy" default:"allow-duplicates"`
		ConnectTimeout  time.Duration `yaml:"connect_timeout" default:"30s"`
		SQLite          struct {
			Path string `yaml:"path" default:"marketcast.db"`
		} `yaml:"sqlite"`
		Postgres struct {
			DSN          string `yaml:"dsn"`
			MaxOpenConns int    `yaml:"max_open_conns" default:"10"`
		} `yaml:"postgres"`
		ClickHouse struct {
			Host             string        `yaml:"host"`
			Port             int           `yaml:"port" default:"9000"`
			Database         string        `yaml:"database" default:"marketcast"`
			User             string        `yaml:"user" default:"default"`
			Password         string        `yaml:"password"`
			UseHTTP          bool          `yaml:"use_http"`
			DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
			ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
			MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
		} `yaml:"clickhouse"`
	} `yaml:"store"`
	Cache struct {
		Backend       string `yaml:"backend" default:"memory"`
		MemoryMaxSize int    `yaml:"memory_max_size" default:"1000"`
		Redis         struct {
			Host           string        `yaml:"host" default:"localhost"`
			Port           int           `yaml:"port" default:"6379"`
			Password       string        `yaml:"password"`
			DB             int           `yaml:"db"`
			Prefix         string        `yaml:"prefix" default:"marketcast"`
			PoolSize       int           `yaml:"pool_size" default:"10"`
			ConnectTimeout time.Duration `yaml:"connect_timeout" default:"15s"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"prediction.created"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
}

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads a YAML configuration file and fills unset fields with defaults.
// An empty path skips the file and yields defaults only.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (when present), the YAML file, then applies environment overrides and validates.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides secrets and deployment knobs from the process environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CRON_SECRET"); v != "" {
		c.Cron.Secret = v
	}
	if v := os.Getenv("INDIAN_API_KEY"); v != "" {
		c.IndianAPI.APIKey = v
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		c.CoinGecko.APIKey = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("DUPLICATE_POLICY"); v != "" {
		c.Store.DuplicatePolicy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Store.SQLite.Path = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Store.Postgres.DSN = v
	} else if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.Postgres.DSN = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.Store.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Host = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
}

// Validate checks that every required secret and endpoint is present.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return invalid("environment is required")
	}
	if c.IndianAPI.BaseURL == "" {
		return invalid("indianapi.base_url is required")
	}
	if c.IndianAPI.APIKey == "" {
		return invalid("indianapi.api_key is required (INDIAN_API_KEY)")
	}
	if c.IndianAPI.InterCallDelay < 0 || c.IndianAPI.Cooldown < 0 {
		return invalid("indianapi delays cannot be negative")
	}
	if c.CoinGecko.BaseURL == "" {
		return invalid("coingecko.base_url is required")
	}
	if c.Cron.Timeframe == "" {
		return invalid("cron.timeframe is required")
	}
	if c.Cron.SystemUserID == "" {
		return invalid("cron.system_user_id is required")
	}

	switch c.Predictor.Kind {
	case "ensemble":
	case "remote":
		if c.Predictor.RemoteURL == "" {
			return invalid("predictor.remote_url is required for kind 'remote'")
		}
	default:
		return invalid(fmt.Sprintf("predictor.kind must be 'ensemble' or 'remote', got '%s'", c.Predictor.Kind))
	}

	switch c.Store.DuplicatePolicy {
	case DuplicatesAllow, DuplicatesSupersede:
	default:
		return invalid(fmt.Sprintf("store.duplicate_policy must be '%s' or '%s', got '%s'",
			DuplicatesAllow, DuplicatesSupersede, c.Store.DuplicatePolicy))
	}

	switch c.Store.Backend {
	case "sqlite":
		if c.Store.SQLite.Path == "" {
			return invalid("store.sqlite.path is required")
		}
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return invalid("store.postgres.dsn is required (POSTGRES_DSN)")
		}
	case "clickhouse":
		if c.Store.ClickHouse.Host == "" {
			return invalid("store.clickhouse.host is required")
		}
	default:
		return invalid(fmt.Sprintf("store.backend must be 'sqlite', 'postgres' or 'clickhouse', got '%s'", c.Store.Backend))
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return invalid(fmt.Sprintf("cache.backend must be 'memory' or 'redis', got '%s'", c.Cache.Backend))
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return invalid("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalid, msg)
}
