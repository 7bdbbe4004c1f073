package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	c := Default()
	c.IndianAPI.APIKey = "k"
	return c
}

func TestDefaults(t *testing.T) {
	c := Default()
	if c.IndianAPI.InterCallDelay != 4*time.Second || c.IndianAPI.Cooldown != 60*time.Second {
		t.Fatalf("queue timings = %v/%v", c.IndianAPI.InterCallDelay, c.IndianAPI.Cooldown)
	}
	if c.IndianAPI.MaxRateLimitRetries != 0 {
		t.Fatalf("retries default = %d", c.IndianAPI.MaxRateLimitRetries)
	}
	if c.Store.DuplicatePolicy != DuplicatesAllow || c.Store.Backend != "sqlite" {
		t.Fatalf("store defaults = %s/%s", c.Store.Backend, c.Store.DuplicatePolicy)
	}
	if len(c.Cron.DefaultStocks) != 5 || c.Cron.DefaultStocks[0] != "RELIANCE" {
		t.Fatalf("default stocks = %v", c.Cron.DefaultStocks)
	}
	if c.Cron.Timeframe != "4h" || c.Server.Port != 8080 {
		t.Fatalf("cron/server defaults = %s/%d", c.Cron.Timeframe, c.Server.Port)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  port: 9090
indianapi:
  api_key: from-file
  inter_call_delay: 2s
store:
  backend: postgres
  duplicate_policy: supersede-if-unexpired
  postgres:
    dsn: postgres://localhost/marketcast
cron:
  default_coins: [dogecoin]
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 9090 || c.IndianAPI.InterCallDelay != 2*time.Second {
		t.Fatalf("file values not applied: %+v", c.Server)
	}
	if c.IndianAPI.Cooldown != 60*time.Second {
		t.Fatalf("unset field should keep default, got %v", c.IndianAPI.Cooldown)
	}
	if len(c.Cron.DefaultCoins) != 1 || c.Cron.DefaultCoins[0] != "dogecoin" {
		t.Fatalf("coins = %v", c.Cron.DefaultCoins)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CRON_SECRET", "s3cret")
	t.Setenv("INDIAN_API_KEY", "env-key")
	t.Setenv("PORT", "7000")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("DUPLICATE_POLICY", DuplicatesSupersede)

	c := Default()
	c.ApplyEnv()
	if c.Cron.Secret != "s3cret" || c.IndianAPI.APIKey != "env-key" || c.Server.Port != 7000 {
		t.Fatalf("env not applied: secret=%q key=%q port=%d", c.Cron.Secret, c.IndianAPI.APIKey, c.Server.Port)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka = %+v", c.Kafka)
	}
	if c.Store.DuplicatePolicy != DuplicatesSupersede {
		t.Fatalf("policy = %s", c.Store.DuplicatePolicy)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"missing api key", func(c *Config) { c.IndianAPI.APIKey = "" }},
		{"negative delay", func(c *Config) { c.IndianAPI.InterCallDelay = -time.Second }},
		{"unknown predictor", func(c *Config) { c.Predictor.Kind = "oracle" }},
		{"remote without url", func(c *Config) { c.Predictor.Kind = "remote" }},
		{"unknown policy", func(c *Config) { c.Store.DuplicatePolicy = "replace" }},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = "postgres" }},
		{"clickhouse without host", func(c *Config) { c.Store.Backend = "clickhouse" }},
		{"unknown cache", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true }},
	}
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("baseline invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mut(c)
			if err := c.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestMissingCronSecretIsNotAStartupError(t *testing.T) {
	c := validConfig()
	c.Cron.Secret = ""
	if err := c.Validate(); err != nil {
		t.Fatalf("missing secret must be reported per request, got %v", err)
	}
}
