package cache

import "time"

// RedisConfig is the Redis backend configuration. Zero values fall back to
// the defaults in NewRedisCache.
type RedisConfig struct {
	Host           string
	Port           int
	Password       string
	DB             int
	PoolSize       int
	PoolTimeout    time.Duration
	MinIdleConns   int
	// Prefix namespaces every key, lock keys included.
	Prefix         string
	// ConnectTimeout bounds how long the initial ping is retried.
	ConnectTimeout time.Duration
}

type RedisOption func(*RedisConfig)

func WithRedisHost(host string) RedisOption { return func(c *RedisConfig) { c.Host = host } }
func WithRedisPort(port int) RedisOption { return func(c *RedisConfig) { c.Port = port } }
func WithRedisPassword(pw string) RedisOption {
	return func(c *RedisConfig) { c.Password = pw }
}
func WithRedisDB(db int) RedisOption { return func(c *RedisConfig) { c.DB = db } }
func WithRedisPrefix(prefix string) RedisOption { return func(c *RedisConfig) { c.Prefix = prefix } }

// WithRedisPool sizes the connection pool. Non-positive values keep the defaults.
func WithRedisPool(size, minIdle int, wait time.Duration) RedisOption {
	return func(c *RedisConfig) {
		if size > 0 {
			c.PoolSize = size
		}
		if minIdle > 0 {
			c.MinIdleConns = minIdle
		}
		if wait > 0 {
			c.PoolTimeout = wait
		}
	}
}

func WithRedisConnectTimeout(d time.Duration) RedisOption {
	return func(c *RedisConfig) {
		if d > 0 {
			c.ConnectTimeout = d
		}
	}
}

// MemoryConfig configures the in-process cache.
type MemoryConfig struct {
	// MaxSize is the entry count beyond which the least recently used entry is evicted.
	MaxSize         int
	CleanupInterval time.Duration
}

type MemoryOption func(*MemoryConfig)

func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) {
		if size > 0 {
			c.MaxSize = size
		}
	}
}

func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		if interval > 0 {
			c.CleanupInterval = interval
		}
	}
}
