package sqldb

import "time"

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds pool and connect settings shared by every dialect.
type ClientConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// WithPool sets connection pool limits.
func WithPool(maxOpen, maxIdle int, lifetime time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.MaxOpenConns = maxOpen
		c.MaxIdleConns = maxIdle
		c.ConnMaxLifetime = lifetime
	}
}

// WithConnectTimeout bounds how long the initial ping is retried.
func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.ConnectTimeout = d
	}
}

// ClickHouseConfig describes a ClickHouse endpoint.
type ClickHouseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	UseHTTP     bool
	DialTimeout time.Duration
	ReadTimeout time.Duration
	MaxExecTime time.Duration
}
