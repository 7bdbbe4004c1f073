package kafka

import "time"

// ProducerConfig is the writer configuration. NewProducer fills the defaults.
type ProducerConfig struct {
	Brokers      []string
	// Topic is used for messages that name none.
	Topic        string
	RequiredAcks int // -1 waits for all in-sync replicas
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchBytes   int
	BatchTimeout time.Duration
	// Async writes return immediately; failures then only reach Completion.
	Async        bool
	// HashByKey keeps every event for one asset on one partition.
	HashByKey    bool
	Completion   func(messages int, err error)
}

type ProducerOption func(*ProducerConfig)

func WithBrokers(brokers []string) ProducerOption { return func(c *ProducerConfig) { c.Brokers = brokers } }
func WithTopic(topic string) ProducerOption { return func(c *ProducerConfig) { c.Topic = topic } }
func WithRequiredAcks(acks int) ProducerOption { return func(c *ProducerConfig) { c.RequiredAcks = acks } }
func WithAsync(async bool) ProducerOption { return func(c *ProducerConfig) { c.Async = async } }
func WithHashByKey(hash bool) ProducerOption { return func(c *ProducerConfig) { c.HashByKey = hash } }

// WithCompression selects gzip, snappy, lz4, zstd or none.
func WithCompression(codec string) ProducerOption {
	return func(c *ProducerConfig) { c.Compression = codec }
}

func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

// WithBatching bounds a write batch by message count, bytes and linger time.
// Zero values keep the defaults.
func WithBatching(size, bytes int, linger time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if size > 0 {
			c.BatchSize = size
		}
		if bytes > 0 {
			c.BatchBytes = bytes
		}
		if linger > 0 {
			c.BatchTimeout = linger
		}
	}
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if write > 0 {
			c.WriteTimeout = write
		}
		if read > 0 {
			c.ReadTimeout = read
		}
	}
}

func WithCompletion(fn func(messages int, err error)) ProducerOption {
	return func(c *ProducerConfig) { c.Completion = fn }
}
