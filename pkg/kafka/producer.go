package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Message is one record to publish. An empty Topic uses the producer default.
// Value is sent as-is when it is []byte or string and JSON encoded otherwise.
type Message struct {
	Topic   string
	Key     string
	Value   any
	Headers map[string]string
}

// Producer wraps a kafka-go writer.
type Producer struct {
	writer *kafka.Writer
	codec  string
	topic  string
}

// NewProducer creates a new Kafka producer. The writer dials lazily, so an
// unreachable broker surfaces on the first publish.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := &ProducerConfig{
		RequiredAcks: -1,
		Compression:  "gzip",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    100,
		BatchBytes:   1 << 20,
		BatchTimeout: 100 * time.Millisecond,
		HashByKey:    true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: brokers are required")
	}
	codec, err := parseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}

	var bal kafka.Balancer = &kafka.LeastBytes{}
	if cfg.HashByKey {
		bal = &kafka.Hash{}
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     bal,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:  codec,
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		BatchSize:    cfg.BatchSize,
		BatchBytes:   int64(cfg.BatchBytes),
		BatchTimeout: cfg.BatchTimeout,
		Async:        cfg.Async,
	}
	if cfg.Async && cfg.Completion != nil {
		done := cfg.Completion
		w.Completion = func(msgs []kafka.Message, err error) { done(len(msgs), err) }
	}

	registerMetrics()
	return &Producer{writer: w, codec: cfg.Compression, topic: cfg.Topic}, nil
}

// Publish writes msgs in one batch.
func (p *Producer) Publish(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	start := time.Now()
	out := make([]kafka.Message, 0, len(msgs))
	var size int
	for _, m := range msgs {
		km, err := p.toKafka(m, start)
		if err != nil {
			return err
		}
		size += len(km.Value)
		out = append(out, km)
	}

	err := p.writer.WriteMessages(ctx, out...)
	observe(out[0].Topic, p.codec, size, len(out), time.Since(start), err)
	return err
}

func (p *Producer) toKafka(m Message, at time.Time) (kafka.Message, error) {
	topic := m.Topic
	if topic == "" {
		topic = p.topic
	}
	if topic == "" {
		return kafka.Message{}, errors.New("kafka: no topic given and no default configured")
	}
	value, err := encodeValue(m.Value)
	if err != nil {
		return kafka.Message{}, err
	}
	km := kafka.Message{Topic: topic, Value: value, Time: at}
	if m.Key != "" {
		km.Key = []byte(m.Key)
	}
	for k, v := range m.Headers {
		km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return km, nil
}

// Close flushes pending writes and closes the producer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

func encodeValue(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("kafka: marshal value: %w", err)
	}
	return b, nil
}

func parseCompression(s string) (kafka.Compression, error) {
	switch s {
	case "", "gzip":
		return kafka.Gzip, nil
	case "snappy":
		return kafka.Snappy, nil
	case "lz4":
		return kafka.Lz4, nil
	case "zstd":
		return kafka.Zstd, nil
	case "none":
		return 0, nil
	}
	return 0, fmt.Errorf("kafka: unknown compression %q", s)
}

var (
	metricsOnce    sync.Once
	publishedMsgs  *prometheus.CounterVec
	publishedBytes *prometheus.CounterVec
	publishLatency *prometheus.HistogramVec
)

func registerMetrics() {
	metricsOnce.Do(func() {
		publishedMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "marketcast_kafka_producer_messages_total",
			Help: "Messages published to Kafka by result",
		}, []string{"topic", "compression", "result"})
		publishedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "marketcast_kafka_producer_bytes_total",
			Help: "Payload bytes published",
		}, []string{"topic", "compression"})
		publishLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketcast_kafka_producer_publish_seconds",
			Help:    "Publish latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})
	})
}

func observe(topic, codec string, bytes, count int, took time.Duration, err error) {
	if publishedMsgs == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	publishedMsgs.WithLabelValues(topic, codec, result).Add(float64(count))
	publishedBytes.WithLabelValues(topic, codec).Add(float64(bytes))
	publishLatency.WithLabelValues(topic).Observe(took.Seconds())
}
