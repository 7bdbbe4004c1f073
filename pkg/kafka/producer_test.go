package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
}

func TestNewProducerRejectsUnknownCompression(t *testing.T) {
	if _, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithCompression("brotli")); err == nil {
		t.Fatalf("expected compression error")
	}
}

func TestEncodeValue(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"bytes", []byte("raw"), "raw"},
		{"string", "text", "text"},
		{"json", map[string]int{"a": 1}, `{"a":1}`},
	}
	for _, tc := range cases {
		got, err := encodeValue(tc.in)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if string(got) != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
	if _, err := encodeValue(make(chan int)); err == nil {
		t.Fatalf("expected marshal error for channel")
	}
}

func TestParseCompression(t *testing.T) {
	for in, want := range map[string]kafka.Compression{"": kafka.Gzip, "zstd": kafka.Zstd, "none": 0} {
		got, err := parseCompression(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %v, %v", in, got, err)
		}
	}
}

func TestToKafkaMessage(t *testing.T) {
	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithTopic("prediction.created"))
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	defer p.Close()

	at := time.Now()
	km, err := p.toKafka(Message{Key: "stock:TCS", Value: map[string]string{"id": "1"}, Headers: map[string]string{"event-type": "prediction.created"}}, at)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if km.Topic != "prediction.created" || string(km.Key) != "stock:TCS" || string(km.Value) != `{"id":"1"}` {
		t.Fatalf("unexpected message: %+v", km)
	}
	if len(km.Headers) != 1 || km.Headers[0].Key != "event-type" || !km.Time.Equal(at) {
		t.Fatalf("unexpected headers/time: %+v", km)
	}
}

func TestToKafkaWithoutTopic(t *testing.T) {
	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}))
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	defer p.Close()
	if _, err := p.toKafka(Message{Value: "x"}, time.Now()); err == nil {
		t.Fatalf("expected error without topic")
	}
}
