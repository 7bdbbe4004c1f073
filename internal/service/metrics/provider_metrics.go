package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "marketcast",
			Subsystem: "provider",
			Name:      "request_seconds",
			Help:      "Latency of market data provider calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "endpoint"},
	)

	ProviderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketcast",
			Subsystem: "provider",
			Name:      "errors_total",
			Help:      "Failed market data provider calls by classification",
		},
		[]string{"provider", "endpoint", "class"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ProviderLatency, ProviderErrors)
	})
}

// ObserveCall records one provider round trip. class is empty on success.
func ObserveCall(provider, endpoint string, start time.Time, class string) {
	Register()
	ProviderLatency.WithLabelValues(provider, endpoint).Observe(time.Since(start).Seconds())
	if class != "" {
		ProviderErrors.WithLabelValues(provider, endpoint, class).Inc()
	}
}
