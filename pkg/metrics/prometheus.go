package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	predictions *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	lastPrice   *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
	queueDepth  *prometheus.GaugeVec
	queueWait   *prometheus.HistogramVec
	rateLimited *prometheus.CounterVec
}

// New creates a recorder registered with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketcast_predictions_total",
				Help: "Prediction runs by asset class and outcome",
			},
			[]string{"class", "outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketcast_last_price",
				Help: "Last price seen for an asset",
			},
			[]string{"asset"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"operation"},
		),
		queueDepth: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketcast_admission_queue_depth",
				Help: "Tasks waiting in an admission queue",
			},
			[]string{"lane"},
		),
		queueWait: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketcast_admission_wait_seconds",
				Help:    "Time a task waited in an admission queue before its first attempt",
				Buckets: []float64{0.01, 0.1, 1, 4, 8, 16, 32, 64, 128, 256},
			},
			[]string{"lane"},
		),
		rateLimited: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketcast_rate_limited_total",
				Help: "Provider responses classified as rate limited",
			},
			[]string{"lane"},
		),
	}
}

// RecordPrediction counts one orchestrated run.
func (r *Recorder) RecordPrediction(class, outcome string) {
	r.predictions.WithLabelValues(class, outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for an asset.
func (r *Recorder) RecordLastPrice(asset string, price float64) {
	r.lastPrice.WithLabelValues(asset).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordQueueDepth(lane string, depth int) {
	r.queueDepth.WithLabelValues(lane).Set(float64(depth))
}

func (r *Recorder) RecordQueueWait(lane string, seconds float64) {
	r.queueWait.WithLabelValues(lane).Observe(seconds)
}

func (r *Recorder) RecordRateLimited(lane string) {
	r.rateLimited.WithLabelValues(lane).Inc()
}
