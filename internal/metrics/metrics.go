package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Computation outcome labels.
const (
	OutcomeCacheHit            = "cache_hit"
	OutcomeComputed            = "computed"
	OutcomeFailed              = "failed"
	OutcomeInsufficientCredits = "insufficient_credits"
)

var (
	fitComputations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unifit_fit_computations_total",
			Help: "Fit computation attempts by outcome",
		},
		[]string{"outcome"},
	)

	evaluatorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "unifit_evaluator_duration_seconds",
			Help:    "Factor evaluator call latency",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		},
		[]string{"success"},
	)

	categoryCountDesc = prometheus.NewDesc(
		"unifit_fit_records",
		"Stored fit records by category",
		[]string{"category"},
		nil,
	)
)

// CategoryCounter provides record counts per category for the collector.
type CategoryCounter interface {
	CountFitRecordsByCategory(ctx context.Context) (map[string]int64, error)
}

// CategoryCollector is a custom Prometheus collector that reads fit record
// counts from the database on each scrape.
type CategoryCollector struct {
	db     CategoryCounter
	logger *zap.Logger
}

// Describe sends the metric descriptor to the channel.
func (c *CategoryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- categoryCountDesc
}

// Collect queries the database for record counts and emits them as gauges.
func (c *CategoryCollector) Collect(ch chan<- prometheus.Metric) {
	counts, err := c.db.CountFitRecordsByCategory(context.Background())
	if err != nil {
		c.logger.Error("failed to collect fit record metrics", zap.Error(err))
		return
	}
	for category, count := range counts {
		ch <- prometheus.MustNewConstMetric(
			categoryCountDesc,
			prometheus.GaugeValue,
			float64(count),
			category,
		)
	}
}

var initOnce sync.Once

// Init registers all collectors. Must be called once at startup.
func Init(db CategoryCounter, logger *zap.Logger) {
	initOnce.Do(func() {
		prometheus.MustRegister(fitComputations, evaluatorDuration)
		prometheus.MustRegister(&CategoryCollector{db: db, logger: logger})
	})
}

// RecordFitComputation counts one computation attempt by outcome.
func RecordFitComputation(outcome string) {
	fitComputations.WithLabelValues(outcome).Inc()
}

// ObserveEvaluatorDuration records one evaluator call's latency.
func ObserveEvaluatorDuration(d time.Duration, success bool) {
	label := "false"
	if success {
		label = "true"
	}
	evaluatorDuration.WithLabelValues(label).Observe(d.Seconds())
}
