package sink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sink_batches_written_total",
		Help: "Number of per-metric batches successfully written via COPY.",
	}, []string{"metric"})

	rowsWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sink_rows_written_total",
		Help: "Number of datum rows successfully written via COPY.",
	}, []string{"metric"})

	batchesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sink_batches_dropped_total",
		Help: "Number of per-metric batches dropped without being written, by reason.",
	}, []string{"metric", "reason"})

	ddlEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sink_ddl_events_total",
		Help: "Number of self-healing DDL operations issued, by kind.",
	}, []string{"kind"})

	copyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sink_copy_duration_seconds",
		Help:    "Duration of a single per-metric COPY write, including any DDL retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"metric"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sink_queue_depth",
		Help: "Number of batches merged into the current drain cycle.",
	})

	checkoutFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sink_pool_checkout_failures_total",
		Help: "Number of connection pool checkouts that failed, causing a batch to be dropped.",
	})
)
