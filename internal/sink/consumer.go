package sink

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/goodmetrics/metricsink/internal/catalog"
	"github.com/goodmetrics/metricsink/internal/ddl"
	"github.com/goodmetrics/metricsink/internal/metricsmodel"
	"github.com/goodmetrics/metricsink/internal/pgpool"
	"github.com/goodmetrics/metricsink/internal/typeconv"
)

// DefaultCoalesceWindow is how long the consumer waits after its first
// batch of a drain cycle before merging in whatever else has queued up,
// trading a little latency for larger, cheaper per-metric COPY writes.
const DefaultCoalesceWindow = 5 * time.Second

// Consumer runs the sink's idle -> draining -> grouping -> writing -> idle
// loop: one blocking pull from the queue, a coalescing sleep, a
// non-blocking sweep of whatever else arrived, then one goroutine per
// distinct metric name writing its rows with the self-healing DDL retry
// built in.
type Consumer struct {
	queue          *Queue
	pool           *pgpool.Pool
	coalesceWindow time.Duration
}

// NewConsumer builds a Consumer reading from queue and writing through
// pool. A zero coalesceWindow uses DefaultCoalesceWindow.
func NewConsumer(queue *Queue, pool *pgpool.Pool, coalesceWindow time.Duration) *Consumer {
	if coalesceWindow <= 0 {
		coalesceWindow = DefaultCoalesceWindow
	}
	return &Consumer{queue: queue, pool: pool, coalesceWindow: coalesceWindow}
}

// Run drives drain cycles until ctx is done or the queue is closed and
// fully drained.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		batch, err := c.queue.DrainOne(ctx)
		if err != nil {
			return err
		}
		merged := [][]metricsmodel.Datum{batch}

		select {
		case <-time.After(c.coalesceWindow):
		case <-ctx.Done():
			c.writeCycle(ctx, merged)
			return ctx.Err()
		}
		merged = append(merged, c.queue.DrainAvailable()...)

		c.writeCycle(ctx, merged)
	}
}

// writeCycle groups every datum across a drain cycle's merged batches by
// metric name and writes each group concurrently.
func (c *Consumer) writeCycle(ctx context.Context, merged [][]metricsmodel.Datum) {
	queueDepth.Set(float64(len(merged)))

	byMetric := groupByMetric(merged)

	metrics := make([]string, 0, len(byMetric))
	for name := range byMetric {
		metrics = append(metrics, name)
	}
	sort.Strings(metrics)

	var wg sync.WaitGroup
	for _, name := range metrics {
		name, datums := name, byMetric[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.sendMetric(ctx, name, datums)
		}()
	}
	wg.Wait()
}

// groupByMetric partitions a drain cycle's merged batches by metric name,
// preserving each metric's datums in arrival order.
func groupByMetric(merged [][]metricsmodel.Datum) map[string][]metricsmodel.Datum {
	byMetric := make(map[string][]metricsmodel.Datum)
	for _, batch := range merged {
		for _, d := range batch {
			byMetric[d.Metric] = append(byMetric[d.Metric], d)
		}
	}
	return byMetric
}

// sendMetric writes one metric's datums, self-healing the target table's
// schema in direct response to whatever error the write actually hit
// rather than pre-computing a migration. A non-retryable classification
// (permission denied, wrong type, a transport failure, an unrecognized
// fatal error) drops the batch rather than retrying: the next batch gets
// a fresh connection and a fresh attempt.
func (c *Consumer) sendMetric(ctx context.Context, metric string, datums []metricsmodel.Datum) {
	start := time.Now()
	defer func() {
		copyDuration.WithLabelValues(metric).Observe(time.Since(start).Seconds())
	}()

	schema := BuildColumnSchema(datums)
	if len(schema.Conflicts) > 0 {
		slog.WarnContext(ctx, "sink.batch.schema_conflict", "metric", metric, "columns", schema.Conflicts)
	}
	table := TableForMetric(metric)

	conn, err := c.pool.Checkout(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "sink.pool.checkout_failed", "metric", metric, "error", err)
		checkoutFailuresTotal.Inc()
		batchesDroppedTotal.WithLabelValues(metric, "checkout_failed").Inc()
		return
	}
	defer conn.Release()
	exec := conn.Unwrap()

	for {
		n, err := WriteBatch(ctx, exec, table, schema, datums)
		if err == nil {
			batchesWrittenTotal.WithLabelValues(metric).Inc()
			rowsWrittenTotal.WithLabelValues(metric).Add(float64(n))
			return
		}

		classified := Classify(err)
		if !c.healSchema(ctx, exec, metric, table, schema, classified) {
			slog.ErrorContext(ctx, "sink.batch.dropped", "metric", metric, "table", table, "error", err, "kind", classified.Kind)
			batchesDroppedTotal.WithLabelValues(metric, "write_failed").Inc()
			return
		}
	}
}

// healSchema applies the one DDL fix-up implied by a classified write
// error and reports whether the caller should retry the write. It never
// guesses at schema beyond the exact table or column the error named.
func (c *Consumer) healSchema(ctx context.Context, exec pgpool.Execer, metric, table string, schema ColumnSchema, classified Classified) bool {
	switch classified.Kind {
	case KindMissingTable:
		if err := ddl.CreateTable(ctx, exec, table, schema.Dimensions, schema.Measurements); err != nil {
			slog.ErrorContext(ctx, "sink.ddl.create_table_failed", "table", table, "error", err)
			return false
		}
		ddlEventsTotal.WithLabelValues("create_table").Inc()
		if err := catalog.Record(ctx, exec, metric, table); err != nil {
			slog.WarnContext(ctx, "sink.catalog.record_failed", "metric", metric, "table", table, "error", err)
		}
		return true
	case KindMissingColumn:
		sqlType, ok := columnType(schema, classified.Column)
		if !ok {
			slog.ErrorContext(ctx, "sink.ddl.unknown_column", "table", table, "column", classified.Column)
			return false
		}
		if err := ddl.AddColumn(ctx, exec, table, classified.Column, sqlType); err != nil {
			slog.ErrorContext(ctx, "sink.ddl.add_column_failed", "table", table, "column", classified.Column, "error", err)
			return false
		}
		ddlEventsTotal.WithLabelValues("add_column").Inc()
		return true
	default:
		// Transport failures and every other database error have no
		// one-shot DDL fix, so there is nothing to retry against: log and
		// drop, and let the next batch reconnect.
		return false
	}
}

// columnType maps a sanitized DB column name (as named by the Error
// Classifier) back to the SQL type it should be created with, matching
// against the sanitized form of each known dimension/measurement name
// since the DB error only ever reports the identifier actually stored.
func columnType(schema ColumnSchema, column string) (typeconv.SQLType, bool) {
	for name, t := range schema.Dimensions {
		if ddl.CleanID(name) == column {
			return t, true
		}
	}
	for name, t := range schema.Measurements {
		if ddl.CleanID(name) == column {
			return t, true
		}
	}
	return typeconv.Unknown, false
}
