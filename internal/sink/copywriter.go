package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/goodmetrics/metricsink/internal/ddl"
	"github.com/goodmetrics/metricsink/internal/metricsmodel"
	"github.com/goodmetrics/metricsink/internal/pgpool"
	"github.com/goodmetrics/metricsink/internal/typeconv"
	"github.com/jackc/pgx/v5"
)

// TableForMetric derives the table name the sink writes a metric's datums
// to: the metric name run through the identifier sanitizer.
func TableForMetric(metric string) string {
	return ddl.CleanID(metric)
}

// ColumnSchema is the computed, ordered column list for one write: time
// first, then dimensions sorted by name, then measurements sorted by name.
// This ordering is a fixed contract the COPY writer and DDL helpers both
// rely on.
type ColumnSchema struct {
	DimensionNames   []string
	MeasurementNames []string
	Dimensions       map[string]typeconv.SQLType
	Measurements     map[string]typeconv.SQLType
	// Conflicts lists dimension/measurement names that appeared with more
	// than one kind within the batch. The last observation won; these are
	// surfaced only so the caller can log a warning about the producer
	// that sent them.
	Conflicts []string
}

// BuildColumnSchema computes the column schema for a same-metric batch,
// letting the last observation win on any same-name type conflict.
func BuildColumnSchema(datums []metricsmodel.Datum) ColumnSchema {
	dims, dimConflicts := typeconv.DimensionTypeMap(datums)
	meas, measConflicts := typeconv.MeasurementTypeMap(datums)

	schema := ColumnSchema{Dimensions: dims, Measurements: meas}
	for name := range dims {
		schema.DimensionNames = append(schema.DimensionNames, name)
	}
	for name := range meas {
		schema.MeasurementNames = append(schema.MeasurementNames, name)
	}
	sortStrings(schema.DimensionNames)
	sortStrings(schema.MeasurementNames)
	schema.Conflicts = append(schema.Conflicts, dimConflicts...)
	schema.Conflicts = append(schema.Conflicts, measConflicts...)
	return schema
}

// Columns returns the full ordered, sanitized column name list: time,
// then dimensions, then measurements.
func (s ColumnSchema) Columns() []string {
	cols := make([]string, 0, 1+len(s.DimensionNames)+len(s.MeasurementNames))
	cols = append(cols, ddl.TimeColumn)
	for _, n := range s.DimensionNames {
		cols = append(cols, ddl.CleanID(n))
	}
	for _, n := range s.MeasurementNames {
		cols = append(cols, ddl.CleanID(n))
	}
	return cols
}

// datumRowSource adapts a same-metric batch of Datums to pgx.CopyFromSource,
// emitting exactly one binary row per datum in the schema's column order.
type datumRowSource struct {
	datums  []metricsmodel.Datum
	schema  ColumnSchema
	idx     int
	missing int // count of NULLs written for an absent dimension/measurement
}

func (s *datumRowSource) Next() bool {
	s.idx++
	return s.idx <= len(s.datums)
}

func (s *datumRowSource) Values() ([]interface{}, error) {
	d := s.datums[s.idx-1]
	row := make([]interface{}, 0, 1+len(s.schema.DimensionNames)+len(s.schema.MeasurementNames))
	row = append(row, time.Unix(0, int64(d.UnixNanos)).UTC())

	for _, name := range s.schema.DimensionNames {
		v, ok := d.Dimensions[name]
		if !ok {
			s.missing++
			row = append(row, nil)
			continue
		}
		row = append(row, dimensionValue(v))
	}
	for _, name := range s.schema.MeasurementNames {
		v, ok := d.Measurements[name]
		if !ok {
			s.missing++
			row = append(row, nil)
			continue
		}
		val, err := measurementValue(v)
		if err != nil {
			return nil, err
		}
		row = append(row, val)
	}
	return row, nil
}

func (s *datumRowSource) Err() error { return nil }

func dimensionValue(d metricsmodel.Dimension) interface{} {
	switch v := d.(type) {
	case metricsmodel.StringDimension:
		return v.Value
	case metricsmodel.NumberDimension:
		return v.Value
	case metricsmodel.BoolDimension:
		return v.Value
	default:
		return nil
	}
}

func measurementValue(m metricsmodel.Measurement) (interface{}, error) {
	switch v := m.(type) {
	case metricsmodel.I64Measurement:
		return v.Value, nil
	case metricsmodel.I32Measurement:
		return v.Value, nil
	case metricsmodel.F64Measurement:
		return v.Value, nil
	case metricsmodel.F32Measurement:
		return v.Value, nil
	case metricsmodel.StatisticSet:
		return pgx.CompositeFields{v.Min, v.Max, v.Sum, v.Count}, nil
	case metricsmodel.Histogram:
		b, err := json.Marshal(v.Buckets)
		if err != nil {
			return nil, fmt.Errorf("marshal histogram buckets: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported measurement type %T", m)
	}
}

// WriteBatch opens a binary COPY for a single metric's table and streams
// every datum in the batch as one row, in the schema's fixed column order.
// It returns the number of rows written and whatever error pgx surfaces,
// unclassified; the caller runs it through Classify to decide whether to
// retry after a DDL fix.
func WriteBatch(ctx context.Context, exec pgpool.Execer, table string, schema ColumnSchema, datums []metricsmodel.Datum) (int64, error) {
	src := &datumRowSource{datums: datums, schema: schema}
	n, err := exec.CopyFrom(ctx, pgx.Identifier{table}, schema.Columns(), src)
	if src.missing > 0 {
		slog.WarnContext(ctx, "sink.copy.missing_values", "table", table, "count", src.missing)
	}
	return n, err
}
