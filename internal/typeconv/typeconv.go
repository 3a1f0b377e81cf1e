// Package typeconv maps metricsmodel dimension and measurement values to
// the SQL column types the sink's DDL and COPY writer need. It is pure and
// stateless: given a value (or a set of values for the same column across a
// batch), it answers one question — what SQL type does this column need —
// and never touches a database connection itself.
package typeconv

import (
	"sort"

	"github.com/goodmetrics/metricsink/internal/metricsmodel"
)

// SQLType is the small fixed set of column types the sink ever creates.
type SQLType int

const (
	Unknown SQLType = iota
	Text
	Int8
	Int4
	Float8
	Float4
	Bool
	StatisticSet
	JSONB
)

// Name returns the Postgres type name used both in DDL and when deciding
// how to binary-encode a column for COPY.
func (t SQLType) Name() string {
	switch t {
	case Text:
		return "text"
	case Int8:
		return "bigint"
	case Int4:
		return "integer"
	case Float8:
		return "double precision"
	case Float4:
		return "real"
	case Bool:
		return "boolean"
	case StatisticSet:
		return "statistic_set"
	case JSONB:
		return "jsonb"
	default:
		return ""
	}
}

func (t SQLType) String() string { return t.Name() }

// DimensionSQLType returns the column type for a dimension value.
func DimensionSQLType(d metricsmodel.Dimension) SQLType {
	switch d.(type) {
	case metricsmodel.StringDimension:
		return Text
	case metricsmodel.NumberDimension:
		return Int8
	case metricsmodel.BoolDimension:
		return Bool
	default:
		return Unknown
	}
}

// MeasurementSQLType returns the column type for a measurement value.
func MeasurementSQLType(m metricsmodel.Measurement) SQLType {
	switch m.(type) {
	case metricsmodel.I64Measurement:
		return Int8
	case metricsmodel.I32Measurement:
		return Int4
	case metricsmodel.F64Measurement:
		return Float8
	case metricsmodel.F32Measurement:
		return Float4
	case metricsmodel.StatisticSet:
		return StatisticSet
	case metricsmodel.Histogram:
		return JSONB
	default:
		return Unknown
	}
}

// DimensionTypeMap computes, for every dimension key present across the
// batch, the SQL type its column must have. The same key appearing with
// two incompatible kinds within one batch is a producer error, not ours
// to fail the batch over: the last observation wins, and the name is
// reported back in conflicts (sorted, deduplicated) so the caller can log
// a warning.
func DimensionTypeMap(datums []metricsmodel.Datum) (types map[string]SQLType, conflicts []string) {
	out := map[string]SQLType{}
	seen := map[string]bool{}
	for _, d := range datums {
		for name, dim := range d.Dimensions {
			t := DimensionSQLType(dim)
			if existing, ok := out[name]; ok && existing != t && !seen[name] {
				conflicts = append(conflicts, name)
				seen[name] = true
			}
			out[name] = t
		}
	}
	sort.Strings(conflicts)
	return out, conflicts
}

// MeasurementTypeMap is the measurement analogue of DimensionTypeMap.
func MeasurementTypeMap(datums []metricsmodel.Datum) (types map[string]SQLType, conflicts []string) {
	out := map[string]SQLType{}
	seen := map[string]bool{}
	for _, d := range datums {
		for name, m := range d.Measurements {
			t := MeasurementSQLType(m)
			if existing, ok := out[name]; ok && existing != t && !seen[name] {
				conflicts = append(conflicts, name)
				seen[name] = true
			}
			out[name] = t
		}
	}
	sort.Strings(conflicts)
	return out, conflicts
}
