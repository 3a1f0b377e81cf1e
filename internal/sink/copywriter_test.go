package sink

import (
	"testing"

	"github.com/goodmetrics/metricsink/internal/metricsmodel"
	"github.com/goodmetrics/metricsink/internal/typeconv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildColumnSchema_SortsNames(t *testing.T) {
	batch := []metricsmodel.Datum{
		{
			Dimensions: map[string]metricsmodel.Dimension{
				"host": metricsmodel.NewStringDimension("a"),
				"az":   metricsmodel.NewStringDimension("b"),
			},
			Measurements: map[string]metricsmodel.Measurement{
				"p99":   metricsmodel.NewF64Measurement(1),
				"count": metricsmodel.NewI64Measurement(1),
			},
		},
	}
	schema := BuildColumnSchema(batch)
	assert.Equal(t, []string{"az", "host"}, schema.DimensionNames)
	assert.Equal(t, []string{"count", "p99"}, schema.MeasurementNames)
	assert.Equal(t, []string{"time", "az", "host", "count", "p99"}, schema.Columns())
}

func TestDatumRowSource_MissingValuesAreNull(t *testing.T) {
	schema := ColumnSchema{
		DimensionNames:   []string{"host"},
		MeasurementNames: []string{"count"},
	}
	src := &datumRowSource{
		datums: []metricsmodel.Datum{
			{UnixNanos: 1000, Measurements: map[string]metricsmodel.Measurement{"count": metricsmodel.NewI64Measurement(5)}},
		},
		schema: schema,
	}

	require.True(t, src.Next())
	row, err := src.Values()
	require.NoError(t, err)
	require.Len(t, row, 3)
	assert.Nil(t, row[1]) // host dimension absent
	assert.Equal(t, int64(5), row[2])
	assert.Equal(t, 1, src.missing)

	assert.False(t, src.Next())
}

func TestMeasurementValue_StatisticSetAndHistogram(t *testing.T) {
	v, err := measurementValue(metricsmodel.StatisticSet{Min: 1, Max: 2, Sum: 3, Count: 4})
	require.NoError(t, err)
	assert.NotNil(t, v)

	v, err = measurementValue(metricsmodel.Histogram{Buckets: map[string]int64{"le=1": 1}})
	require.NoError(t, err)
	assert.IsType(t, []byte{}, v)
}

func TestTableForMetric_Sanitizes(t *testing.T) {
	assert.Equal(t, "http_latency", TableForMetric("http.latency"))
}

func TestBuildColumnSchema_ConflictingTypes_LastWriteWins(t *testing.T) {
	batch := []metricsmodel.Datum{
		{Dimensions: map[string]metricsmodel.Dimension{"host": metricsmodel.NewStringDimension("a")}},
		{Dimensions: map[string]metricsmodel.Dimension{"host": metricsmodel.NewBoolDimension(true)}},
	}
	schema := BuildColumnSchema(batch)
	assert.Equal(t, typeconv.Bool, schema.Dimensions["host"])
	assert.Equal(t, []string{"host"}, schema.Conflicts)
}
