package sink

import (
	"testing"

	"github.com/goodmetrics/metricsink/internal/metricsmodel"
	"github.com/goodmetrics/metricsink/internal/typeconv"
	"github.com/stretchr/testify/assert"
)

func TestColumnType_MatchesSanitizedName(t *testing.T) {
	schema := ColumnSchema{
		Dimensions:   map[string]typeconv.SQLType{"HTTP.Host": typeconv.Text},
		Measurements: map[string]typeconv.SQLType{"p99": typeconv.Float8},
	}

	sqlType, ok := columnType(schema, "http_host")
	assert.True(t, ok)
	assert.Equal(t, typeconv.Text, sqlType)

	sqlType, ok = columnType(schema, "p99")
	assert.True(t, ok)
	assert.Equal(t, typeconv.Float8, sqlType)

	_, ok = columnType(schema, "nonexistent")
	assert.False(t, ok)
}

func TestWriteCycle_GroupsByMetric(t *testing.T) {
	merged := [][]metricsmodel.Datum{
		{
			{Metric: "a", UnixNanos: 1},
			{Metric: "b", UnixNanos: 2},
		},
		{
			{Metric: "a", UnixNanos: 3},
		},
	}

	byMetric := groupByMetric(merged)

	assert.Len(t, byMetric["a"], 2)
	assert.Len(t, byMetric["b"], 1)
}
