package metricsmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatum_DimensionNames_Sorted(t *testing.T) {
	d := Datum{
		Metric: "http.latency",
		Dimensions: map[string]Dimension{
			"host":   NewStringDimension("a"),
			"az":     NewStringDimension("b"),
			"status": NewNumberDimension(200),
		},
	}

	assert.Equal(t, []string{"az", "host", "status"}, d.DimensionNames())
}

func TestDatum_MeasurementNames_Sorted(t *testing.T) {
	d := Datum{
		Measurements: map[string]Measurement{
			"p99":   NewF64Measurement(1.2),
			"count": NewI64Measurement(4),
		},
	}

	assert.Equal(t, []string{"count", "p99"}, d.MeasurementNames())
}

func TestDatum_EmptyMapsReturnNil(t *testing.T) {
	var d Datum
	assert.Nil(t, d.DimensionNames())
	assert.Nil(t, d.MeasurementNames())
}
