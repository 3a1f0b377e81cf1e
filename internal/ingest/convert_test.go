package ingest

import (
	"testing"

	"github.com/goodmetrics/metricsink/internal/metricsmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestDatumFromStruct_DecodesAllFieldKinds(t *testing.T) {
	s, err := structpb.NewStruct(map[string]interface{}{
		"metric":     "http.request",
		"unix_nanos": 1700000000000000000.0,
		"dimensions": map[string]interface{}{
			"host":   "a",
			"status": 200.0,
			"ok":     true,
		},
		"measurements": map[string]interface{}{
			"latency_ms": 12.5,
		},
	})
	require.NoError(t, err)

	d, err := datumFromStruct(s)
	require.NoError(t, err)

	assert.Equal(t, "http.request", d.Metric)
	assert.Equal(t, metricsmodel.StringDimension{Value: "a"}, d.Dimensions["host"])
	assert.Equal(t, metricsmodel.NumberDimension{Value: 200}, d.Dimensions["status"])
	assert.Equal(t, metricsmodel.BoolDimension{Value: true}, d.Dimensions["ok"])
	assert.Equal(t, metricsmodel.F64Measurement{Value: 12.5}, d.Measurements["latency_ms"])
}

func TestDatumFromStruct_MissingMetricNameErrors(t *testing.T) {
	s, err := structpb.NewStruct(map[string]interface{}{})
	require.NoError(t, err)

	_, err = datumFromStruct(s)
	assert.Error(t, err)
}

func TestDatumFromStruct_NilStructErrors(t *testing.T) {
	_, err := datumFromStruct(nil)
	assert.Error(t, err)
}
