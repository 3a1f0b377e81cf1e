package ingest

import (
	"context"
	"testing"

	"github.com/goodmetrics/metricsink/internal/metricsmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeSink struct {
	batches [][]metricsmodel.Datum
}

func (f *fakeSink) Enqueue(batch []metricsmodel.Datum) {
	f.batches = append(f.batches, batch)
}

func TestServer_Send_DecodesAndEnqueues(t *testing.T) {
	sink := &fakeSink{}
	srv := New(Config{}, sink)

	one, err := structpb.NewStruct(map[string]interface{}{
		"metric":       "cpu.usage",
		"unix_nanos":   1.0,
		"measurements": map[string]interface{}{"value": 0.5},
	})
	require.NoError(t, err)
	batch := &structpb.ListValue{Values: []*structpb.Value{structpb.NewStructValue(one)}}

	_, err = srv.Send(context.Background(), batch)
	require.NoError(t, err)

	require.Len(t, sink.batches, 1)
	assert.Equal(t, "cpu.usage", sink.batches[0][0].Metric)
}

func TestServer_Send_RejectsMalformedDatum(t *testing.T) {
	sink := &fakeSink{}
	srv := New(Config{}, sink)

	bad, err := structpb.NewStruct(map[string]interface{}{})
	require.NoError(t, err)
	batch := &structpb.ListValue{Values: []*structpb.Value{structpb.NewStructValue(bad)}}

	_, err = srv.Send(context.Background(), batch)
	assert.Error(t, err)
	assert.Empty(t, sink.batches)
}

func TestServer_IsReady_FalseBeforeRun(t *testing.T) {
	srv := New(Config{}, &fakeSink{})
	assert.False(t, srv.IsReady(context.Background()))
}
