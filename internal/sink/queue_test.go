package sink

import (
	"context"
	"testing"
	"time"

	"github.com/goodmetrics/metricsink/internal/metricsmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datum(metric string) metricsmodel.Datum {
	return metricsmodel.Datum{Metric: metric}
}

func TestQueue_DrainOneBlocksUntilEnqueue(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		batch, err := q.DrainOne(ctx)
		require.NoError(t, err)
		assert.Len(t, batch, 1)
	}()

	time.Sleep(20 * time.Millisecond)
	q.Enqueue([]metricsmodel.Datum{datum("a")})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("DrainOne never returned")
	}
}

func TestQueue_DrainAvailableCollectsQueuedBatches(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Enqueue([]metricsmodel.Datum{datum("a")})
	first, err := q.DrainOne(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	q.Enqueue([]metricsmodel.Datum{datum("b")})
	q.Enqueue([]metricsmodel.Datum{datum("c")})
	time.Sleep(20 * time.Millisecond) // let the forwarding goroutine buffer both

	rest := q.DrainAvailable()
	assert.Len(t, rest, 2)
}

func TestQueue_DrainAvailableEmptyReturnsNil(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	assert.Empty(t, q.DrainAvailable())
}

func TestQueue_DrainOneRespectsContext(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := q.DrainOne(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_EnqueueIgnoresEmptyBatch(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	q.Enqueue(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := q.DrainOne(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
