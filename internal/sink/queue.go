package sink

import (
	"context"
	"errors"

	"github.com/goodmetrics/metricsink/internal/metricsmodel"
)

// ErrQueueClosed is returned once the queue has been closed and fully
// drained.
var ErrQueueClosed = errors.New("sink: queue closed")

// Queue is the unbounded multi-producer, single-consumer send queue
// between gRPC-handling goroutines and the sink consumer. Enqueue never
// blocks a producer waiting on the consumer's pace; batches accumulate in
// an internal slice bounded only by available memory, the standard Go
// "infinite channel" idiom built from an unbuffered input channel, a
// buffered output channel and a forwarding goroutine. The forwarding
// goroutine moves batches into the output buffer as soon as they arrive,
// so DrainAvailable sees every batch already queued (up to the buffer's
// capacity) without waiting for that goroutine to be scheduled.
type Queue struct {
	in  chan []metricsmodel.Datum
	out chan []metricsmodel.Datum
}

// NewQueue starts the queue's forwarding goroutine and returns it ready to
// use.
func NewQueue() *Queue {
	q := &Queue{
		in:  make(chan []metricsmodel.Datum),
		out: make(chan []metricsmodel.Datum, 1024),
	}
	go q.forward()
	return q
}

func (q *Queue) forward() {
	defer close(q.out)
	var buf [][]metricsmodel.Datum
	for {
		if len(buf) == 0 {
			batch, ok := <-q.in
			if !ok {
				return
			}
			buf = append(buf, batch)
		}
		select {
		case batch, ok := <-q.in:
			if !ok {
				for _, b := range buf {
					q.out <- b
				}
				return
			}
			buf = append(buf, batch)
		case q.out <- buf[0]:
			buf = buf[1:]
		}
	}
}

// Enqueue adds a batch to the queue. It never blocks on the consumer's
// drain pace; a producer calling Enqueue is only momentarily synchronized
// with the queue's own forwarding goroutine.
func (q *Queue) Enqueue(batch []metricsmodel.Datum) {
	if len(batch) == 0 {
		return
	}
	q.in <- batch
}

// DrainOne suspends until exactly one batch is available, or ctx is done.
// This is the consumer's entry into a drain cycle: it waits for real work
// rather than busy-polling an empty queue.
func (q *Queue) DrainOne(ctx context.Context) ([]metricsmodel.Datum, error) {
	select {
	case batch, ok := <-q.out:
		if !ok {
			return nil, ErrQueueClosed
		}
		return batch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DrainAvailable non-blockingly collects every batch already queued,
// without waiting for more to arrive. Used after the coalescing sleep to
// merge in whatever accumulated during the wait.
func (q *Queue) DrainAvailable() [][]metricsmodel.Datum {
	var batches [][]metricsmodel.Datum
	for {
		select {
		case batch, ok := <-q.out:
			if !ok {
				return batches
			}
			batches = append(batches, batch)
		default:
			return batches
		}
	}
}

// Close stops accepting new batches. Any batches already enqueued are
// still delivered by a subsequent DrainOne/DrainAvailable; after that,
// DrainOne returns ErrQueueClosed.
func (q *Queue) Close() {
	close(q.in)
}
