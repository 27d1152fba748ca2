package audit

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/cipherrelay/internal/common"
	"github.com/dmitrijs2005/cipherrelay/internal/logging"
	"github.com/dmitrijs2005/cipherrelay/internal/server/models"
)

const (
	DefaultQueueSize     = 1024
	DefaultFlushInterval = time.Second
	DefaultRetryAttempts = 3

	maxBatch = 64
)

type QueueOptions struct {
	Size          int
	FlushInterval time.Duration
	RetryAttempts uint64
	RetryBase     time.Duration
}

// Stats reports what a queue did with the records it accepted.
type Stats struct {
	Name    string
	Written int64
	Failed  int64
	Dropped int64
}

// Queue buffers records for one sink and writes them from a single worker.
type Queue struct {
	name   string
	sink   Sink
	logger logging.Logger
	opts   QueueOptions

	ch chan models.AuditRecord

	mu     sync.RWMutex
	closed bool

	done chan struct{}
	stop chan struct{}

	written atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// NewQueue starts the worker. Call Close to drain and release the sink.
func NewQueue(name string, sink Sink, l logging.Logger, o QueueOptions) *Queue {
	if o.Size <= 0 {
		o.Size = DefaultQueueSize
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = DefaultFlushInterval
	}
	if o.RetryBase <= 0 {
		o.RetryBase = 50 * time.Millisecond
	}
	q := &Queue{
		name:   name,
		sink:   sink,
		logger: l.With("module", "audit", "sink", name),
		opts:   o,
		ch:     make(chan models.AuditRecord, o.Size),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
	}
	go q.run()
	return q
}

// Record enqueues rec. It never blocks: when the queue is full or closed the
// record is dropped and counted.
func (q *Queue) Record(rec models.AuditRecord) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.dropped.Add(1)
		return
	}
	select {
	case q.ch <- rec:
	default:
		q.dropped.Add(1)
	}
}

func (q *Queue) Stats() Stats {
	return Stats{
		Name:    q.name,
		Written: q.written.Load(),
		Failed:  q.failed.Load(),
		Dropped: q.dropped.Load(),
	}
}

// Close stops accepting records, writes what is queued, flushes and closes
// the sink. ctx bounds the wait for the worker.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.stop)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if c, ok := q.sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (q *Queue) run() {
	defer close(q.done)

	ctx := context.Background()
	ticker := time.NewTicker(q.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case rec := <-q.ch:
			q.write(ctx, q.collect(rec))
		case <-ticker.C:
			q.flush(ctx)
		case <-q.stop:
			q.drain(ctx)
			q.flush(ctx)
			return
		}
	}
}

// collect gathers whatever is already queued behind first.
func (q *Queue) collect(first models.AuditRecord) []models.AuditRecord {
	batch := []models.AuditRecord{first}
	for len(batch) < maxBatch {
		select {
		case rec := <-q.ch:
			batch = append(batch, rec)
		default:
			return batch
		}
	}
	return batch
}

func (q *Queue) drain(ctx context.Context) {
	for {
		select {
		case rec := <-q.ch:
			q.write(ctx, q.collect(rec))
		default:
			return
		}
	}
}

func (q *Queue) write(ctx context.Context, batch []models.AuditRecord) {
	err := q.withRetry(ctx, func(ctx context.Context) error {
		if bs, ok := q.sink.(BatchSink); ok {
			return bs.AppendBatch(ctx, batch)
		}
		for len(batch) > 0 {
			if err := q.sink.Append(ctx, batch[0]); err != nil {
				return err
			}
			batch = batch[1:]
			q.written.Add(1)
		}
		return nil
	})
	if err != nil {
		q.failed.Add(int64(len(batch)))
		q.logger.Error(ctx, common.ErrSinkUnavailable.Error(), "records", len(batch), "error", err)
		return
	}
	if _, ok := q.sink.(BatchSink); ok {
		q.written.Add(int64(len(batch)))
	}
}

func (q *Queue) flush(ctx context.Context) {
	f, ok := q.sink.(Flusher)
	if !ok {
		return
	}
	if err := q.withRetry(ctx, f.Flush); err != nil {
		q.logger.Error(ctx, common.ErrSinkUnavailable.Error(), "op", "flush", "error", err)
	}
}

func (q *Queue) withRetry(ctx context.Context, fn func(context.Context) error) error {
	b := retry.WithMaxRetries(q.opts.RetryAttempts, retry.NewExponential(q.opts.RetryBase))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
