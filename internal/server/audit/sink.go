// Package audit persists routed envelopes. The router hands records to a
// Recorder, which never blocks; a Queue per backend decouples the routing
// path from the backend's latency and failures.
package audit

import (
	"context"

	"github.com/dmitrijs2005/cipherrelay/internal/server/models"
)

// Sink is a durable, append-only destination for audit records.
type Sink interface {
	Append(ctx context.Context, rec models.AuditRecord) error
}

// BatchSink appends several records at once. Queues prefer it when present.
type BatchSink interface {
	Sink
	AppendBatch(ctx context.Context, recs []models.AuditRecord) error
}

// Flusher is implemented by sinks that buffer.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Recorder accepts records without blocking.
type Recorder interface {
	Record(rec models.AuditRecord)
}

// Fanout hands every record to each recorder in turn.
type Fanout []Recorder

func (f Fanout) Record(rec models.AuditRecord) {
	for _, r := range f {
		r.Record(rec)
	}
}

// Discard drops records. Used when no backend is configured.
type Discard struct{}

func (Discard) Record(models.AuditRecord) {}
