// Package router resolves envelopes to recipient sessions, forwards them and
// acknowledges the sender. Every envelope, delivered or not, is handed to the
// audit recorder.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/cipherrelay/internal/common"
	"github.com/dmitrijs2005/cipherrelay/internal/logging"
	"github.com/dmitrijs2005/cipherrelay/internal/server/models"
	"github.com/dmitrijs2005/cipherrelay/internal/server/wire"
)

type Outcome int

const (
	Delivered Outcome = iota + 1
	RecipientNotFound
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case RecipientNotFound:
		return "recipient_not_found"
	default:
		return "unknown"
	}
}

// Directory resolves a username to its current record.
type Directory interface {
	Lookup(username string) (models.User, bool)
}

// Sender queues an outbound event for a session. It must not block and
// returns common.ErrSessionClosed once the session is gone.
type Sender interface {
	Send(id models.SessionID, out wire.Outbound) error
}

// Recorder accepts audit records without blocking.
type Recorder interface {
	Record(rec models.AuditRecord)
}

type Stats struct {
	Delivered         int64
	RecipientNotFound int64
}

type Router struct {
	directory Directory
	sender    Sender
	recorder  Recorder
	logger    logging.Logger
	now       func() time.Time

	delivered atomic.Int64
	notFound  atomic.Int64
}

func New(d Directory, s Sender, r Recorder, l logging.Logger) *Router {
	return &Router{
		directory: d,
		sender:    s,
		recorder:  r,
		logger:    l.With("module", "router"),
		now:       time.Now,
	}
}

// Route forwards env to its recipient and acknowledges origin, the session
// the envelope arrived on.
func (r *Router) Route(ctx context.Context, origin models.SessionID, env models.Envelope) Outcome {
	defer r.recorder.Record(models.NewAuditRecord(env, r.now()))

	outcome := r.deliver(ctx, env)

	var ack wire.Outbound
	if outcome == Delivered {
		r.delivered.Add(1)
		ack = wire.MessageSentOK(env.To)
		r.logger.Info(ctx, "message routed", "from", env.From, "to", env.To)
	} else {
		r.notFound.Add(1)
		ack = wire.MessageSentFailed(env.To, fmt.Sprintf("User %s not found", env.To))
		r.logger.Info(ctx, "message not routed", "from", env.From, "to", env.To, "error", common.ErrRecipientNotFound)
	}

	if err := r.sender.Send(origin, ack); err != nil {
		r.logger.Debug(ctx, "ack dropped", "session", origin, "error", err)
	}
	return outcome
}

func (r *Router) deliver(ctx context.Context, env models.Envelope) Outcome {
	if env.To == "" {
		return RecipientNotFound
	}
	u, ok := r.directory.Lookup(env.To)
	if !ok {
		return RecipientNotFound
	}
	if err := r.sender.Send(u.Session, wire.ReceiveMessage(env)); err != nil {
		if !errors.Is(err, common.ErrSessionClosed) {
			r.logger.Warn(ctx, "delivery failed", "to", env.To, "session", u.Session, "error", err)
		}
		return RecipientNotFound
	}
	return Delivered
}

func (r *Router) Stats() Stats {
	return Stats{
		Delivered:         r.delivered.Load(),
		RecipientNotFound: r.notFound.Load(),
	}
}
