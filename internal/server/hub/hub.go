package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/cipherrelay/internal/common"
	"github.com/dmitrijs2005/cipherrelay/internal/logging"
	"github.com/dmitrijs2005/cipherrelay/internal/server/directory"
	"github.com/dmitrijs2005/cipherrelay/internal/server/models"
	"github.com/dmitrijs2005/cipherrelay/internal/server/registry"
	"github.com/dmitrijs2005/cipherrelay/internal/server/router"
	"github.com/dmitrijs2005/cipherrelay/internal/server/wire"
)

const DefaultQueueSize = 256

const (
	msgMissingFields    = "Missing username or public key"
	msgMalformedMessage = "Malformed message"
)

type Stats struct {
	Sessions          int
	Users             int
	Usernames         []string
	MembershipVersion uint64
	Delivered         int64
	RecipientNotFound int64
	Evicted           int64
}

type Hub struct {
	registry  *registry.Registry
	directory *directory.Service
	router    *router.Router
	logger    logging.Logger
	queueSize int

	mu       sync.RWMutex
	sessions map[models.SessionID]*Session

	evicted atomic.Int64
}

// New wires a hub around reg. Audit records of routed envelopes go to rec.
func New(reg *registry.Registry, rec router.Recorder, l logging.Logger, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	h := &Hub{
		registry:  reg,
		directory: directory.New(reg),
		logger:    l.With("module", "hub"),
		queueSize: queueSize,
		sessions:  make(map[models.SessionID]*Session),
	}
	h.router = router.New(reg, h, rec, l)
	return h
}

// Connect allocates a session for a new client stream.
func (h *Hub) Connect(ctx context.Context) *Session {
	s := newSession(models.SessionID(uuid.NewString()), h.queueSize)

	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()

	h.logger.Info(ctx, "client connected", "session", s.id)
	return s
}

// Disconnect closes s and drops every username it owns. Frames dispatched
// after Disconnect are ignored. Safe to call more than once.
func (h *Hub) Disconnect(ctx context.Context, s *Session) {
	s.opMu.Lock()
	already := s.retired
	s.retired = true
	s.opMu.Unlock()
	if already {
		return
	}

	s.close()

	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()

	h.logger.Info(ctx, "client disconnected", "session", s.id)

	removed, change := h.registry.UnregisterBySession(s.id)
	if len(removed) == 0 {
		return
	}
	h.logger.Info(ctx, "users removed", "session", s.id, "usernames", removed)
	h.broadcast(ctx, change)
}

// Dispatch handles one inbound event from s. A panic inside a handler is
// contained to this frame.
func (h *Hub) Dispatch(ctx context.Context, s *Session, in wire.Inbound) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.retired {
		return
	}

	defer func() {
		if p := recover(); p != nil {
			h.logger.Error(ctx, "frame handler panicked", "session", s.id, "event", in.Event, "panic", fmt.Sprint(p))
			h.reply(ctx, s, wire.Error("internal error"))
		}
	}()

	h.logger.Debug(ctx, "frame received", "session", s.id, "event", in.Event)

	switch in.Event {
	case wire.EventRegister:
		h.handleRegister(ctx, s, in)
	case wire.EventGetPublicKeys:
		h.reply(ctx, s, wire.PublicKeys(h.directory.GetPublicKeys()))
	case wire.EventSendMessage:
		h.handleSendMessage(ctx, s, in)
	default:
		h.reply(ctx, s, wire.Error(fmt.Sprintf("%v: %s", common.ErrUnknownEvent, in.Event)))
	}
}

// Reject tells s that a frame could not be decoded.
func (h *Hub) Reject(ctx context.Context, s *Session, err error) {
	h.logger.Warn(ctx, "frame rejected", "session", s.id, "error", err)
	h.reply(ctx, s, wire.Error(err.Error()))
}

func (h *Hub) handleRegister(ctx context.Context, s *Session, in wire.Inbound) {
	var req wire.RegisterRequest
	if err := in.Bind(&req); err != nil || req.Username == "" || req.PublicKey == "" {
		h.logger.Info(ctx, "registration rejected", "session", s.id, "error", common.ErrValidation)
		h.reply(ctx, s, wire.RegisterFailed(msgMissingFields))
		return
	}

	change := h.registry.Register(models.User{
		Username:  req.Username,
		PublicKey: req.PublicKey,
		Session:   s.id,
	})
	h.logger.Info(ctx, "user registered", "username", req.Username, "session", s.id)

	h.reply(ctx, s, wire.RegisterOK(req.Username))
	h.broadcast(ctx, change)
}

func (h *Hub) handleSendMessage(ctx context.Context, s *Session, in wire.Inbound) {
	var msg wire.Message
	if err := in.Bind(&msg); err != nil {
		to := addressee(in.Data)
		h.logger.Warn(ctx, "message rejected", "session", s.id, "to", to, "error", err)
		h.reply(ctx, s, wire.MessageSentFailed(to, msgMalformedMessage))
		return
	}
	h.router.Route(ctx, s.id, msg.Envelope())
}

// addressee reads "to" from a payload that failed to bind, if it is a string.
func addressee(data json.RawMessage) string {
	var fields map[string]json.RawMessage
	if json.Unmarshal(data, &fields) != nil {
		return ""
	}
	var to string
	if json.Unmarshal(fields["to"], &to) != nil {
		return ""
	}
	return to
}

// Send queues out for the session with the given id.
func (h *Hub) Send(id models.SessionID, out wire.Outbound) error {
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if !ok {
		return errSessionClosed(id)
	}
	if err := s.enqueue(out); err != nil {
		if errors.Is(err, errQueueFull) {
			h.evict(context.Background(), s)
			return errSessionClosed(id)
		}
		return err
	}
	return nil
}

func (h *Hub) reply(ctx context.Context, s *Session, out wire.Outbound) {
	if err := h.Send(s.id, out); err != nil {
		h.logger.Debug(ctx, "reply dropped", "session", s.id, "event", out.Event, "error", err)
	}
}

func (h *Hub) broadcast(ctx context.Context, change registry.Change) {
	for _, s := range h.snapshotSessions() {
		if err := s.offerMembership(change.Version, change.Usernames); errors.Is(err, errQueueFull) {
			h.evict(ctx, s)
		}
	}
}

func (h *Hub) evict(ctx context.Context, s *Session) {
	if s.close() {
		h.evicted.Add(1)
		h.logger.Warn(ctx, "slow session closed", "session", s.id)
	}
}

func (h *Hub) snapshotSessions() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	return out
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	sessions := len(h.sessions)
	h.mu.RUnlock()

	rs := h.router.Stats()
	membership := h.registry.Current()
	return Stats{
		Sessions:          sessions,
		Users:             len(membership.Usernames),
		Usernames:         membership.Usernames,
		MembershipVersion: membership.Version,
		Delivered:         rs.Delivered,
		RecipientNotFound: rs.RecipientNotFound,
		Evicted:           h.evicted.Load(),
	}
}

func errSessionClosed(id models.SessionID) error {
	return fmt.Errorf("session %s: %w", id, common.ErrSessionClosed)
}
