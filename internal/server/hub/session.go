package hub

import (
	"errors"
	"sync"

	"github.com/dmitrijs2005/cipherrelay/internal/server/models"
	"github.com/dmitrijs2005/cipherrelay/internal/server/wire"
)

var errQueueFull = errors.New("outbound queue full")

// Session is one connected client as seen by the hub.
type Session struct {
	id    models.SessionID
	queue chan wire.Outbound
	done  chan struct{}

	// mu guards closed and the membership watermark.
	mu                sync.Mutex
	closed            bool
	membershipVersion uint64
	membershipSent    bool

	// opMu serializes Dispatch against Disconnect.
	opMu    sync.Mutex
	retired bool
}

func newSession(id models.SessionID, queueSize int) *Session {
	return &Session{
		id:    id,
		queue: make(chan wire.Outbound, queueSize),
		done:  make(chan struct{}),
	}
}

func (s *Session) ID() models.SessionID { return s.id }

// Outbound yields events queued for the client.
func (s *Session) Outbound() <-chan wire.Outbound { return s.queue }

// Done is closed once the session stops accepting events.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) enqueue(out wire.Outbound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enqueueLocked(out)
}

func (s *Session) enqueueLocked(out wire.Outbound) error {
	if s.closed {
		return errSessionClosed(s.id)
	}
	select {
	case s.queue <- out:
		return nil
	default:
		return errQueueFull
	}
}

// offerMembership queues a user_list unless the session already got the same
// or a newer one.
func (s *Session) offerMembership(version uint64, usernames []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.membershipSent && version <= s.membershipVersion {
		return nil
	}
	if err := s.enqueueLocked(wire.Users(usernames)); err != nil {
		return err
	}
	s.membershipVersion = version
	s.membershipSent = true
	return nil
}

// close reports whether this call did the closing.
func (s *Session) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	close(s.done)
	return true
}
