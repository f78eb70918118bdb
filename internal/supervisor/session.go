package supervisor

import (
	"context"
	"sync"

	"github.com/txtxlabs/txtx/internal/obslog"
)

// Session is the engine-side half of the supervisor protocol: it emits
// events, correlates responses back to the request that triggered them,
// and routes unsolicited operator-initiated control messages (cancel,
// pause, resume, rewind) to the scheduler separately from request
// replies.
type Session struct {
	mu      sync.Mutex
	events  chan<- Event
	pending map[string]chan Response
	control chan Response
	logger  *obslog.Logger
}

// NewSession returns a session that writes outbound events to events and
// logs unmatched responses through logger (logger may be nil).
func NewSession(events chan<- Event, logger *obslog.Logger) *Session {
	return &Session{
		events:  events,
		pending: make(map[string]chan Response),
		control: make(chan Response, 16),
		logger:  logger,
	}
}

// Control returns the channel of unsolicited operator events (cancel,
// pause, resume, rewind) for the scheduler to select on.
func (s *Session) Control() <-chan Response {
	return s.control
}

// Emit sends an informational event with no expected reply.
func (s *Session) Emit(e Event) {
	s.events <- e
}

// Request sends e and blocks until a matching response arrives on
// Dispatch, or ctx is cancelled. Per §4.8, a missing response blocks only
// the requesting instance, never the scheduler as a whole — callers are
// expected to invoke Request from within that instance's own goroutine or
// future, not from the wave loop itself.
func (s *Session) Request(ctx context.Context, e Event) (Response, error) {
	ch := make(chan Response, 1)
	s.mu.Lock()
	s.pending[e.ID] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, e.ID)
		s.mu.Unlock()
	}()

	s.events <- e

	select {
	case r := <-ch:
		return r, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

func isControlKind(k ResponseKind) bool {
	switch k {
	case ResponseCancel, ResponsePause, ResponseResume, ResponseRewind:
		return true
	default:
		return false
	}
}

// Dispatch routes one inbound operator response: control messages go to
// Control(), replies to an open Request are delivered to its waiter, and
// anything else is a stale or malformed response, logged and dropped.
func (s *Session) Dispatch(r Response) {
	if isControlKind(r.Kind) {
		s.control <- r
		return
	}

	s.mu.Lock()
	ch, ok := s.pending[r.ID]
	s.mu.Unlock()

	if !ok {
		if s.logger != nil {
			s.logger.Warn("response with no matching open request", "id", r.ID, "kind", r.Kind)
		}
		return
	}
	ch <- r
}
