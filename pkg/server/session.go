package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bastiangx/tabserve/pkg/completion"
	"github.com/google/uuid"
)

// ErrUnknownSession is returned for requests naming a session that does not
// exist.
var ErrUnknownSession = errors.New("unknown session")

// ErrTooManySessions is returned when the session limit is reached.
var ErrTooManySessions = errors.New("too many sessions")

// session is one completion engine plus the events it raised while serving
// the current request.
type session struct {
	id     string
	engine *completion.Completion
	events []string
}

func (s *session) Notify(ev completion.Event) {
	s.events = append(s.events, ev.Kind.String())
}

// drainEvents returns and resets the collected events.
func (s *session) drainEvents() []string {
	events := s.events
	s.events = nil
	return events
}

type registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	max      int
}

func newRegistry(max int) *registry {
	return &registry{
		sessions: make(map[string]*session),
		max:      max,
	}
}

func (r *registry) create(opts []completion.Option) (*session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.max > 0 && len(r.sessions) >= r.max {
		return nil, fmt.Errorf("%w: limit is %d", ErrTooManySessions, r.max)
	}

	s := &session{id: uuid.NewString()}
	opts = append(opts[:len(opts):len(opts)], completion.WithNotifier(s))
	s.engine = completion.New(opts...)
	r.sessions[s.id] = s
	return s, nil
}

func (r *registry) get(id string) (*session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}
	return s, nil
}

func (r *registry) remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}
	delete(r.sessions, id)
	return nil
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
