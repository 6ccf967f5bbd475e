package events

import (
	"github.com/google/uuid"
)

// Listener is a callback registered for events. Registrations are matched by listener identity,
// so the same listener registered twice counts twice
type Listener struct {
	id uuid.UUID
	fn func(args ...any)
}

// NewListener wraps a callback into a listener
func NewListener(fn func(args ...any)) *Listener {
	return &Listener{id: uuid.New(), fn: fn}
}

// ID identifies the listener in logs
func (l *Listener) ID() uuid.UUID {
	return l.id
}

type registration struct {
	seq       uint64
	event     Event
	listener  *Listener
	once      bool
	delivered bool
}

type invocation struct {
	event    Event
	listener *Listener
	args     []any
}
