package pubsub

import (
	"context"
	"errors"
	"sync"

	"github.com/smallnest/chanx"
)

// ErrNotRunning is the error with message "not running"
var ErrNotRunning = errors.New("not running")

// DefaultBufferCap is the initial capacity of the bus buffer and of every subscription buffer
const DefaultBufferCap = 1000

// Bus fans out published items to every subscription whose filter accepts them
type Bus[T any] interface {
	Publish(T) error
	Subscribe(filter func(T) bool) Subscription[T]
	Close()
	Done() <-chan struct{}
}

// Subscription receives the items of a bus that pass its filter, in publishing order
type Subscription[T any] interface {
	// Events is closed after Unsubscribe or after the bus shuts down
	Events() <-chan T
	Unsubscribe()
}

type bus[T any] struct {
	subMutex      *sync.Mutex
	subscriptions []*subscriber[T]
	buffer        *chanx.UnboundedChan[T]
	bufferCap     int
	running       context.Context
	closing       context.CancelFunc
	cleanedUp     chan struct{}
	once          *sync.Once
}

// NewBus runs a new bus with the given buffer capacity. Non-positive values select DefaultBufferCap
func NewBus[T any](bufferCap int) Bus[T] {
	if bufferCap <= 0 {
		bufferCap = DefaultBufferCap
	}

	running, closing := context.WithCancel(context.Background())
	b := &bus[T]{
		bufferCap: bufferCap,
		buffer:    chanx.NewUnboundedChan[T](bufferCap),
		running:   running,
		closing:   closing,
		subMutex:  &sync.Mutex{},
		cleanedUp: make(chan struct{}),
		once:      &sync.Once{},
	}

	go b.run()

	return b
}

func (b *bus[T]) Publish(item T) error {
	// hold the lock so Close cannot close the buffer between the check and the send
	b.subMutex.Lock()
	defer b.subMutex.Unlock()

	select {
	case <-b.running.Done():
		return ErrNotRunning
	default:
		b.buffer.In <- item
		return nil
	}
}

func (b *bus[T]) Subscribe(filter func(T) bool) Subscription[T] {
	b.subMutex.Lock()
	defer b.subMutex.Unlock()

	sub := &subscriber[T]{
		bus:    b,
		filter: filter,
		buffer: chanx.NewUnboundedChan[T](b.bufferCap),
	}

	select {
	case <-b.running.Done():
		sub.closed = true
		close(sub.buffer.In)
	default:
		b.subscriptions = append(b.subscriptions, sub)
	}

	return sub
}

func (b *bus[T]) Close() {
	b.once.Do(func() {
		b.subMutex.Lock()
		defer b.subMutex.Unlock()

		b.closing()
		close(b.buffer.In)
	})
}

func (b *bus[T]) Done() <-chan struct{} {
	return b.cleanedUp
}

func (b *bus[T]) run() {
	for item := range b.buffer.Out {
		b.subMutex.Lock()
		for _, sub := range b.subscriptions {
			if sub.filter == nil || sub.filter(item) {
				sub.buffer.In <- item
			}
		}
		b.subMutex.Unlock()
	}

	b.subMutex.Lock()
	for _, sub := range b.subscriptions {
		sub.close()
	}
	b.subscriptions = nil
	b.subMutex.Unlock()

	close(b.cleanedUp)
}

func (b *bus[T]) remove(sub *subscriber[T]) {
	b.subMutex.Lock()
	defer b.subMutex.Unlock()

	for i, s := range b.subscriptions {
		if s == sub {
			b.subscriptions = append(b.subscriptions[:i], b.subscriptions[i+1:]...)
			break
		}
	}
	sub.close()
}

type subscriber[T any] struct {
	bus    *bus[T]
	buffer *chanx.UnboundedChan[T]
	filter func(T) bool
	closed bool // guarded by bus.subMutex
}

func (s *subscriber[T]) Events() <-chan T {
	return s.buffer.Out
}

func (s *subscriber[T]) Unsubscribe() {
	s.bus.remove(s)
}

func (s *subscriber[T]) close() {
	if s.closed {
		return
	}

	s.closed = true
	close(s.buffer.In)
}
