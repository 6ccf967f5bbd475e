package events

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
	goerrors "github.com/go-errors/errors"
	"github.com/smallnest/chanx"
	"go.uber.org/multierr"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
	"github.com/axelarnetwork/moi-rpc/poller"
	"github.com/axelarnetwork/moi-rpc/pubsub"
	"github.com/axelarnetwork/moi-rpc/transport"
)

// ErrClosed is returned when registering listeners on a closed manager
var ErrClosed = errors.New("event manager is closed")

// Manager keeps listener registrations per event, subscribes to network events over a streaming transport
// and invokes listeners asynchronously. Listeners run one at a time, in emission order, on a single goroutine
type Manager struct {
	*service.BaseService

	requester transport.Transport
	stream    transport.Stream
	process   jsonrpc.Processor
	logger    log.Logger
	bufferCap int

	mu            sync.Mutex
	seq           uint64
	registrations map[string][]*registration
	subscriptions map[string]*subscription
	bySubID       map[string]*subscription

	queue      *chanx.UnboundedChan[invocation]
	dispatched chan struct{}
	messages   pubsub.Subscription[[]byte]

	lookup TesseractLookup
	poller *poller.Poller
}

// NewManager returns a running manager that sends subscription calls through the requester
func NewManager(requester transport.Transport, opts ...Option) (*Manager, error) {
	if requester == nil {
		return nil, errorsmod.Wrap(jsonrpc.ErrInvalidArgument, "transport is required")
	}

	options := applyOptions(opts)
	if options.stream == nil {
		options.stream, _ = requester.(transport.Stream)
	}

	m := &Manager{
		requester:     requester,
		stream:        options.stream,
		process:       options.process,
		logger:        options.logger.With("component", "events"),
		bufferCap:     options.bufferCap,
		registrations: make(map[string][]*registration),
		subscriptions: make(map[string]*subscription),
		bySubID:       make(map[string]*subscription),
		lookup:        options.lookup,
	}
	m.BaseService = service.NewBaseService(m.logger, "EventManager", m)

	if m.lookup != nil {
		var err error
		if m.poller, err = poller.New(options.pollInterval, m.pollTesseracts, m.logger); err != nil {
			return nil, err
		}
	}

	if err := m.Start(); err != nil {
		return nil, err
	}

	if m.stream != nil {
		if err := m.bindLifecycle(); err != nil {
			return nil, multierr.Append(err, m.Close())
		}

		m.messages = m.stream.Messages(nil)
		go m.demux(m.messages)
	}

	return m, nil
}

// OnStart launches the listener dispatcher
func (m *Manager) OnStart() error {
	m.queue = chanx.NewUnboundedChan[invocation](m.bufferCap)
	m.dispatched = make(chan struct{})

	go m.dispatch()

	return nil
}

// OnStop drops all pushed messages from now on and lets the dispatcher drain queued invocations
func (m *Manager) OnStop() {
	m.mu.Lock()
	close(m.queue.In)
	m.mu.Unlock()

	if m.messages != nil {
		m.messages.Unsubscribe()
	}

	if m.poller != nil {
		if err := m.poller.SetEnabled(false); err != nil {
			m.logger.Debug("failed to stop tesseract polling", "err", err)
		}
	}
}

// OnReset is not supported, create a new manager instead
func (m *Manager) OnReset() error {
	return errors.New("event manager cannot be reset")
}

// Close stops the manager. Closing twice is a no-op. The streaming transport is not closed
func (m *Manager) Close() error {
	if err := m.Stop(); err != nil && !errors.Is(err, service.ErrAlreadyStopped) {
		return err
	}

	return nil
}

// Dispatched is closed once every queued listener invocation has run after the manager is closed
func (m *Manager) Dispatched() <-chan struct{} {
	return m.dispatched
}

// On registers the listener for every emission of the event. Network events are subscribed on the node
// before On returns; if that fails nothing is registered
func (m *Manager) On(ctx context.Context, ev Event, listener *Listener) error {
	return m.register(ctx, ev, listener, false)
}

// Once registers the listener for the next emission of the event only
func (m *Manager) Once(ctx context.Context, ev Event, listener *Listener) error {
	return m.register(ctx, ev, listener, true)
}

// Off removes one registration of the listener for the event. A nil listener removes all of them
func (m *Manager) Off(ev Event, listener *Listener) {
	if listener == nil {
		m.RemoveAllListeners(ev)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	regs := m.registrations[ev.tag]
	i := slices.IndexFunc(regs, func(reg *registration) bool {
		return reg.listener == listener && reg.event.matches(ev)
	})
	if i < 0 {
		return
	}

	m.setRegistrations(ev.tag, slices.Delete(regs, i, i+1))
	m.refreshPolling()
}

// Emit queues an invocation of every listener registered for the event and reports whether there was any.
// Once-registrations are removed before Emit returns
func (m *Manager) Emit(ev Event, args ...any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.emit(ev, args)
}

// ListenerCount returns the number of registrations for the given events, or for all events if none are given
func (m *Manager) ListenerCount(evs ...Event) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.selected(evs))
}

// Listeners returns the listeners registered for the given events, or for all events if none are given,
// in registration order
func (m *Manager) Listeners(evs ...Event) []*Listener {
	m.mu.Lock()
	defer m.mu.Unlock()

	regs := m.selected(evs)
	listeners := make([]*Listener, 0, len(regs))
	for _, reg := range regs {
		listeners = append(listeners, reg.listener)
	}

	return listeners
}

// RemoveAllListeners removes every registration for the given events, or every registration if none are given.
// Network subscriptions stay active, see Unsubscribe
func (m *Manager) RemoveAllListeners(evs ...Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(evs) == 0 {
		m.registrations = make(map[string][]*registration)
		m.refreshPolling()
		return
	}

	for _, ev := range evs {
		m.setRegistrations(ev.tag, slices.DeleteFunc(m.registrations[ev.tag], func(reg *registration) bool {
			return reg.event.matches(ev)
		}))
	}
	m.refreshPolling()
}

func (m *Manager) register(ctx context.Context, ev Event, listener *Listener, once bool) error {
	if listener == nil || listener.fn == nil {
		return errorsmod.Wrap(jsonrpc.ErrInvalidArgument, "listener is required")
	}
	if err := ev.validate(); err != nil {
		return err
	}

	if ev.kind == KindNetwork {
		return m.subscribe(ctx, ev, listener, once)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.IsRunning() {
		return ErrClosed
	}

	m.add(ev, listener, once)
	m.refreshPolling()

	return nil
}

// add must be called with the lock held
func (m *Manager) add(ev Event, listener *Listener, once bool) {
	m.seq++
	m.registrations[ev.tag] = append(m.registrations[ev.tag], &registration{
		seq:      m.seq,
		event:    ev,
		listener: listener,
		once:     once,
	})

	m.logger.Debug("listener registered", "event", ev, "listener", listener.id, "once", once)
}

// emit must be called with the lock held
func (m *Manager) emit(ev Event, args []any) bool {
	if !m.IsRunning() {
		return false
	}

	regs := m.registrations[ev.tag]
	kept := regs[:0]
	found := false
	for _, reg := range regs {
		if !reg.event.matches(ev) {
			kept = append(kept, reg)
			continue
		}

		found = true
		m.queue.In <- invocation{event: ev, listener: reg.listener, args: args}

		if !reg.once {
			kept = append(kept, reg)
		}
	}

	if len(kept) != len(regs) {
		clear(regs[len(kept):])
		m.setRegistrations(ev.tag, kept)
		m.refreshPolling()
	}

	return found
}

// setRegistrations must be called with the lock held
func (m *Manager) setRegistrations(tag string, regs []*registration) {
	if len(regs) == 0 {
		delete(m.registrations, tag)
		return
	}

	m.registrations[tag] = regs
}

// selected must be called with the lock held
func (m *Manager) selected(evs []Event) []*registration {
	var regs []*registration
	if len(evs) == 0 {
		for _, tagged := range m.registrations {
			regs = append(regs, tagged...)
		}
	} else {
		for _, ev := range evs {
			for _, reg := range m.registrations[ev.tag] {
				if reg.event.matches(ev) && !slices.Contains(regs, reg) {
					regs = append(regs, reg)
				}
			}
		}
	}

	slices.SortFunc(regs, func(a, b *registration) int { return cmp.Compare(a.seq, b.seq) })
	return regs
}

func (m *Manager) dispatch() {
	defer close(m.dispatched)

	for inv := range m.queue.Out {
		m.invoke(inv)
	}
}

func (m *Manager) invoke(inv invocation) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error(fmt.Sprintf("listener panicked: %s\n%s", r, goerrors.Wrap(r, 1).Stack()),
				"event", inv.event, "listener", inv.listener.id)
		}
	}()

	inv.listener.fn(inv.args...)
}

func (m *Manager) bindLifecycle() error {
	return multierr.Combine(
		m.stream.On(transport.EventOpen, func() { m.Emit(Open) }),
		m.stream.On(transport.EventClose, func() { m.Emit(Close) }),
		m.stream.On(transport.EventError, func(err error) { m.Emit(Error, err) }),
		m.stream.On(transport.EventReconnect, func(attempt int) {
			m.Emit(Reconnect, attempt)
			m.resubscribe()
		}),
	)
}
