package events

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/tidwall/gjson"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
	"github.com/axelarnetwork/moi-rpc/pubsub"
)

const (
	methodSubscribe   = "moi.subscribe"
	methodUnsubscribe = "moi.unsubscribe"

	resubscribeTimeout = 30 * time.Second
)

// State is the registration state of a network event on the node
type State int

// subscription states
const (
	Unregistered State = iota
	Subscribing
	Active
)

func (s State) String() string {
	switch s {
	case Subscribing:
		return "subscribing"
	case Active:
		return "active"
	default:
		return "unregistered"
	}
}

// subscription is shared by all registrations of the same network event and parameters
type subscription struct {
	event Event
	id    string
	state State
	// closed when the subscribe call in flight completes
	ready chan struct{}
}

// SubscriptionState returns the state of the network subscription for the event
func (m *Manager) SubscriptionState(ev Event) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[ev.key()]
	if !ok {
		return Unregistered
	}

	return sub.state
}

// Unsubscribe cancels the network subscription for the event on the node and removes its registrations
func (m *Manager) Unsubscribe(ctx context.Context, ev Event) error {
	key := ev.key()

	m.mu.Lock()
	sub, ok := m.subscriptions[key]
	if !ok || sub.state != Active {
		m.mu.Unlock()
		return errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "no active subscription for %s", ev)
	}
	id := sub.id
	m.mu.Unlock()

	env, err := m.requester.Request(ctx, methodUnsubscribe, id)
	if err != nil {
		return err
	}
	if _, err := m.process(env); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.subscriptions[key] == sub {
		delete(m.subscriptions, key)
	}
	delete(m.bySubID, id)
	m.setRegistrations(ev.tag, slices.DeleteFunc(m.registrations[ev.tag], func(reg *registration) bool {
		return reg.event.key() == key
	}))

	m.logger.Debug("unsubscribed", "event", ev, "subscription", id)
	return nil
}

// subscribe registers the listener once the node confirmed a subscription for the event.
// Concurrent registrations for the same event share one subscribe call
func (m *Manager) subscribe(ctx context.Context, ev Event, listener *Listener, once bool) error {
	if m.stream == nil {
		return errorsmod.Wrapf(jsonrpc.ErrUnsupported, "network event %s requires a streaming transport", ev.name)
	}

	key := ev.key()
	for {
		m.mu.Lock()
		if !m.IsRunning() {
			m.mu.Unlock()
			return ErrClosed
		}

		sub, ok := m.subscriptions[key]
		if ok && sub.state == Active {
			m.add(ev, listener, once)
			m.mu.Unlock()
			return nil
		}

		if ok {
			ready := sub.ready
			m.mu.Unlock()

			select {
			case <-ready:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		sub = &subscription{event: ev, state: Subscribing, ready: make(chan struct{})}
		m.subscriptions[key] = sub
		m.mu.Unlock()

		id, err := m.requestSubscription(ctx, ev)

		m.mu.Lock()
		defer m.mu.Unlock()
		defer close(sub.ready)

		if err != nil {
			delete(m.subscriptions, key)
			return err
		}

		sub.id = id
		sub.state = Active
		m.bySubID[id] = sub
		m.add(ev, listener, once)

		m.logger.Debug("subscribed", "event", ev, "subscription", id)
		return nil
	}
}

func (m *Manager) requestSubscription(ctx context.Context, ev Event) (string, error) {
	env, err := m.requester.Request(ctx, methodSubscribe, ev.subscribeParams()...)
	if err != nil {
		return "", err
	}

	raw, err := m.process(env)
	if err != nil {
		return "", err
	}

	var id string
	if err := json.Unmarshal(raw, &id); err != nil || id == "" {
		return "", errorsmod.Wrapf(jsonrpc.ErrUnsupported, "unexpected subscription id %s", raw)
	}

	return id, nil
}

// resubscribe renews every active subscription after the connection was re-established.
// Subscriptions the node refuses are dropped and reported as an error event.
// Subscriptions still in Subscribing are left alone: their request went out on the dropped connection
// and its failure is returned to the caller of On or Once
func (m *Manager) resubscribe() {
	m.mu.Lock()
	var subs []*subscription
	for _, sub := range m.subscriptions {
		if sub.state != Active {
			continue
		}

		delete(m.bySubID, sub.id)
		sub.state = Subscribing
		sub.ready = make(chan struct{})
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		ctx, cancel := context.WithTimeout(context.Background(), resubscribeTimeout)
		id, err := m.requestSubscription(ctx, sub.event)
		cancel()

		m.mu.Lock()
		if err != nil {
			delete(m.subscriptions, sub.event.key())
			m.logger.Error("failed to re-subscribe", "event", sub.event, "err", err)
			m.emit(Error, []any{errorsmod.Wrapf(err, "failed to re-subscribe to %s", sub.event)})
		} else {
			sub.id = id
			sub.state = Active
			m.bySubID[id] = sub
			m.logger.Debug("re-subscribed", "event", sub.event, "subscription", id)
		}
		close(sub.ready)
		m.mu.Unlock()
	}
}

func (m *Manager) demux(messages pubsub.Subscription[[]byte]) {
	for msg := range messages.Events() {
		m.route(msg)
	}
}

// route emits every inbound message as a Message event and the results of subscription pushes to the
// registrations of the subscribed event
func (m *Manager) route(msg []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.emit(Message, []any{string(msg)})

	pushed := gjson.GetManyBytes(msg, "params.subscription", "params.result")
	if !pushed[0].Exists() || !pushed[1].Exists() {
		return
	}

	sub, ok := m.bySubID[pushed[0].String()]
	if !ok {
		m.logger.Debug("dropping push of unknown subscription", "subscription", pushed[0].String())
		return
	}

	m.emit(sub.event, []any{json.RawMessage(pushed[1].Raw)})
}
