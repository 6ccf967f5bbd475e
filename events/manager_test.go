package events_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axelarnetwork/moi-rpc/events"
	"github.com/axelarnetwork/moi-rpc/jsonrpc"
	"github.com/axelarnetwork/moi-rpc/pubsub"
	"github.com/axelarnetwork/moi-rpc/transport"
	"github.com/axelarnetwork/moi-rpc/transport/mock"
)

const waitFor = 2 * time.Second

func newManager(t *testing.T, opts ...events.Option) *events.Manager {
	opts = append([]events.Option{events.WithLogger(log.TestingLogger())}, opts...)
	m, err := events.NewManager(&mock.TransportMock{}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, m.Close()) })

	return m
}

func newStreamManager(t *testing.T, n *node) *events.Manager {
	m, err := events.NewManager(n, events.WithLogger(log.TestingLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, m.Close()) })

	return m
}

func recorder() (*events.Listener, <-chan []any) {
	calls := make(chan []any, 100)
	return events.NewListener(func(args ...any) { calls <- args }), calls
}

func receive(t *testing.T, calls <-chan []any) []any {
	select {
	case args := <-calls:
		return args
	case <-time.After(waitFor):
		require.FailNow(t, "timed out waiting for the listener")
		return nil
	}
}

// flush waits until every invocation queued before it has run
func flush(t *testing.T, m *events.Manager) {
	done := make(chan struct{})
	barrier := events.MustNamed("barrier")
	require.NoError(t, m.Once(context.Background(), barrier, events.NewListener(func(...any) { close(done) })))
	require.True(t, m.Emit(barrier))

	select {
	case <-done:
	case <-time.After(waitFor):
		require.FailNow(t, "timed out flushing listeners")
	}
}

func TestManager_Emit(t *testing.T) {
	t.Run("WHEN an event is emitted THEN the listener runs once with the arguments after Emit returns", func(t *testing.T) {
		m := newManager(t)
		ev := events.MustNamed("transfer")

		gate := make(chan struct{})
		calls := make(chan []any, 10)
		require.NoError(t, m.On(context.Background(), ev, events.NewListener(func(args ...any) {
			<-gate
			calls <- args
		})))

		emitted := make(chan bool, 1)
		go func() { emitted <- m.Emit(ev, "a", 1) }()

		// the listener is blocked on the gate, so Emit can only return if it does not run the listener itself
		select {
		case found := <-emitted:
			assert.True(t, found)
		case <-time.After(waitFor):
			require.FailNow(t, "Emit ran the listener synchronously")
		}
		assert.Len(t, calls, 0)

		close(gate)
		assert.Equal(t, []any{"a", 1}, receive(t, calls))

		flush(t, m)
		assert.Len(t, calls, 0)
	})

	t.Run("WHEN no listener is registered THEN Emit reports it", func(t *testing.T) {
		m := newManager(t)
		assert.False(t, m.Emit(events.MustNamed("nobody")))
	})

	t.Run("WHEN listeners are registered for several events THEN only matching ones run, in registration order", func(t *testing.T) {
		m := newManager(t)
		order := make(chan int, 10)
		for i := 0; i < 3; i++ {
			i := i
			require.NoError(t, m.On(context.Background(), events.MustNamed("ping"), events.NewListener(func(...any) { order <- i })))
		}
		require.NoError(t, m.On(context.Background(), events.MustNamed("pong"), events.NewListener(func(...any) { order <- 100 })))

		m.Emit(events.MustNamed("PING"))
		flush(t, m)

		require.Len(t, order, 3)
		assert.Equal(t, 0, <-order)
		assert.Equal(t, 1, <-order)
		assert.Equal(t, 2, <-order)
	})

	t.Run("WHEN a listener panics THEN later listeners still run", func(t *testing.T) {
		m := newManager(t)
		ev := events.MustNamed("boom")
		require.NoError(t, m.On(context.Background(), ev, events.NewListener(func(...any) { panic("listener failure") })))
		l, calls := recorder()
		require.NoError(t, m.On(context.Background(), ev, l))

		m.Emit(ev)
		receive(t, calls)
	})

	t.Run("WHEN the manager is closed THEN nothing is emitted or registered", func(t *testing.T) {
		m, err := events.NewManager(&mock.TransportMock{})
		require.NoError(t, err)
		l, _ := recorder()
		require.NoError(t, m.On(context.Background(), events.MustNamed("ping"), l))

		require.NoError(t, m.Close())
		require.NoError(t, m.Close())

		assert.False(t, m.Emit(events.MustNamed("ping")))
		assert.ErrorIs(t, m.On(context.Background(), events.MustNamed("ping"), l), events.ErrClosed)

		select {
		case <-m.Dispatched():
		case <-time.After(waitFor):
			require.FailNow(t, "dispatcher did not stop")
		}
	})
}

func TestManager_Once(t *testing.T) {
	m := newManager(t)
	ev := events.MustNamed("ready")
	l, calls := recorder()

	require.NoError(t, m.Once(context.Background(), ev, l))
	assert.Equal(t, []*events.Listener{l}, m.Listeners(ev))

	assert.True(t, m.Emit(ev, 1))
	assert.Empty(t, m.Listeners(ev))
	assert.False(t, m.Emit(ev, 2))

	assert.Equal(t, []any{1}, receive(t, calls))
	flush(t, m)
	assert.Len(t, calls, 0)
}

func TestManager_Off(t *testing.T) {
	ev := events.MustNamed("ping")
	other := events.MustNamed("pong")

	t.Run("WHEN a listener is registered twice THEN Off removes one registration", func(t *testing.T) {
		m := newManager(t)
		l, calls := recorder()
		require.NoError(t, m.On(context.Background(), ev, l))
		require.NoError(t, m.On(context.Background(), ev, l))
		assert.Equal(t, 2, m.ListenerCount(ev))

		m.Off(ev, l)
		assert.Equal(t, 1, m.ListenerCount(ev))

		m.Emit(ev)
		flush(t, m)
		assert.Len(t, calls, 1)

		m.Off(ev, l)
		assert.Zero(t, m.ListenerCount(ev))
		assert.False(t, m.Emit(ev))
	})

	t.Run("WHEN a listener of another event is removed THEN nothing changes", func(t *testing.T) {
		m := newManager(t)
		l, _ := recorder()
		require.NoError(t, m.On(context.Background(), ev, l))

		m.Off(other, l)
		m.Off(ev, events.NewListener(func(...any) {}))
		assert.Equal(t, 1, m.ListenerCount(ev))
	})

	t.Run("WHEN Off is called without listener THEN every listener of the event is removed", func(t *testing.T) {
		m := newManager(t)
		l1, _ := recorder()
		l2, _ := recorder()
		require.NoError(t, m.On(context.Background(), ev, l1))
		require.NoError(t, m.On(context.Background(), ev, l2))
		require.NoError(t, m.On(context.Background(), other, l1))

		m.Off(ev, nil)
		assert.Zero(t, m.ListenerCount(ev))
		assert.Equal(t, 1, m.ListenerCount(other))
	})
}

func TestManager_RemoveAllListeners(t *testing.T) {
	m := newManager(t)
	l1, _ := recorder()
	l2, _ := recorder()
	require.NoError(t, m.On(context.Background(), events.MustNamed("a"), l1))
	require.NoError(t, m.Once(context.Background(), events.MustNamed("b"), l2))
	require.NoError(t, m.On(context.Background(), events.MustNamed("c"), l1))

	assert.Equal(t, 3, m.ListenerCount())
	assert.Equal(t, []*events.Listener{l1, l2, l1}, m.Listeners())
	assert.Equal(t, 2, m.ListenerCount(events.MustNamed("a"), events.MustNamed("b")))

	m.RemoveAllListeners(events.MustNamed("b"))
	assert.Equal(t, []*events.Listener{l1, l1}, m.Listeners())

	m.RemoveAllListeners()
	assert.Zero(t, m.ListenerCount())
	assert.False(t, m.Emit(events.MustNamed("a")))
}

func TestManager_Validation(t *testing.T) {
	m := newManager(t)

	assert.ErrorIs(t, m.On(context.Background(), events.MustNamed("a"), nil), jsonrpc.ErrInvalidArgument)
	assert.ErrorIs(t, m.On(context.Background(), events.Event{}, events.NewListener(func(...any) {})), jsonrpc.ErrInvalidArgument)

	_, err := events.NewManager(nil)
	assert.ErrorIs(t, err, jsonrpc.ErrInvalidArgument)
}

// node is a stream double answering subscription calls with increasing ids
type node struct {
	*mock.StreamMock
	bus pubsub.Bus[[]byte]

	mu       sync.Mutex
	handlers map[transport.Event]any
	refuse   atomic.Bool
	next     atomic.Int32
}

func newNode(t *testing.T) *node {
	n := &node{bus: pubsub.NewBus[[]byte](0), handlers: make(map[transport.Event]any)}
	t.Cleanup(n.bus.Close)

	n.StreamMock = &mock.StreamMock{
		RequestFunc: func(ctx context.Context, method string, params ...any) (jsonrpc.Envelope, error) {
			switch {
			case n.refuse.Load():
				return jsonrpc.Envelope{Error: &jsonrpc.ErrorInfo{Message: "subscriptions disabled", Code: "-32000"}}, nil
			case method == "moi.subscribe":
				return jsonrpc.Envelope{Result: json.RawMessage(fmt.Sprintf(`"0x%x"`, n.next.Add(1)))}, nil
			case method == "moi.unsubscribe":
				return jsonrpc.Envelope{Result: json.RawMessage(`true`)}, nil
			default:
				return jsonrpc.Envelope{}, jsonrpc.ErrTransport
			}
		},
		OnFunc: func(event transport.Event, handler any) error {
			n.mu.Lock()
			defer n.mu.Unlock()

			n.handlers[event] = handler
			return nil
		},
		MessagesFunc: func(filter func([]byte) bool) pubsub.Subscription[[]byte] {
			return n.bus.Subscribe(filter)
		},
		CloseFunc: func() error { return nil },
	}

	return n
}

func (n *node) push(t *testing.T, subscription string, result string) {
	require.NoError(t, n.bus.Publish([]byte(fmt.Sprintf(
		`{"jsonrpc":"2.0","method":"moi.subscription","params":{"subscription":%q,"result":%s}}`, subscription, result))))
}

func (n *node) handler(event transport.Event) any {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.handlers[event]
}

func (n *node) subscribeCalls() [][]any {
	var calls [][]any
	for _, call := range n.RequestCalls() {
		if call.Method == "moi.subscribe" {
			calls = append(calls, call.Params)
		}
	}

	return calls
}

func TestManager_NetworkEvents(t *testing.T) {
	t.Run("WHEN a network event is registered THEN it is subscribed and pushes reach the listener", func(t *testing.T) {
		n := newNode(t)
		m := newStreamManager(t, n)

		l, calls := recorder()
		require.NoError(t, m.On(context.Background(), events.NewTesseracts, l))
		assert.Equal(t, events.Active, m.SubscriptionState(events.NewTesseracts))
		assert.Equal(t, [][]any{{"newTesseracts"}}, n.subscribeCalls())

		n.push(t, "0x1", `{"height":"0x5"}`)
		args := receive(t, calls)
		require.Len(t, args, 1)
		assert.JSONEq(t, `{"height":"0x5"}`, string(args[0].(json.RawMessage)))
	})

	t.Run("WHEN messages arrive THEN every message is emitted and only complete pushes are routed", func(t *testing.T) {
		n := newNode(t)
		m := newStreamManager(t, n)

		l, calls := recorder()
		require.NoError(t, m.On(context.Background(), events.NewPendingInteractions, l))
		messages, raw := recorder()
		require.NoError(t, m.On(context.Background(), events.Message, messages))

		require.NoError(t, n.bus.Publish([]byte(`{"params":{"subscription":"0x1"}}`)))
		require.NoError(t, n.bus.Publish([]byte(`{"params":{"result":"0xabc"}}`)))
		n.push(t, "0x99", `"0xdef"`)
		n.push(t, "0x1", `"0x123"`)

		for i := 0; i < 4; i++ {
			args := receive(t, raw)
			require.Len(t, args, 1)
			assert.IsType(t, "", args[0])
		}

		assert.Equal(t, []any{json.RawMessage(`"0x123"`)}, receive(t, calls))
		flush(t, m)
		assert.Len(t, calls, 0)
	})

	t.Run("WHEN events with different parameters are registered THEN pushes reach only their descriptor", func(t *testing.T) {
		n := newNode(t)
		m := newStreamManager(t, n)

		alice, aliceCalls := recorder()
		bob, bobCalls := recorder()
		require.NoError(t, m.On(context.Background(), events.NewTesseractsByAccount("0xa11ce"), alice))
		require.NoError(t, m.On(context.Background(), events.NewTesseractsByAccount("0xb0b"), bob))
		assert.Equal(t, [][]any{
			{"newTesseractsByAccount", events.AccountFilter{Address: "0xa11ce"}},
			{"newTesseractsByAccount", events.AccountFilter{Address: "0xb0b"}},
		}, n.subscribeCalls())

		n.push(t, "0x2", `{"for":"bob"}`)
		assert.Len(t, receive(t, bobCalls), 1)
		flush(t, m)
		assert.Len(t, aliceCalls, 0)

		assert.Equal(t, 2, m.ListenerCount(events.MustNamed("newTesseractsByAccount")))
		assert.Equal(t, 1, m.ListenerCount(events.NewTesseractsByAccount("0xb0b")))
	})

	t.Run("WHEN the same event is registered twice THEN the subscription is shared", func(t *testing.T) {
		n := newNode(t)
		m := newStreamManager(t, n)

		l1, calls1 := recorder()
		l2, calls2 := recorder()
		require.NoError(t, m.On(context.Background(), events.NewTesseracts, l1))
		require.NoError(t, m.Once(context.Background(), events.NewTesseracts, l2))
		assert.Len(t, n.subscribeCalls(), 1)

		n.push(t, "0x1", `1`)
		n.push(t, "0x1", `2`)
		receive(t, calls1)
		receive(t, calls1)
		assert.Equal(t, []any{json.RawMessage(`1`)}, receive(t, calls2))
		flush(t, m)
		assert.Len(t, calls2, 0)
	})

	t.Run("WHEN the node refuses the subscription THEN the error is returned and nothing is registered", func(t *testing.T) {
		n := newNode(t)
		n.refuse.Store(true)
		m := newStreamManager(t, n)

		l, _ := recorder()
		err := m.On(context.Background(), events.NewTesseracts, l)
		var serverErr *jsonrpc.ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, "subscriptions disabled", serverErr.Message)

		assert.Zero(t, m.ListenerCount())
		assert.Equal(t, events.Unregistered, m.SubscriptionState(events.NewTesseracts))
		assert.Len(t, n.subscribeCalls(), 1)
	})

	t.Run("WHEN an account event has no address THEN it is rejected without a call", func(t *testing.T) {
		n := newNode(t)
		m := newStreamManager(t, n)

		l, _ := recorder()
		err := m.On(context.Background(), events.MustNamed("newTesseractsByAccount"), l)
		assert.ErrorIs(t, err, jsonrpc.ErrInvalidArgument)
		assert.Empty(t, n.RequestCalls())
	})

	t.Run("WHEN there is no streaming transport THEN network events are unsupported", func(t *testing.T) {
		requester := &mock.TransportMock{}
		m, err := events.NewManager(requester)
		require.NoError(t, err)
		defer func() { assert.NoError(t, m.Close()) }()

		l, _ := recorder()
		assert.ErrorIs(t, m.On(context.Background(), events.NewTesseracts, l), jsonrpc.ErrUnsupported)
		assert.Empty(t, requester.RequestCalls())
	})

	t.Run("WHEN a subscription is cancelled THEN the node is told and its listeners are removed", func(t *testing.T) {
		n := newNode(t)
		m := newStreamManager(t, n)

		l, calls := recorder()
		require.NoError(t, m.On(context.Background(), events.NewTesseracts, l))
		require.NoError(t, m.Unsubscribe(context.Background(), events.NewTesseracts))

		assert.Equal(t, events.Unregistered, m.SubscriptionState(events.NewTesseracts))
		assert.Zero(t, m.ListenerCount())

		var unsubscribed []any
		for _, call := range n.RequestCalls() {
			if call.Method == "moi.unsubscribe" {
				unsubscribed = call.Params
			}
		}
		assert.Equal(t, []any{"0x1"}, unsubscribed)

		n.push(t, "0x1", `1`)
		flush(t, m)
		assert.Len(t, calls, 0)

		assert.ErrorIs(t, m.Unsubscribe(context.Background(), events.NewTesseracts), jsonrpc.ErrInvalidArgument)
	})
}

func TestManager_Lifecycle(t *testing.T) {
	n := newNode(t)
	m := newStreamManager(t, n)

	opened, openCalls := recorder()
	failed, failCalls := recorder()
	reconnected, reconnectCalls := recorder()
	require.NoError(t, m.On(context.Background(), events.Open, opened))
	require.NoError(t, m.On(context.Background(), events.Error, failed))
	require.NoError(t, m.On(context.Background(), events.Reconnect, reconnected))

	l, calls := recorder()
	require.NoError(t, m.On(context.Background(), events.NewTesseracts, l))

	t.Run("WHEN the transport reports lifecycle events THEN they are emitted locally", func(t *testing.T) {
		n.handler(transport.EventOpen).(func())()
		receive(t, openCalls)

		n.handler(transport.EventError).(func(error))(jsonrpc.ErrTransport)
		assert.Equal(t, []any{jsonrpc.ErrTransport}, receive(t, failCalls))
	})

	t.Run("WHEN the transport reconnects THEN subscriptions are renewed under their new id", func(t *testing.T) {
		n.handler(transport.EventReconnect).(func(int))(1)
		assert.Equal(t, []any{1}, receive(t, reconnectCalls))

		assert.Len(t, n.subscribeCalls(), 2)
		assert.Equal(t, events.Active, m.SubscriptionState(events.NewTesseracts))

		n.push(t, "0x1", `"stale"`)
		n.push(t, "0x2", `"fresh"`)
		assert.Equal(t, []any{json.RawMessage(`"fresh"`)}, receive(t, calls))
		flush(t, m)
		assert.Len(t, calls, 0)
	})

	t.Run("WHEN renewing a subscription fails THEN an error is emitted and the subscription is dropped", func(t *testing.T) {
		n.refuse.Store(true)
		n.handler(transport.EventReconnect).(func(int))(2)

		receive(t, reconnectCalls)
		args := receive(t, failCalls)
		require.Len(t, args, 1)
		assert.ErrorIs(t, args[0].(error), jsonrpc.ErrServer)
		assert.Equal(t, events.Unregistered, m.SubscriptionState(events.NewTesseracts))
	})
}

func TestManager_TesseractEvents(t *testing.T) {
	var lookups atomic.Int32
	lookup := func(ctx context.Context, h string) (json.RawMessage, error) {
		if lookups.Add(1) < 3 {
			return nil, jsonrpc.ErrServer
		}

		return json.RawMessage(fmt.Sprintf(`{"hash":%q}`, h)), nil
	}

	m := newManager(t, events.WithTesseractLookup(lookup, 5*time.Millisecond))
	ev, err := events.Tesseract(hash)
	require.NoError(t, err)

	l, calls := recorder()
	require.NoError(t, m.Once(context.Background(), ev, l))

	args := receive(t, calls)
	require.Len(t, args, 1)
	assert.JSONEq(t, fmt.Sprintf(`{"hash":%q}`, ev.Name()), string(args[0].(json.RawMessage)))
	assert.Zero(t, m.ListenerCount(ev))

	// polling stops once nothing waits for a tesseract anymore
	time.Sleep(20 * time.Millisecond)
	seen := lookups.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, seen, lookups.Load())
	assert.EqualValues(t, 3, seen)
}

func TestManager_EmptyTesseractIsNotDelivered(t *testing.T) {
	var lookups atomic.Int32
	lookup := func(ctx context.Context, h string) (json.RawMessage, error) {
		if lookups.Add(1) < 3 {
			return json.RawMessage("null"), nil
		}

		return json.RawMessage(fmt.Sprintf(`{"hash":%q}`, h)), nil
	}

	m := newManager(t, events.WithTesseractLookup(lookup, 5*time.Millisecond))
	ev, err := events.Tesseract(hash)
	require.NoError(t, err)

	l, calls := recorder()
	require.NoError(t, m.On(context.Background(), ev, l))

	args := receive(t, calls)
	require.Len(t, args, 1)
	assert.JSONEq(t, fmt.Sprintf(`{"hash":%q}`, ev.Name()), string(args[0].(json.RawMessage)))
	assert.EqualValues(t, 3, lookups.Load())

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, calls)
	assert.Equal(t, 1, m.ListenerCount(ev))
}
