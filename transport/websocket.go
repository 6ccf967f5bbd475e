package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	errorsmod "cosmossdk.io/errors"
	evbus "github.com/asaskevich/EventBus"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
	"github.com/axelarnetwork/moi-rpc/pubsub"
	"github.com/axelarnetwork/utils"
)

// DefaultWSAddress is the websocket endpoint of a local node
const DefaultWSAddress = "ws://localhost:1600/ws"

// Websocket is a Stream over one websocket connection. A dropped connection is re-dialed with a
// linear back-off; requests in flight at that moment fail with ErrClosed
type Websocket struct {
	*service.BaseService

	url     string
	options dialOptions
	logger  log.Logger

	lifecycle evbus.Bus
	messages  pubsub.Bus[[]byte]
	nextID    atomic.Int64

	mu      sync.RWMutex
	conn    *websocket.Conn
	connCtx context.Context
	dropped context.CancelFunc
	pending map[int64]chan jsonrpc.Envelope

	writeMu sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

var _ Stream = (*Websocket)(nil)

// NewWebsocket returns an unconnected transport for the given endpoint. Start dials it
func NewWebsocket(url string, opts ...DialOption) (*Websocket, error) {
	if url == "" {
		return nil, errorsmod.Wrap(jsonrpc.ErrInvalidArgument, "websocket url must not be empty")
	}

	options := applyOptions(opts)
	t := &Websocket{
		url:       url,
		options:   options,
		logger:    options.logger.With("transport", "websocket"),
		lifecycle: evbus.New(),
		messages:  pubsub.NewBus[[]byte](options.bufferCap),
		pending:   make(map[int64]chan jsonrpc.Envelope),
	}
	t.BaseService = service.NewBaseService(t.logger, "WebsocketTransport", t)

	return t, nil
}

// OnStart dials the node and starts serving the connection
func (t *Websocket) OnStart() error {
	ctx, cancel := context.WithCancel(context.Background())

	conn, err := t.dial(ctx)
	if err != nil {
		cancel()
		return err
	}

	t.cancel = cancel
	t.done = make(chan struct{})
	t.bind(conn)

	go t.maintain(ctx, conn)

	t.logger.Info("connected to " + t.url)
	t.lifecycle.Publish(string(EventOpen))

	return nil
}

// OnStop closes the connection and waits for pending lifecycle handlers
func (t *Websocket) OnStop() {
	t.cancel()
	<-t.done
	t.messages.Close()
	t.lifecycle.WaitAsync()
}

// OnReset is not supported, create a new transport instead
func (t *Websocket) OnReset() error {
	return errors.New("websocket transport cannot be reset")
}

// Close stops the transport. Closing twice is a no-op
func (t *Websocket) Close() error {
	err := t.Stop()
	switch {
	case errors.Is(err, service.ErrNotStarted):
		t.messages.Close()
		return nil
	case errors.Is(err, service.ErrAlreadyStopped):
		return nil
	default:
		return err
	}
}

// On registers a lifecycle handler. Handlers run asynchronously, one invocation at a time per handler
func (t *Websocket) On(event Event, handler any) error {
	arity, ok := handlerArity[event]
	if !ok {
		return errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "unknown lifecycle event %s", event)
	}

	fn := reflect.ValueOf(handler)
	if fn.Kind() != reflect.Func || fn.Type().NumIn() != arity {
		return errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "handler for %s must be a function with %d argument(s)", event, arity)
	}

	return t.lifecycle.SubscribeAsync(string(event), handler, true)
}

// Messages subscribes to inbound messages that do not answer a pending request
func (t *Websocket) Messages(filter func([]byte) bool) pubsub.Subscription[[]byte] {
	return t.messages.Subscribe(filter)
}

// Request writes a call to the connection and waits for the response with the same id
func (t *Websocket) Request(ctx context.Context, method string, params ...any) (jsonrpc.Envelope, error) {
	id := t.nextID.Add(1)
	req, err := jsonrpc.NewRequest(id, method, params)
	if err != nil {
		return jsonrpc.Envelope{}, err
	}

	bz, err := json.Marshal(req)
	if err != nil {
		return jsonrpc.Envelope{}, errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "cannot encode %s request: %s", method, err)
	}

	t.mu.Lock()
	if t.conn == nil {
		t.mu.Unlock()
		return jsonrpc.Envelope{}, fmt.Errorf("%w: %w", jsonrpc.ErrTransport, ErrNotConnected)
	}
	conn, connCtx := t.conn, t.connCtx
	sink := make(chan jsonrpc.Envelope, 1)
	t.pending[id] = sink
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
	}()

	ctx, cancel := ctxWithTimeout(ctx, t.options.timeout)
	defer cancel()

	t.writeMu.Lock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	err = conn.WriteMessage(websocket.TextMessage, bz)
	t.writeMu.Unlock()
	if err != nil {
		return jsonrpc.Envelope{}, fmt.Errorf("%w: %w: %w", jsonrpc.ErrTransport, ErrSendRequest, err)
	}

	select {
	case env := <-sink:
		return env, nil
	case <-connCtx.Done():
		return jsonrpc.Envelope{}, fmt.Errorf("%w: %w", jsonrpc.ErrTransport, ErrClosed)
	case <-ctx.Done():
		return jsonrpc.Envelope{}, fmt.Errorf("%w: no response to %s: %w", jsonrpc.ErrTransport, method, ctx.Err())
	}
}

func (t *Websocket) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: t.options.handshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, t.url, t.options.header)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to dial %s: %w", jsonrpc.ErrTransport, t.url, err)
	}

	if t.options.keepAlive > 0 {
		pongWait := 2 * t.options.keepAlive
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	return conn, nil
}

func (t *Websocket) bind(conn *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.conn = conn
	t.connCtx, t.dropped = context.WithCancel(context.Background())
}

func (t *Websocket) unbind() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.conn = nil
	if t.dropped != nil {
		t.dropped()
	}
	t.pending = make(map[int64]chan jsonrpc.Envelope)
}

func (t *Websocket) maintain(ctx context.Context, conn *websocket.Conn) {
	defer close(t.done)

	for {
		err := t.serve(ctx, conn)
		t.unbind()
		t.lifecycle.Publish(string(EventClose))

		if ctx.Err() != nil {
			return
		}

		t.logger.Info("connection lost", "err", err)
		t.lifecycle.Publish(string(EventError), err)

		conn, err = t.reconnect(ctx)
		if err != nil {
			if ctx.Err() == nil {
				t.logger.Error(err.Error())
				t.lifecycle.Publish(string(EventError), err)
			}
			return
		}
	}
}

func (t *Websocket) reconnect(ctx context.Context) (*websocket.Conn, error) {
	if t.options.retries <= 0 {
		return nil, fmt.Errorf("%w: %w: reconnection disabled", jsonrpc.ErrTransport, ErrClosed)
	}

	backOff := utils.LinearBackOff(t.options.backOff)
	var err error
	for i := 0; i < t.options.retries; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backOff(i)):
		}

		var conn *websocket.Conn
		conn, err = t.dial(ctx)
		if err != nil {
			t.logger.Debug("reconnection attempt failed", "attempt", i+1, "err", err)
			continue
		}

		t.bind(conn)
		t.logger.Info("reconnected to "+t.url, "attempt", i+1)
		t.lifecycle.Publish(string(EventReconnect), i+1)
		t.lifecycle.Publish(string(EventOpen))

		return conn, nil
	}

	return nil, fmt.Errorf("aborting reconnection to %s after %d attempts: %w", t.url, t.options.retries, err)
}

func (t *Websocket) serve(ctx context.Context, conn *websocket.Conn) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return t.read(ctx, conn) })
	if t.options.keepAlive > 0 {
		g.Go(func() error { return t.ping(ctx, conn) })
	}
	g.Go(func() error {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		return conn.Close()
	})

	return g.Wait()
}

func (t *Websocket) read(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return fmt.Errorf("%w: %w: %w", jsonrpc.ErrTransport, ErrReadMessage, err)
		}

		if t.deliver(msg) {
			continue
		}

		if err := t.messages.Publish(msg); err != nil {
			return err
		}
	}
}

// deliver hands a response to the request waiting for it and reports whether there was one
func (t *Websocket) deliver(msg []byte) bool {
	id := gjson.GetBytes(msg, "id")
	if id.Type != gjson.Number {
		return false
	}

	t.mu.RLock()
	sink, ok := t.pending[id.Int()]
	t.mu.RUnlock()
	if !ok {
		return false
	}

	var env jsonrpc.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		t.logger.Debug("malformed response", "id", id.Int(), "err", err)
		return false
	}

	select {
	case sink <- env:
	default:
	}

	return true
}

func (t *Websocket) ping(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(t.options.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.options.keepAlive)); err != nil {
				return fmt.Errorf("%w: ping failed: %w", jsonrpc.ErrTransport, err)
			}
		}
	}
}
