package transport

import (
	"context"
	"errors"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
	"github.com/axelarnetwork/moi-rpc/pubsub"
)

//go:generate moq -pkg mock -out ./mock/transport.go . Transport Stream

// sentinel failures of a transport, always joined with jsonrpc.ErrTransport
var (
	ErrNotConnected = errors.New("not connected")
	ErrClosed       = errors.New("connection closed")
	ErrReadMessage  = errors.New("failed to read message")
	ErrSendRequest  = errors.New("failed to send request")
)

// Transport exchanges a single JSON-RPC call with a node.
// Protocol errors are returned inside the envelope, the error only reports exchange failures
type Transport interface {
	Request(ctx context.Context, method string, params ...any) (jsonrpc.Envelope, error)
}

// Event names a connection lifecycle notification of a Stream
type Event string

// lifecycle events and the handler signature each of them expects
const (
	EventOpen      Event = "open"      // func()
	EventClose     Event = "close"     // func()
	EventError     Event = "error"     // func(error)
	EventReconnect Event = "reconnect" // func(attempt int)
)

var handlerArity = map[Event]int{
	EventOpen:      0,
	EventClose:     0,
	EventError:     1,
	EventReconnect: 1,
}

// Stream is a Transport over a persistent duplex connection that also delivers unsolicited messages
type Stream interface {
	Transport
	// On registers a handler for a lifecycle event
	On(event Event, handler any) error
	// Messages subscribes to raw inbound messages that are not responses to a request
	Messages(filter func([]byte) bool) pubsub.Subscription[[]byte]
	Close() error
}
