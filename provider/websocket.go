package provider

import (
	"context"
	"encoding/json"
	"time"

	errorsmod "cosmossdk.io/errors"
	"go.uber.org/multierr"

	"github.com/axelarnetwork/moi-rpc/events"
	"github.com/axelarnetwork/moi-rpc/jsonrpc"
	"github.com/axelarnetwork/moi-rpc/transport"
)

// WebsocketProvider is a provider over a streaming transport that also delivers events
type WebsocketProvider struct {
	*Provider
	*events.Manager

	stream transport.Stream
}

// NewWebsocketProvider returns a provider with an event manager bound to the stream.
// Tesseract events are resolved by looking up the tesseract hash every tesseractPoll
func NewWebsocketProvider(stream transport.Stream, tesseractPoll time.Duration, opts ...Option) (*WebsocketProvider, error) {
	if stream == nil {
		return nil, errorsmod.Wrap(jsonrpc.ErrInvalidArgument, "transport is required")
	}

	p, err := New(stream, opts...)
	if err != nil {
		return nil, err
	}

	lookup := func(ctx context.Context, hash string) (json.RawMessage, error) {
		return p.GetTesseractByHash(ctx, hash)
	}

	m, err := events.NewManager(stream,
		events.WithStream(stream),
		events.WithLogger(p.logger),
		events.WithProcessor(p.process),
		events.WithTesseractLookup(lookup, tesseractPoll),
	)
	if err != nil {
		return nil, err
	}

	return &WebsocketProvider{Provider: p, Manager: m, stream: stream}, nil
}

// DialWebsocket connects to the websocket endpoint of a node
func DialWebsocket(url string, dialOpts []transport.DialOption, opts ...Option) (*WebsocketProvider, error) {
	ws, err := transport.NewWebsocket(url, dialOpts...)
	if err != nil {
		return nil, err
	}

	if err := ws.Start(); err != nil {
		return nil, multierr.Append(err, ws.Close())
	}

	p, err := NewWebsocketProvider(ws, events.DefaultTesseractPollInterval, opts...)
	if err != nil {
		return nil, multierr.Append(err, ws.Close())
	}

	return p, nil
}

// Close stops the event manager and the stream
func (p *WebsocketProvider) Close() error {
	return multierr.Combine(p.Manager.Close(), p.stream.Close())
}
