package provider

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/cometbft/cometbft/libs/log"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
	"github.com/axelarnetwork/moi-rpc/transport"
)

// DefaultReceiptPollInterval is the time between two receipt lookups while waiting for an interaction
const DefaultReceiptPollInterval = 5 * time.Second

type providerOptions struct {
	logger       log.Logger
	process      jsonrpc.Processor
	pollInterval time.Duration
}

// Option configures a Provider
type Option struct {
	apply func(options providerOptions) providerOptions
}

// WithLogger sets the logger of the provider
func WithLogger(logger log.Logger) Option {
	return Option{
		apply: func(options providerOptions) providerOptions {
			options.logger = logger
			return options
		},
	}
}

// WithLegacyEnvelope makes the provider unwrap results of the {data, error} shape returned by older nodes
func WithLegacyEnvelope() Option {
	return Option{
		apply: func(options providerOptions) providerOptions {
			options.process = jsonrpc.ProcessLegacy
			return options
		},
	}
}

// WithReceiptPollInterval sets the time between receipt lookups of WaitForReceipt
func WithReceiptPollInterval(interval time.Duration) Option {
	return Option{
		apply: func(options providerOptions) providerOptions {
			options.pollInterval = interval
			return options
		},
	}
}

// Provider translates typed calls into JSON-RPC requests and unwraps their results
type Provider struct {
	transport    transport.Transport
	process      jsonrpc.Processor
	logger       log.Logger
	pollInterval time.Duration
}

// New returns a provider sending its requests through the given transport
func New(t transport.Transport, opts ...Option) (*Provider, error) {
	if t == nil {
		return nil, errorsmod.Wrap(jsonrpc.ErrInvalidArgument, "transport is required")
	}

	options := providerOptions{
		logger:       log.NewNopLogger(),
		process:      jsonrpc.Process,
		pollInterval: DefaultReceiptPollInterval,
	}
	for _, opt := range opts {
		options = opt.apply(options)
	}

	if options.pollInterval <= 0 {
		return nil, errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "receipt poll interval must be positive, got %s", options.pollInterval)
	}

	return &Provider{
		transport:    t,
		process:      options.process,
		logger:       options.logger.With("component", "provider"),
		pollInterval: options.pollInterval,
	}, nil
}

// Processor returns how the provider unwraps response envelopes
func (p *Provider) Processor() jsonrpc.Processor {
	return p.process
}

// Request sends a call and returns the raw envelope
func (p *Provider) Request(ctx context.Context, method string, params ...any) (jsonrpc.Envelope, error) {
	return p.transport.Request(ctx, method, params...)
}

// Execute sends a call, unwraps the envelope and decodes the result into result unless it is nil.
// Server errors are returned as *jsonrpc.ServerError
func (p *Provider) Execute(ctx context.Context, method string, result any, params ...any) error {
	env, err := p.transport.Request(ctx, method, params...)
	if err != nil {
		return err
	}

	raw, err := p.process(env)
	if err != nil {
		var serverErr *jsonrpc.ServerError
		if errors.As(err, &serverErr) {
			p.logger.Debug("server error", "method", method, "code", serverErr.Code, "message", serverErr.Message)
		}
		return err
	}

	if result == nil {
		return nil
	}

	if err := json.Unmarshal(raw, result); err != nil {
		return errorsmod.Wrapf(jsonrpc.ErrUnsupported, "unexpected %s result %s: %s", method, truncate(raw), err)
	}

	return nil
}

func truncate(raw json.RawMessage) string {
	const limit = 128
	if len(raw) <= limit {
		return string(raw)
	}

	return string(raw[:limit]) + "..."
}
