package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cometbft/cometbft/libs/log"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
	"github.com/axelarnetwork/moi-rpc/transport"
)

// DefaultTesseractPollInterval is how often pending tesseract events are looked up
const DefaultTesseractPollInterval = 4 * time.Second

// TesseractLookup fetches a tesseract by hash. An error means the tesseract is not available yet
type TesseractLookup func(ctx context.Context, hash string) (json.RawMessage, error)

type managerOptions struct {
	stream       transport.Stream
	logger       log.Logger
	process      jsonrpc.Processor
	lookup       TesseractLookup
	pollInterval time.Duration
	bufferCap    int
}

// Option configures a Manager
type Option struct {
	apply func(options managerOptions) managerOptions
}

// WithStream sets the streaming transport that delivers pushed messages and lifecycle events.
// It defaults to the requester if that is a stream itself
func WithStream(stream transport.Stream) Option {
	return Option{
		apply: func(options managerOptions) managerOptions {
			options.stream = stream
			return options
		},
	}
}

// WithLogger sets the logger of the manager
func WithLogger(logger log.Logger) Option {
	return Option{
		apply: func(options managerOptions) managerOptions {
			options.logger = logger
			return options
		},
	}
}

// WithProcessor sets how subscription responses are unwrapped
func WithProcessor(process jsonrpc.Processor) Option {
	return Option{
		apply: func(options managerOptions) managerOptions {
			options.process = process
			return options
		},
	}
}

// WithTesseractLookup enables tesseract events. While a listener waits for a tesseract that has not been
// delivered, the lookup is called for its hash once per interval. Non-positive intervals select
// DefaultTesseractPollInterval
func WithTesseractLookup(lookup TesseractLookup, interval time.Duration) Option {
	return Option{
		apply: func(options managerOptions) managerOptions {
			options.lookup = lookup
			options.pollInterval = interval
			return options
		},
	}
}

// BufferCap sets the initial capacity of the listener invocation queue
func BufferCap(capacity int) Option {
	return Option{
		apply: func(options managerOptions) managerOptions {
			options.bufferCap = capacity
			return options
		},
	}
}

func applyOptions(opts []Option) managerOptions {
	options := managerOptions{
		logger:       log.NewNopLogger(),
		process:      jsonrpc.Process,
		pollInterval: DefaultTesseractPollInterval,
		bufferCap:    100,
	}
	for _, opt := range opts {
		options = opt.apply(options)
	}

	if options.pollInterval <= 0 {
		options.pollInterval = DefaultTesseractPollInterval
	}

	return options
}
