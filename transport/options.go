package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/cometbft/cometbft/libs/log"
)

// default connection parameters
const (
	DefaultTimeout          = 30 * time.Second
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultKeepAlive        = 10 * time.Second
	DefaultRetries          = 5
	DefaultBackOff          = time.Second
)

type dialOptions struct {
	timeout          time.Duration
	handshakeTimeout time.Duration
	keepAlive        time.Duration
	retries          int
	backOff          time.Duration
	bufferCap        int
	logger           log.Logger
	httpClient       *http.Client
	header           http.Header
}

func defaultDialOptions() dialOptions {
	return dialOptions{
		timeout:          DefaultTimeout,
		handshakeTimeout: DefaultHandshakeTimeout,
		keepAlive:        DefaultKeepAlive,
		retries:          DefaultRetries,
		backOff:          DefaultBackOff,
		logger:           log.NewNopLogger(),
		httpClient:       http.DefaultClient,
	}
}

// DialOption configures a transport
type DialOption struct {
	apply func(options dialOptions) dialOptions
}

func applyOptions(opts []DialOption) dialOptions {
	options := defaultDialOptions()
	for _, opt := range opts {
		options = opt.apply(options)
	}

	return options
}

// Timeout sets the time after which a request without deadline is cancelled
func Timeout(timeout time.Duration) DialOption {
	return DialOption{
		apply: func(options dialOptions) dialOptions {
			options.timeout = timeout
			return options
		},
	}
}

// HandshakeTimeout bounds the websocket handshake
func HandshakeTimeout(timeout time.Duration) DialOption {
	return DialOption{
		apply: func(options dialOptions) dialOptions {
			options.handshakeTimeout = timeout
			return options
		},
	}
}

// KeepAlive sets the ping interval of a websocket connection. The connection is considered lost
// when no pong arrives within two intervals
func KeepAlive(interval time.Duration) DialOption {
	return DialOption{
		apply: func(options dialOptions) dialOptions {
			options.keepAlive = interval
			return options
		},
	}
}

// Retries sets how many times a lost websocket connection is re-dialed before giving up
func Retries(retries int) DialOption {
	return DialOption{
		apply: func(options dialOptions) dialOptions {
			options.retries = retries
			return options
		},
	}
}

// BackOff sets the base of the linear back-off between reconnection attempts
func BackOff(backOff time.Duration) DialOption {
	return DialOption{
		apply: func(options dialOptions) dialOptions {
			options.backOff = backOff
			return options
		},
	}
}

// BufferCap sets the initial capacity of the inbound message buffer
func BufferCap(capacity int) DialOption {
	return DialOption{
		apply: func(options dialOptions) dialOptions {
			options.bufferCap = capacity
			return options
		},
	}
}

// WithLogger sets the logger of the transport
func WithLogger(logger log.Logger) DialOption {
	return DialOption{
		apply: func(options dialOptions) dialOptions {
			options.logger = logger
			return options
		},
	}
}

// WithHTTPClient replaces the client used by the HTTP transport
func WithHTTPClient(client *http.Client) DialOption {
	return DialOption{
		apply: func(options dialOptions) dialOptions {
			options.httpClient = client
			return options
		},
	}
}

// WithHeader adds headers to every HTTP request and to the websocket handshake
func WithHeader(header http.Header) DialOption {
	return DialOption{
		apply: func(options dialOptions) dialOptions {
			options.header = header.Clone()
			return options
		},
	}
}

func ctxWithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}
