package transport

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
)

// request outcomes recorded by Instrumented
const (
	StatusOK             = "ok"
	StatusServerError    = "server_error"
	StatusTransportError = "transport_error"
)

// Instrumented records request counts and latencies of the wrapped transport
type Instrumented struct {
	next     Transport
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var _ Transport = (*Instrumented)(nil)

// Instrument wraps a transport and registers its collectors. Collectors that are already registered are reused
func Instrument(next Transport, registerer prometheus.Registerer) (*Instrumented, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moi",
		Subsystem: "rpc",
		Name:      "requests_total",
		Help:      "Number of JSON-RPC requests by method and outcome.",
	}, []string{"method", "status"})

	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "moi",
		Subsystem: "rpc",
		Name:      "request_duration_seconds",
		Help:      "Latency of JSON-RPC requests by method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	if err := registerer.Register(requests); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		requests = already.ExistingCollector.(*prometheus.CounterVec)
	}

	if err := registerer.Register(latency); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		latency = already.ExistingCollector.(*prometheus.HistogramVec)
	}

	return &Instrumented{next: next, requests: requests, latency: latency}, nil
}

// Request forwards the call and records its outcome
func (i *Instrumented) Request(ctx context.Context, method string, params ...any) (jsonrpc.Envelope, error) {
	start := time.Now()
	env, err := i.next.Request(ctx, method, params...)
	i.latency.WithLabelValues(method).Observe(time.Since(start).Seconds())

	status := StatusOK
	switch {
	case err != nil:
		status = StatusTransportError
	case env.Error != nil:
		status = StatusServerError
	}
	i.requests.WithLabelValues(method, status).Inc()

	return env, err
}
