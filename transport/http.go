package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/cometbft/cometbft/libs/log"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
)

// DefaultHTTPAddress is the JSON-RPC endpoint of a local node
const DefaultHTTPAddress = "http://localhost:1600"

// HTTP posts every call to a JSON-RPC endpoint
type HTTP struct {
	url     string
	client  *http.Client
	header  http.Header
	timeout time.Duration
	nextID  atomic.Int64
	logger  log.Logger
}

var _ Transport = (*HTTP)(nil)

// NewHTTP returns a transport for the given endpoint
func NewHTTP(url string, opts ...DialOption) (*HTTP, error) {
	if url == "" {
		return nil, errorsmod.Wrap(jsonrpc.ErrInvalidArgument, "http url must not be empty")
	}

	options := applyOptions(opts)
	return &HTTP{
		url:     url,
		client:  options.httpClient,
		header:  options.header,
		timeout: options.timeout,
		logger:  options.logger.With("transport", "http"),
	}, nil
}

// Request sends a call and decodes the envelope. Non-2xx responses are still decoded when they carry one
func (t *HTTP) Request(ctx context.Context, method string, params ...any) (jsonrpc.Envelope, error) {
	req, err := jsonrpc.NewRequest(t.nextID.Add(1), method, params)
	if err != nil {
		return jsonrpc.Envelope{}, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return jsonrpc.Envelope{}, errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "cannot encode %s request: %s", method, err)
	}

	ctx, cancel := ctxWithTimeout(ctx, t.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return jsonrpc.Envelope{}, errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "cannot build request to %s: %s", t.url, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for key, values := range t.header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	t.logger.Debug("sending request", "method", method, "id", req.ID)
	resp, err := t.client.Do(httpReq)
	if err != nil {
		return jsonrpc.Envelope{}, fmt.Errorf("%w: %w: post failed: %w", jsonrpc.ErrTransport, ErrSendRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	bz, err := io.ReadAll(resp.Body)
	if err != nil {
		return jsonrpc.Envelope{}, fmt.Errorf("%w: %w: %w", jsonrpc.ErrTransport, ErrReadMessage, err)
	}

	var env jsonrpc.Envelope
	if err := json.Unmarshal(bz, &env); err != nil {
		if resp.StatusCode/100 != 2 {
			return jsonrpc.Envelope{}, fmt.Errorf("%w: unexpected status %s", jsonrpc.ErrTransport, resp.Status)
		}

		return jsonrpc.Envelope{}, errorsmod.Wrapf(jsonrpc.ErrUnsupported, "malformed envelope for %s: %s", method, err)
	}

	return env, nil
}
