package provider

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/avast/retry-go/v4"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
)

// DefaultWaitTimeout bounds WaitForReceipt and WaitForResult when no timeout is given
const DefaultWaitTimeout = 120 * time.Second

// WaitForReceipt looks up the receipt of an interaction immediately and then once per poll interval until it
// is found or the timeout elapses. Failed lookups are retried unless the request itself is invalid.
// A non-positive timeout selects DefaultWaitTimeout
func (p *Provider) WaitForReceipt(ctx context.Context, hash string, timeout time.Duration) (*Receipt, error) {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	deadline, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger := p.logger.With("hash", hash)
	receipt, err := retry.DoWithData(
		func() (*Receipt, error) {
			receipt, err := p.GetInteractionReceipt(deadline, hash)
			if err != nil {
				return nil, jsonrpc.Retryable(err)
			}

			return receipt, nil
		},
		retry.Context(deadline),
		retry.Attempts(0),
		retry.Delay(p.pollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(jsonrpc.IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug("receipt not available yet", "attempt", n+1, "err", err)
		}),
	)

	switch {
	case err == nil:
		return receipt, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(deadline.Err(), context.DeadlineExceeded):
		return nil, errorsmod.Wrapf(jsonrpc.ErrTimeout, "failed to fetch receipt of %s after %s", hash, timeout)
	default:
		return nil, err
	}
}

// WaitForResult waits for the receipt of an interaction and extracts its result, see InterpretReceipt
func (p *Provider) WaitForResult(ctx context.Context, hash string, timeout time.Duration) (json.RawMessage, error) {
	receipt, err := p.WaitForReceipt(ctx, hash, timeout)
	if err != nil {
		return nil, err
	}

	return InterpretReceipt(receipt)
}
