package provider

import (
	"context"
	"encoding/json"
	"time"

	errorsmod "cosmossdk.io/errors"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
)

// InteractionRequest is a signed, encoded interaction
type InteractionRequest struct {
	IxArgs    string `json:"ix_args"`
	Signature string `json:"signature"`
}

// InteractionResponse identifies a submitted interaction and waits for its outcome
type InteractionResponse struct {
	Hash string

	provider *Provider
}

// Wait waits for the receipt of the interaction, see Provider.WaitForReceipt
func (r *InteractionResponse) Wait(ctx context.Context, timeout time.Duration) (*Receipt, error) {
	return r.provider.WaitForReceipt(ctx, r.Hash, timeout)
}

// Result waits for the result of the interaction, see Provider.WaitForResult
func (r *InteractionResponse) Result(ctx context.Context, timeout time.Duration) (json.RawMessage, error) {
	return r.provider.WaitForResult(ctx, r.Hash, timeout)
}

// SendInteraction submits a signed interaction to the pool of the node
func (p *Provider) SendInteraction(ctx context.Context, req InteractionRequest) (*InteractionResponse, error) {
	if req.IxArgs == "" || req.Signature == "" {
		return nil, errorsmod.Wrap(jsonrpc.ErrInvalidArgument, "interaction arguments and signature are required")
	}

	var hash string
	if err := p.Execute(ctx, "moi.SendInteractions", &hash, req); err != nil {
		return nil, err
	}

	if hash == "" {
		return nil, errorsmod.Wrap(jsonrpc.ErrUnsupported, "node returned no interaction hash")
	}

	p.logger.Debug("interaction sent", "hash", hash)
	return &InteractionResponse{Hash: hash, provider: p}, nil
}
