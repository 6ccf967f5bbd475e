package provider

import (
	"context"
	"encoding/json"

	errorsmod "cosmossdk.io/errors"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
)

// AccountContent holds the pooled interactions of one account by nonce
type AccountContent struct {
	Pending map[uint64]json.RawMessage
	Queued  map[uint64]json.RawMessage
}

// Content holds the pooled interactions of every account
type Content struct {
	Pending map[string]map[uint64]json.RawMessage
	Queued  map[string]map[uint64]json.RawMessage
}

// Status counts the pooled interactions
type Status struct {
	Pending uint64
	Queued  uint64
}

// WaitTime is how long the interactions of an account have been waiting in the pool
type WaitTime struct {
	Expired bool
	Time    uint64
}

// Inspect summarizes the pool for each account by nonce
type Inspect struct {
	Pending  map[string]map[string]string
	Queued   map[string]map[string]string
	WaitTime map[string]WaitTime
}

type rawContent struct {
	Pending map[string]json.RawMessage `json:"pending"`
	Queued  map[string]json.RawMessage `json:"queued"`
}

type rawWaitTime struct {
	Expired bool   `json:"expired"`
	Time    string `json:"time"`
}

// GetContent returns the pending and queued interactions of every account in the pool
func (p *Provider) GetContent(ctx context.Context) (Content, error) {
	var raw struct {
		Pending map[string]map[string]json.RawMessage `json:"pending"`
		Queued  map[string]map[string]json.RawMessage `json:"queued"`
	}
	if err := p.Execute(ctx, "ixpool.Content", &raw); err != nil {
		return Content{}, err
	}

	content := Content{
		Pending: make(map[string]map[uint64]json.RawMessage, len(raw.Pending)),
		Queued:  make(map[string]map[uint64]json.RawMessage, len(raw.Queued)),
	}
	for address, byNonce := range raw.Pending {
		nonces, err := decodeNonces(byNonce)
		if err != nil {
			return Content{}, err
		}
		content.Pending[address] = nonces
	}
	for address, byNonce := range raw.Queued {
		nonces, err := decodeNonces(byNonce)
		if err != nil {
			return Content{}, err
		}
		content.Queued[address] = nonces
	}

	return content, nil
}

// GetContentFrom returns the pending and queued interactions of one account
func (p *Provider) GetContentFrom(ctx context.Context, address string) (AccountContent, error) {
	var raw rawContent
	if err := p.Execute(ctx, "ixpool.ContentFrom", &raw, addressParams{Address: address}); err != nil {
		return AccountContent{}, err
	}

	pending, err := decodeNonces(raw.Pending)
	if err != nil {
		return AccountContent{}, err
	}

	queued, err := decodeNonces(raw.Queued)
	if err != nil {
		return AccountContent{}, err
	}

	return AccountContent{Pending: pending, Queued: queued}, nil
}

// GetStatus returns the number of pending and queued interactions
func (p *Provider) GetStatus(ctx context.Context) (Status, error) {
	var raw struct {
		Pending string `json:"pending"`
		Queued  string `json:"queued"`
	}
	if err := p.Execute(ctx, "ixpool.Status", &raw); err != nil {
		return Status{}, err
	}

	pending, err := jsonrpc.DecodeUint64(raw.Pending)
	if err != nil {
		return Status{}, errorsmod.Wrap(err, "invalid pending count")
	}

	queued, err := jsonrpc.DecodeUint64(raw.Queued)
	if err != nil {
		return Status{}, errorsmod.Wrap(err, "invalid queued count")
	}

	return Status{Pending: pending, Queued: queued}, nil
}

// GetInspect returns a readable summary of the pool and the wait time of every account
func (p *Provider) GetInspect(ctx context.Context) (Inspect, error) {
	var raw struct {
		Pending  map[string]map[string]string `json:"pending"`
		Queued   map[string]map[string]string `json:"queued"`
		WaitTime map[string]rawWaitTime       `json:"wait_time"`
	}
	if err := p.Execute(ctx, "ixpool.Inspect", &raw); err != nil {
		return Inspect{}, err
	}

	inspect := Inspect{Pending: raw.Pending, Queued: raw.Queued, WaitTime: make(map[string]WaitTime, len(raw.WaitTime))}
	for address, wait := range raw.WaitTime {
		decoded, err := wait.decode()
		if err != nil {
			return Inspect{}, err
		}
		inspect.WaitTime[address] = decoded
	}

	return inspect, nil
}

// GetWaitTime returns how long the interactions of an account have been waiting in the pool
func (p *Provider) GetWaitTime(ctx context.Context, address string) (WaitTime, error) {
	var raw rawWaitTime
	if err := p.Execute(ctx, "ixpool.WaitTime", &raw, addressParams{Address: address}); err != nil {
		return WaitTime{}, err
	}

	return raw.decode()
}

// GetPeers returns the ids of the peers connected to the node
func (p *Provider) GetPeers(ctx context.Context) ([]string, error) {
	var peers []string
	if err := p.Execute(ctx, "net.Peers", &peers); err != nil {
		return nil, err
	}

	return peers, nil
}

// GetDBEntry reads a raw database entry of the node
func (p *Provider) GetDBEntry(ctx context.Context, key string) (string, error) {
	var value string
	err := p.Execute(ctx, "debug.DBGet", &value, struct {
		Key string `json:"key"`
	}{Key: key})

	return value, err
}

// GetAccounts returns the addresses of every account stored by the node
func (p *Provider) GetAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := p.Execute(ctx, "debug.Accounts", &accounts); err != nil {
		return nil, err
	}

	return accounts, nil
}

func (w rawWaitTime) decode() (WaitTime, error) {
	t, err := jsonrpc.DecodeUint64(w.Time)
	if err != nil {
		return WaitTime{}, errorsmod.Wrap(err, "invalid wait time")
	}

	return WaitTime{Expired: w.Expired, Time: t}, nil
}

func decodeNonces(byNonce map[string]json.RawMessage) (map[uint64]json.RawMessage, error) {
	decoded := make(map[uint64]json.RawMessage, len(byNonce))
	for nonce, ix := range byNonce {
		n, err := jsonrpc.DecodeUint64(nonce)
		if err != nil {
			return nil, errorsmod.Wrap(err, "invalid nonce")
		}
		decoded[n] = ix
	}

	return decoded, nil
}
