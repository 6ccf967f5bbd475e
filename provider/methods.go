package provider

import (
	"context"
	"encoding/json"
)

// ClientInfo describes the node software and the network it serves
type ClientInfo struct {
	Version string `json:"version"`
	ChainID uint64 `json:"chain_id"`
}

// QueryOptions select the tesseract a query is answered at and the optional fields of the answer.
// A nil reference queries the latest state
type QueryOptions struct {
	Reference *TesseractReference `json:"reference,omitempty"`
	Include   []string            `json:"include,omitempty"`
}

// At returns query options for the referenced tesseract
func At(ref Reference, include ...string) (*QueryOptions, error) {
	wire, err := Normalize(ref)
	if err != nil {
		return nil, err
	}

	return &QueryOptions{Reference: &wire, Include: include}, nil
}

type interactionParams struct {
	Hash string `json:"hash"`
}

type accountParams struct {
	Address string `json:"address"`
	*QueryOptions
}

type accountKeyParams struct {
	Address string `json:"address"`
	KeyID   uint64 `json:"key_id"`
	Pending bool   `json:"pending,omitempty"`
}

type accountAssetParams struct {
	Address string `json:"address"`
	AssetID string `json:"asset_id"`
	*QueryOptions
}

type assetParams struct {
	AssetID string `json:"asset_id"`
	*QueryOptions
}

type logicParams struct {
	LogicID string `json:"logic_id"`
	*QueryOptions
}

type logicStorageParams struct {
	LogicID    string `json:"logic_id"`
	StorageKey string `json:"storage_key"`
	Address    string `json:"address,omitempty"`
	*QueryOptions
}

// GetVersion returns the node version and chain id
func (p *Provider) GetVersion(ctx context.Context) (ClientInfo, error) {
	var info ClientInfo
	if err := p.Execute(ctx, "moi.Version", &info); err != nil {
		return ClientInfo{}, err
	}

	return info, nil
}

// GetInteraction fetches an interaction by hash
func (p *Provider) GetInteraction(ctx context.Context, hash string) (json.RawMessage, error) {
	return p.raw(ctx, "moi.Interaction", interactionParams{Hash: hash})
}

// GetAccount fetches the account with the given address
func (p *Provider) GetAccount(ctx context.Context, address string, opts *QueryOptions) (json.RawMessage, error) {
	return p.raw(ctx, "moi.Account", accountParams{Address: address, QueryOptions: opts})
}

// GetAccountKey fetches a key of an account. Pending keys are included on request
func (p *Provider) GetAccountKey(ctx context.Context, address string, keyID uint64, pending bool) (json.RawMessage, error) {
	return p.raw(ctx, "moi.AccountKey", accountKeyParams{Address: address, KeyID: keyID, Pending: pending})
}

// GetAccountAsset fetches the balance, mandates and deposits of an asset on an account
func (p *Provider) GetAccountAsset(ctx context.Context, address, assetID string, opts *QueryOptions) (json.RawMessage, error) {
	return p.raw(ctx, "moi.AccountAsset", accountAssetParams{Address: address, AssetID: assetID, QueryOptions: opts})
}

// GetAsset fetches an asset
func (p *Provider) GetAsset(ctx context.Context, assetID string, opts *QueryOptions) (json.RawMessage, error) {
	return p.raw(ctx, "moi.Asset", assetParams{AssetID: assetID, QueryOptions: opts})
}

// GetLogic fetches a logic
func (p *Provider) GetLogic(ctx context.Context, logicID string, opts *QueryOptions) (json.RawMessage, error) {
	return p.raw(ctx, "moi.Logic", logicParams{LogicID: logicID, QueryOptions: opts})
}

// GetLogicStorage reads a key of the persistent storage of a logic
func (p *Provider) GetLogicStorage(ctx context.Context, logicID, key string, opts *QueryOptions) (string, error) {
	var value string
	err := p.Execute(ctx, "moi.LogicStorage", &value, logicStorageParams{LogicID: logicID, StorageKey: key, QueryOptions: opts})

	return value, err
}

// GetLogicStorageAt reads a key of the ephemeral storage a logic keeps for an account
func (p *Provider) GetLogicStorageAt(ctx context.Context, logicID, key, address string, opts *QueryOptions) (string, error) {
	if !isAddress(address) {
		return "", errSignatureOf("GetLogicStorage")
	}

	var value string
	err := p.Execute(ctx, "moi.LogicStorage", &value, logicStorageParams{LogicID: logicID, StorageKey: key, Address: address, QueryOptions: opts})

	return value, err
}

func (p *Provider) raw(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	var result json.RawMessage
	if err := p.Execute(ctx, method, &result, params...); err != nil {
		return nil, err
	}

	return result, nil
}
