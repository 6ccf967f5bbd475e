package provider

import (
	"context"
	"encoding/json"

	"cosmossdk.io/math"
	errorsmod "cosmossdk.io/errors"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
)

// Options select the tesseract a legacy query is answered at
type Options struct {
	TesseractNumber *int64 `json:"tesseract_number,omitempty"`
	TesseractHash   string `json:"tesseract_hash,omitempty"`
	Address         string `json:"address,omitempty"`
}

// DefaultOptions selects the latest tesseract
func DefaultOptions() *Options {
	latest := LatestHeight
	return &Options{TesseractNumber: &latest}
}

// AtHeight selects the tesseract with the given number
func AtHeight(number int64) *Options {
	return &Options{TesseractNumber: &number}
}

func orDefault(opts *Options) *Options {
	if opts == nil {
		return DefaultOptions()
	}

	return opts
}

// ContextInfo lists the nodes of an account's context
type ContextInfo struct {
	BehaviourNodes []string `json:"behaviour_nodes"`
	RandomNodes    []string `json:"random_nodes"`
	StorageNodes   []string `json:"storage_nodes"`
}

// AssetAmount is the amount of one asset held by an account
type AssetAmount struct {
	AssetID string
	Amount  math.Int
}

type addressParams struct {
	Address string `json:"address"`
}

type addressOptionParams struct {
	Address string   `json:"address"`
	Options *Options `json:"options"`
}

type balanceParams struct {
	Address string   `json:"address"`
	AssetID string   `json:"asset_id"`
	Options *Options `json:"options"`
}

type hashParams struct {
	Hash string `json:"hash"`
}

type interactionByTesseractParams struct {
	Address string   `json:"address"`
	Options *Options `json:"options"`
	IxIndex string   `json:"ix_index"`
}

type assetIDParams struct {
	AssetID string   `json:"asset_id"`
	Options *Options `json:"options"`
}

type storageParams struct {
	LogicID    string   `json:"logic_id"`
	StorageKey string   `json:"storage_key"`
	Options    *Options `json:"options"`
}

// GetBalance returns the balance of an asset on an account
func (p *Provider) GetBalance(ctx context.Context, address, assetID string, opts *Options) (math.Int, error) {
	var balance string
	if err := p.Execute(ctx, "moi.Balance", &balance, balanceParams{Address: address, AssetID: assetID, Options: orDefault(opts)}); err != nil {
		return math.Int{}, err
	}

	return decodeAmount("moi.Balance", balance)
}

// GetContextInfo returns the context nodes of an account
func (p *Provider) GetContextInfo(ctx context.Context, address string, opts *Options) (ContextInfo, error) {
	var info ContextInfo
	if err := p.Execute(ctx, "moi.ContextInfo", &info, addressOptionParams{Address: address, Options: orDefault(opts)}); err != nil {
		return ContextInfo{}, err
	}

	return info, nil
}

// GetTDU returns the amounts of every asset held by an account
func (p *Provider) GetTDU(ctx context.Context, address string, opts *Options) ([]AssetAmount, error) {
	var tdu []struct {
		AssetID string `json:"asset_id"`
		Amount  string `json:"amount"`
	}
	if err := p.Execute(ctx, "moi.TDU", &tdu, addressOptionParams{Address: address, Options: orDefault(opts)}); err != nil {
		return nil, err
	}

	amounts := make([]AssetAmount, 0, len(tdu))
	for _, asset := range tdu {
		amount, err := decodeAmount("moi.TDU", asset.Amount)
		if err != nil {
			return nil, err
		}

		amounts = append(amounts, AssetAmount{AssetID: asset.AssetID, Amount: amount})
	}

	return amounts, nil
}

// GetInteractionByHash fetches an interaction by hash
func (p *Provider) GetInteractionByHash(ctx context.Context, hash string) (json.RawMessage, error) {
	return p.raw(ctx, "moi.InteractionByHash", hashParams{Hash: hash})
}

// GetInteractionByTesseract fetches the interaction at an index of the selected tesseract of an account
func (p *Provider) GetInteractionByTesseract(ctx context.Context, address string, opts *Options, index uint64) (json.RawMessage, error) {
	return p.raw(ctx, "moi.InteractionByTesseract", interactionByTesseractParams{
		Address: address,
		Options: orDefault(opts),
		IxIndex: jsonrpc.EncodeUint64(index),
	})
}

// GetInteractionCount returns the number of interactions sent by an account
func (p *Provider) GetInteractionCount(ctx context.Context, address string, opts *Options) (uint64, error) {
	return p.count(ctx, "moi.InteractionCount", addressOptionParams{Address: address, Options: orDefault(opts)})
}

// GetPendingInteractionCount returns the number of interactions sent by an account including pending ones
func (p *Provider) GetPendingInteractionCount(ctx context.Context, address string) (uint64, error) {
	return p.count(ctx, "moi.PendingInteractionCount", addressParams{Address: address})
}

// GetAccountState returns the state of an account
func (p *Provider) GetAccountState(ctx context.Context, address string, opts *Options) (json.RawMessage, error) {
	return p.raw(ctx, "moi.AccountState", addressOptionParams{Address: address, Options: orDefault(opts)})
}

// GetAccountMetaInfo returns the meta information of an account
func (p *Provider) GetAccountMetaInfo(ctx context.Context, address string) (json.RawMessage, error) {
	return p.raw(ctx, "moi.AccountMetaInfo", addressParams{Address: address})
}

// GetLogicIDs returns the ids of the logics deployed by an account
func (p *Provider) GetLogicIDs(ctx context.Context, address string, opts *Options) ([]string, error) {
	var ids []string
	if err := p.Execute(ctx, "moi.LogicIDs", &ids, addressOptionParams{Address: address, Options: orDefault(opts)}); err != nil {
		return nil, err
	}

	return ids, nil
}

// GetRegistry returns the asset registry of an account
func (p *Provider) GetRegistry(ctx context.Context, address string, opts *Options) (json.RawMessage, error) {
	return p.raw(ctx, "moi.Registry", addressOptionParams{Address: address, Options: orDefault(opts)})
}

// GetAssetInfoByAssetID returns the description of an asset
func (p *Provider) GetAssetInfoByAssetID(ctx context.Context, assetID string, opts *Options) (json.RawMessage, error) {
	return p.raw(ctx, "moi.AssetInfoByAssetID", assetIDParams{AssetID: assetID, Options: orDefault(opts)})
}

// GetInteractionReceipt returns the receipt of an executed interaction.
// A node without a receipt for the hash yet answers with an empty result, which fails with ErrRetryable
func (p *Provider) GetInteractionReceipt(ctx context.Context, hash string) (*Receipt, error) {
	var receipt *Receipt
	if err := p.Execute(ctx, "moi.InteractionReceipt", &receipt, hashParams{Hash: hash}); err != nil {
		return nil, err
	}

	if receipt == nil {
		return nil, errorsmod.Wrapf(jsonrpc.ErrRetryable, "receipt of %s not available yet", hash)
	}

	return receipt, nil
}

// GetStorageAt reads a storage key of a logic
func (p *Provider) GetStorageAt(ctx context.Context, logicID, key string, opts *Options) (string, error) {
	var value string
	err := p.Execute(ctx, "moi.Storage", &value, storageParams{LogicID: logicID, StorageKey: key, Options: orDefault(opts)})

	return value, err
}

func (p *Provider) count(ctx context.Context, method string, params any) (uint64, error) {
	var count string
	if err := p.Execute(ctx, method, &count, params); err != nil {
		return 0, err
	}

	n, err := jsonrpc.DecodeUint64(count)
	if err != nil {
		return 0, errorsmod.Wrapf(err, "unexpected %s result", method)
	}

	return n, nil
}

func decodeAmount(method, amount string) (math.Int, error) {
	n, err := jsonrpc.DecodeInt(amount)
	if err != nil {
		return math.Int{}, errorsmod.Wrapf(err, "unexpected %s amount", method)
	}

	return n, nil
}
