package provider

import (
	"encoding/json"
	"fmt"

	errorsmod "cosmossdk.io/errors"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
)

// IxType is the kind of an interaction
type IxType uint64

// interaction kinds
const (
	IxInvalid IxType = iota
	IxValueTransfer
	IxFuelSupply
	IxAssetCreate
	IxAssetApprove
	IxAssetRevoke
	IxAssetMint
	IxAssetBurn
	IxLogicDeploy
	IxLogicInvoke
	IxLogicEnlist
	IxLogicInteract
	IxLogicUpgrade
	IxFileCreate
	IxParticipantCreate
)

var ixTypeNames = map[IxType]string{
	IxInvalid:           "INVALID",
	IxValueTransfer:     "VALUE_TRANSFER",
	IxFuelSupply:        "FUEL_SUPPLY",
	IxAssetCreate:       "ASSET_CREATE",
	IxAssetApprove:      "ASSET_APPROVE",
	IxAssetRevoke:       "ASSET_REVOKE",
	IxAssetMint:         "ASSET_MINT",
	IxAssetBurn:         "ASSET_BURN",
	IxLogicDeploy:       "LOGIC_DEPLOY",
	IxLogicInvoke:       "LOGIC_INVOKE",
	IxLogicEnlist:       "LOGIC_ENLIST",
	IxLogicInteract:     "LOGIC_INTERACT",
	IxLogicUpgrade:      "LOGIC_UPGRADE",
	IxFileCreate:        "FILE_CREATE",
	IxParticipantCreate: "PARTICIPANT_CREATE",
}

func (t IxType) String() string {
	if name, ok := ixTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("IxType(%d)", uint64(t))
}

// Receipt is the outcome of an executed interaction. Quantities are hex encoded
type Receipt struct {
	IxType        string          `json:"ix_type"`
	IxHash        string          `json:"ix_hash"`
	Status        json.RawMessage `json:"status,omitempty"`
	FuelUsed      string          `json:"fuel_used"`
	Hashes        json.RawMessage `json:"hashes,omitempty"`
	ExtraData     json.RawMessage `json:"extra_data"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	IxIndex       string          `json:"ix_index"`
	Parts         json.RawMessage `json:"parts,omitempty"`
	TesseractHash string          `json:"tesseract_hash,omitempty"`
}

// Type decodes the interaction kind of the receipt
func (r Receipt) Type() (IxType, error) {
	t, err := jsonrpc.DecodeUint64(r.IxType)
	if err != nil {
		return IxInvalid, errorsmod.Wrap(err, "invalid receipt interaction type")
	}

	return IxType(t), nil
}

// payloadNames name the result every interaction kind with a result carries in its receipt
var payloadNames = map[IxType]string{
	IxAssetCreate: "asset creation",
	IxAssetMint:   "asset mint/burn",
	IxAssetBurn:   "asset mint/burn",
	IxLogicDeploy: "logic deploy",
	IxLogicInvoke: "logic invoke",
}

// InterpretReceipt extracts the result of an interaction from its receipt. Value transfers have no result
func InterpretReceipt(receipt *Receipt) (json.RawMessage, error) {
	t, err := receipt.Type()
	if err != nil {
		return nil, err
	}

	if t == IxValueTransfer {
		return nil, nil
	}

	name, ok := payloadNames[t]
	if !ok {
		return nil, errorsmod.Wrapf(jsonrpc.ErrUnsupported, "unsupported interaction type encountered: %s", t)
	}

	if jsonrpc.IsEmpty(receipt.ExtraData) {
		return nil, errorsmod.Wrapf(jsonrpc.ErrUnsupported, "failed to retrieve %s response", name)
	}

	return receipt.ExtraData, nil
}
