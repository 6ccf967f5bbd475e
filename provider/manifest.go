package provider

import (
	"context"
	"encoding/json"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"gopkg.in/yaml.v3"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
)

// Encoding is the format a logic manifest is requested in
type Encoding string

// manifest encodings
const (
	EncodingJSON Encoding = "JSON"
	EncodingPOLO Encoding = "POLO"
	EncodingYAML Encoding = "YAML"
)

// ParseEncoding accepts an encoding name in any case
func ParseEncoding(s string) (Encoding, error) {
	switch enc := Encoding(strings.ToUpper(s)); enc {
	case EncodingJSON, EncodingPOLO, EncodingYAML:
		return enc, nil
	default:
		return "", errorsmod.Wrapf(jsonrpc.ErrUnsupported, "unsupported encoding format %s", s)
	}
}

type manifestParams struct {
	LogicID  string   `json:"logic_id"`
	Encoding Encoding `json:"encoding"`
	Options  *Options `json:"options"`
}

// GetLogicManifest fetches the manifest of a logic. JSON and YAML manifests are decoded into generic values,
// POLO manifests are returned as a hex string
func (p *Provider) GetLogicManifest(ctx context.Context, logicID string, encoding Encoding, opts *Options) (any, error) {
	enc, err := ParseEncoding(string(encoding))
	if err != nil {
		return nil, err
	}

	var encoded string
	if err := p.Execute(ctx, "moi.LogicManifest", &encoded, manifestParams{LogicID: logicID, Encoding: enc, Options: orDefault(opts)}); err != nil {
		return nil, err
	}

	manifest, err := jsonrpc.DecodeBytes(encoded)
	if err != nil {
		return nil, errorsmod.Wrap(err, "invalid logic manifest")
	}

	return decodeManifest(manifest, enc)
}

func decodeManifest(manifest []byte, encoding Encoding) (any, error) {
	var decoded any
	switch encoding {
	case EncodingJSON:
		if err := json.Unmarshal(manifest, &decoded); err != nil {
			return nil, errorsmod.Wrapf(jsonrpc.ErrUnsupported, "invalid JSON manifest: %s", err)
		}
	case EncodingYAML:
		if err := yaml.Unmarshal(manifest, &decoded); err != nil {
			return nil, errorsmod.Wrapf(jsonrpc.ErrUnsupported, "invalid YAML manifest: %s", err)
		}
	case EncodingPOLO:
		decoded = hexutil.Encode(manifest)
	default:
		return nil, errorsmod.Wrapf(jsonrpc.ErrUnsupported, "unsupported encoding format %s", encoding)
	}

	return decoded, nil
}
