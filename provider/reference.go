package provider

import (
	"context"
	"encoding/json"
	"math"

	errorsmod "cosmossdk.io/errors"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
)

// heights with a special meaning in relative references
const (
	LatestHeight int64 = -1
	OldestHeight int64 = 0
)

// Reference points to a tesseract, either by its hash or by an account address and a height on that account
type Reference interface {
	isReference()
}

// AbsoluteReference points to the tesseract with the given hash
type AbsoluteReference struct {
	Hash string
}

// RelativeReference points to the tesseract at the given height of an account. LatestHeight and OldestHeight
// select the newest and the first tesseract
type RelativeReference struct {
	Address string
	Height  int64
}

func (AbsoluteReference) isReference() {}
func (RelativeReference) isReference() {}

// RelativeTesseractOption is the wire form of a relative reference
type RelativeTesseractOption struct {
	Address string `json:"address"`
	Height  int64  `json:"height"`
}

// TesseractReference is the wire form of a reference. Exactly one field is set
type TesseractReference struct {
	Absolute string                   `json:"absolute,omitempty"`
	Relative *RelativeTesseractOption `json:"relative,omitempty"`
}

var errSignature = errSignatureOf("GetTesseract")

func errSignatureOf(method string) error {
	return errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "invalid argument for method signature: %s", method)
}

// ResolveReference interprets the arguments of GetTesseract. Accepted forms are, in this order:
// a RelativeReference with optional includes, an address with an integer height and optional includes,
// and a 32-byte hash (or AbsoluteReference) with optional includes
func ResolveReference(args ...any) (Reference, []string, error) {
	if len(args) == 0 || len(args) > 3 {
		return nil, nil, errSignature
	}

	switch first := args[0].(type) {
	case RelativeReference:
		return withIncludes(first, args[1:])
	case *RelativeReference:
		if first == nil {
			return nil, nil, errSignature
		}
		return withIncludes(*first, args[1:])
	case AbsoluteReference:
		return withIncludes(first, args[1:])
	case string:
		if len(args) >= 2 {
			if height, ok := heightArg(args[1]); ok && isAddress(first) {
				return withIncludes(RelativeReference{Address: first, Height: height}, args[2:])
			}
		}

		if jsonrpc.IsHash(first) {
			return withIncludes(AbsoluteReference{Hash: first}, args[1:])
		}
	}

	return nil, nil, errSignature
}

func withIncludes(ref Reference, rest []any) (Reference, []string, error) {
	switch len(rest) {
	case 0:
		return ref, nil, nil
	case 1:
		if includes, ok := includesArg(rest[0]); ok {
			return ref, includes, nil
		}
	}

	return nil, nil, errSignature
}

func includesArg(arg any) ([]string, bool) {
	switch includes := arg.(type) {
	case nil:
		return nil, true
	case []string:
		return includes, true
	default:
		return nil, false
	}
}

func heightArg(arg any) (int64, bool) {
	switch height := arg.(type) {
	case int:
		return int64(height), true
	case int8:
		return int64(height), true
	case int16:
		return int64(height), true
	case int32:
		return int64(height), true
	case int64:
		return height, true
	case uint:
		return int64(height), uint64(height) <= math.MaxInt64
	case uint8:
		return int64(height), true
	case uint16:
		return int64(height), true
	case uint32:
		return int64(height), true
	case uint64:
		return int64(height), height <= math.MaxInt64
	case float64:
		return int64(height), height == math.Trunc(height) && height >= math.MinInt64 && height < math.MaxInt64
	case json.Number:
		n, err := height.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

func isAddress(s string) bool {
	return jsonrpc.IsHash(s)
}

// Normalize converts a reference into its wire form. Heights below LatestHeight are rejected
func Normalize(ref Reference) (TesseractReference, error) {
	switch ref := ref.(type) {
	case AbsoluteReference:
		if !jsonrpc.IsHash(ref.Hash) {
			return TesseractReference{}, errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "invalid tesseract hash %s", ref.Hash)
		}
		return TesseractReference{Absolute: ref.Hash}, nil
	case RelativeReference:
		if ref.Height < LatestHeight {
			return TesseractReference{}, errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "invalid height value %d", ref.Height)
		}
		if !isAddress(ref.Address) {
			return TesseractReference{}, errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "invalid address %s", ref.Address)
		}
		return TesseractReference{Relative: &RelativeTesseractOption{Address: ref.Address, Height: ref.Height}}, nil
	default:
		return TesseractReference{}, errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "unknown reference type %T", ref)
	}
}

type tesseractParams struct {
	Reference TesseractReference `json:"reference"`
	Include   []string           `json:"include"`
}

// GetTesseract fetches a tesseract. See ResolveReference for the accepted arguments
func (p *Provider) GetTesseract(ctx context.Context, args ...any) (json.RawMessage, error) {
	ref, includes, err := ResolveReference(args...)
	if err != nil {
		return nil, err
	}

	return p.GetTesseractByReference(ctx, ref, includes...)
}

// GetTesseractByHash fetches the tesseract with the given hash
func (p *Provider) GetTesseractByHash(ctx context.Context, hash string, include ...string) (json.RawMessage, error) {
	return p.GetTesseractByReference(ctx, AbsoluteReference{Hash: hash}, include...)
}

// GetTesseractByAddress fetches the tesseract at a height of an account
func (p *Provider) GetTesseractByAddress(ctx context.Context, address string, height int64, include ...string) (json.RawMessage, error) {
	return p.GetTesseractByReference(ctx, RelativeReference{Address: address, Height: height}, include...)
}

// GetTesseractByReference fetches the referenced tesseract. Invalid references fail before any call is made.
// An empty result means the tesseract is not known yet and fails with ErrRetryable
func (p *Provider) GetTesseractByReference(ctx context.Context, ref Reference, include ...string) (json.RawMessage, error) {
	wire, err := Normalize(ref)
	if err != nil {
		return nil, err
	}

	if include == nil {
		include = []string{}
	}

	var tesseract json.RawMessage
	if err := p.Execute(ctx, "moi.Tesseract", &tesseract, tesseractParams{Reference: wire, Include: include}); err != nil {
		return nil, err
	}

	if jsonrpc.IsEmpty(tesseract) {
		return nil, errorsmod.Wrap(jsonrpc.ErrRetryable, "tesseract not available yet")
	}

	return tesseract, nil
}
