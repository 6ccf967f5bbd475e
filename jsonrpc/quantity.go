package jsonrpc

import (
	"encoding/base64"
	"math/big"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HashLength is the byte length of hashes and addresses on the protocol
const HashLength = 32

// DecodeQuantity parses a 0x-prefixed hex integer. Leading zeros are accepted
func DecodeQuantity(s string) (*big.Int, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, errorsmod.Wrapf(ErrUnsupported, "hex quantity %q has no 0x prefix", s)
	}

	digits := strings.TrimLeft(s[2:], "0")
	if digits == "" {
		return new(big.Int), nil
	}

	n, err := hexutil.DecodeBig("0x" + digits)
	if err != nil {
		return nil, errorsmod.Wrapf(ErrUnsupported, "invalid hex quantity %q: %s", s, err)
	}

	return n, nil
}

// DecodeInt parses a hex integer into an arbitrary precision amount
func DecodeInt(s string) (math.Int, error) {
	n, err := DecodeQuantity(s)
	if err != nil {
		return math.Int{}, err
	}

	return math.NewIntFromBigInt(n), nil
}

// DecodeUint64 parses a hex integer that must fit into 64 bits
func DecodeUint64(s string) (uint64, error) {
	n, err := DecodeQuantity(s)
	if err != nil {
		return 0, err
	}

	if !n.IsUint64() {
		return 0, errorsmod.Wrapf(ErrUnsupported, "hex quantity %q overflows uint64", s)
	}

	return n.Uint64(), nil
}

// EncodeUint64 writes n as a hex quantity
func EncodeUint64(n uint64) string {
	return hexutil.EncodeUint64(n)
}

// DecodeBytes decodes a payload that is either 0x-prefixed hex or standard base64
func DecodeBytes(s string) ([]byte, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		bz, err := hexutil.Decode("0x" + s[2:])
		if err != nil {
			return nil, errorsmod.Wrapf(ErrUnsupported, "invalid hex payload: %s", err)
		}

		return bz, nil
	}

	bz, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errorsmod.Wrapf(ErrUnsupported, "payload is neither hex nor base64: %s", err)
	}

	return bz, nil
}

// IsHash returns true if s is a 0x-prefixed 32 byte hex string. Addresses share the format
func IsHash(s string) bool {
	bz, err := hexutil.Decode(s)
	return err == nil && len(bz) == HashLength
}
