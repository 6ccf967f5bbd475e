package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	"github.com/cometbft/cometbft/rpc/jsonrpc/types"
)

// Version is the JSON-RPC protocol version sent with every request
const Version = "2.0"

// Envelope is a raw JSON-RPC response as received from the node
type Envelope struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

// ErrorInfo is the error object of an envelope
type ErrorInfo struct {
	Message string          `json:"message"`
	Code    ErrorCode       `json:"code"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ServerError converts the error object into a Go error, normalizing its data into params
func (e ErrorInfo) ServerError() *ServerError {
	params := map[string]any{}

	if !IsEmpty(e.Data) {
		var data any
		if err := json.Unmarshal(e.Data, &data); err != nil {
			data = string(e.Data)
		}

		switch data := data.(type) {
		case map[string]any:
			params = data
		default:
			params["data"] = data
		}
	}

	return &ServerError{Message: e.Message, Code: e.Code, Params: params}
}

// ErrorCode is an error code that the node sends either as a string or as a number
type ErrorCode string

// UnmarshalJSON accepts both string and numeric codes
func (c *ErrorCode) UnmarshalJSON(bz []byte) error {
	if IsEmpty(bz) {
		*c = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(bz, &s); err == nil {
		*c = ErrorCode(s)
		return nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(bz))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("error code must be a string or a number: %w", err)
	}

	*c = ErrorCode(n.String())
	return nil
}

// MarshalJSON writes numeric codes as numbers and everything else as strings
func (c ErrorCode) MarshalJSON() ([]byte, error) {
	if _, ok := c.Int(); ok {
		return []byte(c), nil
	}

	return json.Marshal(string(c))
}

// Int returns the numeric value of the code, if it is numeric
func (c ErrorCode) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(c), 10, 64)
	return n, err == nil
}

// NewRequest builds the request object for a call. Params are always sent as a positional list
func NewRequest(id int64, method string, params []any) (types.RPCRequest, error) {
	if method == "" {
		return types.RPCRequest{}, errorsmod.Wrap(ErrInvalidArgument, "method must not be empty")
	}

	if params == nil {
		params = []any{}
	}

	bz, err := json.Marshal(params)
	if err != nil {
		return types.RPCRequest{}, errorsmod.Wrapf(ErrInvalidArgument, "cannot encode params of %s: %s", method, err)
	}

	return types.NewRPCRequest(types.JSONRPCIntID(id), method, bz), nil
}

// IsEmpty returns true if a raw value is absent or null
func IsEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
