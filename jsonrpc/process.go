package jsonrpc

import (
	"encoding/json"
	"fmt"

	errorsmod "cosmossdk.io/errors"
)

// CodeServerError is attached to server errors that the node did not describe itself
const CodeServerError ErrorCode = "SERVER_ERROR"

// ServerError is an error envelope returned by the node
type ServerError struct {
	Message string
	Code    ErrorCode
	Params  map[string]any
}

// Error returns the message sent by the node
func (e *ServerError) Error() string {
	return e.Message
}

// Unwrap classifies every server error as ErrServer
func (e *ServerError) Unwrap() error {
	return ErrServer
}

// String includes the code for logging
func (e *ServerError) String() string {
	return fmt.Sprintf("%s (code %s)", e.Message, e.Code)
}

// Processor turns an envelope into its result or a structured error
type Processor func(Envelope) (json.RawMessage, error)

var (
	_ Processor = Process
	_ Processor = ProcessLegacy
)

// Process handles the normalized envelope shape. A top-level error is the only failure discriminator,
// otherwise the result is returned verbatim
func Process(env Envelope) (json.RawMessage, error) {
	if env.Error != nil {
		return nil, env.Error.ServerError()
	}

	return env.Result, nil
}

type legacyResult struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error *ErrorInfo      `json:"error,omitempty"`
}

// ProcessLegacy handles the envelope shape that wraps the outcome in result.data or result.error.
// result.error takes precedence over the top-level error. An envelope with neither data nor error
// is a protocol violation and still fails
func ProcessLegacy(env Envelope) (json.RawMessage, error) {
	var result legacyResult
	if !IsEmpty(env.Result) {
		if err := json.Unmarshal(env.Result, &result); err != nil {
			return nil, errorsmod.Wrapf(ErrUnsupported, "legacy result must be an object: %s", err)
		}
	}

	switch {
	case !IsEmpty(result.Data):
		return result.Data, nil
	case result.Error != nil:
		return nil, result.Error.ServerError()
	case env.Error != nil:
		return nil, env.Error.ServerError()
	default:
		return nil, &ServerError{
			Message: "invalid response: no data or error",
			Code:    CodeServerError,
			Params:  map[string]any{},
		}
	}
}
