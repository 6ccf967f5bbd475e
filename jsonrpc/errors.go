package jsonrpc

import (
	"errors"
	"fmt"

	errorsmod "cosmossdk.io/errors"
)

// Codespace is the error namespace shared by all packages of this module
const Codespace = "moi"

// error kinds returned by the client. Branch on them with errors.Is
var (
	// ErrInvalidArgument is returned for malformed calls, before anything is sent to the node
	ErrInvalidArgument = errorsmod.Register(Codespace, 2, "invalid argument")
	// ErrServer is the kind of every error envelope returned by the node
	ErrServer = errorsmod.Register(Codespace, 3, "server error")
	// ErrTimeout is returned when a confirmation is not observed in time
	ErrTimeout = errorsmod.Register(Codespace, 4, "timeout")
	// ErrRetryable marks lookup failures that may succeed on a later attempt
	ErrRetryable = errorsmod.Register(Codespace, 5, "retryable lookup failure")
	// ErrUnsupported is returned for unexpected response shapes or unknown interaction types
	ErrUnsupported = errorsmod.Register(Codespace, 6, "unsupported")
	// ErrTransport is returned when the exchange with the node fails
	ErrTransport = errorsmod.Register(Codespace, 7, "transport failure")
)

// IsRetryable returns true if a lookup failure should be attempted again
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryable)
}

// Retryable classifies a failed lookup. Invalid arguments stay fatal, everything else may resolve later
func Retryable(err error) error {
	if err == nil || errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrRetryable) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrRetryable, err)
}
