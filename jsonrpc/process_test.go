package jsonrpc_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	errorsmod "cosmossdk.io/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
	"github.com/axelarnetwork/utils/test/rand"
)

func decode(t *testing.T, raw string) jsonrpc.Envelope {
	var env jsonrpc.Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	return env
}

func TestProcess(t *testing.T) {
	t.Run("WHEN the envelope carries a result THEN it is returned unchanged", func(t *testing.T) {
		for _, result := range []string{`{"a":1,"b":[1,2]}`, `"0x1f"`, `[1,2,3]`, `0`, `false`, `null`} {
			env := decode(t, fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"result":%s}`, result))

			actual, err := jsonrpc.Process(env)
			assert.NoError(t, err)
			assert.JSONEq(t, result, string(actual))
		}
	})

	t.Run("WHEN the envelope carries an error THEN the server error matches it", func(t *testing.T) {
		msg := rand.Str(20)
		env := decode(t, fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"error":{"message":%q,"code":-32000,"data":{"hash":"0x01"}}}`, msg))

		_, err := jsonrpc.Process(env)
		var serverErr *jsonrpc.ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, msg, serverErr.Message)
		assert.Equal(t, msg, err.Error())
		assert.Equal(t, jsonrpc.ErrorCode("-32000"), serverErr.Code)
		assert.Equal(t, map[string]any{"hash": "0x01"}, serverErr.Params)
		assert.True(t, errors.Is(err, jsonrpc.ErrServer))
		assert.True(t, errorsmod.IsOf(err, jsonrpc.ErrServer))
	})

	t.Run("WHEN the error data is not an object THEN it is wrapped", func(t *testing.T) {
		env := decode(t, `{"error":{"message":"nope","code":"NOT_FOUND","data":"missing"}}`)

		_, err := jsonrpc.Process(env)
		var serverErr *jsonrpc.ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, jsonrpc.ErrorCode("NOT_FOUND"), serverErr.Code)
		assert.Equal(t, map[string]any{"data": "missing"}, serverErr.Params)
	})

	t.Run("WHEN the error has no data THEN params are empty", func(t *testing.T) {
		_, err := jsonrpc.Process(decode(t, `{"error":{"message":"nope","code":1}}`))

		var serverErr *jsonrpc.ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Empty(t, serverErr.Params)
		assert.NotNil(t, serverErr.Params)
	})
}

func TestProcessLegacy(t *testing.T) {
	t.Run("WHEN data is populated THEN it is returned unchanged", func(t *testing.T) {
		for _, data := range []string{`{"balance":"0x10"}`, `"0xabc"`, `[{"x":1}]`, `0`} {
			env := decode(t, fmt.Sprintf(`{"result":{"data":%s}}`, data))

			actual, err := jsonrpc.ProcessLegacy(env)
			assert.NoError(t, err)
			assert.JSONEq(t, data, string(actual))
		}
	})

	t.Run("WHEN only a nested error is populated THEN it is raised", func(t *testing.T) {
		msg := rand.Str(15)
		env := decode(t, fmt.Sprintf(`{"result":{"error":{"message":%q,"code":7}}}`, msg))

		_, err := jsonrpc.ProcessLegacy(env)
		var serverErr *jsonrpc.ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, msg, serverErr.Message)
		assert.Equal(t, jsonrpc.ErrorCode("7"), serverErr.Code)
	})

	t.Run("WHEN only a top-level error is populated THEN it is raised", func(t *testing.T) {
		msg := rand.Str(15)
		env := decode(t, fmt.Sprintf(`{"error":{"message":%q,"code":"INVALID"}}`, msg))

		_, err := jsonrpc.ProcessLegacy(env)
		var serverErr *jsonrpc.ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, msg, serverErr.Message)
		assert.Equal(t, jsonrpc.ErrorCode("INVALID"), serverErr.Code)
	})

	t.Run("WHEN both errors are populated THEN the nested error takes precedence", func(t *testing.T) {
		env := decode(t, `{"result":{"error":{"message":"inner","code":1}},"error":{"message":"outer","code":2}}`)

		_, err := jsonrpc.ProcessLegacy(env)
		assert.EqualError(t, err, "inner")
	})

	t.Run("WHEN neither data nor error is populated THEN a generic server error is raised", func(t *testing.T) {
		for _, raw := range []string{`{}`, `{"result":{}}`, `{"result":{"data":null}}`, `{"result":null}`} {
			_, err := jsonrpc.ProcessLegacy(decode(t, raw))

			var serverErr *jsonrpc.ServerError
			require.ErrorAs(t, err, &serverErr, raw)
			assert.Equal(t, jsonrpc.CodeServerError, serverErr.Code)
		}
	})

	t.Run("WHEN the result is not an object THEN the shape is unsupported", func(t *testing.T) {
		_, err := jsonrpc.ProcessLegacy(decode(t, `{"result":"0x1"}`))
		assert.ErrorIs(t, err, jsonrpc.ErrUnsupported)
	})
}

func TestErrorCode(t *testing.T) {
	var info jsonrpc.ErrorInfo
	require.NoError(t, json.Unmarshal([]byte(`{"message":"m","code":-32601}`), &info))
	n, ok := info.Code.Int()
	assert.True(t, ok)
	assert.EqualValues(t, -32601, n)

	bz, err := json.Marshal(info.Code)
	require.NoError(t, err)
	assert.Equal(t, `-32601`, string(bz))

	require.NoError(t, json.Unmarshal([]byte(`{"message":"m","code":"SERVER_ERROR"}`), &info))
	bz, err = json.Marshal(info.Code)
	require.NoError(t, err)
	assert.Equal(t, `"SERVER_ERROR"`, string(bz))
}

func TestRetryable(t *testing.T) {
	assert.NoError(t, jsonrpc.Retryable(nil))

	invalid := errorsmod.Wrap(jsonrpc.ErrInvalidArgument, "bad hash")
	assert.False(t, jsonrpc.IsRetryable(jsonrpc.Retryable(invalid)))

	server := &jsonrpc.ServerError{Message: "receipt not found"}
	err := jsonrpc.Retryable(server)
	assert.True(t, jsonrpc.IsRetryable(err))
	assert.ErrorIs(t, err, jsonrpc.ErrServer)
}
