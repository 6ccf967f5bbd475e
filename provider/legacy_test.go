package provider_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
	"github.com/axelarnetwork/moi-rpc/provider"
)

const assetID = "0x00000000a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e"

func TestProvider_Legacy(t *testing.T) {
	t.Run("WHEN no options are given THEN the latest tesseract is queried", func(t *testing.T) {
		tr := answers(map[string]jsonrpc.Envelope{"moi.Balance": legacy(`"0x3635c9adc5dea00000"`)})

		balance, err := newProvider(t, tr, provider.WithLegacyEnvelope()).GetBalance(context.Background(), address, assetID, nil)
		require.NoError(t, err)

		expected, ok := math.NewIntFromString("1000000000000000000000")
		require.True(t, ok)
		assert.True(t, expected.Equal(balance))
		assert.Equal(t, map[string]any{
			"address":  address,
			"asset_id": assetID,
			"options":  map[string]any{"tesseract_number": float64(-1)},
		}, params(t, tr))
	})

	t.Run("WHEN a height is given THEN that tesseract is queried", func(t *testing.T) {
		tr := answers(map[string]jsonrpc.Envelope{"moi.InteractionCount": legacy(`"0x2a"`)})

		count, err := newProvider(t, tr, provider.WithLegacyEnvelope()).GetInteractionCount(context.Background(), address, provider.AtHeight(7))
		require.NoError(t, err)
		assert.EqualValues(t, 42, count)
		assert.Equal(t, map[string]any{"tesseract_number": float64(7)}, params(t, tr)["options"])
	})

	t.Run("WHEN the legacy envelope carries an error THEN a server error is returned", func(t *testing.T) {
		tr := answers(map[string]jsonrpc.Envelope{
			"moi.PendingInteractionCount": {Result: json.RawMessage(`{"error":{"message":"account not found","code":404}}`)},
		})

		_, err := newProvider(t, tr, provider.WithLegacyEnvelope()).GetPendingInteractionCount(context.Background(), address)
		assert.ErrorIs(t, err, jsonrpc.ErrServer)
		assert.ErrorContains(t, err, "account not found")
	})

	t.Run("WHEN a count is not a quantity THEN the result is rejected", func(t *testing.T) {
		tr := answers(map[string]jsonrpc.Envelope{"moi.InteractionCount": legacy(`"forty two"`)})

		_, err := newProvider(t, tr, provider.WithLegacyEnvelope()).GetInteractionCount(context.Background(), address, nil)
		assert.ErrorIs(t, err, jsonrpc.ErrUnsupported)
		assert.ErrorContains(t, err, "moi.InteractionCount")
	})

	t.Run("WHEN the TDU is fetched THEN every amount is decoded", func(t *testing.T) {
		tr := answers(map[string]jsonrpc.Envelope{
			"moi.TDU": legacy(`[{"asset_id":"` + assetID + `","amount":"0x64"},{"asset_id":"0x01","amount":"0x0"}]`),
		})

		tdu, err := newProvider(t, tr, provider.WithLegacyEnvelope()).GetTDU(context.Background(), address, nil)
		require.NoError(t, err)
		require.Len(t, tdu, 2)
		assert.Equal(t, assetID, tdu[0].AssetID)
		assert.True(t, math.NewInt(100).Equal(tdu[0].Amount))
		assert.True(t, tdu[1].Amount.IsZero())
	})

	t.Run("WHEN an interaction is fetched by index THEN the index is hex encoded", func(t *testing.T) {
		tr := answers(map[string]jsonrpc.Envelope{"moi.InteractionByTesseract": legacy(`{"nonce":"0x1"}`)})

		ix, err := newProvider(t, tr, provider.WithLegacyEnvelope()).GetInteractionByTesseract(context.Background(), address, nil, 1)
		require.NoError(t, err)
		assert.JSONEq(t, `{"nonce":"0x1"}`, string(ix))
		assert.Equal(t, "0x1", params(t, tr)["ix_index"])
	})

	t.Run("WHEN the context info is fetched THEN the node lists are decoded", func(t *testing.T) {
		tr := answers(map[string]jsonrpc.Envelope{
			"moi.ContextInfo": legacy(`{"behaviour_nodes":["a"],"random_nodes":["b","c"],"storage_nodes":[]}`),
		})

		info, err := newProvider(t, tr, provider.WithLegacyEnvelope()).GetContextInfo(context.Background(), address, nil)
		require.NoError(t, err)
		assert.Equal(t, provider.ContextInfo{BehaviourNodes: []string{"a"}, RandomNodes: []string{"b", "c"}, StorageNodes: []string{}}, info)
	})
}

func TestProvider_GetLogicManifest(t *testing.T) {
	manifest := func(encoded string) *provider.Provider {
		tr := answers(map[string]jsonrpc.Envelope{"moi.LogicManifest": result(`"` + encoded + `"`)})
		return newProvider(t, tr)
	}

	t.Run("WHEN a JSON manifest is requested THEN it is decoded", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString([]byte(`{"syntax":1,"engine":{"kind":"PISA"}}`))

		decoded, err := manifest(encoded).GetLogicManifest(context.Background(), assetID, provider.EncodingJSON, nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"syntax": float64(1), "engine": map[string]any{"kind": "PISA"}}, decoded)
	})

	t.Run("WHEN the encoding is given in lower case THEN it is normalized", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString([]byte(`{"a":1}`))
		tr := answers(map[string]jsonrpc.Envelope{"moi.LogicManifest": result(`"` + encoded + `"`)})

		decoded, err := newProvider(t, tr).GetLogicManifest(context.Background(), assetID, provider.Encoding("json"), nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": float64(1)}, decoded)
		assert.Equal(t, "JSON", params(t, tr)["encoding"])
	})

	t.Run("WHEN a YAML manifest is requested THEN it is decoded", func(t *testing.T) {
		encoded := hexutil.Encode([]byte("syntax: 1\nengine:\n  kind: PISA\n"))

		decoded, err := manifest(encoded).GetLogicManifest(context.Background(), assetID, provider.EncodingYAML, nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"syntax": 1, "engine": map[string]any{"kind": "PISA"}}, decoded)
	})

	t.Run("WHEN a POLO manifest is requested THEN it is returned as hex", func(t *testing.T) {
		decoded, err := manifest("0x0e4f0663").GetLogicManifest(context.Background(), assetID, provider.EncodingPOLO, nil)
		require.NoError(t, err)
		assert.Equal(t, "0x0e4f0663", decoded)
	})

	t.Run("WHEN the encoding is unknown THEN nothing is sent", func(t *testing.T) {
		tr := answers(nil)

		_, err := newProvider(t, tr).GetLogicManifest(context.Background(), assetID, provider.Encoding("TOML"), nil)
		assert.ErrorIs(t, err, jsonrpc.ErrUnsupported)
		assert.ErrorContains(t, err, "unsupported encoding format")
		assert.Empty(t, tr.RequestCalls())
	})

	t.Run("WHEN an encoding is parsed THEN its case is ignored", func(t *testing.T) {
		enc, err := provider.ParseEncoding("yaml")
		require.NoError(t, err)
		assert.Equal(t, provider.EncodingYAML, enc)
	})
}

func TestProvider_Pool(t *testing.T) {
	t.Run("WHEN the pool status is fetched THEN the counts are decoded", func(t *testing.T) {
		tr := answers(map[string]jsonrpc.Envelope{"ixpool.Status": result(`{"pending":"0x3","queued":"0x0"}`)})

		status, err := newProvider(t, tr).GetStatus(context.Background())
		require.NoError(t, err)
		assert.Equal(t, provider.Status{Pending: 3, Queued: 0}, status)
		assert.Empty(t, tr.RequestCalls()[0].Params)
	})

	t.Run("WHEN the pool is inspected THEN the wait times are decoded", func(t *testing.T) {
		tr := answers(map[string]jsonrpc.Envelope{
			"ixpool.Inspect": result(`{
				"pending":{"` + address + `":{"0x1":"transfer"}},
				"queued":{},
				"wait_time":{"` + address + `":{"expired":true,"time":"0x1e"}}
			}`),
		})

		inspect, err := newProvider(t, tr).GetInspect(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"0x1": "transfer"}, inspect.Pending[address])
		assert.Equal(t, provider.WaitTime{Expired: true, Time: 30}, inspect.WaitTime[address])
	})

	t.Run("WHEN the content of an account is fetched THEN the nonces are decoded", func(t *testing.T) {
		tr := answers(map[string]jsonrpc.Envelope{
			"ixpool.ContentFrom": result(`{"pending":{"0x0":{"a":1},"0xa":{"b":2}},"queued":{}}`),
		})

		content, err := newProvider(t, tr).GetContentFrom(context.Background(), address)
		require.NoError(t, err)
		assert.Len(t, content.Pending, 2)
		assert.JSONEq(t, `{"b":2}`, string(content.Pending[10]))
		assert.Empty(t, content.Queued)
		assert.Equal(t, map[string]any{"address": address}, params(t, tr))
	})

	t.Run("WHEN a nonce is not a quantity THEN the content is rejected", func(t *testing.T) {
		tr := answers(map[string]jsonrpc.Envelope{"ixpool.ContentFrom": result(`{"pending":{"one":{}}}`)})

		_, err := newProvider(t, tr).GetContentFrom(context.Background(), address)
		assert.ErrorContains(t, err, "invalid nonce")
	})
}
