package codec

import (
	"encoding/json"
	"github.com/idena-network/idena-wallet-connect/types"
	"github.com/idena-network/idena-wallet-connect/units"
	"github.com/stretchr/testify/require"
	"testing"
)

func Test_EncodePersonalSign(t *testing.T) {
	c := New(units.DefaultExponent)

	// When
	payload, err := c.Encode(types.PersonalSignRequest{
		Message: "hello",
		Address: "0xabc",
	})
	// Then
	require.NoError(t, err)
	require.Equal(t, "personal_sign", payload.Method)
	require.Equal(t, []interface{}{"hello", "0xabc"}, payload.Params)
	require.NotEmpty(t, payload.Id)
}

func Test_EncodeSendTransaction(t *testing.T) {
	c := New(units.DefaultExponent)

	// When
	payload, err := c.Encode(types.SendTransactionRequest{Intent: types.TransactionIntent{
		To:    "0x0000000000000000000000000000000000000000",
		From:  "0xabc",
		Value: "0.001",
	}})
	// Then
	require.NoError(t, err)
	require.Equal(t, "eth_sendTransaction", payload.Method)
	require.Len(t, payload.Params, 1)
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	var decoded struct {
		JsonRpc string                   `json:"jsonrpc"`
		Method  string                   `json:"method"`
		Params  []map[string]interface{} `json:"params"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, "2.0", decoded.JsonRpc)
	require.Equal(t, map[string]interface{}{
		"to":    "0x0000000000000000000000000000000000000000",
		"from":  "0xabc",
		"value": "0x38d7ea4c68000",
	}, decoded.Params[0])

	// When
	payload, err = c.Encode(types.SendTransactionRequest{Intent: types.TransactionIntent{
		To:    "0x1",
		From:  "0x2",
		Value: "1",
		Data:  "0xdeadbeef",
	}})
	// Then
	require.NoError(t, err)
	require.Equal(t, TransactionParams{To: "0x1", From: "0x2", Value: "0xde0b6b3a7640000", Data: "0xdeadbeef"}, payload.Params[0])
}

func Test_EncodeSendTransactionInvalidAmount(t *testing.T) {
	c := New(units.DefaultExponent)

	// When
	_, err := c.Encode(types.SendTransactionRequest{Intent: types.TransactionIntent{Value: "abc"}})
	// Then
	require.Equal(t, types.InvalidAmount, types.KindOf(err))
}

func Test_EncodeRpc(t *testing.T) {
	c := New(units.DefaultExponent)
	params := []interface{}{"0xabc", "latest"}

	// When
	payload, err := c.Encode(types.RPCRequest{Name: "eth_getBalance", Params: params})
	// Then
	require.NoError(t, err)
	require.Equal(t, "eth_getBalance", payload.Method)
	require.Equal(t, params, payload.Params)

	// When
	payload, err = c.Encode(types.RPCRequest{Name: "eth_chainId"})
	body, _ := json.Marshal(payload)
	// Then
	require.NoError(t, err)
	require.Contains(t, string(body), `"params":[]`)

	// When
	_, err = c.Encode(types.RPCRequest{})
	// Then
	require.Equal(t, types.InvalidRequest, types.KindOf(err))

	// When
	_, err = c.Encode(nil)
	// Then
	require.Equal(t, types.InvalidRequest, types.KindOf(err))
}

func Test_EncodeUniqueIds(t *testing.T) {
	c := New(units.DefaultExponent)
	first, _ := c.Encode(types.RPCRequest{Name: "eth_chainId"})
	second, _ := c.Encode(types.RPCRequest{Name: "eth_chainId"})
	require.NotEqual(t, first.Id, second.Id)
}
