package local

import (
	"context"
	"github.com/awnumar/memguard"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/idena-network/idena-go/common/hexutil"
	"github.com/idena-network/idena-go/crypto"
	"github.com/idena-network/idena-wallet-connect/codec"
	"github.com/idena-network/idena-wallet-connect/provider"
	"github.com/stretchr/testify/require"
	"math/big"
	"strings"
	"testing"
)

func newTestWallet(t *testing.T, options ...Option) *Wallet {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	w, err := NewWallet(memguard.NewEnclave(crypto.FromECDSA(key)), big.NewInt(1), options...)
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex()), w.Address())
	return w
}

func Test_Connect(t *testing.T) {
	w := newTestWallet(t)

	// When
	account, err := w.Connect(context.Background())
	// Then
	require.NoError(t, err)
	require.Equal(t, w.Address(), account.Address)
	require.Equal(t, "0x1", account.ChainId)
}

func Test_ConnectRejected(t *testing.T) {
	w := newTestWallet(t, WithRejectAll())

	// When
	_, err := w.Connect(context.Background())
	// Then
	require.Equal(t, provider.CodeUserRejected, err.(*provider.Error).Code)
}

func Test_PersonalSign(t *testing.T) {
	w := newTestWallet(t)

	// When
	_, err := w.Request(context.Background(), codec.Payload{
		Method: "personal_sign",
		Params: []interface{}{"hello", w.Address()},
	})
	// Then
	require.Equal(t, provider.CodeUnauthorized, err.(*provider.Error).Code)

	// When
	w.Connect(context.Background())
	signature, err := w.Request(context.Background(), codec.Payload{
		Method: "personal_sign",
		Params: []interface{}{"hello", w.Address()},
	})
	// Then
	require.NoError(t, err)
	require.Equal(t, w.Address(), recoverAddress(t, "hello", signature))

	// When
	_, err = w.Request(context.Background(), codec.Payload{
		Method: "personal_sign",
		Params: []interface{}{"hello", "0x0000000000000000000000000000000000000001"},
	})
	// Then
	require.Equal(t, provider.CodeUnauthorized, err.(*provider.Error).Code)
}

func Test_SendTransaction(t *testing.T) {
	w := newTestWallet(t)
	w.Connect(context.Background())
	payload := codec.Payload{
		Method: "eth_sendTransaction",
		Params: []interface{}{codec.TransactionParams{
			To:    "0x0000000000000000000000000000000000000000",
			From:  w.Address(),
			Value: "0x38d7ea4c68000",
		}},
	}

	// When
	hash1, err1 := w.Request(context.Background(), payload)
	hash2, err2 := w.Request(context.Background(), payload)
	// Then
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.Len(t, hash1, 66)
	require.NotEqual(t, hash1, hash2)

	// When
	_, err := w.Request(context.Background(), codec.Payload{
		Method: "eth_sendTransaction",
		Params: []interface{}{map[string]interface{}{
			"to":    "0x0000000000000000000000000000000000000000",
			"from":  w.Address(),
			"value": "0.001",
		}},
	})
	// Then
	require.Equal(t, provider.CodeInvalidParams, err.(*provider.Error).Code)
}

func Test_RejectAllRequests(t *testing.T) {
	w := newTestWallet(t, WithRejectAll())
	w.connected = true

	// When
	_, err := w.Request(context.Background(), codec.Payload{
		Method: "personal_sign",
		Params: []interface{}{"hello", w.Address()},
	})
	// Then
	require.Equal(t, provider.CodeUserRejected, err.(*provider.Error).Code)
}

func Test_UnsupportedMethod(t *testing.T) {
	w := newTestWallet(t)

	// When
	chainId, err := w.Request(context.Background(), codec.Payload{Method: "eth_chainId"})
	// Then
	require.NoError(t, err)
	require.Equal(t, "0x1", chainId)

	// When
	_, err = w.Request(context.Background(), codec.Payload{Method: "eth_getBalance"})
	// Then
	require.Equal(t, provider.CodeUnsupportedMethod, err.(*provider.Error).Code)
}

func recoverAddress(t *testing.T, message, signature string) string {
	sig, err := hexutil.Decode(signature)
	require.NoError(t, err)
	sig[64] -= 27
	pubKey, err := crypto.Ecrecover(accounts.TextHash([]byte(message)), sig)
	require.NoError(t, err)
	address, err := crypto.PubKeyBytesToAddress(pubKey)
	require.NoError(t, err)
	return strings.ToLower(address.Hex())
}
