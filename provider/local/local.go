package local

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"github.com/awnumar/memguard"
	"github.com/ethereum/go-ethereum/accounts"
	ethcommon "github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/idena-network/idena-go/common/hexutil"
	"github.com/idena-network/idena-go/crypto"
	"github.com/idena-network/idena-wallet-connect/codec"
	"github.com/idena-network/idena-wallet-connect/provider"
	log "github.com/inconshreveable/log15"
	"github.com/pkg/errors"
	"math/big"
	"strings"
	"sync"
)

const (
	defaultGasLimit     = 21000
	defaultDataGasLimit = 100000
)

var defaultGasPrice = big.NewInt(1000000000)

// Wallet is a development provider that signs with a private key held in
// process memory. Signed transactions are returned by hash and never broadcast.
type Wallet struct {
	key       *memguard.Enclave
	chainId   *big.Int
	address   string
	rejectAll bool

	mutex     sync.Mutex
	connected bool
	nonce     uint64
}

type Option func(*Wallet)

// WithRejectAll makes the wallet refuse every approval the way a user
// pressing "reject" would.
func WithRejectAll() Option {
	return func(w *Wallet) {
		w.rejectAll = true
	}
}

func NewWallet(key *memguard.Enclave, chainId *big.Int, options ...Option) (*Wallet, error) {
	w := &Wallet{
		key:     key,
		chainId: chainId,
	}
	for _, option := range options {
		option(w)
	}
	var address string
	err := w.withKey(func(privateKey *ecdsa.PrivateKey) error {
		address = strings.ToLower(crypto.PubkeyToAddress(privateKey.PublicKey).Hex())
		return nil
	})
	if err != nil {
		return nil, err
	}
	w.address = address
	return w, nil
}

func (w *Wallet) Address() string {
	return w.address
}

func (w *Wallet) Connect(ctx context.Context) (provider.Account, error) {
	if w.rejectAll {
		return provider.Account{}, userRejected()
	}
	w.mutex.Lock()
	w.connected = true
	w.mutex.Unlock()
	return provider.Account{
		Address: w.address,
		ChainId: hexutil.EncodeBig(w.chainId),
	}, nil
}

func (w *Wallet) Disconnect(ctx context.Context) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.connected = false
	return nil
}

func (w *Wallet) Request(ctx context.Context, payload codec.Payload) (string, error) {
	switch payload.Method {
	case "eth_chainId":
		return hexutil.EncodeBig(w.chainId), nil
	case "eth_accounts":
		if !w.isConnected() {
			return "[]", nil
		}
		accounts, _ := json.Marshal([]string{w.address})
		return string(accounts), nil
	case "personal_sign":
		if err := w.approve(); err != nil {
			return "", err
		}
		return w.personalSign(payload.Params)
	case "eth_sendTransaction":
		if err := w.approve(); err != nil {
			return "", err
		}
		return w.sendTransaction(payload.Params)
	}
	return "", &provider.Error{
		Code:    provider.CodeUnsupportedMethod,
		Message: fmt.Sprintf("method %v is not supported", payload.Method),
	}
}

func (w *Wallet) isConnected() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.connected
}

func (w *Wallet) approve() error {
	if !w.isConnected() {
		return &provider.Error{Code: provider.CodeUnauthorized, Message: "wallet is not connected"}
	}
	if w.rejectAll {
		return userRejected()
	}
	return nil
}

func (w *Wallet) personalSign(params []interface{}) (string, error) {
	if len(params) != 2 {
		return "", invalidParams("personal_sign expects [message, address]")
	}
	message, ok := params[0].(string)
	if !ok {
		return "", invalidParams("message must be a string")
	}
	if err := w.checkAccount(params[1]); err != nil {
		return "", err
	}
	data := []byte(message)
	if decoded, err := hexutil.Decode(message); err == nil {
		data = decoded
	}
	hash := accounts.TextHash(data)
	var signature []byte
	err := w.withKey(func(privateKey *ecdsa.PrivateKey) error {
		var err error
		signature, err = crypto.Sign(hash, privateKey)
		return err
	})
	if err != nil {
		return "", err
	}
	signature[64] += 27
	return hexutil.Encode(signature), nil
}

func (w *Wallet) sendTransaction(params []interface{}) (string, error) {
	if len(params) != 1 {
		return "", invalidParams("eth_sendTransaction expects a single transaction object")
	}
	var txParams codec.TransactionParams
	raw, err := json.Marshal(params[0])
	if err != nil {
		return "", invalidParams(err.Error())
	}
	if err := json.Unmarshal(raw, &txParams); err != nil {
		return "", invalidParams(err.Error())
	}
	if err := w.checkAccount(txParams.From); err != nil {
		return "", err
	}
	if !ethcommon.IsHexAddress(txParams.To) {
		return "", invalidParams(fmt.Sprintf("invalid recipient %v", txParams.To))
	}
	value, err := hexutil.DecodeBig(txParams.Value)
	if err != nil {
		return "", invalidParams(fmt.Sprintf("invalid value %v", txParams.Value))
	}
	var data []byte
	gasLimit := uint64(defaultGasLimit)
	if txParams.Data != "" {
		if data, err = hexutil.Decode(txParams.Data); err != nil {
			return "", invalidParams(fmt.Sprintf("invalid data %v", txParams.Data))
		}
		gasLimit = defaultDataGasLimit
	}
	to := ethcommon.HexToAddress(txParams.To)

	w.mutex.Lock()
	nonce := w.nonce
	w.nonce++
	w.mutex.Unlock()

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: defaultGasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    value,
		Data:     data,
	})
	var signed *ethtypes.Transaction
	err = w.withKey(func(privateKey *ecdsa.PrivateKey) error {
		var err error
		signed, err = ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(w.chainId), privateKey)
		return err
	})
	if err != nil {
		return "", err
	}
	log.Debug(fmt.Sprintf("Signed transaction %v, nonce: %v, value: %v", signed.Hash().Hex(), nonce, value))
	return signed.Hash().Hex(), nil
}

func (w *Wallet) checkAccount(account interface{}) error {
	address, ok := account.(string)
	if !ok || strings.ToLower(address) != w.address {
		return &provider.Error{Code: provider.CodeUnauthorized, Message: fmt.Sprintf("unknown account %v", account)}
	}
	return nil
}

func (w *Wallet) withKey(f func(privateKey *ecdsa.PrivateKey) error) error {
	buffer, err := w.key.Open()
	if err != nil {
		return errors.Wrap(err, "unable to open private key")
	}
	defer buffer.Destroy()
	privateKey, err := crypto.ToECDSA(buffer.Bytes())
	if err != nil {
		return errors.Wrap(err, "invalid private key")
	}
	return f(privateKey)
}

func userRejected() error {
	return &provider.Error{Code: provider.CodeUserRejected, Message: "User rejected the request."}
}

func invalidParams(message string) error {
	return &provider.Error{Code: provider.CodeInvalidParams, Message: message}
}
