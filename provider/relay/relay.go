package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/awnumar/memguard"
	"github.com/google/uuid"
	"github.com/idena-network/idena-wallet-connect/codec"
	"github.com/idena-network/idena-wallet-connect/provider"
	log "github.com/inconshreveable/log15"
	"github.com/pkg/errors"
	"io/ioutil"
	"net/http"
	"time"
)

const (
	methodRequestAccounts   = "eth_requestAccounts"
	methodChainId           = "eth_chainId"
	methodRevokePermissions = "wallet_revokePermissions"
)

// Client talks JSON-RPC over HTTP to a wallet relay. The relay forwards each
// call to the user's wallet and answers once the wallet does.
type Client struct {
	url        string
	apiKey     *memguard.Enclave
	httpClient *http.Client
}

type Option func(*Client)

func WithApiKey(apiKey *memguard.Enclave) Option {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func NewClient(url string, options ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

type rpcResponse struct {
	Id     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *provider.Error `json:"error"`
}

func (c *Client) Connect(ctx context.Context) (provider.Account, error) {
	var accounts []string
	if err := c.call(ctx, methodRequestAccounts, nil, &accounts); err != nil {
		return provider.Account{}, err
	}
	if len(accounts) == 0 {
		return provider.Account{}, errors.New("wallet returned no accounts")
	}
	var chainId string
	if err := c.call(ctx, methodChainId, nil, &chainId); err != nil {
		return provider.Account{}, err
	}
	return provider.Account{
		Address: accounts[0],
		ChainId: chainId,
	}, nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	params := []interface{}{map[string]interface{}{"eth_accounts": map[string]interface{}{}}}
	return c.call(ctx, methodRevokePermissions, params, nil)
}

func (c *Client) Request(ctx context.Context, payload codec.Payload) (string, error) {
	result, err := c.send(ctx, payload)
	if err != nil {
		return "", err
	}
	var str string
	if err := json.Unmarshal(result, &str); err == nil {
		return str, nil
	}
	return string(result), nil
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	raw, err := c.send(ctx, codec.Payload{
		Id:     uuid.New().String(),
		Method: method,
		Params: params,
	})
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return errors.Wrapf(err, "unable to parse %v result", method)
	}
	return nil
}

func (c *Client) send(ctx context.Context, payload codec.Payload) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "unable to encode payload")
	}
	httpReq, err := http.NewRequest("POST", c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq = httpReq.WithContext(ctx)
	httpReq.Header.Set("Content-Type", "application/json")
	if err := c.authorize(httpReq); err != nil {
		return nil, err
	}
	log.Debug(fmt.Sprintf("Sending %v request %v to relay", payload.Method, payload.Id))
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "relay unreachable")
	}
	defer resp.Body.Close()
	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read resp")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("relay resp code %v", resp.StatusCode)
	}
	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, errors.Wrap(err, "unable to parse relay resp")
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

func (c *Client) authorize(httpReq *http.Request) error {
	if c.apiKey == nil {
		return nil
	}
	key, err := c.apiKey.Open()
	if err != nil {
		return errors.Wrap(err, "unable to open api key")
	}
	defer key.Destroy()
	httpReq.Header.Set("Authorization", "Bearer "+string(key.Bytes()))
	return nil
}
