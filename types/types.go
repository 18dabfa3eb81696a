package types

import "github.com/pkg/errors"

type SessionResponse struct {
	State   SessionState `json:"state"`
	Account string       `json:"account"`
	ChainId string       `json:"chainId"`
}

type ConnectResponse struct {
	Account string `json:"account"`
	ChainId string `json:"chainId"`
}

type DisconnectResponse struct {
	Disconnected bool `json:"disconnected"`
}

type PersonalSignHttpRequest struct {
	Message     string `json:"message"`
	Address     string `json:"address"`
	ConnectWith bool   `json:"connectWith"`
}

type SendTransactionHttpRequest struct {
	To          string `json:"to"`
	From        string `json:"from"`
	Value       string `json:"value"`
	Data        string `json:"data"`
	ConnectWith bool   `json:"connectWith"`
}

type RpcHttpRequest struct {
	Method      string        `json:"method"`
	Params      []interface{} `json:"params"`
	ConnectWith bool          `json:"connectWith"`
}

type DispatchResponse struct {
	Result string `json:"result"`
}

type ToBaseUnitsRequest struct {
	Value    string `json:"value"`
	Exponent *int32 `json:"exponent,omitempty"`
}

type ToBaseUnitsResponse struct {
	Value string `json:"value"`
}

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
}

var NoDataFound = errors.New("no data found")
