package codec

import (
	"encoding/json"
	"github.com/google/uuid"
	"github.com/idena-network/idena-wallet-connect/types"
	"github.com/idena-network/idena-wallet-connect/units"
)

const jsonRpcVersion = "2.0"

// Payload is a request ready to be handed to a provider. The provider matches
// params by position, so their order is preserved exactly.
type Payload struct {
	Id     string
	Method string
	Params []interface{}
}

type jsonPayload struct {
	JsonRpc string        `json:"jsonrpc"`
	Id      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

func (p Payload) MarshalJSON() ([]byte, error) {
	params := p.Params
	if params == nil {
		params = []interface{}{}
	}
	return json.Marshal(jsonPayload{
		JsonRpc: jsonRpcVersion,
		Id:      p.Id,
		Method:  p.Method,
		Params:  params,
	})
}

type TransactionParams struct {
	To    string `json:"to"`
	From  string `json:"from"`
	Value string `json:"value"`
	Data  string `json:"data,omitempty"`
}

type Codec struct {
	exponent int32
}

func New(exponent int32) *Codec {
	return &Codec{exponent: exponent}
}

func (c *Codec) Exponent() int32 {
	return c.exponent
}

func (c *Codec) Encode(request types.Request) (Payload, error) {
	var params []interface{}
	switch r := request.(type) {
	case types.PersonalSignRequest:
		params = []interface{}{r.Message, r.Address}
	case types.SendTransactionRequest:
		tx, err := c.transactionParams(r.Intent)
		if err != nil {
			return Payload{}, err
		}
		params = []interface{}{tx}
	case types.RPCRequest:
		if r.Name == "" {
			return Payload{}, types.NewFailure(types.InvalidRequest, "empty method")
		}
		params = append([]interface{}{}, r.Params...)
	case nil:
		return Payload{}, types.NewFailure(types.InvalidRequest, "empty request")
	default:
		return Payload{}, types.Failuref(types.InvalidRequest, "unsupported request %T", request)
	}
	return NewPayload(string(request.Method()), params...), nil
}

// NewPayload builds a payload with a fresh request id.
func NewPayload(method string, params ...interface{}) Payload {
	return Payload{
		Id:     uuid.New().String(),
		Method: method,
		Params: params,
	}
}

func (c *Codec) transactionParams(intent types.TransactionIntent) (TransactionParams, error) {
	value, err := units.ToBaseUnits(intent.Value, c.exponent)
	if err != nil {
		return TransactionParams{}, err
	}
	return TransactionParams{
		To:    intent.To,
		From:  intent.From,
		Value: value,
		Data:  intent.Data,
	}, nil
}
