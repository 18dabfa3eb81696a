package types

type Method string

const (
	MethodPersonalSign    Method = "personal_sign"
	MethodSendTransaction Method = "eth_sendTransaction"
)

type Request interface {
	Method() Method
}

type PersonalSignRequest struct {
	Message string
	Address string
}

func (r PersonalSignRequest) Method() Method {
	return MethodPersonalSign
}

type SendTransactionRequest struct {
	Intent TransactionIntent
}

func (r SendTransactionRequest) Method() Method {
	return MethodSendTransaction
}

// RPCRequest is any other JSON-RPC call. Params are sent in the given order.
type RPCRequest struct {
	Name   string
	Params []interface{}
}

func (r RPCRequest) Method() Method {
	return Method(r.Name)
}

// TransactionIntent holds what the user entered for a transfer. Value is a
// decimal amount in whole coins, Data is omitted from the payload when empty.
type TransactionIntent struct {
	To    string
	From  string
	Value string
	Data  string
}
