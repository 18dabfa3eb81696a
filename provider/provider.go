package provider

import (
	"context"
	"fmt"
	"github.com/idena-network/idena-wallet-connect/codec"
)

// EIP-1193 provider error codes.
const (
	CodeUserRejected       = 4001
	CodeUnauthorized       = 4100
	CodeUnsupportedMethod  = 4200
	CodeDisconnected       = 4900
	CodeInternalError      = -32603
	CodeInvalidParams      = -32602
	CodeMethodNotSupported = -32601
)

type Account struct {
	Address string
	ChainId string
}

// Provider is the wallet endpoint that holds the keys and asks the user for
// approval. Calls may block until the user answers.
type Provider interface {
	Connect(ctx context.Context) (Account, error)
	Disconnect(ctx context.Context) error
	Request(ctx context.Context, payload codec.Payload) (string, error)
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}
