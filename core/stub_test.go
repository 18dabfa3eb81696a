package core

import (
	"context"
	"encoding/json"
	"github.com/idena-network/idena-wallet-connect/codec"
	"github.com/idena-network/idena-wallet-connect/provider"
	"sync"
	"sync/atomic"
)

type stubProvider struct {
	account       provider.Account
	connectErr    error
	disconnectErr error
	requestResult string
	requestErr    error
	accounts      []string
	connectGate   chan struct{}

	connects    int32
	disconnects int32
	requests    int32

	mutex    sync.Mutex
	payloads []codec.Payload
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		account: provider.Account{
			Address: "0xAbCdEf0000000000000000000000000000000001",
			ChainId: "0x1",
		},
		requestResult: "0xresult",
	}
}

func (p *stubProvider) Connect(ctx context.Context) (provider.Account, error) {
	atomic.AddInt32(&p.connects, 1)
	if p.connectGate != nil {
		<-p.connectGate
	}
	if p.connectErr != nil {
		return provider.Account{}, p.connectErr
	}
	return p.account, nil
}

func (p *stubProvider) Disconnect(ctx context.Context) error {
	atomic.AddInt32(&p.disconnects, 1)
	return p.disconnectErr
}

func (p *stubProvider) Request(ctx context.Context, payload codec.Payload) (string, error) {
	atomic.AddInt32(&p.requests, 1)
	p.mutex.Lock()
	p.payloads = append(p.payloads, payload)
	p.mutex.Unlock()
	if payload.Method == "eth_accounts" {
		accounts, err := json.Marshal(p.accounts)
		return string(accounts), err
	}
	if p.requestErr != nil {
		return "", p.requestErr
	}
	return p.requestResult, nil
}

func (p *stubProvider) connectCount() int {
	return int(atomic.LoadInt32(&p.connects))
}

func (p *stubProvider) requestCount() int {
	return int(atomic.LoadInt32(&p.requests))
}

func (p *stubProvider) lastPayload() codec.Payload {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.payloads[len(p.payloads)-1]
}
