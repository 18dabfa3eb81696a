package core

import (
	"context"
	"errors"
	"github.com/idena-network/idena-wallet-connect/codec"
	"github.com/idena-network/idena-wallet-connect/provider"
	"github.com/idena-network/idena-wallet-connect/types"
	"github.com/idena-network/idena-wallet-connect/units"
	"github.com/stretchr/testify/require"
	"testing"
)

const testAccount = "0xabcdef0000000000000000000000000000000001"

func newTestOrchestrator(p *stubProvider) (Orchestrator, SessionManager) {
	sessions, _ := newTestSessionManager(p)
	return NewOrchestrator(sessions, p, codec.New(units.DefaultExponent), NewClassifier(nil)), sessions
}

func sendTransactionRequest() types.SendTransactionRequest {
	return types.SendTransactionRequest{Intent: types.TransactionIntent{
		To:    "0x0000000000000000000000000000000000000000",
		Value: "0.001",
	}}
}

func Test_DispatchSendTransactionNotConnected(t *testing.T) {
	p := newStubProvider()
	o, _ := newTestOrchestrator(p)

	// When
	_, err := o.Dispatch(context.Background(), sendTransactionRequest())
	// Then
	require.Equal(t, types.NotConnected, types.KindOf(err))
	require.Equal(t, 0, p.requestCount())
}

func Test_DispatchSendTransaction(t *testing.T) {
	p := newStubProvider()
	o, sessions := newTestOrchestrator(p)
	_, err := sessions.Connect(context.Background())
	require.NoError(t, err)

	// When
	result, err := o.Dispatch(context.Background(), sendTransactionRequest())
	// Then
	require.NoError(t, err)
	require.Equal(t, "0xresult", result)
	payload := p.lastPayload()
	require.Equal(t, "eth_sendTransaction", payload.Method)
	require.Equal(t, codec.TransactionParams{
		To:    "0x0000000000000000000000000000000000000000",
		From:  testAccount,
		Value: "0x38d7ea4c68000",
	}, payload.Params[0])
}

func Test_DispatchInvalidAmount(t *testing.T) {
	p := newStubProvider()
	o, sessions := newTestOrchestrator(p)
	sessions.Connect(context.Background())
	request := sendTransactionRequest()
	request.Intent.Value = ""

	// When
	_, err := o.Dispatch(context.Background(), request)
	// Then
	require.Equal(t, types.InvalidAmount, types.KindOf(err))
	require.Equal(t, 0, p.requestCount())
	require.Equal(t, types.Connected, sessions.Session().State)
}

func Test_DispatchPersonalSign(t *testing.T) {
	p := newStubProvider()
	o, sessions := newTestOrchestrator(p)

	// When
	_, err := o.Dispatch(context.Background(), types.PersonalSignRequest{Message: "hello"})
	// Then
	require.Equal(t, types.NotConnected, types.KindOf(err))

	// When
	_, err = o.Dispatch(context.Background(), types.PersonalSignRequest{Message: "hello", Address: "0x1"})
	// Then
	require.NoError(t, err)
	require.Equal(t, []interface{}{"hello", "0x1"}, p.lastPayload().Params)

	// When
	sessions.Connect(context.Background())
	_, err = o.Dispatch(context.Background(), types.PersonalSignRequest{Message: "hello"})
	// Then
	require.NoError(t, err)
	require.Equal(t, []interface{}{"hello", testAccount}, p.lastPayload().Params)
}

func Test_DispatchRpcWithoutSession(t *testing.T) {
	p := newStubProvider()
	o, _ := newTestOrchestrator(p)

	// When
	result, err := o.Dispatch(context.Background(), types.RPCRequest{Name: "eth_chainId"})
	// Then
	require.NoError(t, err)
	require.Equal(t, "0xresult", result)
	require.Equal(t, "eth_chainId", p.lastPayload().Method)
}

func Test_ConnectWithConnectFailure(t *testing.T) {
	p := newStubProvider()
	p.connectErr = errors.New("wallet unavailable")
	o, sessions := newTestOrchestrator(p)

	// When
	_, err := o.ConnectWith(context.Background(), sendTransactionRequest())
	// Then
	require.Equal(t, types.ConnectionError, types.KindOf(err))
	require.Equal(t, 0, p.requestCount())
	require.Equal(t, types.EmptySession(), sessions.Session())
}

func Test_ConnectWith(t *testing.T) {
	p := newStubProvider()
	o, sessions := newTestOrchestrator(p)
	request := sendTransactionRequest()
	request.Intent.From = "0xstale"

	// When
	result, err := o.ConnectWith(context.Background(), request)
	// Then
	require.NoError(t, err)
	require.Equal(t, "0xresult", result)
	require.Equal(t, 1, p.connectCount())
	require.Equal(t, types.Connected, sessions.Session().State)
	require.Equal(t, testAccount, p.lastPayload().Params[0].(codec.TransactionParams).From)

	// When
	_, err = o.ConnectWith(context.Background(), types.PersonalSignRequest{Message: "hi", Address: "0xstale"})
	// Then
	require.NoError(t, err)
	require.Equal(t, []interface{}{"hi", testAccount}, p.lastPayload().Params)
}

func Test_DispatchErrorClassification(t *testing.T) {
	cases := []struct {
		err      error
		expected types.ErrorKind
	}{
		{errors.New("User rejected the request."), types.UserRejected},
		{errors.New("MetaMask Tx Signature: User denied transaction signature."), types.UserRejected},
		{&provider.Error{Code: provider.CodeUserRejected, Message: "nope"}, types.UserRejected},
		{errors.New("insufficient funds for gas"), types.ProviderError},
		{&provider.Error{Code: provider.CodeInternalError, Message: "internal error"}, types.ProviderError},
	}
	for _, c := range cases {
		p := newStubProvider()
		p.requestErr = c.err
		o, _ := newTestOrchestrator(p)

		// When
		_, err := o.Dispatch(context.Background(), types.RPCRequest{Name: "eth_chainId"})
		// Then
		require.Equal(t, c.expected, types.KindOf(err), c.err.Error())
		require.True(t, errors.Is(err, c.err))
	}
}

func Test_DispatchRejectionKeepsSession(t *testing.T) {
	p := newStubProvider()
	p.requestErr = errors.New("User rejected the request.")
	o, sessions := newTestOrchestrator(p)
	sessions.Connect(context.Background())

	// When
	_, err := o.Dispatch(context.Background(), sendTransactionRequest())
	// Then
	require.Equal(t, types.UserRejected, types.KindOf(err))
	require.Equal(t, types.Connected, sessions.Session().State)
}

func Test_DispatchProviderErrorDisconnects(t *testing.T) {
	p := newStubProvider()
	p.requestErr = errors.New("insufficient funds for gas")
	o, sessions := newTestOrchestrator(p)
	_, err := sessions.Connect(context.Background())
	require.NoError(t, err)

	// When
	_, err = o.Dispatch(context.Background(), sendTransactionRequest())
	// Then
	require.Equal(t, types.ProviderError, types.KindOf(err))
	require.Equal(t, types.EmptySession(), sessions.Session())

	// When
	_, err = o.Dispatch(context.Background(), sendTransactionRequest())
	// Then
	require.Equal(t, types.NotConnected, types.KindOf(err))
	require.Equal(t, 1, p.requestCount())
}

func Test_Classifier(t *testing.T) {
	c := NewClassifier([]string{"Declined"})
	require.Equal(t, types.UserRejected, c.Classify(errors.New("request declined by owner")).Kind)
	require.Equal(t, types.ProviderError, c.Classify(errors.New("User rejected the request.")).Kind)

	failure := types.NewFailure(types.InvalidAmount, "bad")
	require.Equal(t, failure, c.Classify(failure))
}
