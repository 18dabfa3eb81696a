package core

import (
	"context"
	"fmt"
	"github.com/idena-network/idena-wallet-connect/codec"
	"github.com/idena-network/idena-wallet-connect/provider"
	"github.com/idena-network/idena-wallet-connect/types"
	log "github.com/inconshreveable/log15"
	"time"
)

type Orchestrator interface {
	Dispatch(ctx context.Context, request types.Request) (string, error)
	ConnectWith(ctx context.Context, request types.Request) (string, error)
}

type OrchestratorOption func(*orchestratorImpl)

func WithRequestTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *orchestratorImpl) {
		o.requestTimeout = timeout
	}
}

func NewOrchestrator(sessions SessionManager, provider provider.Provider, codec *codec.Codec, classifier *Classifier, options ...OrchestratorOption) Orchestrator {
	o := &orchestratorImpl{
		sessions:   sessions,
		provider:   provider,
		codec:      codec,
		classifier: classifier,
	}
	for _, option := range options {
		option(o)
	}
	return o
}

// Requests are not queued: concurrent dispatches reach the provider in no
// particular order.
type orchestratorImpl struct {
	sessions       SessionManager
	provider       provider.Provider
	codec          *codec.Codec
	classifier     *Classifier
	requestTimeout time.Duration
}

func (o *orchestratorImpl) Dispatch(ctx context.Context, request types.Request) (string, error) {
	bound, err := bindAccount(request, o.sessions.Session(), false)
	if err != nil {
		return "", o.record(request, err)
	}
	return o.send(ctx, bound)
}

// ConnectWith connects and sends the request as one operation. The request is
// never sent when the connect fails.
func (o *orchestratorImpl) ConnectWith(ctx context.Context, request types.Request) (string, error) {
	session, err := o.sessions.Connect(ctx)
	if err != nil {
		return "", o.record(request, err)
	}
	bound, err := bindAccount(request, session, true)
	if err != nil {
		return "", o.record(request, err)
	}
	return o.send(ctx, bound)
}

func (o *orchestratorImpl) send(ctx context.Context, request types.Request) (string, error) {
	payload, err := o.codec.Encode(request)
	if err != nil {
		return "", o.record(request, err)
	}
	log.Debug(fmt.Sprintf("Dispatching %v request %v", payload.Method, payload.Id))
	res, err := await(ctx, o.requestTimeout, func(ctx context.Context) (string, error) {
		start := time.Now()
		defer observeProvider("request", start)
		return o.provider.Request(ctx, payload)
	})
	if err != nil {
		if ctx.Err() != nil && err == ctx.Err() {
			return "", err
		}
		failure := o.classifier.Classify(err)
		log.Warn(fmt.Sprintf("Request %v failed (%v): %v", payload.Id, failure.Kind, failure.Message))
		if failure.Kind == types.ProviderError {
			// the user has to connect again after a provider failure
			o.sessions.ClearSession()
		}
		return "", o.record(request, failure)
	}
	o.record(request, nil)
	return res, nil
}

func (o *orchestratorImpl) record(request types.Request, err error) error {
	method := types.Method("")
	if request != nil {
		method = request.Method()
	}
	dispatchTotal.WithLabelValues(methodLabel(method), outcomeLabel(err)).Inc()
	return err
}

// bindAccount fills the account a request acts for from the session. With
// override set the session account replaces whatever the request carried.
func bindAccount(request types.Request, session types.Session, override bool) (types.Request, error) {
	switch r := request.(type) {
	case types.SendTransactionRequest:
		if !session.IsConnected() {
			return nil, types.NewFailure(types.NotConnected, "wallet is not connected")
		}
		if override || r.Intent.From == "" {
			r.Intent.From = session.Account
		}
		return r, nil
	case types.PersonalSignRequest:
		if !override && r.Address != "" {
			return r, nil
		}
		if !session.IsConnected() {
			return nil, types.NewFailure(types.NotConnected, "wallet is not connected")
		}
		r.Address = session.Account
		return r, nil
	}
	return request, nil
}
