package core

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/idena-network/idena-wallet-connect/codec"
	"github.com/idena-network/idena-wallet-connect/db"
	"github.com/idena-network/idena-wallet-connect/provider"
	"github.com/idena-network/idena-wallet-connect/types"
	log "github.com/inconshreveable/log15"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
	"strings"
	"sync"
	"time"
)

const (
	connectKey     = "connect"
	methodAccounts = "eth_accounts"
)

var errCleared = types.NewFailure(types.ConnectionError, "session was cleared while connecting")

type SessionManager interface {
	Session() types.Session
	Connect(ctx context.Context) (types.Session, error)
	Disconnect(ctx context.Context) error
	ClearSession()
	Restore(ctx context.Context) error
}

type SessionOption func(*sessionManagerImpl)

func WithConnectTimeout(timeout time.Duration) SessionOption {
	return func(m *sessionManagerImpl) {
		m.connectTimeout = timeout
	}
}

// WithSessionLifeTime limits how old a stored session may be to be restored.
func WithSessionLifeTime(lifeTime time.Duration) SessionOption {
	return func(m *sessionManagerImpl) {
		m.lifeTime = lifeTime
	}
}

func NewSessionManager(provider provider.Provider, db db.Accessor, key string, options ...SessionOption) SessionManager {
	m := &sessionManagerImpl{
		provider: provider,
		db:       db,
		key:      key,
		session:  types.EmptySession(),
		now:      time.Now,
	}
	for _, option := range options {
		option(m)
	}
	return m
}

type sessionManagerImpl struct {
	provider       provider.Provider
	db             db.Accessor
	key            string
	connectTimeout time.Duration
	lifeTime       time.Duration
	now            func() time.Time

	mutex    sync.RWMutex
	session  types.Session
	epoch    uint64
	connects singleflight.Group
}

func (m *sessionManagerImpl) Session() types.Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.session
}

// ClearSession drops the session and any handshake still in flight: a later
// Connect performs a fresh handshake and the abandoned one never lands.
func (m *sessionManagerImpl) ClearSession() {
	m.connects.Forget(connectKey)
	m.clear()
}

func (m *sessionManagerImpl) clear() uint64 {
	m.mutex.Lock()
	m.epoch++
	epoch := m.epoch
	m.session = types.EmptySession()
	err := m.db.ClearSession(m.key)
	m.mutex.Unlock()
	setConnectedGauge(types.EmptySession())
	if err != nil {
		log.Error(fmt.Sprintf("Unable to clear stored session %v: %v", m.key, err))
	}
	return epoch
}

// Connect always starts from a cleared session. Callers arriving while a
// handshake is in flight wait for that handshake instead of starting another.
func (m *sessionManagerImpl) Connect(ctx context.Context) (types.Session, error) {
	ch := m.connects.DoChan(connectKey, func() (interface{}, error) {
		return m.handshake(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return types.EmptySession(), res.Err
		}
		return res.Val.(types.Session), nil
	case <-ctx.Done():
		return types.EmptySession(), ctx.Err()
	}
}

func (m *sessionManagerImpl) handshake(ctx context.Context) (types.Session, error) {
	epoch := m.clear()
	if !m.apply(epoch, types.Session{State: types.Connecting}, false) {
		return types.EmptySession(), errCleared
	}
	if m.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.connectTimeout)
		defer cancel()
	}
	start := time.Now()
	account, err := m.provider.Connect(ctx)
	observeProvider("connect", start)
	if err == nil && account.Address == "" {
		err = errors.New("provider returned no account")
	}
	if err != nil {
		m.apply(epoch, types.EmptySession(), false)
		failure := types.WrapFailure(types.ConnectionError, err)
		connectTotal.WithLabelValues(outcomeLabel(failure)).Inc()
		log.Warn(fmt.Sprintf("Unable to connect wallet: %v", err))
		return types.EmptySession(), failure
	}
	session := types.ConnectedSession(account.Address, account.ChainId)
	if !m.apply(epoch, session, true) {
		connectTotal.WithLabelValues(outcomeLabel(errCleared)).Inc()
		log.Info(fmt.Sprintf("Session was cleared while connecting, account %v dropped", session.Account))
		return types.EmptySession(), errCleared
	}
	connectTotal.WithLabelValues(outcomeSuccess).Inc()
	log.Info(fmt.Sprintf("Wallet connected, account: %v, chain: %v", session.Account, session.ChainId))
	return session, nil
}

// apply sets the session unless it was cleared after epoch was taken. The
// snapshot is stored under the same lock so a concurrent clear cannot be
// overwritten by it.
func (m *sessionManagerImpl) apply(epoch uint64, session types.Session, store bool) bool {
	m.mutex.Lock()
	if m.epoch != epoch {
		m.mutex.Unlock()
		return false
	}
	m.session = session
	var err error
	if store {
		err = m.db.SaveSession(m.key, db.SessionData{
			Account:   session.Account,
			ChainId:   session.ChainId,
			Timestamp: m.now(),
		})
	}
	m.mutex.Unlock()
	setConnectedGauge(session)
	if err != nil {
		log.Error(fmt.Sprintf("Unable to store session %v: %v", m.key, err))
	}
	return true
}

// Disconnect drops the local session first, so it always succeeds locally.
// A provider failure is still returned to the caller.
func (m *sessionManagerImpl) Disconnect(ctx context.Context) error {
	m.ClearSession()
	_, err := await(ctx, m.connectTimeout, func(ctx context.Context) (struct{}, error) {
		start := time.Now()
		defer observeProvider("disconnect", start)
		return struct{}{}, m.provider.Disconnect(ctx)
	})
	if err == nil {
		log.Info("Wallet disconnected")
		return nil
	}
	if ctx.Err() != nil && err == ctx.Err() {
		return err
	}
	log.Warn(fmt.Sprintf("Provider failed to disconnect: %v", err))
	return types.WrapFailure(types.ProviderError, err)
}

// Restore brings back a stored session when it is still alive and the
// provider still exposes its account. Otherwise the stored session is dropped.
func (m *sessionManagerImpl) Restore(ctx context.Context) error {
	data, err := m.db.GetSession(m.key)
	if err == types.NoDataFound {
		return nil
	}
	if err != nil {
		return err
	}
	if data.Account == "" || (m.lifeTime > 0 && m.now().Sub(data.Timestamp) > m.lifeTime) {
		log.Debug(fmt.Sprintf("Stored session %v is expired", m.key))
		return m.db.ClearSession(m.key)
	}
	session := types.ConnectedSession(data.Account, data.ChainId)
	m.mutex.RLock()
	epoch := m.epoch
	m.mutex.RUnlock()
	authorized, err := m.authorized(ctx, session.Account)
	if err != nil {
		return types.WrapFailure(types.ProviderError, err)
	}
	if !authorized {
		log.Info(fmt.Sprintf("Provider no longer exposes account %v, stored session dropped", session.Account))
		return m.db.ClearSession(m.key)
	}
	m.mutex.Lock()
	restored := m.epoch == epoch && m.session.State == types.Disconnected
	if restored {
		m.session = session
	}
	m.mutex.Unlock()
	if restored {
		setConnectedGauge(session)
		log.Info(fmt.Sprintf("Wallet session restored, account: %v, chain: %v", session.Account, session.ChainId))
	}
	return nil
}

func (m *sessionManagerImpl) authorized(ctx context.Context, account string) (bool, error) {
	payload := codec.NewPayload(methodAccounts)
	res, err := await(ctx, m.connectTimeout, func(ctx context.Context) (string, error) {
		start := time.Now()
		defer observeProvider("accounts", start)
		return m.provider.Request(ctx, payload)
	})
	if err != nil {
		return false, err
	}
	var accounts []string
	if err := json.Unmarshal([]byte(res), &accounts); err != nil {
		return false, errors.Wrapf(err, "unexpected %v result %v", methodAccounts, res)
	}
	for _, item := range accounts {
		if strings.EqualFold(item, account) {
			return true, nil
		}
	}
	return false, nil
}
