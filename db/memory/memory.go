package memory

import (
	"github.com/idena-network/idena-wallet-connect/db"
	"github.com/idena-network/idena-wallet-connect/types"
	"sync"
	"time"
)

type accessor struct {
	mutex    sync.Mutex
	sessions map[string]db.SessionData
}

func NewAccessor() db.Accessor {
	return &accessor{
		sessions: make(map[string]db.SessionData),
	}
}

func (a *accessor) SaveSession(key string, session db.SessionData) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.sessions[key] = session
	return nil
}

func (a *accessor) GetSession(key string) (db.SessionData, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	session, ok := a.sessions[key]
	if !ok {
		return db.SessionData{}, types.NoDataFound
	}
	return session, nil
}

func (a *accessor) ClearSession(key string) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	delete(a.sessions, key)
	return nil
}

func (a *accessor) ClearExpiredSessions(timestamp time.Time) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	for key, session := range a.sessions {
		if session.Timestamp.Before(timestamp) {
			delete(a.sessions, key)
		}
	}
	return nil
}
