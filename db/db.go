package db

import "time"

type Accessor interface {
	SaveSession(key string, session SessionData) error
	GetSession(key string) (SessionData, error)
	ClearSession(key string) error
	ClearExpiredSessions(timestamp time.Time) error
}
