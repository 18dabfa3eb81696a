package postgres

import (
	"database/sql"
	"fmt"
	"github.com/idena-network/idena-wallet-connect/db"
	"github.com/idena-network/idena-wallet-connect/types"
	log "github.com/inconshreveable/log15"
	_ "github.com/lib/pq"
	"io/ioutil"
	"path/filepath"
	"strings"
	"time"
)

const (
	initQuery                 = "init.sql"
	saveSessionQuery          = "saveSession.sql"
	getSessionQuery           = "getSession.sql"
	clearSessionQuery         = "clearSession.sql"
	clearExpiredSessionsQuery = "clearExpiredSessions.sql"
)

type accessor struct {
	db      *sql.DB
	queries map[string]string
}

func NewAccessor(connStr string, scriptsDirPath string) db.Accessor {
	sqlDb, err := sql.Open("postgres", connStr)
	if err != nil {
		panic(err)
	}
	a := &accessor{
		db:      sqlDb,
		queries: readQueries(scriptsDirPath),
	}
	for {
		if err := a.init(); err != nil {
			log.Error(fmt.Sprintf("Unable to initialize postgres connection: %v", err))
			time.Sleep(time.Second * 10)
			continue
		}
		break
	}
	return a
}

func readQueries(scriptsDirPath string) map[string]string {
	files, err := ioutil.ReadDir(scriptsDirPath)
	if err != nil {
		panic(err)
	}
	queries := make(map[string]string)
	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}
		bytes, err := ioutil.ReadFile(filepath.Join(scriptsDirPath, file.Name()))
		if err != nil {
			panic(err)
		}
		queries[file.Name()] = string(bytes)
		log.Debug(fmt.Sprintf("Read query %s from %s", file.Name(), scriptsDirPath))
	}
	return queries
}

func (a *accessor) init() error {
	if err := a.db.Ping(); err != nil {
		return err
	}
	_, err := a.db.Exec(a.getQuery(initQuery))
	return err
}

func (a *accessor) getQuery(name string) string {
	if query, present := a.queries[name]; present {
		return query
	}
	panic(fmt.Sprintf("There is no query '%s'", name))
}

func (a *accessor) SaveSession(key string, session db.SessionData) error {
	_, err := a.db.Exec(a.getQuery(saveSessionQuery), key, session.Account, session.ChainId, session.Timestamp)
	return err
}

func (a *accessor) GetSession(key string) (db.SessionData, error) {
	var res db.SessionData
	err := a.db.QueryRow(a.getQuery(getSessionQuery), key).Scan(
		&res.Account,
		&res.ChainId,
		&res.Timestamp,
	)
	if err == sql.ErrNoRows {
		err = types.NoDataFound
	}
	return res, err
}

func (a *accessor) ClearSession(key string) error {
	_, err := a.db.Exec(a.getQuery(clearSessionQuery), key)
	return err
}

func (a *accessor) ClearExpiredSessions(timestamp time.Time) error {
	_, err := a.db.Exec(a.getQuery(clearExpiredSessionsQuery), timestamp)
	return err
}
