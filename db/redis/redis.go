package redis

import (
	"context"
	"encoding/json"
	"github.com/idena-network/idena-wallet-connect/db"
	"github.com/idena-network/idena-wallet-connect/types"
	"github.com/pkg/errors"
	backend "github.com/redis/go-redis/v9"
	"strconv"
	"time"
)

const defaultPrefix = "wallet:session:"

type accessor struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*accessor)

// WithTTL makes saved sessions expire on their own after ttl.
func WithTTL(ttl time.Duration) Option {
	return func(a *accessor) {
		a.ttl = ttl
	}
}

func WithPrefix(prefix string) Option {
	return func(a *accessor) {
		a.prefix = prefix
	}
}

func NewAccessor(address, password string, database int, options ...Option) db.Accessor {
	return NewAccessorFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	}), options...)
}

func NewAccessorFromClient(client *backend.Client, options ...Option) db.Accessor {
	a := &accessor{
		client: client,
		prefix: defaultPrefix,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

func (a *accessor) key(key string) string {
	return a.prefix + key
}

// Index of session keys scored by save time, used to find expired sessions.
func (a *accessor) indexKey() string {
	return a.prefix + "index"
}

func (a *accessor) SaveSession(key string, session db.SessionData) error {
	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "unable to marshal session")
	}
	ctx := context.Background()
	pipe := a.client.TxPipeline()
	pipe.Set(ctx, a.key(key), data, a.ttl)
	pipe.ZAdd(ctx, a.indexKey(), backend.Z{
		Score:  float64(session.Timestamp.Unix()),
		Member: key,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "unable to save session to redis")
	}
	return nil
}

func (a *accessor) GetSession(key string) (db.SessionData, error) {
	val, err := a.client.Get(context.Background(), a.key(key)).Result()
	if err == backend.Nil {
		return db.SessionData{}, types.NoDataFound
	}
	if err != nil {
		return db.SessionData{}, errors.Wrap(err, "unable to get session from redis")
	}
	var session db.SessionData
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return db.SessionData{}, errors.Wrap(err, "unable to unmarshal session")
	}
	return session, nil
}

func (a *accessor) ClearSession(key string) error {
	ctx := context.Background()
	pipe := a.client.TxPipeline()
	pipe.Del(ctx, a.key(key))
	pipe.ZRem(ctx, a.indexKey(), key)
	_, err := pipe.Exec(ctx)
	return err
}

func (a *accessor) ClearExpiredSessions(timestamp time.Time) error {
	ctx := context.Background()
	max := "(" + strconv.FormatInt(timestamp.Unix(), 10)
	keys, err := a.client.ZRangeByScore(ctx, a.indexKey(), &backend.ZRangeBy{Min: "-inf", Max: max}).Result()
	if err != nil {
		return errors.Wrap(err, "unable to read session index")
	}
	if len(keys) == 0 {
		return nil
	}
	pipe := a.client.TxPipeline()
	for _, key := range keys {
		pipe.Del(ctx, a.key(key))
		pipe.ZRem(ctx, a.indexKey(), key)
	}
	_, err = pipe.Exec(ctx)
	return err
}
