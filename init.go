package main

import (
	"context"
	"fmt"
	"github.com/awnumar/memguard"
	"github.com/idena-network/idena-go/common/hexutil"
	"github.com/idena-network/idena-wallet-connect/codec"
	"github.com/idena-network/idena-wallet-connect/config"
	"github.com/idena-network/idena-wallet-connect/core"
	"github.com/idena-network/idena-wallet-connect/db"
	"github.com/idena-network/idena-wallet-connect/db/memory"
	"github.com/idena-network/idena-wallet-connect/db/postgres"
	"github.com/idena-network/idena-wallet-connect/db/redis"
	"github.com/idena-network/idena-wallet-connect/provider"
	"github.com/idena-network/idena-wallet-connect/provider/local"
	"github.com/idena-network/idena-wallet-connect/provider/relay"
	"github.com/idena-network/idena-wallet-connect/server"
	log "github.com/inconshreveable/log15"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"math/big"
	"os"
	"runtime"
	"time"
)

func initLogger(verbosity int) {
	var handler log.Handler
	logLvl := log.Lvl(verbosity)
	if runtime.GOOS == "windows" {
		handler = log.LvlFilterHandler(logLvl, log.StreamHandler(os.Stdout, log.LogfmtFormat()))
	} else {
		handler = log.LvlFilterHandler(logLvl, log.StreamHandler(os.Stderr, log.TerminalFormat()))
	}
	log.Root().SetHandler(handler)
}

func startServer(appConfig *config.Config) {
	initLogger(appConfig.Verbosity)
	walletProvider := initProvider(appConfig)
	sessions := initSessionManager(appConfig, walletProvider)
	orchestrator := core.NewOrchestrator(
		sessions,
		walletProvider,
		codec.New(appConfig.Session.Exponent),
		core.NewClassifier(appConfig.Session.RejectionPhrases),
		core.WithRequestTimeout(seconds(appConfig.Provider.TimeoutSec)),
	)
	registry := prometheus.NewRegistry()
	core.RegisterMetrics(registry)
	server.NewServer(
		appConfig.Server.Port,
		sessions,
		orchestrator,
		server.WithRateLimit(appConfig.Server.RateLimit, appConfig.Server.RateBurst),
		server.WithMetrics(registry),
		server.WithExponent(appConfig.Session.Exponent),
	).Start()
}

func initSessionManager(appConfig *config.Config, walletProvider provider.Provider) core.SessionManager {
	accessor := initDbAccessor(appConfig)
	lifeTime := seconds(appConfig.Session.LifeTimeSec)
	if lifeTime > 0 {
		go loopClearExpiredSessions(accessor, lifeTime, time.Minute*5)
	}
	sessions := core.NewSessionManager(
		walletProvider,
		accessor,
		appConfig.Session.Key,
		core.WithConnectTimeout(seconds(appConfig.Session.ConnectTimeoutSec)),
		core.WithSessionLifeTime(lifeTime),
	)
	if err := sessions.Restore(context.Background()); err != nil {
		log.Error(fmt.Sprintf("Unable to restore session: %v", err))
	}
	return sessions
}

func loopClearExpiredSessions(accessor db.Accessor, lifeTime, interval time.Duration) {
	for {
		timestamp := time.Now().Add(-lifeTime)
		if err := accessor.ClearExpiredSessions(timestamp); err != nil {
			log.Error(fmt.Sprintf("Unable to clear expired sessions: %v", err))
		} else {
			log.Debug("Expired sessions cleared")
		}
		time.Sleep(interval)
	}
}

func initProvider(appConfig *config.Config) provider.Provider {
	providerConfig := appConfig.Provider
	switch providerConfig.Type {
	case config.ProviderLocal:
		key, err := hexutil.Decode(providerConfig.PrivateKey)
		appConfig.Provider.PrivateKey = ""
		if err != nil {
			panic(errors.Wrap(err, "invalid private key"))
		}
		var options []local.Option
		if providerConfig.RejectAll {
			options = append(options, local.WithRejectAll())
		}
		wallet, err := local.NewWallet(memguard.NewEnclave(key), big.NewInt(providerConfig.ChainId), options...)
		if err != nil {
			panic(err)
		}
		log.Warn(fmt.Sprintf("Using local development wallet %v", wallet.Address()))
		return wallet
	default:
		options := []relay.Option{relay.WithTimeout(seconds(providerConfig.TimeoutSec))}
		if providerConfig.ApiKey != "" {
			options = append(options, relay.WithApiKey(memguard.NewEnclave([]byte(providerConfig.ApiKey))))
			appConfig.Provider.ApiKey = ""
		}
		return relay.NewClient(providerConfig.Url, options...)
	}
}

func initDbAccessor(appConfig *config.Config) db.Accessor {
	storage := appConfig.Storage
	switch storage.Type {
	case config.StoragePostgres:
		return postgres.NewAccessor(storage.Postgres.ConnStr, storage.Postgres.ScriptsDir)
	case config.StorageRedis:
		options := []redis.Option{redis.WithTTL(seconds(appConfig.Session.LifeTimeSec))}
		if storage.Redis.Prefix != "" {
			options = append(options, redis.WithPrefix(storage.Redis.Prefix))
		}
		return redis.NewAccessor(storage.Redis.Addr, storage.Redis.Password, storage.Redis.Db, options...)
	default:
		return memory.NewAccessor()
	}
}

func seconds(value int) time.Duration {
	return time.Second * time.Duration(value)
}
