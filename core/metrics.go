package core

import (
	"github.com/idena-network/idena-wallet-connect/types"
	"github.com/prometheus/client_golang/prometheus"
	"time"
)

const outcomeSuccess = "success"

var (
	connectTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_connect_total",
			Help: "Total number of wallet connect attempts by outcome.",
		},
		[]string{"outcome"},
	)

	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_dispatch_total",
			Help: "Total number of dispatched wallet requests by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	providerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallet_provider_duration_seconds",
			Help:    "Time spent waiting for the wallet provider.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"operation"},
	)

	sessionConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wallet_session_connected",
			Help: "1 while the wallet session is connected.",
		},
	)
)

func RegisterMetrics(registerer prometheus.Registerer) {
	registerer.MustRegister(connectTotal, dispatchTotal, providerDuration, sessionConnected)
}

func outcomeLabel(err error) string {
	if err == nil {
		return outcomeSuccess
	}
	if kind := types.KindOf(err); kind.String() != "" {
		return kind.String()
	}
	return "unknown"
}

func methodLabel(method types.Method) string {
	switch method {
	case types.MethodPersonalSign, types.MethodSendTransaction:
		return string(method)
	}
	return "rpc"
}

func observeProvider(operation string, start time.Time) {
	providerDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func setConnectedGauge(session types.Session) {
	if session.IsConnected() {
		sessionConnected.Set(1)
		return
	}
	sessionConnected.Set(0)
}
