package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kelsos/tezos-dapp/internal/logger"
)

var (
	// Wallet session
	WalletOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tezos_dapp",
		Subsystem: "session",
		Name:      "wallet_operations_total",
		Help:      "Wallet session operations by outcome",
	}, []string{"operation", "result"})

	BalanceFetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tezos_dapp",
		Subsystem: "session",
		Name:      "balance_fetch_failures_total",
		Help:      "Balance fetches that were downgraded to a zero balance",
	}, []string{"network"})

	SessionConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tezos_dapp",
		Subsystem: "session",
		Name:      "connected",
		Help:      "1 while a wallet account is connected",
	})

	// Outbound HTTP
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tezos_dapp",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Outbound HTTP requests by upstream and status class",
	}, []string{"upstream", "status"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tezos_dapp",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Outbound HTTP request duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"upstream"})

	RateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tezos_dapp",
		Subsystem: "http",
		Name:      "rate_limit_waits_total",
		Help:      "Requests delayed by the client-side rate limiter",
	}, []string{"upstream"})
)

// Result maps an error to the "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// StatusClass maps an HTTP status code to "2xx", "4xx", ... and 0 to "network_error".
func StatusClass(code int) string {
	switch {
	case code == 0:
		return "network_error"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown: %v", err)
		}
	}()

	logger.Info("Serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
