// Package metrics collects dashboard metrics: contract reads, refreshes,
// transactions and node call latency. Collectors live on a private
// Prometheus registry served by Handler.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "uwealth"

// Result label values.
const (
	resultOK    = "ok"
	resultError = "error"
)

// Metrics holds the collectors plus atomic totals for the CLI summary.
type Metrics struct {
	registry *prometheus.Registry

	reads        *prometheus.CounterVec
	refreshes    *prometheus.CounterVec
	transactions *prometheus.CounterVec
	rpcLatency   *prometheus.HistogramVec

	rpcCallsTotal   atomic.Int64
	rpcErrorsTotal  atomic.Int64
	rpcLatencyNanos atomic.Int64
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		reads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reads_total",
			Help:      "Total number of contract and balance reads",
		}, []string{"field", "result"}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Total number of dashboard refreshes by outcome",
		}, []string{"result"}),
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Total number of transaction status changes",
		}, []string{"kind", "status"}),
		rpcLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_latency_seconds",
			Help:      "Latency of node JSON-RPC calls",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"method"}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRead counts one read of field.
func (m *Metrics) ObserveRead(field string, err error) {
	m.reads.WithLabelValues(field, result(err)).Inc()
}

// ObserveRefresh counts one refresh outcome.
func (m *Metrics) ObserveRefresh(outcome string) {
	m.refreshes.WithLabelValues(outcome).Inc()
}

// ObserveTransaction counts one transaction status change.
func (m *Metrics) ObserveTransaction(kind, status string) {
	m.transactions.WithLabelValues(kind, status).Inc()
}

// ObserveRPC records the latency of a node call.
func (m *Metrics) ObserveRPC(method string, elapsed time.Duration, err error) {
	m.rpcLatency.WithLabelValues(method).Observe(elapsed.Seconds())
	m.rpcCallsTotal.Add(1)
	m.rpcLatencyNanos.Add(elapsed.Nanoseconds())
	if err != nil {
		m.rpcErrorsTotal.Add(1)
	}
}

// RPCCallsTotal returns the total number of node calls made.
func (m *Metrics) RPCCallsTotal() int64 {
	return m.rpcCallsTotal.Load()
}

// RPCErrorsTotal returns the total number of failed node calls.
func (m *Metrics) RPCErrorsTotal() int64 {
	return m.rpcErrorsTotal.Load()
}

// RPCLatencyAvgMs returns the average node call latency in milliseconds.
// Returns 0 if no calls have been made.
func (m *Metrics) RPCLatencyAvgMs() float64 {
	calls := m.rpcCallsTotal.Load()
	if calls == 0 {
		return 0
	}
	return float64(m.rpcLatencyNanos.Load()) / float64(calls) / 1e6
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx ends.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultOK
}
