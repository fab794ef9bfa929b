// Package metrics serves Prometheus metrics and pprof on an optional side port.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/VoolFI71/fast-kv/internal/stats"
	"github.com/VoolFI71/fast-kv/internal/workerpool"
)

// NewRegistry returns a registry with the server counters, the worker pool
// gauges and the Go runtime collectors.
func NewRegistry(s *stats.Stats, pool *workerpool.Pool) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		stats.NewCollector(s),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "fastkv_pool_pending_units",
			Help: "Command units queued and not yet taken by a worker.",
		}, func() float64 { return float64(pool.Pending()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "fastkv_pool_workers",
			Help: "Worker goroutines alive.",
		}, func() float64 { return float64(pool.Running()) }),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

type Server struct {
	srv *http.Server
	log *zap.Logger
}

// Start listens on addr and serves in the background. Failing to bind is
// returned; later serve errors are only logged.
func Start(addr string, handler http.Handler, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		srv: &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second},
		log: log,
	}
	go func() {
		log.Info("metrics server listening", zap.String("addr", ln.Addr().String()))
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server failed", zap.Error(err))
		}
	}()
	return s, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
