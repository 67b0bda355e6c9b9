package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metricsServer exposes a Prometheus registry over HTTP.
type metricsServer struct {
	srv      *http.Server
	listener net.Listener
}

// startMetricsServer listens on addr and serves reg at path in the background.
func startMetricsServer(addr, path string, reg *prometheus.Registry, logger hclog.Logger) (*metricsServer, error) {
	if path == "" {
		path = "/metrics"
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog: logger.StandardLogger(&hclog.StandardLoggerOptions{ForceLevel: hclog.Warn}),
	}))

	ms := &metricsServer{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: listener,
	}

	go func() {
		if err := ms.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	logger.Info("serving metrics", "address", listener.Addr().String(), "path", path)
	return ms, nil
}

// Addr returns the address the server listens on.
func (ms *metricsServer) Addr() string {
	return ms.listener.Addr().String()
}

// Shutdown stops the server.
func (ms *metricsServer) Shutdown(ctx context.Context) error {
	return ms.srv.Shutdown(ctx)
}
