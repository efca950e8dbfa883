// Package metrics exposes agent instruments through an OpenTelemetry meter backed by a Prometheus
// exporter.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"

	prometheus2 "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

const DefaultEndpoint = "/metrics"

// Server serves the Prometheus scrape endpoint and owns the meter provider feeding it.
type Server struct {
	Meter    api.Meter
	Endpoint string

	provider *metric.MeterProvider
	server   *http.Server
	registry *prometheus2.Registry
}

// NewServer prepares a server listening on addr. It does not start listening until Serve is
// called.
func NewServer(addr, endpoint string) (*Server, error) {
	registry := prometheus2.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	pkg := reflect.TypeOf(Server{}).PkgPath()
	meter := provider.Meter(pkg)

	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	router := http.NewServeMux()
	router.Handle(endpoint, promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))

	return &Server{
		Meter:    meter,
		Endpoint: endpoint,
		provider: provider,
		registry: registry,
		server: &http.Server{
			Addr:    addr,
			Handler: router,
		},
	}, nil
}

// Serve accepts scrapes on l until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	err := s.server.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe listens on the configured address and serves scrapes until Shutdown is called.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(l)
}

// Shutdown stops the server and flushes the meter provider.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	if err := s.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter provider: %w", err)
	}
	return nil
}
