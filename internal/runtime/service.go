package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	configpkg "github.com/drblury/protogate/internal/runtime/config"
	"github.com/drblury/protogate/internal/runtime/dispatch"
	"github.com/drblury/protogate/internal/runtime/httpapi"
	loggingpkg "github.com/drblury/protogate/internal/runtime/logging"
	"github.com/drblury/protogate/modules"
	"github.com/drblury/protogate/transport"
	_ "github.com/drblury/protogate/transport/transports"
)

const shutdownTimeout = 10 * time.Second

// ServiceDependencies holds the optional collaborators of a Service. Leave
// fields nil to use the defaults.
type ServiceDependencies struct {
	// Builder replaces the transport registry lookup for every connection.
	Builder transport.Builder
	// Registerer and Gatherer back the dispatch metrics and /metrics. They
	// default to the Prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	// Middlewares are appended after the default dispatch chain.
	Middlewares               []dispatch.Middleware
	DisableDefaultMiddlewares bool
}

// Service wires one connection and dispatcher per module and serves the
// catalog over HTTP.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	catalog         []modules.Module
	manager         *dispatch.Manager
	api             *httpapi.Server
	resourceTracker *resourceTracker
}

// NewService builds the connections of every module in catalog. Nothing is
// connected until Start.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, catalog []modules.Module, deps ServiceDependencies) (*Service, error) {
	if log == nil {
		log = loggingpkg.Nop()
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("runtime: invalid config: %w", err)
	}
	log.Info("Creating gateway service", loggingpkg.LogFields{
		"transport": conf.Transport,
		"modules":   len(catalog),
		"config":    conf.String(),
	})

	s := &Service{
		Conf:            conf,
		Logger:          log,
		catalog:         catalog,
		manager:         dispatch.NewManager(),
		resourceTracker: newResourceTracker(),
	}

	registerer, gatherer := deps.Registerer, deps.Gatherer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	var metrics *dispatch.Metrics
	if conf.MetricsEnabled {
		m, err := dispatch.NewMetrics(registerer)
		if err != nil {
			return nil, fmt.Errorf("runtime: metrics: %w", err)
		}
		metrics = m
	}

	var middlewares []dispatch.Middleware
	if !deps.DisableDefaultMiddlewares {
		middlewares = dispatch.DefaultMiddlewares(log, metrics)
	}
	middlewares = append(middlewares, deps.Middlewares...)

	for _, m := range catalog {
		d, err := s.dispatcherFor(m, deps.Builder, middlewares)
		if err != nil {
			return nil, err
		}
		if err := s.manager.Add(d); err != nil {
			return nil, err
		}
	}

	opts := httpapi.Options{
		Prefix:         conf.HTTPPrefix,
		CORSOrigins:    conf.CORSOrigins,
		RateLimitRPS:   conf.RateLimitRPS,
		RateLimitBurst: conf.RateLimitBurst,
		DefaultLang:    conf.DefaultLang,
		SupportedLangs: conf.SupportedLangs,
		Logger:         log,
	}
	if conf.MetricsEnabled {
		opts.Metrics = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	api, err := httpapi.New(s, catalog, opts)
	if err != nil {
		return nil, err
	}
	s.api = api
	return s, nil
}

// dispatcherFor builds the registry of m for its backend's transport, checks
// it for gaps and wraps a connection in a dispatcher.
func (s *Service) dispatcherFor(m modules.Module, build transport.Builder, middlewares []dispatch.Middleware) (*dispatch.Dispatcher, error) {
	endpoint := s.Conf.Endpoint(m.Name, m.Backend)
	kind, err := endpoint.Kind()
	if err != nil {
		return nil, fmt.Errorf("runtime: %s: %w", m.Name, err)
	}
	registry, err := m.Registry(kind)
	if err != nil {
		return nil, fmt.Errorf("runtime: %s: %w", m.Name, err)
	}
	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("runtime: %s: %w", m.Name, err)
	}

	logger := s.Logger.With(loggingpkg.LogFields{
		"module":    m.Name,
		"backend":   m.Backend,
		"transport": endpoint.Transport,
	})
	for _, gap := range registry.Gaps() {
		logger.Info("Operation unsupported on active transport", loggingpkg.LogFields{"operation": gap.Operation})
	}
	for _, op := range m.Undeclared() {
		logger.Info("Routed operation has no descriptor", loggingpkg.LogFields{"operation": op})
	}

	opts := []dispatch.ConnectionOption{dispatch.WithConnectionLogger(logger)}
	if build != nil {
		opts = append(opts, dispatch.WithBuilder(build))
	}
	conn, err := dispatch.NewConnection(m.Backend, registry, endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: %s: %w", m.Name, err)
	}
	return dispatch.New(conn, dispatch.Options{
		Timeout:     s.Conf.DispatchTimeout,
		Logger:      logger,
		Middlewares: middlewares,
	}), nil
}

// Call dispatches op of module.
func (s *Service) Call(ctx context.Context, module, op string, payload transport.Payload) (dispatch.Response, error) {
	return s.manager.Call(ctx, module, op, payload)
}

// Statuses reports the state of every connection.
func (s *Service) Statuses() []dispatch.ConnectionStatus {
	return s.manager.Statuses()
}

// Usage samples the process resource usage shown on /health.
func (s *Service) Usage() any {
	return s.resourceTracker.Snapshot()
}

// Handler returns the HTTP handler serving the catalog.
func (s *Service) Handler() http.Handler {
	return s.api.Handler()
}

// Connect starts every connection. A connection that fails to start makes the
// whole call fail; the connections already started are stopped again.
func (s *Service) Connect(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		_ = s.manager.Stop()
		return fmt.Errorf("runtime: start connections: %w", err)
	}
	s.Logger.Info("All backends connected", loggingpkg.LogFields{"modules": s.manager.Modules()})
	return nil
}

// Stop closes every connection.
func (s *Service) Stop() error {
	return s.manager.Stop()
}

// Start connects every module and serves HTTP on Conf.HTTPAddr until ctx is
// done.
func (s *Service) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Conf.HTTPAddr)
	if err != nil {
		return fmt.Errorf("runtime: listen %s: %w", s.Conf.HTTPAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve connects every module and serves HTTP on ln until ctx is done. The
// connections are stopped once the server has drained.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.Connect(ctx); err != nil {
		_ = ln.Close()
		return err
	}

	server := &http.Server{
		Handler:           s.api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": ln.Addr().String()})
		errCh <- server.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		serveErr = server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	}

	s.Logger.Info("Stopping connections", nil)
	return errors.Join(serveErr, s.manager.Stop())
}
