package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the dispatcher.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight *prometheus.GaugeVec
}

// NewMetrics creates the dispatcher collectors and registers them with
// registerer (the default registerer when nil). Registering twice reuses the
// collectors already registered.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protogate",
		Subsystem: "dispatch",
		Name:      "calls_total",
		Help:      "Dispatched calls by module, operation, transport and outcome.",
	}, []string{"module", "operation", "transport", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "protogate",
		Subsystem: "dispatch",
		Name:      "call_duration_seconds",
		Help:      "Time from send to terminal reply.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"module", "operation", "transport"})
	inflight := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "protogate",
		Subsystem: "dispatch",
		Name:      "inflight_calls",
		Help:      "Calls awaiting a reply.",
	}, []string{"module"})

	var err error
	if calls, err = register(registerer, calls); err != nil {
		return nil, err
	}
	if duration, err = register(registerer, duration); err != nil {
		return nil, err
	}
	if inflight, err = register(registerer, inflight); err != nil {
		return nil, err
	}
	return &Metrics{calls: calls, duration: duration, inflight: inflight}, nil
}

func register[C prometheus.Collector](registerer prometheus.Registerer, c C) (C, error) {
	if err := registerer.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Middleware records the calls passing through it.
func (m *Metrics) Middleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (Response, error) {
			gauge := m.inflight.WithLabelValues(req.Module)
			gauge.Inc()
			start := time.Now()

			resp, err := next(ctx, req)

			gauge.Dec()
			m.duration.WithLabelValues(req.Module, req.Operation, req.Transport).Observe(time.Since(start).Seconds())
			m.calls.WithLabelValues(req.Module, req.Operation, req.Transport, Outcome(err)).Inc()
			return resp, err
		}
	}
}
