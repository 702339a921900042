package dispatch

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/protogate/transport"
)

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	client := newFakeClient()
	d := startedDispatcher(t, "tcp", client.builder(), Options{Middlewares: []Middleware{metrics.Middleware()}})

	_, err = d.Call(context.Background(), "findWarehouseById", transport.Payload{"uuid": "u"})
	require.NoError(t, err)
	_, err = d.Call(context.Background(), "findWarehouseById", transport.Payload{"uuid": "u"})
	require.NoError(t, err)
	_, err = d.Call(context.Background(), "unknownOperation", nil)
	require.Error(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.calls.WithLabelValues("warehouse", "findWarehouseById", "tcp", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.calls.WithLabelValues("warehouse", "unknownOperation", "tcp", "unsupported")))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.inflight.WithLabelValues("warehouse")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.duration))
}

func TestNewMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	require.NoError(t, err)
	second, err := NewMetrics(reg)
	require.NoError(t, err)

	first.calls.WithLabelValues("brand", "createBrand", "kafka", "ok").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(second.calls.WithLabelValues("brand", "createBrand", "kafka", "ok")))
}
