package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/protogate/internal/runtime/errors"
	"github.com/drblury/protogate/pattern"
	"github.com/drblury/protogate/transport/transporttest"
)

func TestManager(t *testing.T) {
	healthy := newFakeClient()
	broken := newFakeClient()
	broken.connectErr = errors.New("dial tcp 127.0.0.1:4010: connection refused")

	brand := pattern.Define("brand").Op("createBrand", "create-brand").MustBuild()
	brandConn, err := NewConnection("PRODUCT_MICROSERVICE", brand, &transporttest.Config{Transport: "tcp"}, WithBuilder(broken.builder()))
	require.NoError(t, err)

	m := NewManager()
	require.NoError(t, m.Add(New(newConnection(t, "tcp", healthy.builder()), Options{})))
	require.NoError(t, m.Add(New(brandConn, Options{})))
	assert.Error(t, m.Add(New(brandConn, Options{})))

	assert.Equal(t, []string{"brand", "warehouse"}, m.Modules())

	d, err := m.Dispatcher("warehouse")
	require.NoError(t, err)
	assert.Equal(t, "warehouse", d.Module())
	assert.Equal(t, DefaultTimeout, d.Timeout())

	_, err = m.Dispatcher("order")
	assert.ErrorIs(t, err, errspkg.ErrDispatcherNotFound)

	err = m.Start(context.Background())
	assert.ErrorContains(t, err, "brand: connect tcp")
	assert.False(t, m.Healthy())

	statuses := m.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, StateFailed, statuses[0].State)
	assert.Equal(t, StateConnected, statuses[1].State)

	_, err = d.Call(context.Background(), "findWarehouseById", nil)
	assert.NoError(t, err)
	_, err = m.Call(context.Background(), "warehouse", "findWarehouseById", nil)
	assert.NoError(t, err)
	_, err = m.Call(context.Background(), "order", "createOrder", nil)
	assert.ErrorIs(t, err, errspkg.ErrDispatcherNotFound)

	require.NoError(t, m.Stop())
	for _, s := range m.Statuses() {
		assert.Equal(t, StateStopped, s.State)
	}
}

func TestManagerHealthyWhenAllConnected(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Add(New(newConnection(t, "tcp", newFakeClient().builder()), Options{})))
	assert.False(t, m.Healthy())
	require.NoError(t, m.Start(context.Background()))
	assert.True(t, m.Healthy())
}
