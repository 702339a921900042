package dispatch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/protogate/internal/runtime/errors"
	"github.com/drblury/protogate/pattern"
	"github.com/drblury/protogate/transport"
	"github.com/drblury/protogate/transport/channel"
	"github.com/drblury/protogate/transport/tcp"
	"github.com/drblury/protogate/transport/transporttest"
)

func TestCall_TopicRoundTrip(t *testing.T) {
	shared, build := sharedChannel(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var received transport.Packet
	require.NoError(t, channel.Serve(ctx, shared, "findWarehouseById", func(_ context.Context, p transport.Packet) transport.Reply {
		received = p
		return transport.Reply{Response: map[string]any{
			"status":  "success",
			"message": "Warehouse found",
			"data":    map[string]any{"uuid": p.Data["uuid"]},
		}}
	}))

	d := startedDispatcher(t, "channel", build, Options{Timeout: 2 * time.Second})
	payload := transport.Payload{"uuid": "abc-123", "lang": "en"}
	resp, err := d.Call(context.Background(), "findWarehouseById", payload)
	require.NoError(t, err)

	assert.Equal(t, "success", resp.Status())
	assert.Equal(t, "Warehouse found", resp.Message())
	data, ok := resp.Data()
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"uuid": "abc-123"}, data)

	assert.Equal(t, payload, received.Data)
	assert.Equal(t, "findWarehouseById", received.Pattern)
	assert.Len(t, received.ID, 26)
}

func TestCall_IndependentRepeatedCalls(t *testing.T) {
	client := newFakeClient()
	d := startedDispatcher(t, "tcp", client.builder(), Options{})

	payload := transport.Payload{"uuid": "abc-123"}
	first, err := d.Call(context.Background(), "findWarehouseById", payload)
	require.NoError(t, err)
	second, err := d.Call(context.Background(), "findWarehouseById", payload)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, map[string]any{"uuid": "abc-123"}, first.Value)
}

func TestCall_Unsupported(t *testing.T) {
	_, build := sharedChannel(t)
	conn := newConnection(t, "channel", build)
	d := New(conn, Options{})

	_, err := d.Call(context.Background(), "restoreWarehouse", transport.Payload{})
	var unsupported *UnsupportedOperationError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, pattern.ReasonDeclared, unsupported.Reason)
	assert.Equal(t, pattern.CHANNEL, unsupported.Kind)
	assert.Equal(t, "warehouse", unsupported.Module)

	_, err = d.Call(context.Background(), "fetchAllBrand", transport.Payload{})
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, pattern.ReasonUnknown, unsupported.Reason)

	_, err = d.Call(context.Background(), "", nil)
	assert.ErrorIs(t, err, errspkg.ErrOperationRequired)
}

func TestCall_RemoteErrors(t *testing.T) {
	tests := []struct {
		name     string
		reply    transport.Reply
		wantCode int
		wantMsg  string
	}{
		{
			name:     "err frame",
			reply:    transport.Reply{Err: map[string]any{"statusCode": float64(404), "message": "Not Found"}},
			wantCode: 404,
			wantMsg:  "Not Found",
		},
		{
			name:     "error status in response",
			reply:    transport.Reply{Response: map[string]any{"statusCode": float64(404), "message": "Not Found"}},
			wantCode: 404,
			wantMsg:  "Not Found",
		},
		{
			name:    "plain string err",
			reply:   transport.Reply{Err: "Internal server error"},
			wantMsg: "Internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shared, build := sharedChannel(t)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			require.NoError(t, channel.Serve(ctx, shared, "findWarehouseById", func(context.Context, transport.Packet) transport.Reply {
				return tt.reply
			}))

			d := startedDispatcher(t, "channel", build, Options{Timeout: 2 * time.Second})
			_, err := d.Call(context.Background(), "findWarehouseById", transport.Payload{"uuid": "x"})

			var remote *RemoteError
			require.ErrorAs(t, err, &remote)
			assert.Equal(t, tt.wantCode, remote.StatusCode)
			assert.Equal(t, tt.wantMsg, remote.Message)
			assert.Equal(t, "findWarehouseById", remote.Operation)
			assert.Equal(t, "remote", Outcome(err))
		})
	}
}

func TestCall_Timeout(t *testing.T) {
	_, build := sharedChannel(t)
	d := startedDispatcher(t, "channel", build, Options{Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := d.Call(context.Background(), "createWarehouse", transport.Payload{"data": map[string]any{"name": "North"}})

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 50*time.Millisecond, timeout.After)
	assert.Less(t, time.Since(start), time.Second)
	assert.Zero(t, d.Connection().Status().Pending)
}

func TestCall_Canceled(t *testing.T) {
	_, build := sharedChannel(t)
	d := startedDispatcher(t, "channel", build, Options{Timeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := d.Call(ctx, "createWarehouse", transport.Payload{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "canceled", Outcome(err))
	assert.Zero(t, d.Connection().Status().Pending)
}

func TestCall_Lifecycle(t *testing.T) {
	client := newFakeClient()
	conn := newConnection(t, "tcp", client.builder())
	d := New(conn, Options{})

	_, err := d.Call(context.Background(), "findWarehouseById", nil)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, errspkg.ErrNotStarted)
	assert.Equal(t, "PRODUCT_MICROSERVICE", transportErr.Backend)

	require.NoError(t, conn.Start(context.Background()))
	_, err = d.Call(context.Background(), "findWarehouseById", nil)
	require.NoError(t, err)

	require.NoError(t, conn.Stop())
	require.NoError(t, conn.Stop())
	_, err = d.Call(context.Background(), "findWarehouseById", nil)
	assert.ErrorIs(t, err, errspkg.ErrStopped)
	assert.ErrorIs(t, conn.Start(context.Background()), errspkg.ErrStopped)
}

func TestCall_BlocksUntilStartCompletes(t *testing.T) {
	client := newFakeClient()
	client.gate = make(chan struct{})
	conn := newConnection(t, "channel", client.builder())
	d := New(conn, Options{})

	started := make(chan error, 1)
	go func() { started <- conn.Start(context.Background()) }()
	require.Eventually(t, func() bool {
		return len(client.Events()) > 0
	}, time.Second, 5*time.Millisecond, "subscriptions not registered")

	result := make(chan error, 1)
	go func() {
		_, err := d.Call(context.Background(), "findWarehouseById", transport.Payload{"uuid": "u"})
		result <- err
	}()

	select {
	case err := <-result:
		t.Fatalf("call completed before start: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(client.gate)
	require.NoError(t, <-started)
	require.NoError(t, <-result)
}

func TestCall_ConcurrentOutOfOrderOverTCP(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var mu sync.Mutex
		r := bufio.NewReader(conn)
		for {
			raw, err := tcp.ReadFrame(r)
			if err != nil {
				return
			}
			packet, err := transport.DecodePacket(raw)
			if err != nil {
				return
			}
			go func() {
				n := int(packet.Data["n"].(float64))
				time.Sleep(time.Duration(25-n) * time.Millisecond)
				body, _ := transport.EncodeReply(transport.Reply{ID: packet.ID, Response: map[string]any{"data": float64(n)}, IsDisposed: true})
				mu.Lock()
				_, _ = conn.Write(tcp.EncodeFrame(body))
				mu.Unlock()
			}()
		}
	}()

	addr := listener.Addr().String()
	build := func(_ context.Context, _ transport.Config, logger watermill.LoggerAdapter) (transport.Client, error) {
		return tcp.NewClient(addr, logger), nil
	}
	d := startedDispatcher(t, "tcp", build, Options{Timeout: 2 * time.Second})

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := d.Call(context.Background(), "findWarehouseById", transport.Payload{"n": i})
			if assert.NoError(t, err) {
				data, _ := resp.Data()
				assert.Equal(t, float64(i), data, fmt.Sprintf("call %d", i))
			}
		}(i)
	}
	wg.Wait()
}

func TestConnection_SubscribesBeforeConnect(t *testing.T) {
	client := newFakeClient()
	conn := newConnection(t, "kafka", client.builder())
	require.NoError(t, conn.Start(context.Background()))

	assert.Equal(t, []string{
		"subscribe createWarehouse.reply",
		"subscribe findWarehouseById.reply",
		"connect",
	}, client.Events())

	status := conn.Status()
	assert.Equal(t, StateConnected, status.State)
	assert.Equal(t, "KAFKA", status.Kind)
	assert.Equal(t, "warehouse", status.Module)
	assert.False(t, status.ConnectedAt.IsZero())
}

func TestConnection_PointToPointSkipsSubscriptions(t *testing.T) {
	client := newFakeClient()
	build := func(context.Context, transport.Config, watermill.LoggerAdapter) (transport.Client, error) {
		return plainClient{inner: client}, nil
	}
	conn := newConnection(t, "tcp", build)
	require.NoError(t, conn.Start(context.Background()))
	assert.Equal(t, []string{"connect"}, client.Events())
}

func TestConnection_StartFailures(t *testing.T) {
	t.Run("connect fails", func(t *testing.T) {
		client := newFakeClient()
		client.connectErr = errors.New("connection refused")
		conn := newConnection(t, "tcp", client.builder())
		d := New(conn, Options{})

		err := conn.Start(context.Background())
		assert.ErrorContains(t, err, "connection refused")
		assert.Equal(t, []string{"subscribe {\"cmd\":\"create-warehouse\",\"role\":\"createWarehouse\"}.reply",
			"subscribe {\"cmd\":\"find-warehouse-by-id\",\"role\":\"findWarehouseById\"}.reply",
			"subscribe {\"cmd\":\"restore-warehouse\",\"role\":\"restoreWarehouse\"}.reply",
			"connect", "close"}, client.Events())

		status := conn.Status()
		assert.Equal(t, StateFailed, status.State)
		assert.Contains(t, status.Error, "connection refused")

		_, err = d.Call(context.Background(), "findWarehouseById", nil)
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.ErrorIs(t, err, errspkg.ErrNotConnected)
		assert.NoError(t, conn.Stop())
	})

	t.Run("build fails", func(t *testing.T) {
		build := func(context.Context, transport.Config, watermill.LoggerAdapter) (transport.Client, error) {
			return nil, errors.New("kafka: brokers are required")
		}
		conn := newConnection(t, "kafka", build)
		assert.ErrorContains(t, conn.Start(context.Background()), "brokers are required")
		assert.NoError(t, conn.Stop())
	})

	t.Run("topic client without reply subscriptions", func(t *testing.T) {
		client := newFakeClient()
		build := func(context.Context, transport.Config, watermill.LoggerAdapter) (transport.Client, error) {
			return plainClient{inner: client}, nil
		}
		conn := newConnection(t, "rabbitmq", build)
		assert.ErrorContains(t, conn.Start(context.Background()), "cannot subscribe to replies")
		assert.Equal(t, []string{"close"}, client.Events())
	})
}

func TestNewConnection_Errors(t *testing.T) {
	_, err := NewConnection("B", nil, nil)
	assert.ErrorIs(t, err, errspkg.ErrRegistryRequired)

	_, err = NewConnection("B", warehouse, &transporttest.Config{})
	assert.ErrorIs(t, err, errspkg.ErrTransportRequired)

	_, err = NewConnection("B", warehouse, &transporttest.Config{Transport: "pigeon"})
	assert.ErrorContains(t, err, "unknown transport kind")
}

func TestCall_MiddlewareOrderAndLogging(t *testing.T) {
	client := newFakeClient()
	logger := &recordingLogger{}

	var order []string
	mark := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, req *Request) (Response, error) {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}
	middlewares := append([]Middleware{mark("first"), mark("second")}, DefaultMiddlewares(logger, nil)...)
	d := startedDispatcher(t, "tcp", client.builder(), Options{Middlewares: middlewares})

	_, err := d.Call(context.Background(), "findWarehouseById", transport.Payload{"uuid": "u"})
	require.NoError(t, err)
	_, err = d.Call(context.Background(), "restoreWarehouseX", nil)
	require.Error(t, err)

	assert.Equal(t, []string{"first", "second", "first", "second"}, order)

	entries := logger.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "debug", entries[0].level)
	assert.Equal(t, "findWarehouseById", entries[0].fields["operation"])
	assert.Equal(t, "ok", entries[0].fields["outcome"])
	assert.Contains(t, entries[0].fields, "issued_at")
	assert.Equal(t, "error", entries[1].level)
	assert.Equal(t, "unsupported", entries[1].fields["outcome"])
}
