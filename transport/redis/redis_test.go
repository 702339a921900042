package redis

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/protogate/internal/runtime/errors"
	"github.com/drblury/protogate/pattern"
	"github.com/drblury/protogate/transport"
	"github.com/drblury/protogate/transport/transporttest"
)

var addToCart = pattern.Descriptor{Role: "addToCart", Cmd: "add-to-cart"}

// respond runs a backend answering packets published on the channel of desc.
func respond(t *testing.T, addr string, desc pattern.Descriptor, handle func(transport.Packet) []transport.Reply) {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	ps := rdb.Subscribe(ctx, desc.Pattern())
	_, err := ps.Receive(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ps.Close() })

	go func() {
		for msg := range ps.Channel() {
			packet, err := transport.DecodePacket([]byte(msg.Payload))
			if err != nil {
				continue
			}
			for _, reply := range handle(packet) {
				body, _ := transport.EncodeReply(reply)
				rdb.Publish(ctx, desc.ReplyTopic(), body)
			}
		}
	}()
}

func wait(t *testing.T, call *transport.Call) (transport.Reply, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return call.Wait(ctx)
}

func TestRegister(t *testing.T) {
	original := transport.DefaultRegistry
	defer func() { transport.DefaultRegistry = original }()

	transport.DefaultRegistry = transport.NewRegistry()
	Register()

	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, "redis", caps.Name)
	assert.Equal(t, pattern.REDIS, caps.Kind)
	assert.Equal(t, transport.RedisCapabilities, Capabilities())
}

func TestBuild(t *testing.T) {
	t.Run("requires url", func(t *testing.T) {
		_, err := Build(context.Background(), &transporttest.Config{}, watermill.NopLogger{})
		assert.EqualError(t, err, "redis: url is required")
	})

	t.Run("rejects malformed url", func(t *testing.T) {
		_, err := Build(context.Background(), &transporttest.Config{RedisURL: "http://nope"}, watermill.NopLogger{})
		assert.ErrorContains(t, err, "redis: parse url")
	})

	t.Run("applies client name", func(t *testing.T) {
		client, err := Build(context.Background(), &transporttest.Config{RedisURL: "redis://127.0.0.1:6379/2", ClientID: "cart-gateway"}, watermill.NopLogger{})
		require.NoError(t, err)
		c := client.(*Client)
		assert.Equal(t, "cart-gateway", c.opts.ClientName)
		assert.Equal(t, 2, c.opts.DB)
		var _ transport.ReplySubscriber = c
	})
}

func TestClient_RequestReply(t *testing.T) {
	mr := miniredis.RunT(t)
	respond(t, mr.Addr(), addToCart, func(p transport.Packet) []transport.Reply {
		return []transport.Reply{
			{ID: p.ID, Response: map[string]any{"status": "success", "data": p.Data["productId"]}},
			{ID: p.ID, IsDisposed: true},
		}
	})

	client := NewClient(&redis.Options{Addr: mr.Addr()}, nil)
	defer client.Close()
	require.NoError(t, client.SubscribeToResponseOf(addToCart))
	require.NoError(t, client.Connect(context.Background()))

	call, err := client.Send(context.Background(), addToCart, transport.Packet{ID: "r1", Data: transport.Payload{"productId": "p-9"}})
	require.NoError(t, err)

	reply, err := wait(t, call)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "success", "data": "p-9"}, reply.Response)
}

func TestClient_ReplySubscriptions(t *testing.T) {
	mr := miniredis.RunT(t)

	client := NewClient(&redis.Options{Addr: mr.Addr()}, nil)
	defer client.Close()

	assert.Error(t, client.SubscribeToResponseOf(pattern.Descriptor{Topic: "add-to-cart"}))
	require.NoError(t, client.SubscribeToResponseOf(addToCart))
	require.NoError(t, client.Connect(context.Background()))

	assert.ErrorIs(t, client.SubscribeToResponseOf(addToCart), errspkg.ErrAlreadyConnected)

	_, err := client.Send(context.Background(), pattern.Descriptor{Role: "clearCart", Cmd: "clear-cart"}, transport.Packet{ID: "x"})
	assert.ErrorIs(t, err, errspkg.ErrReplyNotSubscribed)
}

func TestClient_Errors(t *testing.T) {
	t.Run("send before connect", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "127.0.0.1:1"}, nil).Send(context.Background(), addToCart, transport.Packet{ID: "1"})
		assert.ErrorIs(t, err, errspkg.ErrNotConnected)
	})

	t.Run("unreachable server", func(t *testing.T) {
		client := NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond}, nil)
		err := client.Connect(context.Background())
		assert.ErrorContains(t, err, "redis: ping")
	})

	t.Run("close fails pending calls", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := NewClient(&redis.Options{Addr: mr.Addr()}, nil)
		require.NoError(t, client.SubscribeToResponseOf(addToCart))
		require.NoError(t, client.Connect(context.Background()))

		call, err := client.Send(context.Background(), addToCart, transport.Packet{ID: "hang"})
		require.NoError(t, err)
		require.NoError(t, client.Close())
		require.NoError(t, client.Close())

		_, err = wait(t, call)
		assert.ErrorIs(t, err, errspkg.ErrClientClosed)

		_, err = client.Send(context.Background(), addToCart, transport.Packet{ID: "after"})
		assert.ErrorIs(t, err, errspkg.ErrClientClosed)
	})
}
