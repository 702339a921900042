package transport

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/protogate/internal/runtime/errors"
	"github.com/drblury/protogate/internal/runtime/jsoncodec"
	metadatapkg "github.com/drblury/protogate/internal/runtime/metadata"
	"github.com/drblury/protogate/pattern"
)

var findBrand = pattern.Descriptor{Topic: "findBrandById"}

// respond answers every request on topic with the reply built by fn.
func respond(t *testing.T, pubSub *gochannel.GoChannel, topic string, fn func(*message.Message) Reply) {
	t.Helper()
	requests, err := pubSub.Subscribe(context.Background(), topic)
	require.NoError(t, err)

	go func() {
		for msg := range requests {
			out, err := NewReplyMessage(msg, fn(msg))
			if err == nil {
				_ = pubSub.Publish(msg.Metadata.Get(metadatapkg.ReplyTopicKey), out)
			}
			msg.Ack()
		}
	}()
}

func newTopicClient(t *testing.T) (*TopicClient, *gochannel.GoChannel) {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	client := NewTopicClient("channel", "brand-api-gateway", pubSub, pubSub, nil)
	t.Cleanup(func() { _ = client.Close() })
	return client, pubSub
}

func TestTopicClient_RoundTrip(t *testing.T) {
	client, pubSub := newTopicClient(t)

	var gotMetadata message.Metadata
	var gotBody map[string]any
	respond(t, pubSub, findBrand.Topic, func(msg *message.Message) Reply {
		gotMetadata = msg.Metadata
		_ = jsoncodec.Unmarshal(msg.Payload, &gotBody)
		return Reply{Response: map[string]any{"status": "success", "data": gotBody["uuid"]}, IsDisposed: true}
	})

	require.NoError(t, client.SubscribeToResponseOf(findBrand))
	require.NoError(t, client.Connect(context.Background()))

	call, err := client.Send(context.Background(), findBrand, Packet{ID: "corr-1", Data: Payload{"uuid": "abc-123", "lang": "en"}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	reply, err := call.Wait(ctx)
	require.NoError(t, err)

	assert.Equal(t, "corr-1", reply.ID)
	assert.Equal(t, map[string]any{"status": "success", "data": "abc-123"}, reply.Response)
	assert.Equal(t, map[string]any{"uuid": "abc-123", "lang": "en"}, gotBody)
	assert.Equal(t, "corr-1", gotMetadata.Get(metadatapkg.CorrelationIDKey))
	assert.Equal(t, "findBrandById.reply", gotMetadata.Get(metadatapkg.ReplyTopicKey))
	assert.Equal(t, "brand-api-gateway", gotMetadata.Get(metadatapkg.ClientIDKey))
	assert.Zero(t, client.Pending())
}

func TestTopicClient_ConcurrentCallsAreCorrelated(t *testing.T) {
	client, pubSub := newTopicClient(t)

	respond(t, pubSub, findBrand.Topic, func(msg *message.Message) Reply {
		var body map[string]any
		_ = jsoncodec.Unmarshal(msg.Payload, &body)
		return Reply{Response: body["n"], IsDisposed: true}
	})
	require.NoError(t, client.SubscribeToResponseOf(findBrand))
	require.NoError(t, client.Connect(context.Background()))

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			call, err := client.Send(context.Background(), findBrand, Packet{ID: fmt.Sprintf("id-%d", i), Data: Payload{"n": i}})
			if !assert.NoError(t, err) {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			reply, err := call.Wait(ctx)
			if assert.NoError(t, err) {
				assert.Equal(t, float64(i), reply.Response)
			}
		}(i)
	}
	wg.Wait()
}

func TestTopicClient_LifecycleOrdering(t *testing.T) {
	client, _ := newTopicClient(t)

	_, err := client.Send(context.Background(), findBrand, Packet{ID: "early"})
	assert.ErrorIs(t, err, errspkg.ErrNotConnected)

	require.NoError(t, client.Connect(context.Background()))

	err = client.SubscribeToResponseOf(findBrand)
	assert.ErrorIs(t, err, errspkg.ErrAlreadyConnected)

	_, err = client.Send(context.Background(), findBrand, Packet{ID: "unsubscribed"})
	assert.ErrorIs(t, err, errspkg.ErrReplyNotSubscribed)
}

func TestTopicClient_RejectsPointToPointDescriptor(t *testing.T) {
	client, _ := newTopicClient(t)
	err := client.SubscribeToResponseOf(pattern.Descriptor{Role: "findBrandById", Cmd: "find-brand-by-id"})
	assert.Error(t, err)
}

func TestTopicClient_CloseFailsPendingCalls(t *testing.T) {
	client, _ := newTopicClient(t)
	require.NoError(t, client.SubscribeToResponseOf(findBrand))
	require.NoError(t, client.Connect(context.Background()))

	call, err := client.Send(context.Background(), findBrand, Packet{ID: "never-answered"})
	require.NoError(t, err)

	require.NoError(t, client.Close())
	_, err = call.Result()
	assert.ErrorIs(t, err, errspkg.ErrClientClosed)

	assert.NoError(t, client.Close())
	_, err = client.Send(context.Background(), findBrand, Packet{ID: "after-close"})
	assert.ErrorIs(t, err, errspkg.ErrClientClosed)
}

func TestDecodeReplyMessage(t *testing.T) {
	t.Run("envelope", func(t *testing.T) {
		msg := message.NewMessage("1", []byte(`{"id":"a","response":{"ok":true}}`))
		reply, err := DecodeReplyMessage(msg)
		require.NoError(t, err)
		assert.Equal(t, "a", reply.ID)
		assert.Equal(t, map[string]any{"ok": true}, reply.Response)
	})

	t.Run("bare response with headers", func(t *testing.T) {
		msg := message.NewMessage("1", []byte(`{"status":"success"}`))
		msg.Metadata.Set(metadatapkg.CorrelationIDKey, "b")
		reply, err := DecodeReplyMessage(msg)
		require.NoError(t, err)
		assert.Equal(t, "b", reply.ID)
		assert.True(t, reply.IsDisposed)
		assert.Equal(t, map[string]any{"status": "success"}, reply.Response)
	})

	t.Run("error header", func(t *testing.T) {
		msg := message.NewMessage("1", nil)
		msg.Metadata.Set(metadatapkg.CorrelationIDKey, "c")
		msg.Metadata.Set(metadatapkg.ErrorKey, `{"statusCode":409,"message":"Conflict"}`)
		reply, err := DecodeReplyMessage(msg)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"statusCode": float64(409), "message": "Conflict"}, reply.Err)
		assert.True(t, reply.Terminal())
	})

	t.Run("missing correlation id", func(t *testing.T) {
		_, err := DecodeReplyMessage(message.NewMessage("1", []byte(`{"ok":true}`)))
		assert.ErrorIs(t, err, errspkg.ErrMalformedFrame)
	})
}

func TestDecodeRequestMessage(t *testing.T) {
	client, pubSub := newTopicClient(t)

	packets := make(chan Packet, 1)
	respond(t, pubSub, findBrand.Topic, func(msg *message.Message) Reply {
		packet, err := DecodeRequestMessage(msg)
		if err == nil {
			packets <- packet
		}
		return Reply{Response: "ok"}
	})

	require.NoError(t, client.SubscribeToResponseOf(findBrand))
	require.NoError(t, client.Connect(context.Background()))
	_, err := client.Send(context.Background(), findBrand, Packet{ID: "req-1", Data: Payload{"uuid": "u-1"}})
	require.NoError(t, err)

	select {
	case packet := <-packets:
		assert.Equal(t, Packet{ID: "req-1", Pattern: findBrand.Topic, Data: Payload{"uuid": "u-1"}}, packet)
	case <-time.After(2 * time.Second):
		t.Fatal("request not received")
	}

	_, err = DecodeRequestMessage(message.NewMessage("bad", []byte("{")))
	assert.Error(t, err)
}
