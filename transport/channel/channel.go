// Package channel provides an in-memory topic transport backed by Watermill's
// Go channel pub/sub. It serves local development and tests where a backend
// responder runs in the same process.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	metadatapkg "github.com/drblury/protogate/internal/runtime/metadata"
	"github.com/drblury/protogate/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "channel"

// Factory allows overriding the channel creation, for example to share one
// pub/sub with an in-process backend.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

func init() {
	Register()
}

// Register registers the channel transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.ChannelCapabilities)
}

// Build creates a new Go channel topic client.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Client, error) {
	pub, sub := Factory(gochannel.Config{OutputChannelBuffer: 64}, logger)
	return transport.NewTopicClient(TransportName, cfg.GetClientID(), pub, sub, logger), nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.ChannelCapabilities
}

// Handler answers one request on behalf of a backend.
type Handler func(ctx context.Context, packet transport.Packet) transport.Reply

// Serve answers every request published on topic with h until ctx ends. It
// plays the backend side of a shared pub/sub in local runs and tests.
func Serve(ctx context.Context, pubSub *gochannel.GoChannel, topic string, h Handler) error {
	requests, err := pubSub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}
	go func() {
		for msg := range requests {
			packet, err := transport.DecodeRequestMessage(msg)
			if err != nil {
				msg.Nack()
				continue
			}
			reply := h(msg.Context(), packet)
			reply.ID = packet.ID
			if out, err := transport.NewReplyMessage(msg, reply); err == nil {
				_ = pubSub.Publish(msg.Metadata.Get(metadatapkg.ReplyTopicKey), out)
			}
			msg.Ack()
		}
	}()
	return nil
}
