// Package transport defines the client contract the gateway dispatches
// through. Each backend (tcp, kafka, nats, ...) lives in its own sub-package and
// registers a Builder with the transport registry.
package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/drblury/protogate/pattern"
)

// Client is one long-lived connection from a gateway module to a backend
// service. Send is safe for concurrent use; Connect and Close are not and are
// serialised by the owner.
type Client interface {
	// Connect opens the underlying connection.
	Connect(ctx context.Context) error
	// Send transmits packet addressed by desc and returns the pending call
	// that completes with the first terminal reply.
	Send(ctx context.Context, desc pattern.Descriptor, packet Packet) (*Call, error)
	// Close releases the connection and fails every pending call.
	Close() error
}

// ReplySubscriber is implemented by topic clients, which must know every reply
// topic before Connect.
type ReplySubscriber interface {
	SubscribeToResponseOf(desc pattern.Descriptor) error
}

// Builder is the function signature for creating a client from config.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Client, error)

// Config provides the connection values of one (module, backend) pair.
// Transports read only the keys that are relevant to them.
type Config interface {
	// GetTransport returns the registered transport name.
	GetTransport() string

	// Identity of this gateway module towards the backend.
	GetClientID() string
	GetConsumerGroup() string

	// TCP
	GetTCPAddress() string

	// Kafka
	GetKafkaBrokers() []string

	// RabbitMQ
	GetRabbitMQURL() string

	// NATS
	GetNATSURL() string

	// Redis
	GetRedisURL() string

	// HTTP
	GetHTTPServerAddress() string
	GetHTTPPublisherURL() string

	// AWS
	GetAWSRegion() string
	GetAWSAccountID() string
	GetAWSAccessKeyID() string
	GetAWSSecretAccessKey() string
	GetAWSEndpoint() string
}
