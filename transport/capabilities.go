package transport

import "github.com/drblury/protogate/pattern"

// Capabilities describes how a transport addresses operations and what it
// guarantees.
type Capabilities struct {
	// Name is the registered transport name.
	Name string

	// Kind selects the pattern table operations are resolved against.
	Kind pattern.Kind

	// SupportsOrdering indicates replies on one connection arrive in send order.
	SupportsOrdering bool

	// SupportsTracing indicates the transport propagates headers alongside
	// the payload.
	SupportsTracing bool

	// MaxMessageSize is the maximum message size in bytes (0 = unlimited/unknown).
	MaxMessageSize int64
}

// Family returns the addressing family of the transport.
func (c Capabilities) Family() pattern.Family {
	return c.Kind.Family()
}

// RequiresReplySubscriptions reports whether reply topics must be subscribed
// before the first request.
func (c Capabilities) RequiresReplySubscriptions() bool {
	return c.Family() == pattern.Topic
}

// Predefined capability sets for the built-in transports.
var (
	TCPCapabilities = Capabilities{
		Name:             "tcp",
		Kind:             pattern.TCP,
		SupportsOrdering: true,
	}

	NATSCapabilities = Capabilities{
		Name:            "nats",
		Kind:            pattern.NATS,
		SupportsTracing: true,
		MaxMessageSize:  1048576, // Default 1MB
	}

	RedisCapabilities = Capabilities{
		Name: "redis",
		Kind: pattern.REDIS,
	}

	KafkaCapabilities = Capabilities{
		Name:             "kafka",
		Kind:             pattern.KAFKA,
		SupportsOrdering: true,
		SupportsTracing:  true,
		MaxMessageSize:   1048576, // Default 1MB
	}

	RabbitMQCapabilities = Capabilities{
		Name:             "rabbitmq",
		Kind:             pattern.RABBITMQ,
		SupportsOrdering: true,
		SupportsTracing:  true,
	}

	AWSCapabilities = Capabilities{
		Name:             "aws",
		Kind:             pattern.AWS,
		SupportsOrdering: true,
		SupportsTracing:  true,
		MaxMessageSize:   262144, // 256KB
	}

	HTTPCapabilities = Capabilities{
		Name:            "http",
		Kind:            pattern.HTTP,
		SupportsTracing: true,
	}

	ChannelCapabilities = Capabilities{
		Name:             "channel",
		Kind:             pattern.CHANNEL,
		SupportsOrdering: true,
	}
)

// GetCapabilities returns the capabilities for a transport by name from the
// default registry.
func GetCapabilities(transportName string) Capabilities {
	return DefaultRegistry.GetCapabilities(transportName)
}
