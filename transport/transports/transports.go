// Package transports imports all built-in transports for auto-registration.
// Import this package to have all transports registered with the default registry.
package transports

import (
	// Import all transports for side-effect registration
	_ "github.com/drblury/protogate/transport/aws"
	_ "github.com/drblury/protogate/transport/channel"
	_ "github.com/drblury/protogate/transport/http"
	_ "github.com/drblury/protogate/transport/kafka"
	_ "github.com/drblury/protogate/transport/nats"
	_ "github.com/drblury/protogate/transport/rabbitmq"
	_ "github.com/drblury/protogate/transport/redis"
	_ "github.com/drblury/protogate/transport/tcp"
)
