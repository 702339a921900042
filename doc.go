// Package protogate is an HTTP gateway that relays every endpoint to a backend
// service over a pluggable transport. One process speaks NestJS-style TCP,
// NATS, Redis, Kafka, RabbitMQ, AWS SNS/SQS, Watermill HTTP or in-memory Go
// channels, chosen per backend from Config.
//
// Each gateway module declares its operations once with pattern.Define. The
// declaration yields a role/command pair for point-to-point transports and a
// topic for topic transports, and an operation can be declared unsupported on
// a family of transports. The Service builds one connection and one dispatcher
// per module, checks the tables against the active transport at startup and
// serves the module routes with gin.
//
// # Errors
//
// A call fails with one of four errors. UnsupportedOperationError means the
// active transport has no descriptor for the operation. TransportError means
// the request never produced a reply. RemoteError carries the error a backend
// answered with, and its status code is passed on to the HTTP caller.
// TimeoutError means no terminal reply arrived in time and is answered with 504.
//
// # Quick start
//
//	conf, err := protogate.LoadConfig(protogate.Backends(protogate.Modules())...)
//	if err != nil {
//		return err
//	}
//	svc, err := protogate.NewService(conf, logger, protogate.Modules(), protogate.ServiceDependencies{})
//	if err != nil {
//		return err
//	}
//	return svc.Start(ctx)
package protogate
