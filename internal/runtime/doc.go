/*
Package runtime assembles the gateway process.

A Service owns one dispatch.Connection and dispatch.Dispatcher per module of
the catalog. NewService resolves each module's backend to its transport,
builds the module's pattern registry for that transport and refuses to start
when an operation is missing from it. Operations declared unsupported on the
active transport are logged and answer as unsupported at call time.

Serve connects every backend before it accepts HTTP traffic. When the context
ends the HTTP server drains first and the connections are stopped after it.

# Sub-packages

  - config/: environment configuration with per-backend overrides
  - dispatch/: connections, dispatchers and their middleware chain
  - errors/: sentinel errors shared by transports and dispatchers
  - httpapi/: gin routes, guards and response envelopes
  - ids/: ULID generation for packet ids
  - jsoncodec/: JSON encoding used on the wire
  - logging/: logger interface and adapters
  - metadata/: Watermill metadata keys

# Usage

	conf, err := config.Load(modules.Backends(modules.All())...)
	if err != nil {
		return err
	}
	svc, err := runtime.NewService(conf, logger, modules.All(), runtime.ServiceDependencies{})
	if err != nil {
		return err
	}
	return svc.Start(ctx)
*/
package runtime
